// Package diag defines the closed set of user-facing error kinds and
// the accumulator the resolver uses to collect them without short-circuiting.
//
// Internal invariant violations (break outside a loop, an unrecognised AST
// node) are a different class of problem: they are programmer/compiler
// bugs, not user errors, and are signalled by panicking with Internal,
// which the driver recovers at the top level.
package diag

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"classc/internal/ast"
)

// Kind is the closed set of diagnostic kinds a compile can report.
type Kind uint8

const (
	LookupFailure Kind = iota
	NotAClass
	NotAFunction
	TypeMismatch
	WrongNumberOfArguments
	WrongReturnType
	MisuseOfClass
)

var kindName = [...]string{
	LookupFailure:          "LookupFailure",
	NotAClass:              "NotAClass",
	NotAFunction:           "NotAFunction",
	TypeMismatch:           "TypeMismatch",
	WrongNumberOfArguments: "WrongNumberOfArguments",
	WrongReturnType:        "WrongReturnType",
	MisuseOfClass:          "MisuseOfClass",
}

func (k Kind) String() string {
	if int(k) < len(kindName) {
		return kindName[k]
	}
	return "Unknown"
}

// Diagnostic is a single user-facing error, optionally positioned.
type Diagnostic struct {
	Kind    Kind
	Message string
	Pos     *ast.Pos
}

// Error implements the error interface so a single Diagnostic can be
// returned or wrapped wherever plain error is expected.
func (d *Diagnostic) Error() string {
	if d.Pos != nil {
		return fmt.Sprintf("%s: %s: %s", d.Pos.String(), d.Kind.String(), d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Kind.String(), d.Message)
}

// Diagnostics accumulates Diagnostic values without short-circuiting, for
// the resolver's "walk every definition, report every error" policy. It is
// not safe for concurrent use: the pipeline is single-threaded.
type Diagnostics struct {
	items []*Diagnostic
}

// Add records a new diagnostic.
func (d *Diagnostics) Add(kind Kind, pos ast.Pos, format string, args ...interface{}) {
	p := pos
	d.items = append(d.items, &Diagnostic{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Pos:     &p,
	})
}

// AddNoPos records a diagnostic with no source position attached.
func (d *Diagnostics) AddNoPos(kind Kind, format string, args ...interface{}) {
	d.items = append(d.items, &Diagnostic{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	})
}

// Len reports the number of accumulated diagnostics.
func (d *Diagnostics) Len() int {
	return len(d.items)
}

// Items returns every accumulated diagnostic in report order.
func (d *Diagnostics) Items() []*Diagnostic {
	return d.items
}

// Err returns nil if no diagnostics were recorded, or an error aggregating
// all of them otherwise.
func (d *Diagnostics) Err() error {
	if len(d.items) == 0 {
		return nil
	}
	return &multiError{items: d.items}
}

// multiError renders every accumulated Diagnostic, one per line.
type multiError struct {
	items []*Diagnostic
}

func (m *multiError) Error() string {
	sb := strings.Builder{}
	for i, it := range m.items {
		if i > 0 {
			sb.WriteRune('\n')
		}
		sb.WriteString(it.Error())
	}
	return sb.String()
}

// Internal signals a fatal internal invariant violation: break outside a
// loop, an AST node the lowerer does not recognise, and similar compiler
// bugs rather than user errors. Callers recover it at the top of the
// pipeline; it is never accumulated alongside user Diagnostics.
type Internal struct {
	Message string
}

func (e *Internal) Error() string {
	return "internal compiler error: " + e.Message
}

// Fatal panics with an Internal error, for instruction-level misuse that
// should never reach this point if the callers above it are correct.
func Fatal(format string, args ...interface{}) {
	panic(&Internal{Message: fmt.Sprintf(format, args...)})
}

// AsDiagnostics unwraps an error returned by Diagnostics.Err or a single
// Diagnostic into its constituent Diagnostic values, for a caller (the
// driver) that wants to render each one individually instead of printing
// Error() as one opaque string.
func AsDiagnostics(err error) ([]*Diagnostic, bool) {
	switch e := err.(type) {
	case *multiError:
		return e.items, true
	case *Diagnostic:
		return []*Diagnostic{e}, true
	default:
		return nil, false
	}
}

// Render writes a single Diagnostic to sb, colouring the kind the way the
// driver highlights diagnostics on a terminal.
func Render(sb *strings.Builder, d *Diagnostic) {
	c := color.New(color.FgRed, color.Bold)
	sb.WriteString(c.Sprint(d.Kind.String()))
	if d.Pos != nil {
		sb.WriteString(" at ")
		sb.WriteString(d.Pos.String())
	}
	sb.WriteString(": ")
	sb.WriteString(d.Message)
}
