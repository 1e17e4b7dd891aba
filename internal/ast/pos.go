// Package ast defines the concrete shapes of the parsed, position-annotated
// syntax tree that the resolver and lowerer consume. Lexing and parsing
// themselves live upstream of this package; ast only carries the result.
package ast

import "fmt"

// Pos is the opaque source position attached to definitions, statements and
// expressions. It carries no semantics of its own beyond attributing
// diagnostics to a place in the source file.
type Pos struct {
	Line int
	Col  int
}

// String renders Pos as "line:col" for diagnostic messages.
func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// ConstId is a qualified identifier. Only Path[0] is consulted by the
// resolver and lowerer; dotted access beyond the first segment is out of
// scope for this core.
type ConstId struct {
	Absolute bool
	Path     []string
}

// Name returns the first path segment, the only one this core resolves.
func (c ConstId) Name() string {
	if len(c.Path) == 0 {
		return ""
	}
	return c.Path[0]
}
