// Package types defines the resolved type representation (RType) produced by
// internal/resolve and consumed by internal/lower: a small, closed set of
// tagged data types with a printable form.
package types

import (
	"fmt"
	"strings"
)

// Kind discriminates the RType variant.
type Kind uint8

const (
	Int Kind = iota
	Bool
	Float
	Void
	ClassRef
	Function
)

var kindName = [...]string{
	Int:      "int",
	Bool:     "bool",
	Float:    "float",
	Void:     "void",
	ClassRef: "class",
	Function: "function",
}

func (k Kind) String() string {
	if int(k) < len(kindName) {
		return kindName[k]
	}
	return "unknown"
}

// RType is the resolved type of a class, function, variable or expression.
// Equality is structural, except ClassRef which compares by ClassID.
type RType struct {
	Kind    Kind
	ClassID uint64   // valid when Kind == ClassRef
	Return  *RType   // valid when Kind == Function
	Params  []RType  // valid when Kind == Function
}

// Mk constructors keep call sites in internal/resolve and internal/lower
// free of literal Kind plumbing.

func MkInt() RType   { return RType{Kind: Int} }
func MkBool() RType  { return RType{Kind: Bool} }
func MkFloat() RType { return RType{Kind: Float} }
func MkVoid() RType  { return RType{Kind: Void} }

func MkClassRef(id uint64) RType {
	return RType{Kind: ClassRef, ClassID: id}
}

func MkFunction(ret RType, params []RType) RType {
	r := ret
	return RType{Kind: Function, Return: &r, Params: params}
}

// String renders RType the way a diagnostic or IR comment would.
func (t RType) String() string {
	switch t.Kind {
	case ClassRef:
		return fmt.Sprintf("class#%d", t.ClassID)
	case Function:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), t.Return.String())
	default:
		return t.Kind.String()
	}
}

// Equal reports whether t and o are the structurally same type. ClassRef
// compares by ClassID; Function compares return type and parameter list
// element-wise.
func (t RType) Equal(o RType) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case ClassRef:
		return t.ClassID == o.ClassID
	case Function:
		if !t.Return.Equal(*o.Return) {
			return false
		}
		if len(t.Params) != len(o.Params) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Equal(o.Params[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// IsNumeric reports whether t is Int or Float, the two types that admit the
// arithmetic binary operators and unary negation.
func (t RType) IsNumeric() bool {
	return t.Kind == Int || t.Kind == Float
}
