// Package scope implements the lexical environment: an ordered mapping
// from source name to (internal name, StackReference), and a stack of
// such scopes searched innermost-to-outermost.
//
// The pipeline is single-threaded, so there is no locking; the payload is
// the concrete Scope type below instead of a bare map, because class
// member scopes must preserve declaration order (the module assembler
// lays out pointer-typed members in that order).
package scope

import (
	"github.com/llir/llvm/ir/value"

	"classc/internal/types"
)

// RefKind discriminates the StackReference variant.
type RefKind uint8

const (
	RefPointer RefKind = iota
	RefVariable
	RefFunction
	RefClass
)

// StackReference is what a name is bound to on the Stack.
type StackReference struct {
	Kind RefKind

	// Type holds the pointee type for RefPointer, the value type for
	// RefVariable, and the full function type (return + params) for
	// RefFunction. Unused for RefClass.
	Type types.RType

	// Value is the live SSA value for RefVariable bindings.
	Value value.Value

	// ClassID identifies the class for RefClass bindings.
	ClassID uint64
}

// entry is one binding inside a Scope.
type entry struct {
	internal string
	ref      StackReference
}

// Scope is an ordered mapping from source name to (internal name,
// StackReference). Order is insertion order, which the class member scope
// relies on to lay out pointer-typed fields.
type Scope struct {
	order   []string
	entries map[string]entry
}

// NewScope returns an empty Scope.
func NewScope() *Scope {
	return &Scope{entries: make(map[string]entry, 8)}
}

// Insert binds name to (internal, ref) in s, overwriting any prior binding
// for the same name in this scope but preserving its original position in
// Names() (rebinding is what Stack.Put does for SSA renaming).
func (s *Scope) Insert(name, internal string, ref StackReference) {
	if _, ok := s.entries[name]; !ok {
		s.order = append(s.order, name)
	}
	s.entries[name] = entry{internal: internal, ref: ref}
}

// Lookup returns the binding for name in this scope only.
func (s *Scope) Lookup(name string) (internal string, ref StackReference, ok bool) {
	e, ok := s.entries[name]
	return e.internal, e.ref, ok
}

// Names returns every bound name in declaration order.
func (s *Scope) Names() []string {
	return s.order
}

// Clone returns a shallow copy of s, used by Stack.Snapshot to copy each
// scope of the stack.
func (s *Scope) Clone() *Scope {
	c := &Scope{
		order:   append([]string(nil), s.order...),
		entries: make(map[string]entry, len(s.entries)),
	}
	for k, v := range s.entries {
		c.entries[k] = v
	}
	return c
}
