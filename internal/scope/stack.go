package scope

import (
	"classc/internal/fresh"
	"classc/internal/types"
)

// Stack is a sequence of Scopes. The innermost scope is the one most
// recently pushed; lookups walk innermost to outermost. Scopes are kept
// with the innermost at the end of the slice, so push/pop are ordinary
// append/truncate.
type Stack struct {
	scopes []*Scope
}

// Push prepends (in stack order) a new empty Scope.
func (s *Stack) Push() *Scope {
	sc := NewScope()
	s.scopes = append(s.scopes, sc)
	return sc
}

// Pop drops the innermost scope. Calling Pop on an empty Stack panics
// rather than silently no-oping, since it can only happen from a lowering
// bug.
func (s *Stack) Pop() {
	if len(s.scopes) == 0 {
		panic("scope: Pop called on empty Stack")
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// Add pushes a pre-built Scope, used to inject the resolver's top-level
// scope and a function's parameter scope.
func (s *Stack) Add(sc *Scope) {
	s.scopes = append(s.scopes, sc)
}

// Peek returns the innermost scope, or nil if the Stack is empty.
func (s *Stack) Peek() *Scope {
	if len(s.scopes) == 0 {
		return nil
	}
	return s.scopes[len(s.scopes)-1]
}

// Alloc inserts name into the innermost scope as a RefPointer binding, with
// internal name equal to the source name.
func (s *Stack) Alloc(name string, tp types.RType) {
	s.Peek().Insert(name, name, StackReference{Kind: RefPointer, Type: tp})
}

// Put inserts name into the innermost scope with a fresh, SSA-disambiguating
// internal name, for local declarations and reassignments of RefVariable
// bindings. It returns the fresh internal name.
func (s *Stack) Put(c *fresh.Counter, name string, ref StackReference) string {
	internal := c.SSA(name)
	s.Peek().Insert(name, internal, ref)
	return internal
}

// Rebind overwrites name's existing binding in place, in whichever scope
// currently owns it (found the same way Lookup finds it, innermost to
// outermost), rather than in the innermost scope the way Put does. It
// returns the fresh internal name. The loop/phi engine uses this so a
// header φ node - and later the value the engine settles on once the body
// and the header's second incoming edge are both known - replaces the
// outer local's live value in the scope that already declared it, instead
// of shadowing it in a scope that gets torn down when the loop returns.
// Rebind panics if name is not already bound anywhere on the Stack: a
// rebind of a name that does not exist yet is a lowering bug, not a user
// error.
func (s *Stack) Rebind(c *fresh.Counter, name string, ref StackReference) string {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if _, _, ok := s.scopes[i].Lookup(name); ok {
			internal := c.SSA(name)
			s.scopes[i].Insert(name, internal, ref)
			return internal
		}
	}
	panic("scope: Rebind called for unbound name " + name)
}

// Lookup walks the Stack innermost-to-outermost and returns the first
// binding found for name.
func (s *Stack) Lookup(name string) (internal string, ref StackReference, ok bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if internal, ref, ok = s.scopes[i].Lookup(name); ok {
			return internal, ref, true
		}
	}
	return "", StackReference{}, false
}

// Snapshot returns a deep-enough copy of the current scope list for a later
// Restore: only the Stack's scopes are copied, the shared fresh.Counter is
// untouched by design. The loop/phi engine in internal/lower does not use
// it; it rebinds written names in place with Rebind.
func (s *Stack) Snapshot() []*Scope {
	snap := make([]*Scope, len(s.scopes))
	for i, sc := range s.scopes {
		snap[i] = sc.Clone()
	}
	return snap
}

// Restore replaces the Stack's scopes with a previously taken Snapshot.
func (s *Stack) Restore(snap []*Scope) {
	s.scopes = snap
}

// Shadow runs f with the Stack temporarily emptied, restoring the prior
// contents on return regardless of whether f succeeds. Used when lowering
// a lambda body so it sees no enclosing locals.
func Shadow(s *Stack, f func(*Stack) error) error {
	saved := s.scopes
	s.scopes = nil
	defer func() { s.scopes = saved }()
	return f(s)
}

// Diff returns, per corresponding scope pair of before and after, the set of
// names whose binding (internal name or StackReference) changed between the
// two snapshots. It is the Stack's
// general-purpose change-detection primitive; the loop/phi engine in
// internal/lower instead reads pre- and post-body values directly by
// name, which is simpler and sufficient for the fixed write-set the
// engine already computed syntactically.
func Diff(before, after []*Scope) map[string][2]StackReference {
	changed := make(map[string][2]StackReference)
	n := len(before)
	if len(after) < n {
		n = len(after)
	}
	for i := 0; i < n; i++ {
		for _, name := range after[i].Names() {
			newInternal, newRef, _ := after[i].Lookup(name)
			if oldInternal, oldRef, ok := before[i].Lookup(name); ok {
				if oldInternal != newInternal || !sameRef(oldRef, newRef) {
					changed[name] = [2]StackReference{oldRef, newRef}
				}
			}
		}
	}
	return changed
}

// sameRef reports whether two StackReferences denote the same binding. It
// exists because StackReference embeds types.RType, which carries a slice
// field (Params) and is therefore not comparable with ==.
func sameRef(a, b StackReference) bool {
	if a.Kind != b.Kind || a.ClassID != b.ClassID {
		return false
	}
	if !a.Type.Equal(b.Type) {
		return false
	}
	return a.Value == b.Value
}
