// Package resolve implements the name/type resolution pass: it walks the
// top-level definition list once, assigning a globally unique class ID to
// every class, filling in a class table, and producing the top-level scope
// that internal/lower's statement and expression lowerers read function
// signatures and class references from.
//
// A class may refer to itself and to sibling classes declared later in the
// same unit, so resolution runs in two ordinary phases: first every class
// name is bound to its allocated ID, then every class body and function
// signature is resolved against a scope where all of those names already
// exist. Diagnostics accumulate rather than short-circuit, the same policy
// internal/diag's accumulator is built around.
package resolve

import (
	"classc/internal/ast"
	"classc/internal/diag"
	"classc/internal/fresh"
	"classc/internal/scope"
	"classc/internal/types"
)

// Resolve walks top-level definitions defs and returns the resolved
// top-level scope and class table, plus an error aggregating every
// diagnostic if any definition failed to resolve. The scope and table are
// returned even then, holding whatever did resolve. Resolution accumulates
// errors rather than stopping at the first one.
func Resolve(defs []ast.Definition, counter *fresh.Counter) (*scope.Scope, *ClassTable, error) {
	top := scope.NewScope()
	classes := NewClassTable()
	diags := &diag.Diagnostics{}

	// Phase (a): allocate a class ID for every top-level class and bind its
	// name to Class(n) in the shared top-level scope, without descending
	// into any body yet. This is what lets class Foo refer to itself and to
	// a sibling class Bar declared later in the same definition list.
	classID := make(map[*ast.ClassDef]uint64, 4)
	for _, def := range defs {
		cd, ok := def.(*ast.ClassDef)
		if !ok {
			continue
		}
		id := counter.ClassID()
		top.Insert(cd.Name, cd.Name, scope.StackReference{Kind: scope.RefClass, ClassID: id})
		classID[cd] = id
	}

	// Phase (b): resolve every definition in source order. Class bodies are
	// resolved here, now that every class name in this unit already
	// resolves via Class(n) on top.
	for _, def := range defs {
		switch d := def.(type) {
		case *ast.VariableDef:
			resolveGlobalVariable(d, top, diags)
		case *ast.ClassDef:
			resolveClassBody(d, classID[d], top, classes, diags)
		case *ast.FunctionDef:
			resolveFunctionSignature(d, top, diags)
		case *ast.ImportDef:
			// No cross-unit linking in this core: contributes nothing.
		default:
			diag.Fatal("resolve: unexpected definition type %T", def)
		}
	}

	if err := diags.Err(); err != nil {
		return top, classes, err
	}
	return top, classes, nil
}

// resolveGlobalVariable resolves `T name, name2, ...;` into Pointer bindings
// on top.
func resolveGlobalVariable(d *ast.VariableDef, top *scope.Scope, diags *diag.Diagnostics) {
	tp := ResolveType(d.Type, top, diags)
	for _, name := range d.Names {
		top.Insert(name, name, scope.StackReference{Kind: scope.RefPointer, Type: tp})
	}
}

// resolveClassBody resolves a class's member list into a fresh member
// scope, in an environment where the class's own name already resolves to
// its allocated class ID, permitting self-reference.
func resolveClassBody(d *ast.ClassDef, id uint64, top *scope.Scope, classes *ClassTable, diags *diag.Diagnostics) {
	members := scope.NewScope()
	for _, member := range d.Body {
		v, ok := member.(*ast.VariableDef)
		if !ok {
			diags.Add(diag.NotAClass, member.Pos(),
				"class %q: only field declarations are supported in a class body, got %T", d.Name, member)
			continue
		}
		tp := ResolveType(v.Type, top, diags)
		for _, name := range v.Names {
			members.Insert(name, name, scope.StackReference{Kind: scope.RefPointer, Type: tp})
		}
	}
	classes.Put(id, &ClassInfo{
		SourceName:   d.Name,
		InternalName: d.Name,
		Members:      members,
	})
}

// resolveFunctionSignature resolves a function's return and parameter types
// and binds its name to a function-typed reference on top. The body is
// lowered later, by internal/lower, not here.
func resolveFunctionSignature(d *ast.FunctionDef, top *scope.Scope, diags *diag.Diagnostics) {
	ret := ResolveType(d.Return, top, diags)
	params := make([]types.RType, len(d.Params))
	for i, p := range d.Params {
		params[i] = ResolveType(p.Type, top, diags)
	}
	top.Insert(d.Name, d.Name, scope.StackReference{
		Kind: scope.RefFunction,
		Type: types.MkFunction(ret, params),
	})
}

// ResolveType resolves a syntactic ast.Type against scope sc into an
// internal/types.RType. Primitive keywords map directly; any other name
// must resolve to a RefClass binding or a diagnostic is raised and
// types.MkVoid() is substituted so resolution can keep accumulating further
// errors.
func ResolveType(tp ast.Type, sc *scope.Scope, diags *diag.Diagnostics) types.RType {
	id, ok := tp.(*ast.TypeId)
	if !ok {
		diag.Fatal("resolve: unexpected ast.Type %T", tp)
	}
	switch id.Name {
	case "int":
		return types.MkInt()
	case "bool":
		return types.MkBool()
	case "float":
		return types.MkFloat()
	case "void":
		return types.MkVoid()
	}
	_, ref, found := sc.Lookup(id.Name)
	if !found {
		diags.Add(diag.LookupFailure, id.P, "undefined type %q", id.Name)
		return types.MkVoid()
	}
	if ref.Kind != scope.RefClass {
		diags.Add(diag.NotAClass, id.P, "%q is not a class", id.Name)
		return types.MkVoid()
	}
	return types.MkClassRef(ref.ClassID)
}
