package lower

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"

	"classc/internal/ast"
	"classc/internal/diag"
	"classc/internal/fresh"
	"classc/internal/resolve"
	"classc/internal/scope"
)

// Assemble is the module assembler: given the resolver's top-level scope
// and class table, it builds every global and function header in one
// pass, so mutually referencing top-level definitions (a function calling
// one declared after it, a global of a class type) all resolve, then
// lowers every function body in source order.
func Assemble(defs []ast.Definition, top *scope.Scope, classes *resolve.ClassTable, uniq *fresh.Counter) (*ir.Module, error) {
	m := ir.NewModule()
	ctx := NewCtx(classes, m, uniq)

	fnDefByName := make(map[string]*ast.FunctionDef, 8)
	for _, def := range defs {
		if fd, ok := def.(*ast.FunctionDef); ok {
			fnDefByName[fd.Name] = fd
		}
	}

	// Pass 1: declare every global and function header, and bind its IR
	// value into a runtime top-level scope that mirrors the resolver's
	// top scope one-for-one.
	runtimeTop := scope.NewScope()
	fnValue := make(map[string]*ir.Func, 8)
	for _, name := range top.Names() {
		internal, ref, _ := top.Lookup(name)
		switch ref.Kind {
		case scope.RefPointer:
			g := m.NewGlobalDef(name, constant.NewZeroInitializer(ctx.IRType(ref.Type)))
			ref.Value = g
			runtimeTop.Insert(name, internal, ref)
		case scope.RefFunction:
			fd := fnDefByName[name]
			params := make([]*ir.Param, len(fd.Params))
			for i, p := range fd.Params {
				params[i] = ir.NewParam(p.Name, ctx.IRType(ref.Type.Params[i]))
			}
			fn := m.NewFunc(name, ctx.IRType(*ref.Type.Return), params...)
			fn.CallingConv = enum.CallingConvFast
			fn.Linkage = enum.LinkageExternal
			fn.GC = "shadow-stack"
			fnValue[name] = fn
			ref.Value = fn
			runtimeTop.Insert(name, internal, ref)
		case scope.RefClass:
			runtimeTop.Insert(name, internal, ref)
		default:
			diag.Fatal("lower: unexpected top-level RefKind %v", ref.Kind)
		}
	}

	// Every declared class gets a type alias, even one never referenced by
	// a field, global or constructor call.
	for _, id := range classes.IDs() {
		ctx.classStruct(id)
	}

	ctx.Stack.Add(runtimeTop)

	// Pass 2: lower every function body in source order. Lambdas lifted
	// while lowering a body are appended to ctx.Lifted as they are created.
	for _, def := range defs {
		fd, ok := def.(*ast.FunctionDef)
		if !ok {
			continue
		}
		_, sig, _ := top.Lookup(fd.Name)
		retType := *sig.Type.Return
		fn := fnValue[fd.Name]
		entry := fn.NewBlock(ctx.Uniq.Block())

		params := scope.NewScope()
		for i, p := range fd.Params {
			params.Insert(p.Name, p.Name, scope.StackReference{
				Kind:  scope.RefVariable,
				Type:  sig.Type.Params[i],
				Value: fn.Params[i],
			})
		}
		ctx.Stack.Add(params)
		final, err := ctx.Stmts(entry, fd.Body, retType)
		ctx.Stack.Pop()
		if err != nil {
			return nil, err
		}
		if err := ctx.FinishBody(final, retType, fd.P); err != nil {
			return nil, err
		}
		finalizeBlocks(fn)
	}

	// Concatenation order: type aliases (already in m.TypeDefs),
	// then lambdas (so a caller never forward-references a lambda the
	// backend hasn't seen yet), then top-level functions in source order.
	// m.NewFunc already appended every function in creation order, so the
	// list is rebuilt rather than extended; the malloc declaration, if any,
	// leads it.
	funcs := make([]*ir.Func, 0, len(m.Funcs))
	if ctx.malloc != nil {
		funcs = append(funcs, ctx.malloc)
	}
	funcs = append(funcs, ctx.Lifted...)
	for _, def := range defs {
		if fd, ok := def.(*ast.FunctionDef); ok {
			funcs = append(funcs, fnValue[fd.Name])
		}
	}
	m.Funcs = funcs

	return m, nil
}

// finalizeBlocks gives every block of fn that is still missing a
// terminator an Unreachable one: this core never leaves a half-built
// block any other way than by over-allocating merge blocks that end up
// with no predecessor (e.g. the join point of an if whose arms both
// returned).
func finalizeBlocks(fn *ir.Func) {
	for _, b := range fn.Blocks {
		if b.Term == nil {
			b.NewUnreachable()
		}
	}
}
