package lower

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	irtypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"classc/internal/ast"
	"classc/internal/diag"
	"classc/internal/resolve"
	"classc/internal/scope"
	"classc/internal/types"
)

// Outcome is what lowering one expression produces: either a plain
// value carrying its resolved type (calc), or the bare identity of a class
// named as constructor/type syntax (classOutcome). A class outcome never
// becomes an IR value on its own — only a CallExpr naming it does, via
// exprConstruct.
type Outcome struct {
	Value   value.Value
	Type    types.RType
	IsClass bool
	ClassID uint64
}

func calc(v value.Value, t types.RType) Outcome { return Outcome{Value: v, Type: t} }
func classOutcome(id uint64) Outcome            { return Outcome{IsClass: true, ClassID: id} }

// diagAt builds a single user diagnostic as an error. The lowerer is
// fail-fast: unlike the resolver it returns the first error it meets
// instead of accumulating.
func diagAt(kind diag.Kind, pos ast.Pos, format string, args ...interface{}) error {
	p := pos
	return &diag.Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: &p}
}

// Expr lowers expression e into block b, appending whatever instructions it
// needs directly to b, builder-style: every block b passed down is already
// the current block the statement lowerer is appending to. expect, when
// non-nil, threads the type the caller needs the result coerced to or
// checked against.
func (c *Ctx) Expr(b *ir.Block, e ast.Expression, expect *types.RType) (Outcome, error) {
	switch e := e.(type) {
	case *ast.IntLit:
		return c.exprIntLit(e, expect)
	case *ast.IdExpr:
		return c.exprID(b, e, expect)
	case *ast.AssignExpr:
		return c.exprAssign(b, e, expect)
	case *ast.BinExpr:
		return c.exprBin(b, e, expect)
	case *ast.UnaryExpr:
		return c.exprUnary(b, e, expect)
	case *ast.CallExpr:
		return c.exprCall(b, e, expect)
	case *ast.LambdaExpr:
		return c.exprLambda(b, e, expect)
	case *ast.IndexExpr:
		return Outcome{}, diagAt(diag.TypeMismatch, e.P, "subscript expressions are not supported by this core")
	default:
		diag.Fatal("lower: unexpected expression type %T", e)
		return Outcome{}, nil
	}
}

// expect type-checks got against expect, with the special rule that a
// Function(Void, args) expectation accepts any Function(_, args), so a
// slot typed as a void function of those parameters takes a function value
// of any return type.
func (c *Ctx) expect(expect *types.RType, got types.RType, pos ast.Pos) error {
	if expect == nil {
		return nil
	}
	if expect.Kind == types.Function && got.Kind == types.Function && expect.Return.Kind == types.Void {
		if paramsEqual(expect.Params, got.Params) {
			return nil
		}
		return diagAt(diag.TypeMismatch, pos, "expected %s, got %s", expect.String(), got.String())
	}
	if !expect.Equal(got) {
		return diagAt(diag.TypeMismatch, pos, "expected %s, got %s", expect.String(), got.String())
	}
	return nil
}

func paramsEqual(a, b []types.RType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// exprIntLit lowers to an i32 constant unless the expectation is Float, in
// which case it lowers to a double constant; any other expectation is
// rejected.
func (c *Ctx) exprIntLit(e *ast.IntLit, expect *types.RType) (Outcome, error) {
	if expect != nil && expect.Kind == types.Float {
		return calc(constant.NewFloat(irtypes.Double, float64(e.Value)), types.MkFloat()), nil
	}
	if expect != nil && expect.Kind != types.Int {
		return Outcome{}, diagAt(diag.TypeMismatch, e.P, "integer literal cannot satisfy expected type %s", expect.String())
	}
	return calc(constant.NewInt(irtypes.I32, e.Value), types.MkInt()), nil
}

// exprID reads an identifier off the lexical stack: a Variable reads
// its live SSA value directly; a Pointer emits a Load off its address; a
// Function reads the function value itself (for passing or calling); a
// Class produces a classOutcome, legal only directly under a CallExpr.
func (c *Ctx) exprID(b *ir.Block, e *ast.IdExpr, expect *types.RType) (Outcome, error) {
	name := e.Id.Name()
	_, ref, ok := c.Stack.Lookup(name)
	if !ok {
		return Outcome{}, diagAt(diag.LookupFailure, e.P, "undefined name %q", name)
	}
	switch ref.Kind {
	case scope.RefVariable:
		if err := c.expect(expect, ref.Type, e.P); err != nil {
			return Outcome{}, err
		}
		return calc(ref.Value, ref.Type), nil
	case scope.RefPointer:
		v := b.NewLoad(c.IRType(ref.Type), ref.Value)
		if err := c.expect(expect, ref.Type, e.P); err != nil {
			return Outcome{}, err
		}
		return calc(v, ref.Type), nil
	case scope.RefFunction:
		if err := c.expect(expect, ref.Type, e.P); err != nil {
			return Outcome{}, err
		}
		return calc(ref.Value, ref.Type), nil
	case scope.RefClass:
		if expect != nil {
			return Outcome{}, diagAt(diag.MisuseOfClass, e.P, "class %q used where a value of type %s was expected", name, expect.String())
		}
		return classOutcome(ref.ClassID), nil
	default:
		diag.Fatal("lower: unexpected RefKind %v", ref.Kind)
		return Outcome{}, nil
	}
}

// exprAssign lowers lvalue = rhs. The left-hand side must be a bare
// identifier naming a Variable or Pointer binding; any other shape is
// rejected. A Variable rebinds its name to a fresh SSA value via
// stack.put, with no store; a Pointer emits an explicit Store to its
// address. Either way the assignment's own value is the new one.
func (c *Ctx) exprAssign(b *ir.Block, e *ast.AssignExpr, expect *types.RType) (Outcome, error) {
	id, ok := e.LValue.(*ast.IdExpr)
	if !ok {
		return Outcome{}, diagAt(diag.TypeMismatch, e.P, "left-hand side of an assignment must be a name")
	}
	name := id.Id.Name()
	_, ref, ok := c.Stack.Lookup(name)
	if !ok {
		return Outcome{}, diagAt(diag.LookupFailure, id.P, "undefined name %q", name)
	}
	switch ref.Kind {
	case scope.RefVariable:
		rhs, err := c.Expr(b, e.Expr, &ref.Type)
		if err != nil {
			return Outcome{}, err
		}
		c.Stack.Put(c.Uniq, name, scope.StackReference{Kind: scope.RefVariable, Type: ref.Type, Value: rhs.Value})
		if err := c.expect(expect, ref.Type, e.P); err != nil {
			return Outcome{}, err
		}
		return calc(rhs.Value, ref.Type), nil
	case scope.RefPointer:
		rhs, err := c.Expr(b, e.Expr, &ref.Type)
		if err != nil {
			return Outcome{}, err
		}
		b.NewStore(rhs.Value, ref.Value)
		if err := c.expect(expect, ref.Type, e.P); err != nil {
			return Outcome{}, err
		}
		return calc(rhs.Value, ref.Type), nil
	default:
		return Outcome{}, diagAt(diag.TypeMismatch, id.P, "%q is not assignable", name)
	}
}

// exprBin lowers a binary operator: the left operand is lowered with no
// expectation, then the right operand is lowered with the left operand's
// type as its expectation, so "f + 1" with a float f coerces the integer
// literal through the literal rule in exprIntLit rather than requiring a
// separate promotion pass. Only the right operand is coerced: an int left
// operand makes the right one expect int.
func (c *Ctx) exprBin(b *ir.Block, e *ast.BinExpr, expect *types.RType) (Outcome, error) {
	lhs, err := c.Expr(b, e.LHS, nil)
	if err != nil {
		return Outcome{}, err
	}
	if lhs.IsClass {
		return Outcome{}, diagAt(diag.MisuseOfClass, e.LHS.Pos(), "a class name cannot be used as a value")
	}
	rhs, err := c.Expr(b, e.RHS, &lhs.Type)
	if err != nil {
		return Outcome{}, err
	}

	isBitwise := e.Op == ast.BinShl || e.Op == ast.BinShr || e.Op == ast.BinAnd || e.Op == ast.BinOr || e.Op == ast.BinXor
	isCompare := e.Op == ast.BinLess || e.Op == ast.BinGt || e.Op == ast.BinEq

	switch {
	case isBitwise && lhs.Type.Kind != types.Int:
		return Outcome{}, diagAt(diag.TypeMismatch, e.P, "bitwise operator requires int operands, got %s", lhs.Type.String())
	case isCompare && !lhs.Type.IsNumeric() && lhs.Type.Kind != types.Bool:
		return Outcome{}, diagAt(diag.TypeMismatch, e.P, "comparison requires int, float or bool operands, got %s", lhs.Type.String())
	case !isBitwise && !isCompare && !lhs.Type.IsNumeric():
		return Outcome{}, diagAt(diag.TypeMismatch, e.P, "arithmetic operator requires int or float operands, got %s", lhs.Type.String())
	}

	isFloat := lhs.Type.Kind == types.Float
	v := c.binInst(b, e.Op, lhs.Value, rhs.Value, isFloat)

	resultType := lhs.Type
	if isCompare {
		resultType = types.MkBool()
	}
	if err := c.expect(expect, resultType, e.P); err != nil {
		return Outcome{}, err
	}
	return calc(v, resultType), nil
}

func (c *Ctx) binInst(b *ir.Block, op ast.BinOp, x, y value.Value, isFloat bool) value.Value {
	switch op {
	case ast.BinPlus:
		if isFloat {
			return b.NewFAdd(x, y)
		}
		return b.NewAdd(x, y)
	case ast.BinMinus:
		if isFloat {
			return b.NewFSub(x, y)
		}
		return b.NewSub(x, y)
	case ast.BinMul:
		if isFloat {
			return b.NewFMul(x, y)
		}
		return b.NewMul(x, y)
	case ast.BinDiv:
		if isFloat {
			return b.NewFDiv(x, y)
		}
		return b.NewSDiv(x, y)
	case ast.BinMod:
		if isFloat {
			return b.NewFRem(x, y)
		}
		return b.NewSRem(x, y)
	case ast.BinShl:
		return b.NewShl(x, y)
	case ast.BinShr:
		return b.NewAShr(x, y)
	case ast.BinAnd:
		return b.NewAnd(x, y)
	case ast.BinOr:
		return b.NewOr(x, y)
	case ast.BinXor:
		return b.NewXor(x, y)
	case ast.BinLess, ast.BinGt, ast.BinEq:
		return c.compare(b, op, x, y, isFloat)
	default:
		diag.Fatal("lower: unexpected binary operator %v", op)
		return nil
	}
}

func (c *Ctx) compare(b *ir.Block, op ast.BinOp, x, y value.Value, isFloat bool) value.Value {
	if isFloat {
		pred := fpred(op)
		return b.NewFCmp(pred, x, y)
	}
	pred := ipred(op)
	return b.NewICmp(pred, x, y)
}

// exprUnary lowers unary negation and logical not, added alongside the
// binary operator set on the same precedent.
func (c *Ctx) exprUnary(b *ir.Block, e *ast.UnaryExpr, expect *types.RType) (Outcome, error) {
	operand, err := c.Expr(b, e.Operand, expect)
	if err != nil {
		return Outcome{}, err
	}
	switch e.Op {
	case ast.UnaryNeg:
		if !operand.Type.IsNumeric() {
			return Outcome{}, diagAt(diag.TypeMismatch, e.P, "unary - requires an int or float operand, got %s", operand.Type.String())
		}
		if operand.Type.Kind == types.Float {
			return calc(b.NewFNeg(operand.Value), operand.Type), nil
		}
		return calc(b.NewSub(constant.NewInt(irtypes.I32, 0), operand.Value), operand.Type), nil
	case ast.UnaryNot:
		if operand.Type.Kind != types.Bool {
			return Outcome{}, diagAt(diag.TypeMismatch, e.P, "unary ! requires a bool operand, got %s", operand.Type.String())
		}
		return calc(b.NewXor(operand.Value, constant.NewInt(irtypes.I1, 1)), operand.Type), nil
	default:
		diag.Fatal("lower: unexpected unary operator %v", e.Op)
		return Outcome{}, nil
	}
}

// exprCall lowers a call. When the callee resolves to a class, this
// is constructor syntax and exprConstruct takes over; otherwise the callee
// must be a function-typed value, arity must match exactly, and each
// argument is lowered with its parameter's type as expectation.
func (c *Ctx) exprCall(b *ir.Block, e *ast.CallExpr, expect *types.RType) (Outcome, error) {
	callee, err := c.Expr(b, e.Callee, nil)
	if err != nil {
		return Outcome{}, err
	}
	if callee.IsClass {
		return c.exprConstruct(b, e, callee.ClassID, expect)
	}
	if callee.Type.Kind != types.Function {
		return Outcome{}, diagAt(diag.NotAFunction, e.Callee.Pos(), "called expression is not a function")
	}
	if len(e.Args) != len(callee.Type.Params) {
		return Outcome{}, diagAt(diag.WrongNumberOfArguments, e.P, "expected %d argument(s), got %d", len(callee.Type.Params), len(e.Args))
	}
	args := make([]value.Value, len(e.Args))
	for i, a := range e.Args {
		pt := callee.Type.Params[i]
		out, err := c.Expr(b, a, &pt)
		if err != nil {
			return Outcome{}, err
		}
		args[i] = out.Value
	}
	ret := *callee.Type.Return
	var v value.Value = b.NewCall(callee.Value, args...)
	if err := c.expect(expect, ret, e.P); err != nil {
		return Outcome{}, err
	}
	return calc(v, ret), nil
}

// exprConstruct lowers `ClassName(args...)`, a call whose callee resolves
// to a class: it heap-allocates storage sized for the class alias, stores
// each argument into the corresponding
// field in declaration order, and yields the resulting pointer.
func (c *Ctx) exprConstruct(b *ir.Block, e *ast.CallExpr, classID uint64, expect *types.RType) (Outcome, error) {
	info, ok := c.Classes.Get(classID)
	if !ok {
		diag.Fatal("lower: unresolved class id %d", classID)
	}
	fieldNames := info.Members.Names()
	if len(e.Args) != len(fieldNames) {
		return Outcome{}, diagAt(diag.WrongNumberOfArguments, e.P,
			"class %q has %d field(s), got %d constructor argument(s)", info.SourceName, len(fieldNames), len(e.Args))
	}
	st := c.classStruct(classID)
	obj := c.mallocClass(b, st)
	for i, name := range fieldNames {
		_, fref, _ := info.Members.Lookup(name)
		out, err := c.Expr(b, e.Args[i], &fref.Type)
		if err != nil {
			return Outcome{}, err
		}
		addr := b.NewGetElementPtr(st, obj, constant.NewInt(irtypes.I32, 0), constant.NewInt(irtypes.I32, int64(i)))
		b.NewStore(out.Value, addr)
	}
	rt := types.MkClassRef(classID)
	if err := c.expect(expect, rt, e.P); err != nil {
		return Outcome{}, err
	}
	return calc(obj, rt), nil
}

// exprLambda lowers a capture-free function literal: the body is lowered
// inside a shadowed (emptied) stack so it cannot see any enclosing local,
// into a fresh top-level function named by c.Uniq.Lambda(). Its return
// type is derived from the body's own return statements (void if it never
// returns a value) rather than defaulting every lambda to int.
func (c *Ctx) exprLambda(b *ir.Block, e *ast.LambdaExpr, expect *types.RType) (Outcome, error) {
	name := c.Uniq.Lambda()

	paramTypes := make([]types.RType, len(e.Params))
	irParams := make([]*ir.Param, len(e.Params))
	for i, p := range e.Params {
		pt := c.resolveAmbientType(p.Type)
		paramTypes[i] = pt
		irParams[i] = ir.NewParam(p.Name, c.IRType(pt))
	}

	// inferReturnType's staticType estimate needs the lambda's own
	// parameters visible (a body returning e.g. "a + 1" must see "a"'s
	// type), but must not see anything the real, shadowed lowering below
	// won't see either. A throwaway scope pushed and popped on the real
	// stack gives it exactly the parameters, nothing more.
	paramScope := scope.NewScope()
	for i, p := range e.Params {
		paramScope.Insert(p.Name, p.Name, scope.StackReference{Kind: scope.RefVariable, Type: paramTypes[i]})
	}
	c.Stack.Add(paramScope)
	retType := c.inferReturnType(e.Body)
	c.Stack.Pop()

	fn := c.Module.NewFunc(name, c.IRType(retType), irParams...)
	fn.CallingConv = enum.CallingConvFast
	fn.Linkage = enum.LinkageExternal
	c.Lifted = append(c.Lifted, fn)

	entry := fn.NewBlock(c.Uniq.Block())
	err := scope.Shadow(c.Stack, func(s *scope.Stack) error {
		params := scope.NewScope()
		for i, p := range e.Params {
			params.Insert(p.Name, p.Name, scope.StackReference{Kind: scope.RefVariable, Type: paramTypes[i], Value: irParams[i]})
		}
		s.Add(params)
		final, err := c.Stmts(entry, e.Body, retType)
		if err != nil {
			return err
		}
		return c.FinishBody(final, retType, e.P)
	})
	if err != nil {
		return Outcome{}, err
	}
	finalizeBlocks(fn)

	fnType := types.MkFunction(retType, paramTypes)
	if err := c.expect(expect, fnType, e.P); err != nil {
		return Outcome{}, err
	}
	return calc(fn, fnType), nil
}

// resolveAmbientType resolves a syntactic type (a lambda parameter
// annotation, reached without the resolver's own top-level scope in hand)
// against a throwaway scope seeded with every known class name. It reuses
// resolve.ResolveType's primitive/class switch instead of duplicating it.
func (c *Ctx) resolveAmbientType(tp ast.Type) types.RType {
	sc := scope.NewScope()
	for _, id := range c.Classes.IDs() {
		info, _ := c.Classes.Get(id)
		sc.Insert(info.SourceName, info.InternalName, scope.StackReference{Kind: scope.RefClass, ClassID: id})
	}
	diags := &diag.Diagnostics{}
	rt := resolve.ResolveType(tp, sc, diags)
	if diags.Len() > 0 {
		diag.Fatal("lower: %s", diags.Items()[0].Error())
	}
	return rt
}

// inferReturnType walks body's statements (not descending into nested
// lambdas, which have their own independent return type) looking for the
// first ReturnStmt reachable in source order, and derives its type with
// staticType. A body with no return statement at all is Void.
func (c *Ctx) inferReturnType(body []ast.Statement) types.RType {
	if rt, ok := c.inferReturnTypeList(body); ok {
		return rt
	}
	return types.MkVoid()
}

func (c *Ctx) inferReturnTypeList(list []ast.Statement) (types.RType, bool) {
	for _, s := range list {
		switch s := s.(type) {
		case *ast.ReturnStmt:
			if s.Expr == nil {
				return types.MkVoid(), true
			}
			return c.staticType(s.Expr), true
		case *ast.BlockStmt:
			if rt, ok := c.inferReturnTypeList(s.Stmts); ok {
				return rt, true
			}
		case *ast.IfStmt:
			if rt, ok := c.inferReturnTypeList(s.Then); ok {
				return rt, true
			}
			if rt, ok := c.inferReturnTypeList(s.Else); ok {
				return rt, true
			}
		case *ast.WhileStmt:
			if rt, ok := c.inferReturnTypeList(s.Body); ok {
				return rt, true
			}
		case *ast.ForStmt:
			if rt, ok := c.inferReturnTypeList(s.Body); ok {
				return rt, true
			}
		}
		// BreakStmt, ExprStmt, DeclStmt carry no nested statement list worth
		// descending into for this purpose; LambdaExpr bodies (reachable only
		// through a DeclStmt/ExprStmt's expression) are deliberately never
		// visited here, since a nested lambda's returns belong to it, not to
		// the lambda being lowered.
	}
	return types.RType{}, false
}

// staticType is a shallow, syntax-directed type estimate used only to pick
// a lambda's return type before its body is lowered. It does not
// perform full expectation-threaded checking; exprLambda's subsequent
// Stmts call re-derives and verifies every return expression's type for
// real against the inferred return type.
func (c *Ctx) staticType(e ast.Expression) types.RType {
	switch e := e.(type) {
	case *ast.IntLit:
		return types.MkInt()
	case *ast.IdExpr:
		if _, ref, ok := c.Stack.Lookup(e.Id.Name()); ok {
			return ref.Type
		}
	case *ast.BinExpr:
		if e.Op == ast.BinLess || e.Op == ast.BinGt || e.Op == ast.BinEq {
			return types.MkBool()
		}
		return c.staticType(e.LHS)
	case *ast.UnaryExpr:
		if e.Op == ast.UnaryNot {
			return types.MkBool()
		}
		return c.staticType(e.Operand)
	case *ast.AssignExpr:
		return c.staticType(e.LValue)
	case *ast.CallExpr:
		if id, ok := e.Callee.(*ast.IdExpr); ok {
			if _, ref, ok := c.Stack.Lookup(id.Id.Name()); ok {
				switch ref.Kind {
				case scope.RefFunction:
					return *ref.Type.Return
				case scope.RefClass:
					return types.MkClassRef(ref.ClassID)
				}
			}
		}
	}
	return types.MkVoid()
}
