package lower_test

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	irtypes "github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classc/internal/ast"
	"classc/internal/diag"
	"classc/internal/fresh"
	"classc/internal/lower"
	"classc/internal/resolve"
	"classc/internal/scope"
	"classc/internal/types"
)

// newCtxWithBlock returns a fresh Ctx and an entry block inside a throwaway
// void function, enough scaffolding for exercising expression/statement
// lowering in isolation from Assemble. The Ctx starts with one pushed
// scope, mirroring the function-body scope Assemble hands Stmts in the
// real pipeline, so a DeclStmt lowered directly against it (as several
// statement/loop tests do) has somewhere to Put its binding instead of
// dereferencing an empty Stack's nil Peek().
func newCtxWithBlock() (*lower.Ctx, *ir.Block) {
	m := ir.NewModule()
	c := lower.NewCtx(resolve.NewClassTable(), m, &fresh.Counter{})
	fn := m.NewFunc("test", irtypes.Void)
	b := fn.NewBlock(c.Uniq.Block())
	c.Stack.Push()
	return c, b
}

func intLit(v int64) *ast.IntLit { return &ast.IntLit{Value: v} }

func idExpr(name string) *ast.IdExpr {
	return &ast.IdExpr{Id: ast.ConstId{Path: []string{name}}}
}

func TestExprIntLit_DefaultsToInt(t *testing.T) {
	c, b := newCtxWithBlock()
	out, err := c.Expr(b, intLit(42), nil)
	require.NoError(t, err)
	assert.True(t, out.Type.Equal(types.MkInt()))
}

func TestExprIntLit_CoercesToFloatExpectation(t *testing.T) {
	c, b := newCtxWithBlock()
	floatT := types.MkFloat()
	out, err := c.Expr(b, intLit(1), &floatT)
	require.NoError(t, err)
	assert.True(t, out.Type.Equal(types.MkFloat()))
}

func TestExprIntLit_BoolExpectationRejected(t *testing.T) {
	c, b := newCtxWithBlock()
	boolT := types.MkBool()
	_, err := c.Expr(b, intLit(1), &boolT)
	require.Error(t, err)
	d, ok := err.(*diag.Diagnostic)
	require.True(t, ok)
	assert.Equal(t, diag.TypeMismatch, d.Kind)
}

func TestExprID_UndefinedNameIsLookupFailure(t *testing.T) {
	c, b := newCtxWithBlock()
	_, err := c.Expr(b, idExpr("nope"), nil)
	require.Error(t, err)
	d, ok := err.(*diag.Diagnostic)
	require.True(t, ok)
	assert.Equal(t, diag.LookupFailure, d.Kind)
}

func TestExprBin_ComparisonProducesBoolResult(t *testing.T) {
	c, b := newCtxWithBlock()
	c.Stack.Push()
	c.Stack.Peek().Insert("n", "n", scope.StackReference{
		Kind: scope.RefVariable, Type: types.MkInt(), Value: constant.NewInt(irtypes.I32, 10),
	})

	lt := &ast.BinExpr{Op: ast.BinLess, LHS: idExpr("n"), RHS: intLit(20)}
	out, err := c.Expr(b, lt, nil)
	require.NoError(t, err)
	assert.True(t, out.Type.Equal(types.MkBool()))
}

func TestExprBin_ArithmeticKeepsOperandType(t *testing.T) {
	c, b := newCtxWithBlock()
	c.Stack.Push()
	c.Stack.Peek().Insert("n", "n", scope.StackReference{
		Kind: scope.RefVariable, Type: types.MkInt(), Value: constant.NewInt(irtypes.I32, 10),
	})

	plus := &ast.BinExpr{Op: ast.BinPlus, LHS: idExpr("n"), RHS: intLit(5)}
	out, err := c.Expr(b, plus, nil)
	require.NoError(t, err)
	assert.True(t, out.Type.Equal(types.MkInt()))
	assert.IsType(t, &ir.InstAdd{}, out.Value)
}

func TestExprBin_BitwiseRequiresInt(t *testing.T) {
	c, b := newCtxWithBlock()
	c.Stack.Push()
	c.Stack.Peek().Insert("f", "f", scope.StackReference{
		Kind: scope.RefVariable, Type: types.MkFloat(), Value: constant.NewFloat(irtypes.Double, 1.5),
	})

	shl := &ast.BinExpr{Op: ast.BinShl, LHS: idExpr("f"), RHS: intLit(1)}
	_, err := c.Expr(b, shl, nil)
	require.Error(t, err)
	d, ok := err.(*diag.Diagnostic)
	require.True(t, ok)
	assert.Equal(t, diag.TypeMismatch, d.Kind)
}

func TestExprAssign_RebindsVariableToFreshSSAName(t *testing.T) {
	c, b := newCtxWithBlock()
	c.Stack.Push()
	c.Stack.Peek().Insert("n", "n", scope.StackReference{
		Kind: scope.RefVariable, Type: types.MkInt(), Value: constant.NewInt(irtypes.I32, 1),
	})

	assign := &ast.AssignExpr{LValue: idExpr("n"), Expr: intLit(2)}
	_, err := c.Expr(b, assign, nil)
	require.NoError(t, err)

	internal, _, ok := c.Stack.Lookup("n")
	require.True(t, ok)
	assert.NotEqual(t, "n", internal)
}

func TestExprAssign_PointerEmitsStoreNotRebind(t *testing.T) {
	c, b := newCtxWithBlock()
	c.Stack.Push()
	addr := ir.NewGlobal("g", irtypes.I32)
	c.Stack.Peek().Insert("g", "g", scope.StackReference{
		Kind: scope.RefPointer, Type: types.MkInt(), Value: addr,
	})

	assign := &ast.AssignExpr{LValue: idExpr("g"), Expr: intLit(7)}
	_, err := c.Expr(b, assign, nil)
	require.NoError(t, err)

	internal, ref, ok := c.Stack.Lookup("g")
	require.True(t, ok)
	assert.Equal(t, "g", internal)
	assert.Equal(t, scope.RefPointer, ref.Kind)
	require.Len(t, b.Insts, 1)
	assert.IsType(t, &ir.InstStore{}, b.Insts[0])
}

func TestExprCall_WrongArity(t *testing.T) {
	c, b := newCtxWithBlock()
	c.Stack.Push()
	fnType := types.MkFunction(types.MkInt(), []types.RType{types.MkInt()})
	fn := c.Module.NewFunc("f", c.IRType(types.MkInt()), ir.NewParam("a", c.IRType(types.MkInt())))
	c.Stack.Peek().Insert("f", "f", scope.StackReference{Kind: scope.RefFunction, Type: fnType, Value: fn})

	call := &ast.CallExpr{Callee: idExpr("f")}
	_, err := c.Expr(b, call, nil)
	require.Error(t, err)
	d, ok := err.(*diag.Diagnostic)
	require.True(t, ok)
	assert.Equal(t, diag.WrongNumberOfArguments, d.Kind)
}

func TestExprCall_ClassCalleeConstructsInstance(t *testing.T) {
	m := ir.NewModule()
	classes := resolve.NewClassTable()
	members := scope.NewScope()
	members.Insert("value", "value", scope.StackReference{Kind: scope.RefPointer, Type: types.MkInt()})
	classes.Put(1, &resolve.ClassInfo{SourceName: "Box", InternalName: "Box", Members: members})

	c := lower.NewCtx(classes, m, &fresh.Counter{})
	fn := m.NewFunc("test", irtypes.Void)
	b := fn.NewBlock(c.Uniq.Block())

	c.Stack.Push()
	c.Stack.Peek().Insert("Box", "Box", scope.StackReference{Kind: scope.RefClass, ClassID: 1})

	construct := &ast.CallExpr{Callee: idExpr("Box"), Args: []ast.Expression{intLit(9)}}
	out, err := c.Expr(b, construct, nil)
	require.NoError(t, err)
	assert.Equal(t, types.ClassRef, out.Type.Kind)
	assert.Equal(t, uint64(1), out.Type.ClassID)
}
