package lower_test

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classc/internal/ast"
	"classc/internal/types"
)

// accumulatorLoop builds: for (declare i, n) a while loop body that reassigns
// an outer-scoped accumulator "total", the classic two-incoming-edge phi
// case.
func accumulatorLoop() []ast.Statement {
	return []ast.Statement{
		&ast.DeclStmt{Name: "total", Type: &ast.TypeId{Name: "int"}, Expr: intLit(0)},
		&ast.DeclStmt{Name: "i", Type: &ast.TypeId{Name: "int"}, Expr: intLit(0)},
		&ast.WhileStmt{
			Cond: &ast.BinExpr{Op: ast.BinLess, LHS: idExpr("i"), RHS: intLit(10)},
			Body: []ast.Statement{
				&ast.ExprStmt{Expr: &ast.AssignExpr{
					LValue: idExpr("total"),
					Expr:   &ast.BinExpr{Op: ast.BinPlus, LHS: idExpr("total"), RHS: idExpr("i")},
				}},
				&ast.ExprStmt{Expr: &ast.AssignExpr{
					LValue: idExpr("i"),
					Expr:   &ast.BinExpr{Op: ast.BinPlus, LHS: idExpr("i"), RHS: intLit(1)},
				}},
			},
		},
		&ast.ReturnStmt{Expr: idExpr("total")},
	}
}

func TestWhileLoop_BuildsPhiForEachReassignedOuterLocal(t *testing.T) {
	c, b := newCtxWithBlock()
	final, err := c.Stmts(b, accumulatorLoop(), types.MkInt())
	require.NoError(t, err)
	require.NotNil(t, final.Term)
	ret, ok := final.Term.(*ir.TermRet)
	require.True(t, ok)

	fn := b.Parent
	var headerPhis int
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Insts {
			if _, ok := inst.(*ir.InstPhi); ok {
				headerPhis++
			}
		}
	}
	// One phi for "total", one for "i".
	assert.Equal(t, 2, headerPhis)

	// "return total;" follows the loop directly from the header's
	// conditional branch, so it must read the header's phi for "total" -
	// not the stale pre-loop value that phi would shadow if its rebind
	// were undone the moment the loop returns.
	retPhi, ok := ret.X.(*ir.InstPhi)
	require.True(t, ok, "return value must be the header phi for \"total\", got %T", ret.X)
	assert.Len(t, retPhi.Incs, 2)
}

func TestWhileLoop_HeaderPhiHasBothIncomingEdgesWhenBodyFallsThrough(t *testing.T) {
	c, b := newCtxWithBlock()
	_, err := c.Stmts(b, accumulatorLoop(), types.MkInt())
	require.NoError(t, err)

	fn := b.Parent
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Insts {
			if phi, ok := inst.(*ir.InstPhi); ok {
				assert.Len(t, phi.Incs, 2, "a loop whose body always falls through needs both the pre-entry and back edge")
			}
		}
	}
}

func TestForLoop_DesugarsIterIntoBodyTail(t *testing.T) {
	c, b := newCtxWithBlock()
	forStmt := &ast.ForStmt{
		Init: &ast.DeclStmt{Name: "i", Type: &ast.TypeId{Name: "int"}, Expr: intLit(0)},
		Cond: &ast.BinExpr{Op: ast.BinLess, LHS: idExpr("i"), RHS: intLit(3)},
		Iter: &ast.ExprStmt{Expr: &ast.AssignExpr{
			LValue: idExpr("i"),
			Expr:   &ast.BinExpr{Op: ast.BinPlus, LHS: idExpr("i"), RHS: intLit(1)},
		}},
		Body: []ast.Statement{&ast.ExprStmt{Expr: idExpr("i")}},
	}
	_, err := c.Stmts(b, []ast.Statement{forStmt, &ast.ReturnStmt{}}, types.MkVoid())
	require.NoError(t, err)

	fn := b.Parent
	var phis int
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Insts {
			if _, ok := inst.(*ir.InstPhi); ok {
				phis++
			}
		}
	}
	assert.Equal(t, 1, phis, "only \"i\" is reassigned across iterations")
}

func TestWriteSet_DoesNotDescendIntoNestedLambda(t *testing.T) {
	c, b := newCtxWithBlock()
	stmts := []ast.Statement{
		&ast.DeclStmt{Name: "total", Type: &ast.TypeId{Name: "int"}, Expr: intLit(0)},
		&ast.DeclStmt{Name: "i", Type: &ast.TypeId{Name: "int"}, Expr: intLit(0)},
		&ast.WhileStmt{
			Cond: &ast.BinExpr{Op: ast.BinLess, LHS: idExpr("i"), RHS: intLit(1)},
			Body: []ast.Statement{
				// A nested lambda reassigns a same-named local of its own; this
				// must never be mistaken for an assignment to the outer "total".
				&ast.ExprStmt{Expr: &ast.LambdaExpr{
					Body: []ast.Statement{
						&ast.DeclStmt{Name: "total", Type: &ast.TypeId{Name: "int"}, Expr: intLit(1)},
						&ast.ExprStmt{Expr: &ast.AssignExpr{LValue: idExpr("total"), Expr: intLit(2)}},
					},
				}},
				&ast.ExprStmt{Expr: &ast.AssignExpr{
					LValue: idExpr("i"),
					Expr:   &ast.BinExpr{Op: ast.BinPlus, LHS: idExpr("i"), RHS: intLit(1)},
				}},
			},
		},
		&ast.ReturnStmt{},
	}
	_, err := c.Stmts(b, stmts, types.MkVoid())
	require.NoError(t, err)

	fn := b.Parent
	var phis int
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Insts {
			if _, ok := inst.(*ir.InstPhi); ok {
				phis++
			}
		}
	}
	assert.Equal(t, 1, phis, "only \"i\" is in the write-set; the lambda's own \"total\" must not contribute a phi")
}
