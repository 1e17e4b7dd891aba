package lower

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	irtypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"classc/internal/ast"
	"classc/internal/diag"
	"classc/internal/scope"
	"classc/internal/types"
)

// Stmts lowers a function or lambda body into b, in a context where
// "break" is illegal (there is no enclosing loop yet), returning the final
// current block so the caller can decide what falling off the end means
// (module.go and exprLambda both need this: a void function may fall off
// the end implicitly, a non-void one may not).
func (c *Ctx) Stmts(b *ir.Block, stmts []ast.Statement, retType types.RType) (*ir.Block, error) {
	return c.stmtList(b, stmts, retType, nil)
}

// FinishBody terminates final with an implicit `return` if it fell off the
// end without one and the function returns void; a non-void function that
// falls off the end is a WrongReturnType diagnostic.
func (c *Ctx) FinishBody(final *ir.Block, retType types.RType, pos ast.Pos) error {
	if final.Term != nil {
		return nil
	}
	if retType.Kind == types.Void {
		final.NewRet(nil)
		return nil
	}
	return diagAt(diag.WrongReturnType, pos, "missing return at end of a function returning %s", retType.String())
}

// stmtList lowers stmts into b in order: each statement appends to (and may
// replace) the "current" block, builder-style. Lowering stops, without
// error, the moment the current block already carries a terminator: everything
// syntactically after a return/break/branch is unreachable source code,
// exactly as a real compiler drops it rather than rejecting it. brk names
// the block a bare "break" jumps to, or nil outside any loop.
func (c *Ctx) stmtList(b *ir.Block, stmts []ast.Statement, retType types.RType, brk *ir.Block) (*ir.Block, error) {
	cur := b
	for _, s := range stmts {
		if cur.Term != nil {
			break
		}
		next, err := c.stmt(cur, s, retType, brk)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func (c *Ctx) stmt(b *ir.Block, s ast.Statement, retType types.RType, brk *ir.Block) (*ir.Block, error) {
	switch s := s.(type) {
	case *ast.BlockStmt:
		return c.stmtBlock(b, s, retType, brk)
	case *ast.DeclStmt:
		return c.stmtDecl(b, s)
	case *ast.ReturnStmt:
		return c.stmtReturn(b, s, retType)
	case *ast.IfStmt:
		return c.stmtIf(b, s, retType, brk)
	case *ast.WhileStmt:
		return c.stmtWhile(b, s, retType, brk)
	case *ast.ForStmt:
		return c.stmtFor(b, s, retType, brk)
	case *ast.ExprStmt:
		return c.stmtExpr(b, s)
	case *ast.BreakStmt:
		return c.stmtBreak(b, brk)
	default:
		diag.Fatal("lower: unexpected statement type %T", s)
		return nil, nil
	}
}

// stmtBlock lowers a `{ ... }` scope: a fresh scope is pushed for the
// block's own declarations and popped again once it is done, win or lose.
func (c *Ctx) stmtBlock(b *ir.Block, s *ast.BlockStmt, retType types.RType, brk *ir.Block) (*ir.Block, error) {
	c.Stack.Push()
	defer c.Stack.Pop()
	return c.stmtList(b, s.Stmts, retType, brk)
}

// stmtDecl lowers `T name;` or `T name = expr;`: an uninitialised
// declaration binds name to the type's default value; locals are pure SSA
// values in this core, so there is no allocation to perform either way.
func (c *Ctx) stmtDecl(b *ir.Block, s *ast.DeclStmt) (*ir.Block, error) {
	tp := c.resolveAmbientType(s.Type)
	var v value.Value
	if s.Expr != nil {
		out, err := c.Expr(b, s.Expr, &tp)
		if err != nil {
			return nil, err
		}
		v = out.Value
	} else {
		v = c.zeroValue(tp)
	}
	c.Stack.Put(c.Uniq, s.Name, scope.StackReference{Kind: scope.RefVariable, Type: tp, Value: v})
	return b, nil
}

// zeroValue is the default value a declaration with no initialiser binds to.
func (c *Ctx) zeroValue(t types.RType) value.Value {
	switch t.Kind {
	case types.Int:
		return constant.NewInt(irtypes.I32, 0)
	case types.Bool:
		return constant.NewInt(irtypes.I1, 0)
	case types.Float:
		return constant.NewFloat(irtypes.Double, 0)
	case types.ClassRef:
		return constant.NewNull(irtypes.NewPointer(c.classStruct(t.ClassID)))
	default:
		diag.Fatal("lower: type %s has no default value", t.String())
		return nil
	}
}

// stmtReturn lowers a return statement, checking the returned (or absent)
// value's type against the enclosing function's declared return type.
func (c *Ctx) stmtReturn(b *ir.Block, s *ast.ReturnStmt, retType types.RType) (*ir.Block, error) {
	if s.Expr == nil {
		if retType.Kind != types.Void {
			return nil, diagAt(diag.WrongReturnType, s.P, "missing return value, function returns %s", retType.String())
		}
		b.NewRet(nil)
		return b, nil
	}
	if retType.Kind == types.Void {
		return nil, diagAt(diag.WrongReturnType, s.P, "function returns void, cannot return a value")
	}
	out, err := c.Expr(b, s.Expr, &retType)
	if err != nil {
		return nil, err
	}
	b.NewRet(out.Value)
	return b, nil
}

// stmtIf lowers a conditional: the condition is lowered against a
// bool expectation into b itself, then a three-block diamond (then, else,
// after) is built. Either arm that falls off its own end without
// terminating is stitched to the merge block with an unconditional branch;
// an arm that already returned or broke is left alone.
func (c *Ctx) stmtIf(b *ir.Block, s *ast.IfStmt, retType types.RType, brk *ir.Block) (*ir.Block, error) {
	boolT := types.MkBool()
	cond, err := c.Expr(b, s.Cond, &boolT)
	if err != nil {
		return nil, err
	}

	fn := b.Parent
	thenBlk := fn.NewBlock(c.Uniq.Block())
	elseBlk := fn.NewBlock(c.Uniq.Block())
	after := fn.NewBlock(c.Uniq.Block())
	b.NewCondBr(cond.Value, thenBlk, elseBlk)

	c.Stack.Push()
	thenEnd, err := c.stmtList(thenBlk, s.Then, retType, brk)
	c.Stack.Pop()
	if err != nil {
		return nil, err
	}
	if thenEnd.Term == nil {
		thenEnd.NewBr(after)
	}

	c.Stack.Push()
	elseEnd, err := c.stmtList(elseBlk, s.Else, retType, brk)
	c.Stack.Pop()
	if err != nil {
		return nil, err
	}
	if elseEnd.Term == nil {
		elseEnd.NewBr(after)
	}

	return after, nil
}

// stmtExpr lowers an expression used as a statement, discarding its value.
// No expectation is threaded: any type at all is acceptable to discard.
func (c *Ctx) stmtExpr(b *ir.Block, s *ast.ExprStmt) (*ir.Block, error) {
	_, err := c.Expr(b, s.Expr, nil)
	return b, err
}

// stmtBreak lowers a break statement. brk being nil means no enclosing
// loop reached this statement, which is an internal invariant violation
// rather than a user diagnostic: the grammar that produced this AST should
// never have accepted the break there.
func (c *Ctx) stmtBreak(b *ir.Block, brk *ir.Block) (*ir.Block, error) {
	if brk == nil {
		diag.Fatal("lower: break statement outside of a loop")
	}
	b.NewBr(brk)
	return b, nil
}
