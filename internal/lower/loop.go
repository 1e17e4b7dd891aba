package lower

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	irtypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"classc/internal/ast"
	"classc/internal/scope"
	"classc/internal/types"
)

// stmtWhile lowers a pre-tested loop by delegating straight to the
// loop/phi engine; a while loop's own brk (from an enclosing loop, if any)
// is irrelevant here, since this loop establishes its own break target.
func (c *Ctx) stmtWhile(b *ir.Block, s *ast.WhileStmt, retType types.RType, _ *ir.Block) (*ir.Block, error) {
	return c.runLoop(b, s.Cond, s.Body, retType)
}

// stmtFor lowers a C-style loop by desugaring it to a while loop: Init
// runs once, in a scope that spans the whole loop so it is visible to
// Cond, Iter and Body; Iter is appended to the end of the body, inheriting
// the body's own start label on the next iteration rather than getting one
// of its own.
func (c *Ctx) stmtFor(b *ir.Block, s *ast.ForStmt, retType types.RType, _ *ir.Block) (*ir.Block, error) {
	c.Stack.Push()
	defer c.Stack.Pop()

	cur := b
	if s.Init != nil {
		next, err := c.stmt(cur, s.Init, retType, nil)
		if err != nil {
			return nil, err
		}
		cur = next
	}

	body := s.Body
	if s.Iter != nil {
		body = append(append([]ast.Statement(nil), s.Body...), s.Iter)
	}
	return c.runLoop(cur, s.Cond, body, retType)
}

// phiSeed is one write-set name's in-flight φ-node, recorded while the
// header is being built so its second incoming edge can be patched in once
// the body's tail value is known, and so the name can be rebound back onto
// the φ once the loop is done with it.
type phiSeed struct {
	name string
	typ  types.RType
	phi  *ir.InstPhi
}

// runLoop is the loop/phi engine, shared by while and the desugared for:
// it discovers the syntactic write-set of cond and
// body, builds a φ node per written name at the loop header ahead of
// lowering the body, lowers the condition and body against that rebound
// stack, and patches in the second incoming edge once the body's tail
// value is known. cond == nil means "no condition" (an infinite loop),
// which is what stmtFor passes for a for loop written without a
// condition.
//
// Every written name is already bound in some scope that outlives this
// loop (writeSet only admits names already bound as RefVariable before the
// loop is entered), so the φ rebind mutates that scope in place via
// Stack.Rebind rather than shadowing it in a scope runLoop pushes and pops
// itself: "after" is reached directly from header's conditional branch, so
// the value each written name holds there is exactly its header φ, not
// whatever the body last computed on the path that looped back, and
// popping a throwaway scope on the way out would instead uncover the
// stale pre-loop value.
func (c *Ctx) runLoop(b *ir.Block, cond ast.Expression, body []ast.Statement, retType types.RType) (*ir.Block, error) {
	fn := b.Parent
	writes := c.writeSet(cond, body)

	header := fn.NewBlock(c.Uniq.Block())
	bodyBlk := fn.NewBlock(c.Uniq.Block())
	after := fn.NewBlock(c.Uniq.Block())
	b.NewBr(header)

	seeds := make([]phiSeed, 0, len(writes))
	for _, name := range writes {
		_, ref, _ := c.Stack.Lookup(name)
		phi := header.NewPhi(ir.NewIncoming(ref.Value, b))
		c.Stack.Rebind(c.Uniq, name, scope.StackReference{Kind: scope.RefVariable, Type: ref.Type, Value: phi})
		seeds = append(seeds, phiSeed{name: name, typ: ref.Type, phi: phi})
	}

	var condVal value.Value
	if cond == nil {
		condVal = constant.NewInt(irtypes.I1, 1)
	} else {
		boolT := types.MkBool()
		out, err := c.Expr(header, cond, &boolT)
		if err != nil {
			return nil, err
		}
		condVal = out.Value
	}
	header.NewCondBr(condVal, bodyBlk, after)

	bodyEnd, err := c.stmtList(bodyBlk, body, retType, after)
	if err != nil {
		return nil, err
	}
	if bodyEnd.Term == nil {
		for _, seed := range seeds {
			_, ref, _ := c.Stack.Lookup(seed.name)
			seed.phi.Incs = append(seed.phi.Incs, ir.NewIncoming(ref.Value, bodyEnd))
		}
		bodyEnd.NewBr(header)
	}

	// Anything lowered from here on, starting with "after", sees each
	// written name as its header φ again - the body's own reassignments
	// were only ever live on the path back to header.
	for _, seed := range seeds {
		c.Stack.Rebind(c.Uniq, seed.name, scope.StackReference{Kind: scope.RefVariable, Type: seed.typ, Value: seed.phi})
	}

	return after, nil
}

// writeSet finds every name that is (a) assigned somewhere in cond or body,
// outside of any nested lambda (a lambda lowers in a shadowed stack and
// cannot reach an outer local anyway), and (b) already bound to a
// RefVariable outside the loop — a name first declared inside the loop
// body is reinitialised fresh every iteration and never needs a φ node.
func (c *Ctx) writeSet(cond ast.Expression, body []ast.Statement) []string {
	seen := make(map[string]bool)
	var order []string
	record := func(name string) {
		if !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}

	var walkExpr func(ast.Expression)
	walkExpr = func(e ast.Expression) {
		switch e := e.(type) {
		case nil:
		case *ast.AssignExpr:
			if id, ok := e.LValue.(*ast.IdExpr); ok {
				record(id.Id.Name())
			}
			walkExpr(e.Expr)
		case *ast.BinExpr:
			walkExpr(e.LHS)
			walkExpr(e.RHS)
		case *ast.UnaryExpr:
			walkExpr(e.Operand)
		case *ast.CallExpr:
			walkExpr(e.Callee)
			for _, a := range e.Args {
				walkExpr(a)
			}
		case *ast.IndexExpr:
			walkExpr(e.LHS)
			walkExpr(e.RHS)
		case *ast.LambdaExpr:
			// Deliberately not descended into.
		}
	}
	var walkStmt func(ast.Statement)
	walkStmt = func(s ast.Statement) {
		switch s := s.(type) {
		case *ast.BlockStmt:
			for _, st := range s.Stmts {
				walkStmt(st)
			}
		case *ast.DeclStmt:
			walkExpr(s.Expr)
		case *ast.ReturnStmt:
			walkExpr(s.Expr)
		case *ast.IfStmt:
			walkExpr(s.Cond)
			for _, st := range s.Then {
				walkStmt(st)
			}
			for _, st := range s.Else {
				walkStmt(st)
			}
		case *ast.WhileStmt:
			walkExpr(s.Cond)
			for _, st := range s.Body {
				walkStmt(st)
			}
		case *ast.ForStmt:
			if s.Init != nil {
				walkStmt(s.Init)
			}
			walkExpr(s.Cond)
			if s.Iter != nil {
				walkStmt(s.Iter)
			}
			for _, st := range s.Body {
				walkStmt(st)
			}
		case *ast.ExprStmt:
			walkExpr(s.Expr)
		}
	}

	walkExpr(cond)
	for _, s := range body {
		walkStmt(s)
	}

	eligible := make([]string, 0, len(order))
	for _, name := range order {
		if _, ref, ok := c.Stack.Lookup(name); ok && ref.Kind == scope.RefVariable {
			eligible = append(eligible, name)
		}
	}
	return eligible
}
