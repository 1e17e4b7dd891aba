package lower

import (
	"github.com/llir/llvm/ir/enum"

	"classc/internal/ast"
	"classc/internal/diag"
)

// ipred maps a comparison operator to its signed integer predicate.
// Int/bool comparisons are always signed in this core: there are no
// unsigned integer types to justify anything else.
func ipred(op ast.BinOp) enum.IPred {
	switch op {
	case ast.BinLess:
		return enum.IPredSLT
	case ast.BinGt:
		return enum.IPredSGT
	case ast.BinEq:
		return enum.IPredEQ
	default:
		diag.Fatal("lower: %v is not a comparison operator", op)
		return 0
	}
}

// fpred maps a comparison operator to its ordered floating-point predicate.
func fpred(op ast.BinOp) enum.FPred {
	switch op {
	case ast.BinLess:
		return enum.FPredOLT
	case ast.BinGt:
		return enum.FPredOGT
	case ast.BinEq:
		return enum.FPredOEQ
	default:
		diag.Fatal("lower: %v is not a comparison operator", op)
		return 0
	}
}
