// Package lower implements IR lowering with SSA construction: it
// translates statements and expressions into basic blocks of typed IR
// instructions, builds φ-nodes at loop joins, performs type-directed
// literal coercion and type checking, allocates labels, and lifts lambdas
// to top-level functions.
//
// Locals are pure SSA values renamed on every assignment; class fields and
// globals are address-taken and go through explicit loads and stores.
// Every IR-construction concern is handed to github.com/llir/llvm's
// pure-Go ir/types/constant/enum packages rather than a cgo-backed
// binding, so the compiler builds without a system LLVM install.
package lower

import (
	"github.com/llir/llvm/ir"

	"classc/internal/fresh"
	"classc/internal/resolve"
	"classc/internal/scope"
)

// Ctx is the single value threaded by reference through lowering: a
// uniqueness counter, the lexical scope stack, a read-only handle to the
// class table, the append-only list of lifted lambda functions, and the
// module they all feed into.
type Ctx struct {
	Uniq    *fresh.Counter
	Stack   *scope.Stack
	Classes *resolve.ClassTable
	Module  *ir.Module

	// Lifted collects lambda functions as they are created during
	// expression lowering. The Module assembler (module.go) appends them
	// to the module ahead of top-level functions.
	Lifted []*ir.Func

	// aliases memoizes the IR type alias created for each class ID, so
	// every reference to the same class maps to the same *types.StructType.
	aliases map[uint64]*classAlias

	// malloc memoizes the external allocator declaration constructor calls
	// lower against.
	malloc *ir.Func
}

// NewCtx returns a Ctx ready to lower the functions of one compilation
// unit. uniq must be the same Counter the resolver used: names allocated
// during resolution (class IDs) and during lowering (block labels, SSA
// names, lambda names) share one monotonic sequence, even though their
// string prefixes keep the two namespaces apart.
func NewCtx(classes *resolve.ClassTable, m *ir.Module, uniq *fresh.Counter) *Ctx {
	return &Ctx{
		Uniq:    uniq,
		Stack:   &scope.Stack{},
		Classes: classes,
		Module:  m,
		aliases: make(map[uint64]*classAlias, 8),
	}
}
