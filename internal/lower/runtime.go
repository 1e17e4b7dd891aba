package lower

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	irtypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// mallocFunc returns the external "malloc(i64) -> i8*" declaration
// constructor calls lower against, declaring it in the module on first use.
// This core has no runtime of its own to link against, so it borrows the C
// allocator by name the way a freestanding LLVM frontend conventionally
// does.
func (c *Ctx) mallocFunc() *ir.Func {
	if c.malloc != nil {
		return c.malloc
	}
	f := c.Module.NewFunc("malloc", irtypes.NewPointer(irtypes.I8), ir.NewParam("size", irtypes.I64))
	c.malloc = f
	return f
}

// mallocClass emits the classic null-pointer-GEP sizeof idiom to compute
// the byte size of st, calls malloc, and bitcasts the result to a pointer
// to st.
func (c *Ctx) mallocClass(b *ir.Block, st *irtypes.StructType) value.Value {
	ptrType := irtypes.NewPointer(st)
	nullPtr := constant.NewNull(ptrType)
	sizePtr := b.NewGetElementPtr(st, nullPtr, constant.NewInt(irtypes.I32, 1))
	size := b.NewPtrToInt(sizePtr, irtypes.I64)
	raw := b.NewCall(c.mallocFunc(), size)
	return b.NewBitCast(raw, ptrType)
}
