package lower

import (
	llvmtypes "github.com/llir/llvm/ir/types"

	"classc/internal/diag"
	"classc/internal/types"
)

// classAlias memoizes the named IR struct type created for a class, so
// every ClassRef to the same class ID maps to the identical
// *types.StructType.
type classAlias struct {
	named *llvmtypes.StructType
}

// IRType maps a resolved source type to the IR type the Expression and
// Statement lowerers emit values of: machine-word integers, a 1-bit
// boolean, a double, void, pointer-to-class-alias, or a function pointer
// type.
func (c *Ctx) IRType(t types.RType) llvmtypes.Type {
	switch t.Kind {
	case types.Int:
		return llvmtypes.I32
	case types.Bool:
		return llvmtypes.I1
	case types.Float:
		return llvmtypes.Double
	case types.Void:
		return llvmtypes.Void
	case types.ClassRef:
		return llvmtypes.NewPointer(c.classStruct(t.ClassID))
	case types.Function:
		params := make([]llvmtypes.Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = c.IRType(p)
		}
		return llvmtypes.NewPointer(llvmtypes.NewFunc(c.IRType(*t.Return), params...))
	default:
		diag.Fatal("lower: unexpected RType kind %v", t.Kind)
		return nil
	}
}

// classStruct returns the named IR struct type for class id, creating and
// registering it (and its type alias in the module) on first use. The
// struct is registered under its identity before its member fields are
// computed, so a class field that is a pointer back to the same class (or
// to a mutually-recursive sibling class) resolves to the same struct value
// instead of recursing forever.
func (c *Ctx) classStruct(id uint64) *llvmtypes.StructType {
	if a, ok := c.aliases[id]; ok {
		return a.named
	}
	info, ok := c.Classes.Get(id)
	if !ok {
		diag.Fatal("lower: unresolved class id %d", id)
	}

	st := llvmtypes.NewStruct()
	st.TypeName = info.InternalName
	c.aliases[id] = &classAlias{named: st}
	c.Module.TypeDefs = append(c.Module.TypeDefs, st)

	fields := make([]llvmtypes.Type, 0, len(info.Members.Names()))
	for _, name := range info.Members.Names() {
		_, ref, _ := info.Members.Lookup(name)
		fields = append(fields, c.IRType(ref.Type))
	}
	st.Fields = fields
	return st
}
