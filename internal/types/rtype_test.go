package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"classc/internal/types"
)

func TestRTypeEqual_Primitives(t *testing.T) {
	assert.True(t, types.MkInt().Equal(types.MkInt()))
	assert.False(t, types.MkInt().Equal(types.MkBool()))
	assert.False(t, types.MkInt().Equal(types.MkFloat()))
}

func TestRTypeEqual_ClassRefByID(t *testing.T) {
	a := types.MkClassRef(1)
	b := types.MkClassRef(1)
	c := types.MkClassRef(2)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestRTypeEqual_Function(t *testing.T) {
	f1 := types.MkFunction(types.MkInt(), []types.RType{types.MkInt(), types.MkBool()})
	f2 := types.MkFunction(types.MkInt(), []types.RType{types.MkInt(), types.MkBool()})
	f3 := types.MkFunction(types.MkInt(), []types.RType{types.MkBool(), types.MkInt()})
	f4 := types.MkFunction(types.MkBool(), []types.RType{types.MkInt(), types.MkBool()})

	assert.True(t, f1.Equal(f2))
	assert.False(t, f1.Equal(f3))
	assert.False(t, f1.Equal(f4))
}

func TestRTypeString(t *testing.T) {
	assert.Equal(t, "int", types.MkInt().String())
	assert.Equal(t, "class#7", types.MkClassRef(7).String())

	f := types.MkFunction(types.MkVoid(), []types.RType{types.MkInt(), types.MkFloat()})
	assert.Equal(t, "(int, float) -> void", f.String())
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, types.MkInt().IsNumeric())
	assert.True(t, types.MkFloat().IsNumeric())
	assert.False(t, types.MkBool().IsNumeric())
	assert.False(t, types.MkVoid().IsNumeric())
	assert.False(t, types.MkClassRef(0).IsNumeric())
}
