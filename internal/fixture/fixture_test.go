package fixture_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"classc/internal/ast"
	"classc/internal/fixture"
)

const identityYAML = `
definitions:
  - kind: func
    name: identity
    return: int
    params:
      - name: x
        type: int
    body:
      - kind: return
        expr: {kind: id, name: x}
`

func TestBuild_IdentityFunction(t *testing.T) {
	var doc fixture.File
	require.NoError(t, yaml.Unmarshal([]byte(identityYAML), &doc))

	defs, err := doc.Build()
	require.NoError(t, err)
	require.Len(t, defs, 1)

	fn, ok := defs[0].(*ast.FunctionDef)
	require.True(t, ok)
	assert.Equal(t, "identity", fn.Name)
	require.Len(t, fn.Params, 1)
	assert.Equal(t, "x", fn.Params[0].Name)
	require.Len(t, fn.Body, 1)

	ret, ok := fn.Body[0].(*ast.ReturnStmt)
	require.True(t, ok)
	id, ok := ret.Expr.(*ast.IdExpr)
	require.True(t, ok)
	assert.Equal(t, "x", id.Id.Name())
}

const loopYAML = `
definitions:
  - kind: func
    name: sumTo
    return: int
    params:
      - name: n
        type: int
    body:
      - kind: decl
        name: total
        type: int
        expr: {kind: int, value: 0}
      - kind: while
        cond:
          kind: bin
          op: "<"
          lhs: {kind: id, name: total}
          rhs: {kind: id, name: n}
        body:
          - kind: expr
            expr:
              kind: assign
              lvalue: {kind: id, name: total}
              rhs:
                kind: bin
                op: "+"
                lhs: {kind: id, name: total}
                rhs: {kind: int, value: 1}
      - kind: return
        expr: {kind: id, name: total}
`

func TestBuild_WhileLoopWithAssignment(t *testing.T) {
	var doc fixture.File
	require.NoError(t, yaml.Unmarshal([]byte(loopYAML), &doc))

	defs, err := doc.Build()
	require.NoError(t, err)
	fn := defs[0].(*ast.FunctionDef)
	require.Len(t, fn.Body, 3)

	loop, ok := fn.Body[1].(*ast.WhileStmt)
	require.True(t, ok)
	cond, ok := loop.Cond.(*ast.BinExpr)
	require.True(t, ok)
	assert.Equal(t, ast.BinLess, cond.Op)

	exprStmt := loop.Body[0].(*ast.ExprStmt)
	assign, ok := exprStmt.Expr.(*ast.AssignExpr)
	require.True(t, ok)
	lv := assign.LValue.(*ast.IdExpr)
	assert.Equal(t, "total", lv.Id.Name())
}

func TestBuild_UnknownDefinitionKindErrors(t *testing.T) {
	doc := fixture.File{Definitions: []fixture.Definition{{Kind: "bogus"}}}
	_, err := doc.Build()
	assert.Error(t, err)
}

func TestBuild_ClassWithFields(t *testing.T) {
	doc := fixture.File{Definitions: []fixture.Definition{
		{
			Kind: "class",
			Name: "Box",
			Fields: []fixture.Field{
				{Name: "value", Type: "int"},
			},
		},
	}}
	defs, err := doc.Build()
	require.NoError(t, err)
	cd, ok := defs[0].(*ast.ClassDef)
	require.True(t, ok)
	assert.Equal(t, "Box", cd.Name)
	require.Len(t, cd.Body, 1)
	field := cd.Body[0].(*ast.VariableDef)
	assert.Equal(t, []string{"value"}, field.Names)
}
