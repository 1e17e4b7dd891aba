// Package fixture decodes a YAML-described compilation unit into the AST
// internal/resolve and internal/lower consume, since this compiler has no
// lexer or parser of its own: cmd/classc reads a structural fixture
// instead of source text, decoded with gopkg.in/yaml.v3.
//
// A fixture carries no source positions, since it was never tokenised;
// every node built here is stamped with the zero ast.Pos.
package fixture

import (
	"github.com/pkg/errors"

	"classc/internal/ast"
)

// File is the top-level shape of a fixture document.
type File struct {
	Definitions []Definition `yaml:"definitions"`
}

// Field is a name/type pair, used for class fields, function parameters
// and lambda parameters.
type Field struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Definition is one top-level definition. Kind selects which of the
// remaining fields apply: "var", "class", "func" or "import".
type Definition struct {
	Kind   string      `yaml:"kind"`
	Name   string      `yaml:"name,omitempty"`
	Type   string      `yaml:"type,omitempty"`
	Names  []string    `yaml:"names,omitempty"`
	Fields []Field     `yaml:"fields,omitempty"`
	Return string      `yaml:"return,omitempty"`
	Params []Field     `yaml:"params,omitempty"`
	Body   []Statement `yaml:"body,omitempty"`
	Path   string      `yaml:"path,omitempty"`
}

// Statement is one statement. Kind selects which of the remaining fields
// apply: "block", "decl", "return", "if", "while", "for", "expr" or
// "break".
type Statement struct {
	Kind  string       `yaml:"kind"`
	Name  string       `yaml:"name,omitempty"`
	Type  string       `yaml:"type,omitempty"`
	Expr  *Expression  `yaml:"expr,omitempty"`
	Cond  *Expression  `yaml:"cond,omitempty"`
	Then  []Statement  `yaml:"then,omitempty"`
	Else  []Statement  `yaml:"else,omitempty"`
	Body  []Statement  `yaml:"body,omitempty"`
	Init  *Statement   `yaml:"init,omitempty"`
	Iter  *Statement   `yaml:"iter,omitempty"`
	Stmts []Statement  `yaml:"stmts,omitempty"`
}

// Expression is one expression. Kind selects which of the remaining
// fields apply: "int", "id", "assign", "bin", "unary", "call" or
// "lambda".
type Expression struct {
	Kind    string       `yaml:"kind"`
	Value   int64        `yaml:"value,omitempty"`
	Name    string       `yaml:"name,omitempty"`
	Op      string       `yaml:"op,omitempty"`
	LValue  *Expression  `yaml:"lvalue,omitempty"`
	LHS     *Expression  `yaml:"lhs,omitempty"`
	RHS     *Expression  `yaml:"rhs,omitempty"`
	Operand *Expression  `yaml:"operand,omitempty"`
	Callee  *Expression  `yaml:"callee,omitempty"`
	Args    []Expression `yaml:"args,omitempty"`
	Params  []Field      `yaml:"params,omitempty"`
	Body    []Statement  `yaml:"body,omitempty"`
}

var binOps = map[string]ast.BinOp{
	"+": ast.BinPlus, "-": ast.BinMinus, "*": ast.BinMul, "/": ast.BinDiv, "%": ast.BinMod,
	"<<": ast.BinShl, ">>": ast.BinShr, "&": ast.BinAnd, "|": ast.BinOr, "^": ast.BinXor,
	"<": ast.BinLess, ">": ast.BinGt, "==": ast.BinEq,
}

var unaryOps = map[string]ast.UnaryOp{
	"-": ast.UnaryNeg, "!": ast.UnaryNot,
}

// Build converts f into the top-level definition list the resolver and
// lowerer expect.
func (f *File) Build() ([]ast.Definition, error) {
	defs := make([]ast.Definition, 0, len(f.Definitions))
	for i := range f.Definitions {
		d, err := f.Definitions[i].build()
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, nil
}

func (d *Definition) build() (ast.Definition, error) {
	switch d.Kind {
	case "var":
		return &ast.VariableDef{Type: typeID(d.Type), Names: d.Names}, nil
	case "class":
		body := make([]ast.Definition, 0, len(d.Fields))
		for _, fld := range d.Fields {
			body = append(body, &ast.VariableDef{Type: typeID(fld.Type), Names: []string{fld.Name}})
		}
		return &ast.ClassDef{Name: d.Name, Body: body}, nil
	case "func":
		params := make([]ast.Param, len(d.Params))
		for i, p := range d.Params {
			params[i] = ast.Param{Name: p.Name, Type: typeID(p.Type)}
		}
		body, err := buildStmts(d.Body)
		if err != nil {
			return nil, err
		}
		return &ast.FunctionDef{Name: d.Name, Return: typeID(d.Return), Params: params, Body: body}, nil
	case "import":
		return &ast.ImportDef{Path: d.Path}, nil
	default:
		return nil, errors.Errorf("fixture: unknown definition kind %q", d.Kind)
	}
}

func typeID(name string) ast.Type {
	return &ast.TypeId{Name: name}
}

func buildStmts(in []Statement) ([]ast.Statement, error) {
	out := make([]ast.Statement, 0, len(in))
	for i := range in {
		s, err := in[i].build()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (s *Statement) build() (ast.Statement, error) {
	switch s.Kind {
	case "block":
		stmts, err := buildStmts(s.Stmts)
		if err != nil {
			return nil, err
		}
		return &ast.BlockStmt{Stmts: stmts}, nil
	case "decl":
		var e ast.Expression
		if s.Expr != nil {
			var err error
			e, err = s.Expr.build()
			if err != nil {
				return nil, err
			}
		}
		return &ast.DeclStmt{Name: s.Name, Type: typeID(s.Type), Expr: e}, nil
	case "return":
		var e ast.Expression
		if s.Expr != nil {
			var err error
			e, err = s.Expr.build()
			if err != nil {
				return nil, err
			}
		}
		return &ast.ReturnStmt{Expr: e}, nil
	case "if":
		cond, err := s.Cond.build()
		if err != nil {
			return nil, err
		}
		then, err := buildStmts(s.Then)
		if err != nil {
			return nil, err
		}
		els, err := buildStmts(s.Else)
		if err != nil {
			return nil, err
		}
		return &ast.IfStmt{Cond: cond, Then: then, Else: els}, nil
	case "while":
		cond, err := s.Cond.build()
		if err != nil {
			return nil, err
		}
		body, err := buildStmts(s.Body)
		if err != nil {
			return nil, err
		}
		return &ast.WhileStmt{Cond: cond, Body: body}, nil
	case "for":
		var init ast.Statement
		if s.Init != nil {
			var err error
			init, err = s.Init.build()
			if err != nil {
				return nil, err
			}
		}
		var cond ast.Expression
		if s.Cond != nil {
			var err error
			cond, err = s.Cond.build()
			if err != nil {
				return nil, err
			}
		}
		var iter ast.Statement
		if s.Iter != nil {
			var err error
			iter, err = s.Iter.build()
			if err != nil {
				return nil, err
			}
		}
		body, err := buildStmts(s.Body)
		if err != nil {
			return nil, err
		}
		return &ast.ForStmt{Init: init, Cond: cond, Iter: iter, Body: body}, nil
	case "expr":
		e, err := s.Expr.build()
		if err != nil {
			return nil, err
		}
		return &ast.ExprStmt{Expr: e}, nil
	case "break":
		return &ast.BreakStmt{}, nil
	default:
		return nil, errors.Errorf("fixture: unknown statement kind %q", s.Kind)
	}
}

func (e *Expression) build() (ast.Expression, error) {
	if e == nil {
		return nil, errors.Errorf("fixture: nil expression")
	}
	switch e.Kind {
	case "int":
		return &ast.IntLit{Value: e.Value}, nil
	case "id":
		return &ast.IdExpr{Id: ast.ConstId{Path: []string{e.Name}}}, nil
	case "assign":
		lv, err := e.LValue.build()
		if err != nil {
			return nil, err
		}
		rhs, err := e.RHS.build()
		if err != nil {
			return nil, err
		}
		return &ast.AssignExpr{Op: "=", LValue: lv, Expr: rhs}, nil
	case "bin":
		op, ok := binOps[e.Op]
		if !ok {
			return nil, errors.Errorf("fixture: unknown binary operator %q", e.Op)
		}
		lhs, err := e.LHS.build()
		if err != nil {
			return nil, err
		}
		rhs, err := e.RHS.build()
		if err != nil {
			return nil, err
		}
		return &ast.BinExpr{Op: op, LHS: lhs, RHS: rhs}, nil
	case "unary":
		op, ok := unaryOps[e.Op]
		if !ok {
			return nil, errors.Errorf("fixture: unknown unary operator %q", e.Op)
		}
		operand, err := e.Operand.build()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: op, Operand: operand}, nil
	case "call":
		callee, err := e.Callee.build()
		if err != nil {
			return nil, err
		}
		args := make([]ast.Expression, len(e.Args))
		for i := range e.Args {
			a, err := e.Args[i].build()
			if err != nil {
				return nil, err
			}
			args[i] = a
		}
		return &ast.CallExpr{Callee: callee, Args: args}, nil
	case "lambda":
		params := make([]ast.Param, len(e.Params))
		for i, p := range e.Params {
			params[i] = ast.Param{Name: p.Name, Type: typeID(p.Type)}
		}
		body, err := buildStmts(e.Body)
		if err != nil {
			return nil, err
		}
		return &ast.LambdaExpr{Params: params, Body: body}, nil
	default:
		return nil, errors.Errorf("fixture: unknown expression kind %q", e.Kind)
	}
}
