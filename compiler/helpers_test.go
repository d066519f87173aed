package compiler

// Tree builders shared by the package tests. Positions are only given where
// a test asserts on them.

func at(line, col int) Span {
	return Span{Start: Position{Line: line, Column: col}}
}

func ty(name string) TypeRef {
	return TypeRef{Name: name}
}

func ref(line, col int, name string) *Variable {
	return &Variable{SpanVal: at(line, col), Name: name}
}

func stmt(e Expr) *ExprStmt {
	return &ExprStmt{SpanVal: e.Span(), Expr: e}
}

func ret(e Expr) *Return {
	return &Return{Value: e}
}

func lit(t, value string) *Literal {
	return &Literal{Type: ty(t), Value: value}
}

func local(name, t string) *VarDecl {
	return &VarDecl{Name: name, Type: ty(t)}
}

func param(name, t string) *Param {
	return &Param{Name: name, Type: ty(t)}
}

func attr(name, t string, public bool) *AttributeDecl {
	return &AttributeDecl{Name: name, Type: ty(t), Public: public}
}

func block(locals []*VarDecl, stmts ...Stmt) *Block {
	return &Block{Locals: locals, Statements: stmts}
}

func method(name string, static bool, body *Block, params ...*Param) *MethodDecl {
	return &MethodDecl{Name: name, Static: static, Body: body, Params: params, ReturnType: Void}
}

func class(name, super string, attrs []*AttributeDecl, methods ...*MethodDecl) *ClassDecl {
	return &ClassDecl{Name: name, Superclass: super, Attributes: attrs, Methods: methods}
}

func program(main *MethodDecl, classes ...*ClassDecl) *Program {
	p := &Program{Name: "test", Classes: classes, Main: main}
	p.Link()
	return p
}

func emptyMain() *MethodDecl {
	return method("main", true, block(nil))
}

// ejemplo reproduces the static-context fixture:
//
//	class Ejemplo {
//		I32: attr;
//		static fn metodoEstatico() -> I32 {
//			I32: var;
//			Ejemplo: v;
//			(var);
//			(attr);
//			return 1;
//		}
//	}
//
//	fn main () {}
func ejemplo() *Program {
	m := &MethodDecl{
		SpanVal:    at(3, 12),
		Name:       "metodoEstatico",
		Static:     true,
		ReturnType: ty("I32"),
		Body: &Block{
			SpanVal: at(3, 38),
			Locals: []*VarDecl{
				{SpanVal: at(4, 8), Name: "var", Type: ty("I32")},
				{SpanVal: at(5, 12), Name: "v", Type: ty("Ejemplo")},
			},
			Statements: []Stmt{
				stmt(ref(6, 4, "var")),
				stmt(ref(7, 4, "attr")),
				&Return{SpanVal: at(8, 3), Value: &Literal{SpanVal: at(8, 10), Type: ty("I32"), Value: "1"}},
			},
		},
	}
	cls := &ClassDecl{
		SpanVal:    at(1, 7),
		Name:       "Ejemplo",
		Attributes: []*AttributeDecl{{SpanVal: at(2, 7), Name: "attr", Type: ty("I32")}},
		Methods:    []*MethodDecl{m},
	}
	main := &MethodDecl{SpanVal: at(12, 4), Name: "main", Body: &Block{SpanVal: at(12, 12)}}
	p := &Program{Name: "ejemplo", Classes: []*ClassDecl{cls}, Main: main}
	p.Link()
	return p
}
