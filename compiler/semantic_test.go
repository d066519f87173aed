package compiler

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sentences(p *Program, opts Options) []Diagnostic {
	st, _ := Declarations(p)
	return Sentences(st, p, opts)
}

func TestSemanticAnalyzer_UndefinedVariable(t *testing.T) {
	p := program(emptyMain(), class("A", "", nil,
		method("m", false, block(nil, stmt(ref(3, 5, "fantasma"))))))

	diags := sentences(p, DefaultOptions())
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %v", diags)
	}
	d := diags[0]
	if d.Code != CodeUndefinedVariable || d.Severity != SeverityError {
		t.Errorf("got %s/%s", d.Code, d.Severity)
	}
	if d.Message != "SE INTENTO ACCEDER A LA VARIABLE fantasma PERO NO ESTA DEFINIDA EN EL AMBITO ACTUAL." {
		t.Errorf("message: %q", d.Message)
	}
	if d.Line != 3 || d.Column != 5 {
		t.Errorf("position: %d:%d", d.Line, d.Column)
	}
}

func TestSemanticAnalyzer_UndefinedAsWarning(t *testing.T) {
	p := program(emptyMain(), class("A", "", nil,
		method("m", false, block(nil, stmt(ref(3, 5, "fantasma"))))))

	opts := DefaultOptions()
	opts.UndefinedSeverity = SeverityWarning
	diags := sentences(p, opts)
	if len(diags) != 1 || diags[0].Severity != SeverityWarning {
		t.Fatalf("expected one warning, got %v", diags)
	}
}

func TestSemanticAnalyzer_DefinedNames(t *testing.T) {
	m := method("m", false, block([]*VarDecl{local("y", "I32")},
		&Assign{Target: ref(2, 2, "y"), Value: &Binary{Op: "+", Left: ref(2, 6, "x"), Right: ref(2, 10, "a")}},
		ret(ref(3, 9, "y")),
	), param("x", "I32"))
	p := program(emptyMain(), class("A", "", []*AttributeDecl{attr("a", "I32", false)}, m))

	if diags := sentences(p, DefaultOptions()); len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
}

func TestSemanticAnalyzer_StaticAttributeReportedOnce(t *testing.T) {
	diags := sentences(ejemplo(), DefaultOptions())
	if diff := cmp.Diff([]Code{CodeStaticAttribute}, codes(diags)); diff != "" {
		t.Errorf("codes (-want +got):\n%s", diff)
	}
}

func TestSemanticAnalyzer_SelfRules(t *testing.T) {
	tests := []struct {
		name string
		prog func() *Program
		want []Code
	}{
		{
			name: "self in static method",
			prog: func() *Program {
				return program(emptyMain(), class("A", "", nil,
					method("s", true, block(nil, stmt(&Self{SpanVal: at(2, 3)})))))
			},
			want: []Code{CodeStaticSelf},
		},
		{
			name: "self in main",
			prog: func() *Program {
				return program(method("main", true, block(nil, stmt(&Self{SpanVal: at(2, 3)}))))
			},
			want: []Code{CodeMainSelf},
		},
		{
			name: "self assignment",
			prog: func() *Program {
				return program(emptyMain(), class("A", "", nil,
					method("m", false, block(nil, &Assign{Target: &Self{}, Value: &New{Class: "A"}}))))
			},
			want: []Code{CodeSelfAssignment},
		},
		{
			name: "self assignment in static method",
			prog: func() *Program {
				return program(emptyMain(), class("A", "", nil,
					method("s", true, block(nil, &Assign{Target: &Self{SpanVal: at(2, 3)}, Value: &New{Class: "A"}}))))
			},
			want: []Code{CodeStaticSelf},
		},
		{
			name: "self assignment in main",
			prog: func() *Program {
				return program(method("main", true, block(nil, &Assign{Target: &Self{SpanVal: at(2, 3)}, Value: &New{Class: "A"}})),
					class("A", "", nil))
			},
			want: []Code{CodeMainSelf},
		},
		{
			name: "self in instance method",
			prog: func() *Program {
				return program(emptyMain(), class("A", "", []*AttributeDecl{attr("x", "I32", false)},
					method("m", false, block(nil, stmt(&FieldAccess{Receiver: &Self{}, Name: "x"})))))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := sentences(tt.prog(), DefaultOptions())
			if diff := cmp.Diff(tt.want, codes(diags)); diff != "" {
				t.Errorf("codes (-want +got):\n%s\n%v", diff, diags)
			}
		})
	}
}

func TestSemanticAnalyzer_PrivateInheritedAttribute(t *testing.T) {
	p := program(emptyMain(),
		class("Base", "", []*AttributeDecl{attr("secreto", "I32", false), attr("visible", "I32", true)}),
		class("Derivada", "Base", nil, method("m", false, block(nil,
			stmt(ref(4, 4, "secreto")),
			stmt(ref(5, 4, "visible")),
		))),
	)

	diags := sentences(p, DefaultOptions())
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %v", diags)
	}
	want := "EL ATRIBUTO secreto DE LA CLASE Derivada NO ES VISIBLE EN ESTE CONTEXTO PORQUE ES UN ATRIBUTO PRIVADO HEREDADO."
	if diags[0].Message != want {
		t.Errorf("message:\n got %q\nwant %q", diags[0].Message, want)
	}
}

func TestSemanticAnalyzer_Calls(t *testing.T) {
	target := func(extra ...*MethodDecl) *ClassDecl {
		methods := append([]*MethodDecl{
			method("inst", false, block(nil), param("a", "I32")),
			method("est", true, block(nil)),
		}, extra...)
		return class("T", "", nil, methods...)
	}

	tests := []struct {
		name    string
		body    Stmt
		static  bool
		want    []Code
		message string
	}{
		{
			name: "valid calls",
			body: block(nil,
				stmt(&Call{Name: "inst", Args: []Expr{lit("I32", "1")}}),
				stmt(&StaticCall{Class: "T", Name: "est"}),
				stmt(&StaticCall{Class: "IO", Name: "out_str", Args: []Expr{lit("Str", "hola")}}),
			),
		},
		{
			name:    "non-static call from static method",
			body:    stmt(&Call{Name: "inst", Args: []Expr{lit("I32", "1")}}),
			static:  true,
			want:    []Code{CodeNonStaticCall},
			message: "SE INTENTO ACCEDER AL METODO NO ESTATICO inst DENTRO DEL METODO ESTATICO caller. NO SE PERMITE ACCEDER A METODOS DINAMICOS DENTRO DE UN CONTEXTO ESTATICO.",
		},
		{
			name:    "static-style call of instance method",
			body:    stmt(&StaticCall{Class: "T", Name: "inst", Args: []Expr{lit("I32", "1")}}),
			want:    []Code{CodeStaticCall},
			message: "SE INTENTO INVOCAR DE MANERA ESTATICA AL METODO NO ESTATICO inst DE LA CLASE T",
		},
		{
			name:    "explicit create on current class",
			body:    stmt(&Call{Name: "create"}),
			want:    []Code{CodeConstructorCall},
			message: "SE INTENTO ACCEDER EXPLICITAMENTE AL METODO create DE LA CLASE ACTUAL, ESTE METODO ES ACCESIBLE UNICAMENTE A TRAVES DEL CONSTRUCTOR DE LA CLASE.",
		},
		{
			name:    "explicit create on class",
			body:    stmt(&StaticCall{Class: "T", Name: "create"}),
			want:    []Code{CodeConstructorCall},
			message: "SE INTENTO ACCEDER EXPLICITAMENTE AL METODO create DE LA CLASE T, ESTE METODO ES ACCESIBLE UNICAMENTE A TRAVES DEL CONSTRUCTOR DE LA CLASE.",
		},
		{
			name:    "undeclared class",
			body:    stmt(&StaticCall{Class: "Nadie", Name: "m"}),
			want:    []Code{CodeUndefinedClass},
			message: "SE INTENTO ACCEDER A LA CLASE NO DECLARADA Nadie",
		},
		{
			name: "new of undeclared class",
			body: stmt(&New{Class: "Nadie"}),
			want: []Code{CodeUndefinedClass},
		},
		{
			name:    "missing method",
			body:    stmt(&Call{Name: "falta"}),
			want:    []Code{CodeUndefinedMethod},
			message: "SE INTENTO ACCEDER AL METODO falta DE LA CLASE T, PERO LA CLASE NO IMPLEMENTA TAL METODO.",
		},
		{
			name:    "wrong argument count",
			body:    stmt(&Call{Name: "inst"}),
			want:    []Code{CodeArgumentCount},
			message: "LA CANTIDAD DE ARGUMENTOS PARA EL METODO inst NO ES CORRECTA. SE ESPERABAN 1 ARGUMENTOS.",
		},
		{
			name: "wrong argument count on predefined method",
			body: stmt(&StaticCall{Class: "IO", Name: "out_i32"}),
			want: []Code{CodeArgumentCount},
		},
		{
			name: "method call on typed local",
			body: block([]*VarDecl{local("s", "Str")},
				stmt(&MethodCall{Receiver: ref(1, 1, "s"), Name: "length"}),
				stmt(&MethodCall{Receiver: ref(2, 1, "s"), Name: "concat"}),
				stmt(&MethodCall{Receiver: ref(3, 1, "s"), Name: "reverse"}),
			),
			want: []Code{CodeArgumentCount, CodeUndefinedMethod},
		},
		{
			name: "method call on new instance",
			body: stmt(&MethodCall{Receiver: &New{Class: "T"}, Name: "inst", Args: []Expr{lit("I32", "2")}}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body *Block
			if b, ok := tt.body.(*Block); ok {
				body = b
			} else {
				body = block(nil, tt.body)
			}
			p := program(emptyMain(), target(method("caller", tt.static, body)))

			diags := sentences(p, DefaultOptions())
			if diff := cmp.Diff(tt.want, codes(diags)); diff != "" {
				t.Fatalf("codes (-want +got):\n%s\n%v", diff, diags)
			}
			if tt.message != "" && diags[0].Message != tt.message {
				t.Errorf("message:\n got %q\nwant %q", diags[0].Message, tt.message)
			}
		})
	}
}

func TestSemanticAnalyzer_ConstructorArity(t *testing.T) {
	withCtor := class("P", "", nil)
	withCtor.Constructor = method("", false, block(nil), param("n", "I32"))
	p := program(method("main", true, block([]*VarDecl{local("a", "P")},
		&Assign{Target: ref(2, 3, "a"), Value: &New{SpanVal: at(2, 7), Class: "P"}},
	)), withCtor)

	diags := sentences(p, DefaultOptions())
	if len(diags) != 1 || diags[0].Code != CodeArgumentCount {
		t.Fatalf("expected constructor arity error, got %v", diags)
	}
	if !strings.Contains(diags[0].Message, "METODO create") {
		t.Errorf("message should name create: %q", diags[0].Message)
	}
}

func TestSemanticAnalyzer_FieldAccess(t *testing.T) {
	p := program(
		method("main", true, block([]*VarDecl{local("o", "Otra")},
			stmt(&FieldAccess{Receiver: ref(2, 2, "o"), Name: "pub"}),
			stmt(&FieldAccess{Receiver: ref(3, 2, "o"), Name: "priv"}),
			stmt(&FieldAccess{Receiver: ref(4, 2, "o"), Name: "nada"}),
		)),
		class("Otra", "", []*AttributeDecl{attr("pub", "I32", true), attr("priv", "I32", false)}),
	)

	diags := sentences(p, DefaultOptions())
	if diff := cmp.Diff([]Code{CodePrivateAttr, CodeUndefinedAttr}, codes(diags)); diff != "" {
		t.Errorf("codes (-want +got):\n%s\n%v", diff, diags)
	}
}

func TestSemanticAnalyzer_UnreachableCode(t *testing.T) {
	m := method("m", false, block(nil,
		ret(nil),
		stmt(&Call{SpanVal: at(3, 3), Name: "m"}),
		stmt(&Call{SpanVal: at(4, 3), Name: "m"}),
	))
	p := program(emptyMain(), class("A", "", nil, m))

	diags := sentences(p, DefaultOptions())
	if len(diags) != 1 {
		t.Fatalf("expected one warning, got %v", diags)
	}
	if diags[0].Severity != SeverityWarning || diags[0].Line != 3 {
		t.Errorf("got %+v", diags[0])
	}

	opts := DefaultOptions()
	opts.Unreachable = false
	if diags := sentences(p, opts); len(diags) != 0 {
		t.Errorf("disabled check still reports: %v", diags)
	}
}

func TestSemanticAnalyzer_ContinuesPastFirstError(t *testing.T) {
	m := method("s", true, block(nil,
		stmt(ref(2, 2, "a")),
		stmt(&Self{SpanVal: at(3, 2)}),
		stmt(ref(4, 2, "nope")),
		stmt(&Call{SpanVal: at(5, 2), Name: "i"}),
	))
	p := program(emptyMain(), class("A", "", []*AttributeDecl{attr("a", "I32", false)},
		m, method("i", false, block(nil))))

	diags := sentences(p, DefaultOptions())
	SortDiagnostics(diags)
	want := []Code{CodeStaticAttribute, CodeStaticSelf, CodeUndefinedVariable, CodeNonStaticCall}
	if diff := cmp.Diff(want, codes(diags)); diff != "" {
		t.Errorf("codes (-want +got):\n%s", diff)
	}
}

func TestSemanticAnalyzer_TypeChecks(t *testing.T) {
	arrayOf := func(elem string) TypeRef { return TypeRef{Name: elem, Array: true} }
	locals := []*VarDecl{
		local("b", "Bool"),
		local("s", "Str"),
		local("animal", "Animal"),
		local("perro", "Perro"),
		{Name: "xs", Type: arrayOf("I32")},
	}
	i32 := func() *Literal { return lit("I32", "1") }

	tests := []struct {
		name    string
		stmts   []Stmt
		want    []Code
		message string
	}{
		{
			name: "well typed",
			stmts: []Stmt{
				&If{Cond: &Binary{Op: "<", Left: ref(1, 4, "n"), Right: i32()}, Then: block(nil)},
				&While{Cond: &Binary{Op: "&&", Left: ref(2, 7, "b"), Right: &Unary{Op: "!", Operand: lit("Bool", "false")}}, Body: block(nil)},
				&Assign{Target: ref(3, 1, "n"), Value: &Index{Receiver: ref(3, 5, "xs"), Index: i32()}},
				&Assign{Target: ref(4, 1, "xs"), Value: &NewArray{Elem: ty("I32"), Size: i32()}},
				&Assign{Target: ref(5, 1, "s"), Value: &MethodCall{Receiver: ref(5, 5, "s"), Name: "concat", Args: []Expr{lit("Str", "x")}}},
				stmt(&Binary{Op: "==", Left: ref(6, 1, "animal"), Right: ref(6, 11, "perro")}),
			},
		},
		{
			name:    "if condition",
			stmts:   []Stmt{&If{Cond: i32(), Then: block(nil)}},
			want:    []Code{CodeTypeMismatch},
			message: "SE ESPERABA UNA EXPRESION DE TIPO Bool PERO SE ENCONTRO UNA EXPRESION DE TIPO I32",
		},
		{
			name:  "while condition",
			stmts: []Stmt{&While{Cond: ref(1, 7, "s"), Body: block(nil)}},
			want:  []Code{CodeTypeMismatch},
		},
		{
			name:    "assigned value",
			stmts:   []Stmt{&Assign{Target: ref(1, 1, "n"), Value: lit("Str", "hola")}},
			want:    []Code{CodeTypeMismatch},
			message: "SE ESPERABA UNA EXPRESION DE TIPO I32 PERO SE ENCONTRO UNA EXPRESION DE TIPO Str",
		},
		{
			name:  "subclass into superclass",
			stmts: []Stmt{&Assign{Target: ref(1, 1, "animal"), Value: &New{Class: "Perro"}}},
		},
		{
			name:  "superclass into subclass",
			stmts: []Stmt{&Assign{Target: ref(1, 1, "perro"), Value: &New{Class: "Animal"}}},
			want:  []Code{CodeTypeMismatch},
		},
		{
			name:  "argument type",
			stmts: []Stmt{stmt(&Call{Name: "inst", Args: []Expr{lit("Bool", "true")}})},
			want:  []Code{CodeTypeMismatch},
		},
		{
			name:  "predefined argument type",
			stmts: []Stmt{stmt(&StaticCall{Class: "IO", Name: "out_str", Args: []Expr{i32()}})},
			want:  []Code{CodeTypeMismatch},
		},
		{
			name:  "array size",
			stmts: []Stmt{&Assign{Target: ref(1, 1, "xs"), Value: &NewArray{Elem: ty("I32"), Size: lit("Bool", "true")}}},
			want:  []Code{CodeTypeMismatch},
		},
		{
			name:  "array index",
			stmts: []Stmt{stmt(&Index{Receiver: ref(1, 1, "xs"), Index: lit("Str", "0")})},
			want:  []Code{CodeTypeMismatch},
		},
		{
			name:    "indexing a non-array variable",
			stmts:   []Stmt{stmt(&Index{Receiver: ref(1, 1, "b"), Index: i32()})},
			want:    []Code{CodeTypeMismatch},
			message: "SE ESPERABA UNA EXPRESION DE TIPO Array PERO SE ENCONTRO UNA EXPRESION DE TIPO Bool",
		},
		{
			name:    "indexing a non-array attribute",
			stmts:   []Stmt{stmt(&Index{Receiver: &FieldAccess{Receiver: &Self{}, Name: "n"}, Index: i32()})},
			want:    []Code{CodeTypeMismatch},
			message: "SE INTENTO ACCEDER A UN INDICE DEL ATRIBUTO n DE LA CLASE T, PERO EL ATRIBUTO NO ES DE TIPO Array.",
		},
		{
			name:  "arithmetic operand",
			stmts: []Stmt{stmt(&Binary{Op: "+", Left: i32(), Right: lit("Bool", "true")})},
			want:  []Code{CodeTypeMismatch},
		},
		{
			name:  "logical operands",
			stmts: []Stmt{stmt(&Binary{Op: "||", Left: i32(), Right: i32()})},
			want:  []Code{CodeTypeMismatch, CodeTypeMismatch},
		},
		{
			name:  "equality of unrelated types",
			stmts: []Stmt{stmt(&Binary{Op: "!=", Left: i32(), Right: lit("Str", "1")})},
			want:  []Code{CodeTypeMismatch},
		},
		{
			name:  "negated integer",
			stmts: []Stmt{stmt(&Unary{Op: "!", Operand: i32()})},
			want:  []Code{CodeTypeMismatch},
		},
		{
			name: "nil and undeclared names are not typed",
			stmts: []Stmt{
				&Assign{Target: ref(1, 1, "animal"), Value: lit("nil", "nil")},
				&Assign{Target: ref(2, 1, "n"), Value: ref(2, 5, "fantasma")},
			},
			want: []Code{CodeUndefinedVariable},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := method("m", false, block(locals, tt.stmts...))
			p := program(emptyMain(),
				class("Animal", "", nil),
				class("Perro", "Animal", nil),
				class("T", "", []*AttributeDecl{attr("n", "I32", false)},
					m, method("inst", false, block(nil), param("a", "I32"))),
			)

			diags := sentences(p, DefaultOptions())
			if diff := cmp.Diff(tt.want, codes(diags)); diff != "" {
				t.Fatalf("codes (-want +got):\n%s\n%v", diff, diags)
			}
			if tt.message != "" && diags[0].Message != tt.message {
				t.Errorf("message:\n got %q\nwant %q", diags[0].Message, tt.message)
			}
		})
	}
}
