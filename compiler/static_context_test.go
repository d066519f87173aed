package compiler

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestCheckStaticContext_Fixture(t *testing.T) {
	p := ejemplo()
	cls := p.Classes[0]
	m := cls.Methods[0]

	diags := CheckStaticContext(m, DeclaredAttributes{Class: cls}, nil)

	want := []Diagnostic{{
		Phase:    PhaseSentences,
		Severity: SeverityError,
		Code:     CodeStaticAttribute,
		Line:     7,
		Column:   4,
		Message: "SE INTENTO ACCEDER AL ATRIBUTO attr DENTRO DEL METODO ESTATICO metodoEstatico. " +
			"NO SE PERMITE ACCEDER A ATRIBUTOS DINAMICOS DENTRO DE UN CONTEXTO ESTATICO.",
		Class:  "Ejemplo",
		Method: "metodoEstatico",
		Name:   "attr",
	}}
	if diff := cmp.Diff(want, diags, cmpopts.IgnoreFields(Diagnostic{}, "Cause")); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckStaticContext_CauseIsViolation(t *testing.T) {
	p := ejemplo()
	diags := CheckStaticContext(p.Classes[0].Methods[0], DeclaredAttributes{Class: p.Classes[0]}, nil)
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(diags))
	}

	var v *StaticContextViolation
	if !errors.As(diags[0], &v) {
		t.Fatalf("expected StaticContextViolation cause, got %T", diags[0].Cause)
	}
	if v.Method != "metodoEstatico" || v.Attribute != "attr" || v.Line != 7 || v.Column != 4 {
		t.Errorf("unexpected violation: %+v", v)
	}
}

func TestCheckStaticContext_OnePerReference(t *testing.T) {
	m := method("m", true, block(nil,
		stmt(ref(3, 4, "a")),
		stmt(&Binary{Op: "+", Left: ref(4, 4, "a"), Right: ref(4, 8, "b")}),
		&Assign{Target: ref(5, 3, "a"), Value: lit("I32", "1")},
	))
	cls := class("C", "", []*AttributeDecl{attr("a", "I32", false), attr("b", "I32", true)}, m)
	program(emptyMain(), cls)

	diags := CheckStaticContext(m, DeclaredAttributes{Class: cls}, nil)

	type pos struct {
		Line, Col int
		Name      string
	}
	var got []pos
	for _, d := range diags {
		got = append(got, pos{d.Line, d.Column, d.Name})
	}
	want := []pos{{3, 4, "a"}, {4, 4, "a"}, {4, 8, "b"}, {5, 3, "a"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("references mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckStaticContext_LocalsAndParamsOnly(t *testing.T) {
	m := method("m", true, block([]*VarDecl{local("x", "I32")},
		stmt(ref(2, 2, "x")),
		stmt(ref(3, 2, "p")),
	), param("p", "I32"))
	cls := class("C", "", []*AttributeDecl{attr("y", "I32", false)}, m)
	program(emptyMain(), cls)

	if diags := CheckStaticContext(m, DeclaredAttributes{Class: cls}, nil); len(diags) != 0 {
		t.Errorf("expected no diagnostics, got %v", diags)
	}
}

func TestCheckStaticContext_LocalShadowsAttribute(t *testing.T) {
	m := method("m", true, block([]*VarDecl{local("attr", "I32")},
		stmt(ref(2, 2, "attr")),
	))
	cls := class("C", "", []*AttributeDecl{attr("attr", "I32", false)}, m)
	program(emptyMain(), cls)

	if diags := CheckStaticContext(m, DeclaredAttributes{Class: cls}, nil); len(diags) != 0 {
		t.Errorf("local should shadow attribute, got %v", diags)
	}
}

func TestCheckStaticContext_ParamShadowsAttribute(t *testing.T) {
	m := method("m", true, block(nil, stmt(ref(2, 2, "attr"))), param("attr", "Str"))
	cls := class("C", "", []*AttributeDecl{attr("attr", "I32", false)}, m)
	program(emptyMain(), cls)

	if diags := CheckStaticContext(m, DeclaredAttributes{Class: cls}, nil); len(diags) != 0 {
		t.Errorf("parameter should shadow attribute, got %v", diags)
	}
}

func TestCheckStaticContext_NestedBlockScope(t *testing.T) {
	// The local declared inside the if shadows the attribute only there.
	inner := &Block{
		Locals:     []*VarDecl{local("n", "I32")},
		Statements: []Stmt{stmt(ref(3, 4, "n"))},
	}
	m := method("m", true, block(nil,
		&If{Cond: lit("Bool", "true"), Then: inner},
		stmt(ref(5, 2, "n")),
	))
	cls := class("C", "", []*AttributeDecl{attr("n", "I32", false)}, m)
	program(emptyMain(), cls)

	diags := CheckStaticContext(m, DeclaredAttributes{Class: cls}, nil)
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %v", diags)
	}
	if diags[0].Line != 5 || diags[0].Column != 2 {
		t.Errorf("expected diagnostic at 5:2, got %d:%d", diags[0].Line, diags[0].Column)
	}
}

func TestCheckStaticContext_WhileAndElseBodies(t *testing.T) {
	m := method("m", true, block(nil,
		&While{Cond: ref(2, 8, "flag"), Body: block(nil, stmt(ref(3, 4, "count")))},
		&If{
			Cond: lit("Bool", "false"),
			Then: block(nil),
			Else: block(nil, ret(ref(6, 11, "count"))),
		},
	))
	cls := class("C", "", []*AttributeDecl{attr("flag", "Bool", false), attr("count", "I32", false)}, m)
	program(emptyMain(), cls)

	diags := CheckStaticContext(m, DeclaredAttributes{Class: cls}, nil)
	if len(diags) != 3 {
		t.Fatalf("expected 3 diagnostics, got %v", diags)
	}
}

func TestCheckStaticContext_MemberNamesAreNotReferences(t *testing.T) {
	// x.attr, Clase.m() and new Clase() name members and classes, not identifiers.
	m := method("m", true, block([]*VarDecl{local("x", "C")},
		stmt(&FieldAccess{Receiver: ref(2, 2, "x"), Name: "attr"}),
		stmt(&StaticCall{Class: "attr", Name: "attr"}),
		stmt(&New{Class: "attr"}),
		stmt(&MethodCall{Receiver: ref(5, 2, "x"), Name: "attr", Args: []Expr{ref(5, 9, "attr")}}),
	))
	cls := class("C", "", []*AttributeDecl{attr("attr", "I32", true)}, m)
	program(emptyMain(), cls)

	diags := CheckStaticContext(m, DeclaredAttributes{Class: cls}, nil)
	if len(diags) != 1 {
		t.Fatalf("expected only the argument reference, got %v", diags)
	}
	if diags[0].Line != 5 || diags[0].Column != 9 {
		t.Errorf("expected diagnostic at 5:9, got %d:%d", diags[0].Line, diags[0].Column)
	}
}

func TestCheckStaticContext_NonStatic(t *testing.T) {
	m := method("m", false, block(nil, stmt(ref(2, 2, "attr"))))
	cls := class("C", "", []*AttributeDecl{attr("attr", "I32", false)}, m)
	program(emptyMain(), cls)

	if diags := CheckStaticContext(m, DeclaredAttributes{Class: cls}, nil); diags != nil {
		t.Errorf("non-static method should yield nil, got %v", diags)
	}
}

func TestCheckStaticContext_InheritedAttribute(t *testing.T) {
	m := method("m", true, block(nil, stmt(ref(2, 2, "base"))))
	parent := class("Padre", "", []*AttributeDecl{attr("base", "I32", true)})
	child := class("Hijo", "Padre", nil, m)
	p := program(emptyMain(), parent, child)

	st, decl := Declarations(p)
	if len(decl) != 0 {
		t.Fatalf("unexpected declaration errors: %v", decl)
	}
	entry, _ := st.Class("Hijo")

	diags := CheckStaticContext(m, entry, nil)
	if len(diags) != 1 || diags[0].Name != "base" {
		t.Fatalf("expected inherited attribute diagnostic, got %v", diags)
	}
	if diags[0].Class != "Hijo" {
		t.Errorf("class: got %q, want Hijo", diags[0].Class)
	}
}

func TestCheckStaticContext_DoesNotMutate(t *testing.T) {
	p := ejemplo()
	m := p.Classes[0].Methods[0]
	before := len(m.Body.Statements)

	CheckStaticContext(m, DeclaredAttributes{Class: p.Classes[0]}, nil)
	CheckStaticContext(m, DeclaredAttributes{Class: p.Classes[0]}, nil)

	if len(m.Body.Statements) != before || !m.Static || m.Owner != p.Classes[0] {
		t.Error("checker must not modify the method")
	}
}
