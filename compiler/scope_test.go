package compiler

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScope_LookupInnermostFirst(t *testing.T) {
	outer := NewScope(nil)
	if err := outer.Define(&Binding{Name: "x", Type: ty("I32"), Kind: BindParam}); err != nil {
		t.Fatalf("define: %v", err)
	}
	inner := NewScope(outer)
	if err := inner.Define(&Binding{Name: "x", Type: ty("Str"), Kind: BindLocal}); err != nil {
		t.Fatalf("define: %v", err)
	}

	b, ok := inner.Lookup("x")
	if !ok {
		t.Fatal("x not found")
	}
	if b.Type.Name != "Str" {
		t.Errorf("expected inner binding, got %s", b.Type)
	}
	if b, _ := outer.Lookup("x"); b.Type.Name != "I32" {
		t.Errorf("outer scope sees inner binding: %s", b.Type)
	}
	if inner.Parent() != outer {
		t.Error("parent not chained")
	}
}

func TestScope_DefineDuplicate(t *testing.T) {
	s := NewScope(nil)
	_ = s.Define(&Binding{Name: "a", Kind: BindLocal})
	err := s.Define(&Binding{Name: "a", Kind: BindLocal})
	if !errors.Is(err, ErrAlreadyDefined) {
		t.Fatalf("expected ErrAlreadyDefined, got %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("duplicate should not be added, len=%d", s.Len())
	}
}

func TestScope_LookupLocalIgnoresParent(t *testing.T) {
	outer := NewScope(nil)
	_ = outer.Define(&Binding{Name: "p", Kind: BindParam})
	inner := NewScope(outer)

	if _, ok := inner.LookupLocal("p"); ok {
		t.Error("LookupLocal should not consult the parent")
	}
	if _, ok := inner.Lookup("p"); !ok {
		t.Error("Lookup should consult the parent")
	}
}

func TestMethodScope_ParamsAndLocals(t *testing.T) {
	m := method("m", false, block([]*VarDecl{local("x", "I32"), local("y", "Bool")}),
		param("a", "I32"), param("b", "Str"))

	sc := MethodScope(m)
	if diff := cmp.Diff([]string{"x", "y"}, sc.Names()); diff != "" {
		t.Errorf("locals (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b"}, sc.Parent().Names()); diff != "" {
		t.Errorf("params (-want +got):\n%s", diff)
	}

	b, _ := sc.Lookup("b")
	if b.Kind != BindParam || b.Position != 2 {
		t.Errorf("b: got %s #%d", b.Kind, b.Position)
	}
	y, _ := sc.Lookup("y")
	if y.Kind != BindLocal || y.Position != 2 {
		t.Errorf("y: got %s #%d", y.Kind, y.Position)
	}
}

func TestWalk_NestedLocalPositions(t *testing.T) {
	inner := &Block{Locals: []*VarDecl{local("z", "I32")}, Statements: []Stmt{stmt(ref(3, 3, "z"))}}
	m := method("m", false, block([]*VarDecl{local("x", "I32"), local("y", "I32")},
		&While{Cond: lit("Bool", "true"), Body: inner},
	))

	var got *Binding
	WalkMethod(m, func(n Node, sc *Scope) bool {
		if v, ok := n.(*Variable); ok && v.Name == "z" {
			got, _ = sc.Lookup("z")
		}
		return true
	})
	if got == nil {
		t.Fatal("z not resolved inside while body")
	}
	if got.Position != 3 {
		t.Errorf("z position: got %d, want 3", got.Position)
	}
}

func TestWalk_SkipChildren(t *testing.T) {
	m := method("m", false, block(nil,
		stmt(&Binary{Op: "+", Left: ref(1, 1, "a"), Right: ref(1, 5, "b")}),
	))

	var names []string
	WalkMethod(m, func(n Node, _ *Scope) bool {
		if v, ok := n.(*Variable); ok {
			names = append(names, v.Name)
		}
		_, isBinary := n.(*Binary)
		return !isBinary
	})
	if len(names) != 0 {
		t.Errorf("children of a skipped node were visited: %v", names)
	}
}

func TestWalk_SourceOrder(t *testing.T) {
	m := method("m", false, block(nil,
		&Assign{Target: ref(1, 1, "a"), Value: &MethodCall{Receiver: ref(1, 5, "b"), Name: "f", Args: []Expr{ref(1, 9, "c")}}},
		ret(&Index{Receiver: ref(2, 8, "d"), Index: ref(2, 10, "e")}),
	))

	var names []string
	WalkMethod(m, func(n Node, _ *Scope) bool {
		if v, ok := n.(*Variable); ok {
			names = append(names, v.Name)
		}
		return true
	})
	if diff := cmp.Diff([]string{"a", "b", "c", "d", "e"}, names); diff != "" {
		t.Errorf("visit order (-want +got):\n%s", diff)
	}
}
