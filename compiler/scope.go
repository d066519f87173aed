package compiler

import (
	"errors"
	"fmt"
)

// BindingKind distinguishes method parameters from block locals.
type BindingKind int

const (
	BindParam BindingKind = iota
	BindLocal
)

func (k BindingKind) String() string {
	switch k {
	case BindParam:
		return "parameter"
	case BindLocal:
		return "local"
	default:
		return fmt.Sprintf("binding(%d)", int(k))
	}
}

// Binding is a local or parameter visible in a scope.
type Binding struct {
	Name     string
	Type     TypeRef
	Kind     BindingKind
	Position int // 1-based declaration order within its kind
	Decl     Node
}

// ErrAlreadyDefined is returned by Define when the name is taken in the same scope.
var ErrAlreadyDefined = errors.New("already defined in this scope")

// Scope is an ordered mapping from identifiers to bindings, chained to an
// optional parent scope. Scopes never own their parent.
type Scope struct {
	parent   *Scope
	names    []string
	bindings map[string]*Binding
}

// NewScope creates a scope nested in parent (which may be nil).
func NewScope(parent *Scope) *Scope {
	return &Scope{
		parent:   parent,
		bindings: make(map[string]*Binding),
	}
}

// Parent returns the enclosing scope, or nil.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Define adds a binding to this scope.
func (s *Scope) Define(b *Binding) error {
	if _, exists := s.bindings[b.Name]; exists {
		return fmt.Errorf("%s %q: %w", b.Kind, b.Name, ErrAlreadyDefined)
	}
	s.bindings[b.Name] = b
	s.names = append(s.names, b.Name)
	return nil
}

// LookupLocal resolves name in this scope only.
func (s *Scope) LookupLocal(name string) (*Binding, bool) {
	b, ok := s.bindings[name]
	return b, ok
}

// Lookup resolves name innermost-first along the scope chain.
func (s *Scope) Lookup(name string) (*Binding, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if b, ok := sc.bindings[name]; ok {
			return b, true
		}
	}
	return nil, false
}

// Names returns the identifiers defined in this scope in declaration order.
func (s *Scope) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of bindings defined directly in this scope.
func (s *Scope) Len() int {
	return len(s.names)
}

// MethodScope builds the scope a method body starts in: parameters in an
// outer scope, method-level locals in a child scope. Duplicate names keep
// the first declaration; the declarations pass reports them.
func MethodScope(m *MethodDecl) *Scope {
	params := NewScope(nil)
	for i, p := range m.Params {
		_ = params.Define(&Binding{Name: p.Name, Type: p.Type, Kind: BindParam, Position: i + 1, Decl: p})
	}
	if m.Body == nil {
		return params
	}
	return blockScope(params, m.Body, 0)
}

// blockScope opens a child scope for a block's locals. offset is the number
// of locals already declared by enclosing blocks of the same method.
func blockScope(parent *Scope, b *Block, offset int) *Scope {
	sc := NewScope(parent)
	for i, l := range b.Locals {
		_ = sc.Define(&Binding{Name: l.Name, Type: l.Type, Kind: BindLocal, Position: offset + i + 1, Decl: l})
	}
	return sc
}

// localCount returns the number of locals visible in s, used to keep local
// positions increasing through nested blocks.
func localCount(s *Scope) int {
	n := 0
	for sc := s; sc != nil; sc = sc.parent {
		for _, b := range sc.bindings {
			if b.Kind == BindLocal {
				n++
			}
		}
	}
	return n
}
