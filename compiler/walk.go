package compiler

// VisitFunc is called for every statement and expression of a method body
// together with the scope in effect at that node. Returning false skips the
// node's children.
type VisitFunc func(n Node, scope *Scope) bool

// WalkMethod traverses the body of m in source order. Nested blocks open
// child scopes holding their locals.
func WalkMethod(m *MethodDecl, fn VisitFunc) {
	if m == nil || m.Body == nil {
		return
	}
	WalkBody(m.Body, MethodScope(m), fn)
}

// WalkBody traverses the statements of body, whose locals are expected to be
// defined in scope already.
func WalkBody(body *Block, scope *Scope, fn VisitFunc) {
	w := walker{fn: fn}
	w.statements(body.Statements, scope)
}

type walker struct {
	fn VisitFunc
}

func (w walker) statements(stmts []Stmt, scope *Scope) {
	for _, st := range stmts {
		w.stmt(st, scope)
	}
}

func (w walker) block(b *Block, scope *Scope) {
	if b == nil {
		return
	}
	inner := blockScope(scope, b, localCount(scope))
	if !w.fn(b, inner) {
		return
	}
	w.statements(b.Statements, inner)
}

func (w walker) stmt(st Stmt, scope *Scope) {
	if st == nil {
		return
	}
	if b, ok := st.(*Block); ok {
		w.block(b, scope)
		return
	}
	if !w.fn(st, scope) {
		return
	}
	switch s := st.(type) {
	case *ExprStmt:
		w.expr(s.Expr, scope)
	case *Assign:
		w.expr(s.Target, scope)
		w.expr(s.Value, scope)
	case *Return:
		w.expr(s.Value, scope)
	case *If:
		w.expr(s.Cond, scope)
		w.block(s.Then, scope)
		w.block(s.Else, scope)
	case *While:
		w.expr(s.Cond, scope)
		w.block(s.Body, scope)
	}
}

func (w walker) exprs(es []Expr, scope *Scope) {
	for _, e := range es {
		w.expr(e, scope)
	}
}

func (w walker) expr(e Expr, scope *Scope) {
	if e == nil {
		return
	}
	if !w.fn(e, scope) {
		return
	}
	switch x := e.(type) {
	case *Binary:
		w.expr(x.Left, scope)
		w.expr(x.Right, scope)
	case *Unary:
		w.expr(x.Operand, scope)
	case *Call:
		w.exprs(x.Args, scope)
	case *StaticCall:
		w.exprs(x.Args, scope)
	case *New:
		w.exprs(x.Args, scope)
	case *NewArray:
		w.expr(x.Size, scope)
	case *FieldAccess:
		w.expr(x.Receiver, scope)
	case *MethodCall:
		w.expr(x.Receiver, scope)
		w.exprs(x.Args, scope)
	case *Index:
		w.expr(x.Receiver, scope)
		w.expr(x.Index, scope)
	case *Variable, *Self, *Literal:
		// leaves
	}
}
