package compiler

// ---------------------------------------------------------------------------
// Semantic Analyzer: sentences phase
// ---------------------------------------------------------------------------

const (
	msgUndefinedVariable = "SE INTENTO ACCEDER A LA VARIABLE %s PERO NO ESTA DEFINIDA EN EL AMBITO ACTUAL."
	msgStaticSelf        = "NO SE PERMITE ACCEDER A LA REFERENCIA \"self\" DENTRO DE UN METODO ESTATICO."
	msgSelfAssignment    = "NO SE PERMITE REASIGNAR EL IDENTIFICADOR \"self\", ESTE ES UNA REFERENCIA A LA CLASE ACTUAL."
	msgPrivateInherited  = "EL ATRIBUTO %s DE LA CLASE %s NO ES VISIBLE EN ESTE CONTEXTO PORQUE ES UN ATRIBUTO PRIVADO HEREDADO."
	msgNonStaticCall     = "SE INTENTO ACCEDER AL METODO NO ESTATICO %s DENTRO DEL METODO ESTATICO %s. NO SE PERMITE ACCEDER A METODOS DINAMICOS DENTRO DE UN CONTEXTO ESTATICO."
	msgStaticCall        = "SE INTENTO INVOCAR DE MANERA ESTATICA AL METODO NO ESTATICO %s DE LA CLASE %s"
	msgCreateCurrent     = "SE INTENTO ACCEDER EXPLICITAMENTE AL METODO create DE LA CLASE ACTUAL, ESTE METODO ES ACCESIBLE UNICAMENTE A TRAVES DEL CONSTRUCTOR DE LA CLASE."
	msgCreateClass       = "SE INTENTO ACCEDER EXPLICITAMENTE AL METODO create DE LA CLASE %s, ESTE METODO ES ACCESIBLE UNICAMENTE A TRAVES DEL CONSTRUCTOR DE LA CLASE."
	msgUndefinedClass    = "SE INTENTO ACCEDER A LA CLASE NO DECLARADA %s"
	msgUndefinedMethod   = "SE INTENTO ACCEDER AL METODO %s DE LA CLASE %s, PERO LA CLASE NO IMPLEMENTA TAL METODO."
	msgUndefinedAttr     = "SE INTENTO ACCEDER AL ATRIBUTO %s DE LA CLASE %s, PERO LA CLASE NO POSEE TAL ATRIBUTO."
	msgPrivateAttr       = "EL CAMPO %s DE LA CLASE %s NO ES VISIBLE EN ESTE CONTEXTO PORQUE ES PRIVADO."
	msgArgumentCount     = "LA CANTIDAD DE ARGUMENTOS PARA EL METODO %s NO ES CORRECTA. SE ESPERABAN %d ARGUMENTOS."
	msgUnreachable       = "CODIGO INALCANZABLE DESPUES DE UNA SENTENCIA return."
	msgTypeMismatch      = "SE ESPERABA UNA EXPRESION DE TIPO %s PERO SE ENCONTRO UNA EXPRESION DE TIPO %s"
	msgIndexNonArray     = "SE INTENTO ACCEDER A UN INDICE DEL ATRIBUTO %s DE LA CLASE %s, PERO EL ATRIBUTO NO ES DE TIPO Array."
)

// SemanticAnalyzer performs the sentence checks on method bodies once the
// symbol table is built and consolidated.
type SemanticAnalyzer struct {
	st    *SymbolTable
	opts  Options
	diags diagnostics

	// Current method context
	class  *ClassEntry // nil inside main
	method *MethodDecl

	// Nodes already reported through another rule
	handled map[Node]bool
}

// NewSemanticAnalyzer creates a sentence analyzer over st.
func NewSemanticAnalyzer(st *SymbolTable, opts Options) *SemanticAnalyzer {
	return &SemanticAnalyzer{
		st:    st,
		opts:  opts,
		diags: diagnostics{phase: PhaseSentences},
	}
}

// Diagnostics returns accumulated findings.
func (s *SemanticAnalyzer) Diagnostics() []Diagnostic {
	return s.diags.list
}

// errorAt records an error positioned at node.
func (s *SemanticAnalyzer) errorAt(node Node, code Code, format string, args ...any) *Diagnostic {
	return s.withContext(s.diags.errorAt(node.Span().Start, code, format, args...))
}

// warnAt records a warning positioned at node.
func (s *SemanticAnalyzer) warnAt(node Node, code Code, format string, args ...any) *Diagnostic {
	return s.withContext(s.diags.warnAt(node.Span().Start, code, format, args...))
}

func (s *SemanticAnalyzer) withContext(d *Diagnostic) *Diagnostic {
	d.Class = s.className()
	if s.method != nil {
		d.Method = s.method.Name
	}
	return d
}

func (s *SemanticAnalyzer) className() string {
	if s.class == nil {
		return MainClassName
	}
	return s.class.Name
}

func (s *SemanticAnalyzer) static() bool {
	return s.method != nil && s.method.Static
}

// AnalyzeMethod checks the body of method m of class (nil for main).
func (s *SemanticAnalyzer) AnalyzeMethod(class *ClassEntry, m *MethodDecl) {
	if m == nil || m.Body == nil {
		return
	}
	s.class = class
	s.method = m
	s.handled = make(map[Node]bool)

	scope := MethodScope(m)
	if m.Static && class != nil {
		s.diags.list = append(s.diags.list, CheckStaticContext(m, class, scope)...)
	}

	s.checkUnreachableCode(m.Body.Statements)
	WalkBody(m.Body, scope, s.visit)

	s.class = nil
	s.method = nil
}

// visit dispatches a single node of the body walk.
func (s *SemanticAnalyzer) visit(n Node, scope *Scope) bool {
	if s.handled[n] {
		return true
	}
	switch x := n.(type) {
	case *Block:
		s.checkUnreachableCode(x.Statements)
	case *Assign:
		if s.checkAssignmentTarget(x) {
			s.checkAssignmentType(x, scope)
		}
	case *If:
		s.expectType(x.Cond, TypeRef{Name: TypeBool}, scope)
	case *While:
		s.expectType(x.Cond, TypeRef{Name: TypeBool}, scope)
	case *Binary:
		s.checkBinary(x, scope)
	case *Unary:
		s.checkUnary(x, scope)
	case *NewArray:
		s.expectType(x.Size, TypeRef{Name: TypeI32}, scope)
	case *Index:
		s.checkIndex(x, scope)
	case *Variable:
		s.checkVariableDefined(x, scope)
	case *Self:
		s.checkSelf(x)
	case *Call:
		s.checkCall(x, scope)
	case *StaticCall:
		s.checkStaticCall(x, scope)
	case *New:
		s.checkNew(x, scope)
	case *MethodCall:
		s.checkMethodCall(x, scope)
	case *FieldAccess:
		s.checkFieldAccess(x, scope)
	}
	return true
}

// checkVariableDefined resolves an identifier against the scope chain and
// the current class's attributes.
func (s *SemanticAnalyzer) checkVariableDefined(v *Variable, scope *Scope) {
	if _, ok := scope.Lookup(v.Name); ok {
		return
	}
	if s.class != nil {
		if attr, ok := s.class.Attribute(v.Name); ok {
			if s.static() {
				// Reported by CheckStaticContext.
				return
			}
			if attr.Inherited && !attr.Public {
				d := s.errorAt(v, CodePrivateInherited, msgPrivateInherited, v.Name, s.class.Name)
				d.Name = v.Name
			}
			return
		}
	}
	var d *Diagnostic
	if s.opts.UndefinedSeverity == SeverityWarning {
		d = s.warnAt(v, CodeUndefinedVariable, msgUndefinedVariable, v.Name)
	} else {
		d = s.errorAt(v, CodeUndefinedVariable, msgUndefinedVariable, v.Name)
	}
	d.Name = v.Name
}

func (s *SemanticAnalyzer) checkSelf(n *Self) {
	switch {
	case s.class == nil:
		s.errorAt(n, CodeMainSelf, msgUndefinedVariable, "self").Name = "self"
	case s.static():
		s.errorAt(n, CodeStaticSelf, msgStaticSelf).Name = "self"
	}
}

// checkAssignmentTarget rejects assignments to self and reports whether
// the target is an ordinary one. Inside a static method or main the self
// reference itself is the error, reported by checkSelf.
func (s *SemanticAnalyzer) checkAssignmentTarget(a *Assign) bool {
	self, ok := a.Target.(*Self)
	if !ok {
		return true
	}
	if s.class != nil && !s.static() {
		s.errorAt(self, CodeSelfAssignment, msgSelfAssignment).Name = "self"
		s.handled[self] = true
	}
	return false
}

// checkArity reports a wrong argument count, then argument types against
// the formal parameters.
func (s *SemanticAnalyzer) checkArity(n Node, m *MethodEntry, args []Expr, scope *Scope) {
	if len(args) != m.Arity() {
		s.errorAt(n, CodeArgumentCount, msgArgumentCount, m.Name, m.Arity()).Name = m.Name
		return
	}
	for i, arg := range args {
		s.expectType(arg, m.Params[i].Type, scope)
	}
}

// checkCall validates an unqualified call on the current class.
func (s *SemanticAnalyzer) checkCall(c *Call, scope *Scope) {
	if c.Name == ConstructorName {
		s.errorAt(c, CodeConstructorCall, msgCreateCurrent).Name = c.Name
		return
	}
	var m *MethodEntry
	if s.class != nil {
		m, _ = s.class.Method(c.Name)
	}
	if m == nil {
		s.errorAt(c, CodeUndefinedMethod, msgUndefinedMethod, c.Name, s.className()).Name = c.Name
		return
	}
	if s.static() && !m.Static {
		s.errorAt(c, CodeNonStaticCall, msgNonStaticCall, c.Name, s.method.Name).Name = c.Name
		return
	}
	s.checkArity(c, m, c.Args, scope)
}

// checkStaticCall validates `Clase.m(args)`.
func (s *SemanticAnalyzer) checkStaticCall(c *StaticCall, scope *Scope) {
	class, ok := s.st.Class(c.Class)
	if !ok {
		s.errorAt(c, CodeUndefinedClass, msgUndefinedClass, c.Class).Name = c.Class
		return
	}
	if c.Name == ConstructorName {
		s.errorAt(c, CodeConstructorCall, msgCreateClass, c.Class).Name = c.Name
		return
	}
	m, ok := class.Method(c.Name)
	if !ok {
		s.errorAt(c, CodeUndefinedMethod, msgUndefinedMethod, c.Name, c.Class).Name = c.Name
		return
	}
	if !m.Static {
		s.errorAt(c, CodeStaticCall, msgStaticCall, c.Name, c.Class).Name = c.Name
		return
	}
	s.checkArity(c, m, c.Args, scope)
}

// checkNew validates the class and constructor arity of `new Clase(args)`.
func (s *SemanticAnalyzer) checkNew(n *New, scope *Scope) {
	class, ok := s.st.Class(n.Class)
	if !ok {
		s.errorAt(n, CodeUndefinedClass, msgUndefinedClass, n.Class).Name = n.Class
		return
	}
	ctor := class.Constructor
	if ctor == nil {
		ctor = &MethodEntry{Name: ConstructorName}
	}
	s.checkArity(n, ctor, n.Args, scope)
}

// checkMethodCall validates calls whose receiver type is statically known.
func (s *SemanticAnalyzer) checkMethodCall(c *MethodCall, scope *Scope) {
	class := s.receiverClass(c.Receiver, scope)
	if class == nil {
		return
	}
	if c.Name == ConstructorName {
		s.errorAt(c, CodeConstructorCall, msgCreateClass, class.Name).Name = c.Name
		return
	}
	m, ok := class.Method(c.Name)
	if !ok {
		s.errorAt(c, CodeUndefinedMethod, msgUndefinedMethod, c.Name, class.Name).Name = c.Name
		return
	}
	s.checkArity(c, m, c.Args, scope)
}

// checkFieldAccess validates `receiver.attr` when the receiver type is
// statically known. Private attributes are visible only inside their class.
func (s *SemanticAnalyzer) checkFieldAccess(f *FieldAccess, scope *Scope) {
	class := s.receiverClass(f.Receiver, scope)
	if class == nil {
		return
	}
	attr, ok := class.Attribute(f.Name)
	if !ok {
		s.errorAt(f, CodeUndefinedAttr, msgUndefinedAttr, f.Name, class.Name).Name = f.Name
		return
	}
	if !attr.Public && class.Name != s.className() {
		s.errorAt(f, CodePrivateAttr, msgPrivateAttr, f.Name, class.Name).Name = f.Name
	}
}

// checkUnreachableCode warns once about the statement following a return.
func (s *SemanticAnalyzer) checkUnreachableCode(stmts []Stmt) {
	if !s.opts.Unreachable {
		return
	}
	for i, stmt := range stmts {
		if _, isReturn := stmt.(*Return); isReturn && i < len(stmts)-1 {
			s.warnAt(stmts[i+1], CodeUnreachableCode, msgUnreachable)
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Type checks
// ---------------------------------------------------------------------------

// expectType reports e when its static type is known and does not conform
// to want. Expressions of unknown type (undeclared names, nil) pass.
func (s *SemanticAnalyzer) expectType(e Expr, want TypeRef, scope *Scope) {
	if e == nil {
		return
	}
	got, ok := s.typeOf(e, scope)
	if !ok || s.conforms(got, want) {
		return
	}
	s.errorAt(e, CodeTypeMismatch, msgTypeMismatch, want, got)
}

func (s *SemanticAnalyzer) checkAssignmentType(a *Assign, scope *Scope) {
	want, ok := s.typeOf(a.Target, scope)
	if !ok {
		return
	}
	s.expectType(a.Value, want, scope)
}

// checkBinary checks operands against the operator: arithmetic and ordering
// take I32, logical operators take Bool, equality needs both sides alike.
func (s *SemanticAnalyzer) checkBinary(b *Binary, scope *Scope) {
	switch b.Op {
	case "+", "-", "*", "/", "%", "<", ">", "<=", ">=":
		s.expectType(b.Left, TypeRef{Name: TypeI32}, scope)
		s.expectType(b.Right, TypeRef{Name: TypeI32}, scope)
	case "&&", "||":
		s.expectType(b.Left, TypeRef{Name: TypeBool}, scope)
		s.expectType(b.Right, TypeRef{Name: TypeBool}, scope)
	case "==", "!=":
		left, ok := s.typeOf(b.Left, scope)
		if !ok {
			return
		}
		right, ok := s.typeOf(b.Right, scope)
		if ok && !s.conforms(right, left) && !s.conforms(left, right) {
			s.errorAt(b.Right, CodeTypeMismatch, msgTypeMismatch, left, right)
		}
	}
}

func (s *SemanticAnalyzer) checkUnary(u *Unary, scope *Scope) {
	switch u.Op {
	case "!":
		s.expectType(u.Operand, TypeRef{Name: TypeBool}, scope)
	case "-", "+":
		s.expectType(u.Operand, TypeRef{Name: TypeI32}, scope)
	}
}

// checkIndex requires an I32 index and an Array receiver.
func (s *SemanticAnalyzer) checkIndex(x *Index, scope *Scope) {
	s.expectType(x.Index, TypeRef{Name: TypeI32}, scope)

	t, ok := s.typeOf(x.Receiver, scope)
	if !ok || t.Array {
		return
	}
	if f, isField := x.Receiver.(*FieldAccess); isField {
		owner := s.className()
		if c := s.receiverClass(f.Receiver, scope); c != nil {
			owner = c.Name
		}
		s.errorAt(f, CodeTypeMismatch, msgIndexNonArray, f.Name, owner).Name = f.Name
		return
	}
	s.errorAt(x.Receiver, CodeTypeMismatch, msgTypeMismatch, TypeRef{Name: TypeArray}, t)
}

// conforms reports whether a value of type got may stand where want is
// expected: same type, or a class whose ancestry includes want.
func (s *SemanticAnalyzer) conforms(got, want TypeRef) bool {
	if got == want || (got.IsVoid() && want.IsVoid()) {
		return true
	}
	if got.Array || want.Array || IsPrimitive(got.Name) || IsPrimitive(want.Name) {
		return false
	}
	seen := make(map[string]bool)
	for name := got.Name; name != "" && !seen[name]; {
		if name == want.Name {
			return true
		}
		seen[name] = true
		c, ok := s.st.Class(name)
		if !ok {
			return false
		}
		name = c.Superclass
	}
	return false
}

// ---------------------------------------------------------------------------
// Static types of receivers
// ---------------------------------------------------------------------------

func (s *SemanticAnalyzer) receiverClass(e Expr, scope *Scope) *ClassEntry {
	t, ok := s.typeOf(e, scope)
	if !ok || t.IsVoid() {
		return nil
	}
	name := t.Name
	if t.Array {
		name = TypeArray
	}
	c, _ := s.st.Class(name)
	return c
}

// typeOf resolves the static type of e where it can be done without full
// type inference.
func (s *SemanticAnalyzer) typeOf(e Expr, scope *Scope) (TypeRef, bool) {
	switch x := e.(type) {
	case *Variable:
		if b, ok := scope.Lookup(x.Name); ok {
			return b.Type, true
		}
		if s.class != nil {
			if a, ok := s.class.Attribute(x.Name); ok {
				return a.Type, true
			}
		}
	case *Self:
		if s.class != nil {
			return TypeRef{Name: s.class.Name}, true
		}
	case *Literal:
		if x.Type.Name != "" && x.Type.Name != "nil" {
			return x.Type, true
		}
	case *New:
		return TypeRef{Name: x.Class}, true
	case *NewArray:
		return TypeRef{Name: x.Elem.Name, Array: true}, true
	case *Binary:
		switch x.Op {
		case "+", "-", "*", "/", "%":
			return TypeRef{Name: TypeI32}, true
		case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
			return TypeRef{Name: TypeBool}, true
		}
	case *Unary:
		switch x.Op {
		case "!":
			return TypeRef{Name: TypeBool}, true
		case "-", "+":
			return TypeRef{Name: TypeI32}, true
		}
	case *Call:
		if s.class != nil {
			if m, ok := s.class.Method(x.Name); ok {
				return m.Return, true
			}
		}
	case *StaticCall:
		if c, ok := s.st.Class(x.Class); ok {
			if m, ok := c.Method(x.Name); ok {
				return m.Return, true
			}
		}
	case *MethodCall:
		if c := s.receiverClass(x.Receiver, scope); c != nil {
			if m, ok := c.Method(x.Name); ok {
				return m.Return, true
			}
		}
	case *FieldAccess:
		if c := s.receiverClass(x.Receiver, scope); c != nil {
			if a, ok := c.Attribute(x.Name); ok {
				return a.Type, true
			}
		}
	case *Index:
		if t, ok := s.typeOf(x.Receiver, scope); ok && t.Array {
			return TypeRef{Name: t.Name}, true
		}
	}
	return TypeRef{}, false
}

// ---------------------------------------------------------------------------
// Integration with Check
// ---------------------------------------------------------------------------

// Sentences runs the sentences phase over every method, constructor and
// main of prog, resolving names through st.
func Sentences(st *SymbolTable, prog *Program, opts Options) []Diagnostic {
	analyzer := NewSemanticAnalyzer(st, opts)
	for _, class := range st.UserClasses() {
		if class.Decl == nil {
			continue
		}
		for _, m := range class.Decl.Methods {
			analyzer.AnalyzeMethod(class, m)
		}
		analyzer.AnalyzeMethod(class, class.Decl.Constructor)
	}
	analyzer.AnalyzeMethod(nil, prog.Main)
	return analyzer.Diagnostics()
}
