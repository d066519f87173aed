package compiler

// ---------------------------------------------------------------------------
// AST: already-parsed TinyRust+ program trees
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
}

// IsValid reports whether the position was supplied by the parser.
func (p Position) IsValid() bool {
	return p.Line > 0
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// TypeRef names a declared type: a primitive (I32, Bool, Str, Char), void,
// a class, or an array of one of those.
type TypeRef struct {
	Name  string
	Array bool
}

// Void is the return type of methods that return nothing.
var Void = TypeRef{Name: "void"}

// IsVoid reports whether t is the void type (or unset).
func (t TypeRef) IsVoid() bool {
	return t.Name == "" || (t.Name == "void" && !t.Array)
}

func (t TypeRef) String() string {
	if t.Array {
		return "Array " + t.Name
	}
	if t.Name == "" {
		return "void"
	}
	return t.Name
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// Program is a whole TinyRust+ compilation unit.
type Program struct {
	Name    string
	Classes []*ClassDecl
	Main    *MethodDecl // static method of the phantom class "main"; may be nil
}

// MainClassName is the name of the phantom class that owns main.
const MainClassName = "main"

// ClassDecl represents a class declaration.
type ClassDecl struct {
	SpanVal     Span
	Name        string
	Superclass  string // empty means Object
	Attributes  []*AttributeDecl
	Methods     []*MethodDecl
	Constructor *MethodDecl // may be nil
}

func (n *ClassDecl) Span() Span { return n.SpanVal }
func (n *ClassDecl) node()      {}

// Attribute returns the attribute declared directly on the class, if any.
func (n *ClassDecl) Attribute(name string) *AttributeDecl {
	for _, a := range n.Attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// AttributeDecl represents an instance attribute.
type AttributeDecl struct {
	SpanVal Span
	Name    string
	Type    TypeRef
	Public  bool
	Owner   *ClassDecl // non-owning back-reference
}

func (n *AttributeDecl) Span() Span { return n.SpanVal }
func (n *AttributeDecl) node()      {}

// Param represents a formal method parameter.
type Param struct {
	SpanVal Span
	Name    string
	Type    TypeRef
}

func (n *Param) Span() Span { return n.SpanVal }
func (n *Param) node()      {}

// VarDecl represents a local variable declaration at the top of a block.
type VarDecl struct {
	SpanVal Span
	Name    string
	Type    TypeRef
}

func (n *VarDecl) Span() Span { return n.SpanVal }
func (n *VarDecl) node()      {}

// MethodDecl represents a method, a constructor or main.
type MethodDecl struct {
	SpanVal     Span
	Name        string
	Static      bool
	Constructor bool
	Params      []*Param
	ReturnType  TypeRef
	Body        *Block
	Owner       *ClassDecl // non-owning back-reference; nil for main
}

func (n *MethodDecl) Span() Span { return n.SpanVal }
func (n *MethodDecl) node()      {}

// ConstructorName is the reserved name of class constructors.
const ConstructorName = "create"

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// Block is a sequence of statements with its own local declarations.
type Block struct {
	SpanVal    Span
	Locals     []*VarDecl
	Statements []Stmt
}

func (n *Block) Span() Span { return n.SpanVal }
func (n *Block) node()      {}
func (n *Block) stmt()      {}

// ExprStmt represents an expression evaluated for effect: `(expr);`.
type ExprStmt struct {
	SpanVal Span
	Expr    Expr
}

func (n *ExprStmt) Span() Span { return n.SpanVal }
func (n *ExprStmt) node()      {}
func (n *ExprStmt) stmt()      {}

// Assign represents `target = value;`.
type Assign struct {
	SpanVal Span
	Target  Expr
	Value   Expr
}

func (n *Assign) Span() Span { return n.SpanVal }
func (n *Assign) node()      {}
func (n *Assign) stmt()      {}

// Return represents `return;` or `return expr;`.
type Return struct {
	SpanVal Span
	Value   Expr // may be nil
}

func (n *Return) Span() Span { return n.SpanVal }
func (n *Return) node()      {}
func (n *Return) stmt()      {}

// If represents an if / else statement.
type If struct {
	SpanVal Span
	Cond    Expr
	Then    *Block
	Else    *Block // may be nil
}

func (n *If) Span() Span { return n.SpanVal }
func (n *If) node()      {}
func (n *If) stmt()      {}

// While represents a while loop.
type While struct {
	SpanVal Span
	Cond    Expr
	Body    *Block
}

func (n *While) Span() Span { return n.SpanVal }
func (n *While) node()      {}
func (n *While) stmt()      {}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// Variable represents an identifier reference.
type Variable struct {
	SpanVal Span
	Name    string
}

func (n *Variable) Span() Span { return n.SpanVal }
func (n *Variable) node()      {}
func (n *Variable) expr()      {}

// Self represents the `self` reference.
type Self struct {
	SpanVal Span
}

func (n *Self) Span() Span { return n.SpanVal }
func (n *Self) node()      {}
func (n *Self) expr()      {}

// Literal represents a literal of a primitive type (or nil).
type Literal struct {
	SpanVal Span
	Type    TypeRef
	Value   string
}

func (n *Literal) Span() Span { return n.SpanVal }
func (n *Literal) node()      {}
func (n *Literal) expr()      {}

// Binary represents `left op right`.
type Binary struct {
	SpanVal Span
	Op      string
	Left    Expr
	Right   Expr
}

func (n *Binary) Span() Span { return n.SpanVal }
func (n *Binary) node()      {}
func (n *Binary) expr()      {}

// Unary represents `op operand`.
type Unary struct {
	SpanVal Span
	Op      string
	Operand Expr
}

func (n *Unary) Span() Span { return n.SpanVal }
func (n *Unary) node()      {}
func (n *Unary) expr()      {}

// Call represents an unqualified method call on the current class: `m(args)`.
type Call struct {
	SpanVal Span
	Name    string
	Args    []Expr
}

func (n *Call) Span() Span { return n.SpanVal }
func (n *Call) node()      {}
func (n *Call) expr()      {}

// StaticCall represents `Clase.m(args)`.
type StaticCall struct {
	SpanVal Span
	Class   string
	Name    string
	Args    []Expr
}

func (n *StaticCall) Span() Span { return n.SpanVal }
func (n *StaticCall) node()      {}
func (n *StaticCall) expr()      {}

// New represents `new Clase(args)`.
type New struct {
	SpanVal Span
	Class   string
	Args    []Expr
}

func (n *New) Span() Span { return n.SpanVal }
func (n *New) node()      {}
func (n *New) expr()      {}

// NewArray represents `new T[size]`.
type NewArray struct {
	SpanVal Span
	Elem    TypeRef
	Size    Expr
}

func (n *NewArray) Span() Span { return n.SpanVal }
func (n *NewArray) node()      {}
func (n *NewArray) expr()      {}

// FieldAccess represents `receiver.name`.
type FieldAccess struct {
	SpanVal  Span
	Receiver Expr
	Name     string
}

func (n *FieldAccess) Span() Span { return n.SpanVal }
func (n *FieldAccess) node()      {}
func (n *FieldAccess) expr()      {}

// MethodCall represents `receiver.name(args)`.
type MethodCall struct {
	SpanVal  Span
	Receiver Expr
	Name     string
	Args     []Expr
}

func (n *MethodCall) Span() Span { return n.SpanVal }
func (n *MethodCall) node()      {}
func (n *MethodCall) expr()      {}

// Index represents `receiver[index]`.
type Index struct {
	SpanVal  Span
	Receiver Expr
	Index    Expr
}

func (n *Index) Span() Span { return n.SpanVal }
func (n *Index) node()      {}
func (n *Index) expr()      {}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// Link sets the Owner back-references of every attribute and method in p.
// Decoders call it once after building the tree.
func (p *Program) Link() {
	for _, cls := range p.Classes {
		for _, a := range cls.Attributes {
			a.Owner = cls
		}
		for _, m := range cls.Methods {
			m.Owner = cls
		}
		if cls.Constructor != nil {
			cls.Constructor.Owner = cls
			cls.Constructor.Constructor = true
			if cls.Constructor.Name == "" {
				cls.Constructor.Name = ConstructorName
			}
		}
	}
	if p.Main != nil {
		p.Main.Static = true
		if p.Main.Name == "" {
			p.Main.Name = "main"
		}
	}
}
