// Package treefile reads already-parsed TinyRust+ program trees from JSON,
// YAML and CBOR documents.
//
// The three formats share one schema; the struct tags below serve all of
// them (CBOR falls back to the json tags).
package treefile

// Document is the top-level tree document.
type Document struct {
	Name    string      `json:"name" yaml:"name"`
	Classes []*ClassDoc `json:"classes" yaml:"classes"`
	Main    *MethodDoc  `json:"main,omitempty" yaml:"main,omitempty"`
}

// Pos is a 1-based source position.
type Pos struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// ClassDoc describes a class declaration.
type ClassDoc struct {
	Name        string          `json:"name" yaml:"name"`
	Extends     string          `json:"extends,omitempty" yaml:"extends,omitempty"`
	Pos         Pos             `json:"pos" yaml:"pos"`
	Attributes  []*AttributeDoc `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Constructor *MethodDoc      `json:"constructor,omitempty" yaml:"constructor,omitempty"`
	Methods     []*MethodDoc    `json:"methods,omitempty" yaml:"methods,omitempty"`
}

// AttributeDoc describes an instance attribute.
type AttributeDoc struct {
	Name   string `json:"name" yaml:"name"`
	Type   string `json:"type" yaml:"type"`
	Public bool   `json:"public,omitempty" yaml:"public,omitempty"`
	Pos    Pos    `json:"pos" yaml:"pos"`
}

// MethodDoc describes a method, constructor or main.
type MethodDoc struct {
	Name    string    `json:"name,omitempty" yaml:"name,omitempty"`
	Static  bool      `json:"static,omitempty" yaml:"static,omitempty"`
	Params  []*VarDoc `json:"params,omitempty" yaml:"params,omitempty"`
	Returns string    `json:"returns,omitempty" yaml:"returns,omitempty"`
	Body    *BlockDoc `json:"body" yaml:"body"`
	Pos     Pos       `json:"pos" yaml:"pos"`
}

// VarDoc describes a parameter or a local declaration.
type VarDoc struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
	Pos  Pos    `json:"pos" yaml:"pos"`
}

// BlockDoc is a block: local declarations followed by statements.
type BlockDoc struct {
	Locals     []*VarDoc  `json:"locals,omitempty" yaml:"locals,omitempty"`
	Statements []*NodeDoc `json:"statements,omitempty" yaml:"statements,omitempty"`
	Pos        Pos        `json:"pos" yaml:"pos"`
}

// Node kinds.
const (
	KindExpr       = "expr"
	KindAssign     = "assign"
	KindReturn     = "return"
	KindIf         = "if"
	KindWhile      = "while"
	KindBlock      = "block"
	KindVar        = "var"
	KindSelf       = "self"
	KindLiteral    = "literal"
	KindBinary     = "binary"
	KindUnary      = "unary"
	KindCall       = "call"
	KindStaticCall = "static_call"
	KindNew        = "new"
	KindNewArray   = "new_array"
	KindField      = "field"
	KindMethodCall = "method_call"
	KindIndex      = "index"
)

// NodeDoc is a statement or expression. Kind selects which fields apply.
type NodeDoc struct {
	Kind string `json:"kind" yaml:"kind"`
	Pos  Pos    `json:"pos" yaml:"pos"`

	// Names and literals
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Class string `json:"class,omitempty" yaml:"class,omitempty"`
	Type  string `json:"type,omitempty" yaml:"type,omitempty"`
	Text  string `json:"text,omitempty" yaml:"text,omitempty"`
	Op    string `json:"op,omitempty" yaml:"op,omitempty"`

	// Children
	Expr     *NodeDoc   `json:"expr,omitempty" yaml:"expr,omitempty"`
	Target   *NodeDoc   `json:"target,omitempty" yaml:"target,omitempty"`
	Value    *NodeDoc   `json:"value,omitempty" yaml:"value,omitempty"`
	Cond     *NodeDoc   `json:"cond,omitempty" yaml:"cond,omitempty"`
	Left     *NodeDoc   `json:"left,omitempty" yaml:"left,omitempty"`
	Right    *NodeDoc   `json:"right,omitempty" yaml:"right,omitempty"`
	Operand  *NodeDoc   `json:"operand,omitempty" yaml:"operand,omitempty"`
	Receiver *NodeDoc   `json:"receiver,omitempty" yaml:"receiver,omitempty"`
	Index    *NodeDoc   `json:"index,omitempty" yaml:"index,omitempty"`
	Size     *NodeDoc   `json:"size,omitempty" yaml:"size,omitempty"`
	Args     []*NodeDoc `json:"args,omitempty" yaml:"args,omitempty"`
	Then     *BlockDoc  `json:"then,omitempty" yaml:"then,omitempty"`
	Else     *BlockDoc  `json:"else,omitempty" yaml:"else,omitempty"`
	Body     *BlockDoc  `json:"body,omitempty" yaml:"body,omitempty"`
	Block    *BlockDoc  `json:"block,omitempty" yaml:"block,omitempty"`
}
