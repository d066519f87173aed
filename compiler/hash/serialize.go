package hash

import (
	"encoding/binary"

	"github.com/RocioCM/tinyrust-compiler/compiler"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of a program tree.
//
// Encoding conventions:
//   - First byte: HashVersion (0x01)
//   - Integers: uint32 big-endian
//   - Strings: uint32 big-endian length + UTF-8 bytes
//   - Booleans: single byte (0/1)
//   - Positions: line, column (uint32 each)
//   - Optional children: TagAbsent when missing
//   - Child nodes: serialized inline (flat)
//
// Positions are part of the encoding because reports carry them.
// ---------------------------------------------------------------------------

// Serialize produces a deterministic byte serialization of prog.
// The returned bytes are suitable for hashing with SHA-256.
func Serialize(prog *compiler.Program) []byte {
	s := &serializer{buf: make([]byte, 0, 1024)}
	s.writeByte(HashVersion)
	s.program(prog)
	return s.buf
}

type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeInt(v int) {
	s.writeUint32(uint32(v))
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) writeBool(v bool) {
	if v {
		s.writeByte(1)
	} else {
		s.writeByte(0)
	}
}

func (s *serializer) writePos(p compiler.Position) {
	s.writeInt(p.Line)
	s.writeInt(p.Column)
}

func (s *serializer) writeType(t compiler.TypeRef) {
	s.writeByte(TagType)
	s.writeString(t.Name)
	s.writeBool(t.Array)
}

func (s *serializer) program(p *compiler.Program) {
	s.writeByte(TagProgram)
	s.writeString(p.Name)
	s.writeInt(len(p.Classes))
	for _, c := range p.Classes {
		s.class(c)
	}
	s.method(TagMethod, p.Main)
}

func (s *serializer) class(c *compiler.ClassDecl) {
	s.writeByte(TagClass)
	s.writeString(c.Name)
	s.writeString(c.Superclass)
	s.writePos(c.SpanVal.Start)
	s.writeInt(len(c.Attributes))
	for _, a := range c.Attributes {
		s.writeByte(TagAttribute)
		s.writeString(a.Name)
		s.writeType(a.Type)
		s.writeBool(a.Public)
		s.writePos(a.SpanVal.Start)
	}
	s.method(TagConstructor, c.Constructor)
	s.writeInt(len(c.Methods))
	for _, m := range c.Methods {
		s.method(TagMethod, m)
	}
}

func (s *serializer) method(tag byte, m *compiler.MethodDecl) {
	if m == nil {
		s.writeByte(TagAbsent)
		return
	}
	s.writeByte(tag)
	s.writeString(m.Name)
	s.writeBool(m.Static)
	s.writeType(m.ReturnType)
	s.writePos(m.SpanVal.Start)
	s.writeInt(len(m.Params))
	for _, p := range m.Params {
		s.writeByte(TagParam)
		s.writeString(p.Name)
		s.writeType(p.Type)
		s.writePos(p.SpanVal.Start)
	}
	s.block(m.Body)
}

func (s *serializer) block(b *compiler.Block) {
	if b == nil {
		s.writeByte(TagAbsent)
		return
	}
	s.writeByte(TagBlock)
	s.writePos(b.SpanVal.Start)
	s.writeInt(len(b.Locals))
	for _, l := range b.Locals {
		s.writeByte(TagLocal)
		s.writeString(l.Name)
		s.writeType(l.Type)
		s.writePos(l.SpanVal.Start)
	}
	s.writeInt(len(b.Statements))
	for _, st := range b.Statements {
		s.stmt(st)
	}
}

func (s *serializer) stmt(st compiler.Stmt) {
	switch n := st.(type) {
	case *compiler.Block:
		s.block(n)

	case *compiler.ExprStmt:
		s.writeByte(TagExprStmt)
		s.writePos(n.SpanVal.Start)
		s.expr(n.Expr)

	case *compiler.Assign:
		s.writeByte(TagAssign)
		s.writePos(n.SpanVal.Start)
		s.expr(n.Target)
		s.expr(n.Value)

	case *compiler.Return:
		s.writeByte(TagReturn)
		s.writePos(n.SpanVal.Start)
		s.expr(n.Value)

	case *compiler.If:
		s.writeByte(TagIf)
		s.writePos(n.SpanVal.Start)
		s.expr(n.Cond)
		s.block(n.Then)
		s.block(n.Else)

	case *compiler.While:
		s.writeByte(TagWhile)
		s.writePos(n.SpanVal.Start)
		s.expr(n.Cond)
		s.block(n.Body)

	default:
		s.writeByte(TagAbsent)
	}
}

func (s *serializer) exprs(es []compiler.Expr) {
	s.writeInt(len(es))
	for _, e := range es {
		s.expr(e)
	}
}

func (s *serializer) expr(e compiler.Expr) {
	switch n := e.(type) {
	case *compiler.Variable:
		s.writeByte(TagVariable)
		s.writePos(n.SpanVal.Start)
		s.writeString(n.Name)

	case *compiler.Self:
		s.writeByte(TagSelf)
		s.writePos(n.SpanVal.Start)

	case *compiler.Literal:
		s.writeByte(TagLiteral)
		s.writePos(n.SpanVal.Start)
		s.writeType(n.Type)
		s.writeString(n.Value)

	case *compiler.Binary:
		s.writeByte(TagBinary)
		s.writePos(n.SpanVal.Start)
		s.writeString(n.Op)
		s.expr(n.Left)
		s.expr(n.Right)

	case *compiler.Unary:
		s.writeByte(TagUnary)
		s.writePos(n.SpanVal.Start)
		s.writeString(n.Op)
		s.expr(n.Operand)

	case *compiler.Call:
		s.writeByte(TagCall)
		s.writePos(n.SpanVal.Start)
		s.writeString(n.Name)
		s.exprs(n.Args)

	case *compiler.StaticCall:
		s.writeByte(TagStaticCall)
		s.writePos(n.SpanVal.Start)
		s.writeString(n.Class)
		s.writeString(n.Name)
		s.exprs(n.Args)

	case *compiler.New:
		s.writeByte(TagNew)
		s.writePos(n.SpanVal.Start)
		s.writeString(n.Class)
		s.exprs(n.Args)

	case *compiler.NewArray:
		s.writeByte(TagNewArray)
		s.writePos(n.SpanVal.Start)
		s.writeType(n.Elem)
		s.expr(n.Size)

	case *compiler.FieldAccess:
		s.writeByte(TagFieldAccess)
		s.writePos(n.SpanVal.Start)
		s.writeString(n.Name)
		s.expr(n.Receiver)

	case *compiler.MethodCall:
		s.writeByte(TagMethodCall)
		s.writePos(n.SpanVal.Start)
		s.writeString(n.Name)
		s.expr(n.Receiver)
		s.exprs(n.Args)

	case *compiler.Index:
		s.writeByte(TagIndex)
		s.writePos(n.SpanVal.Start)
		s.expr(n.Receiver)
		s.expr(n.Index)

	default:
		s.writeByte(TagAbsent)
	}
}
