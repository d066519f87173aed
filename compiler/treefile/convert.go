package treefile

import (
	"fmt"
	"strings"

	"github.com/RocioCM/tinyrust-compiler/compiler"
)

// ConvertError reports a malformed node, with the path leading to it.
type ConvertError struct {
	Path string
	Pos  Pos
	Msg  string
}

func (e *ConvertError) Error() string {
	return fmt.Sprintf("treefile: %s (line %d, column %d): %s", e.Path, e.Pos.Line, e.Pos.Column, e.Msg)
}

// ParseType parses a type string: "I32", "void", "Clase" or "Array T".
// The empty string is void.
func ParseType(s string) (compiler.TypeRef, error) {
	fields := strings.Fields(s)
	switch len(fields) {
	case 0:
		return compiler.Void, nil
	case 1:
		if fields[0] == compiler.TypeArray {
			return compiler.TypeRef{}, fmt.Errorf("array type %q needs an element type", s)
		}
		return compiler.TypeRef{Name: fields[0]}, nil
	case 2:
		if fields[0] == compiler.TypeArray {
			return compiler.TypeRef{Name: fields[1], Array: true}, nil
		}
	}
	return compiler.TypeRef{}, fmt.Errorf("malformed type %q", s)
}

func span(p Pos) compiler.Span {
	return compiler.Span{Start: compiler.Position{Line: p.Line, Column: p.Column}}
}

// converter turns a Document into compiler nodes, tracking a path for errors.
type converter struct {
	path []string
}

func (c *converter) push(format string, args ...any) {
	c.path = append(c.path, fmt.Sprintf(format, args...))
}

func (c *converter) pop() {
	c.path = c.path[:len(c.path)-1]
}

func (c *converter) errorf(pos Pos, format string, args ...any) error {
	return &ConvertError{Path: strings.Join(c.path, "/"), Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (c *converter) typ(s string, pos Pos) (compiler.TypeRef, error) {
	t, err := ParseType(s)
	if err != nil {
		return t, c.errorf(pos, "%v", err)
	}
	return t, nil
}

// Program converts the document into a linked program tree.
func (d *Document) Program() (*compiler.Program, error) {
	c := &converter{}
	prog := &compiler.Program{Name: d.Name}
	for i, cd := range d.Classes {
		if cd == nil {
			return nil, c.errorf(Pos{}, "class %d is null", i)
		}
		c.push("class %s", cd.Name)
		cls, err := c.class(cd)
		if err != nil {
			return nil, err
		}
		c.pop()
		prog.Classes = append(prog.Classes, cls)
	}
	if d.Main != nil {
		c.push("main")
		m, err := c.method(d.Main)
		if err != nil {
			return nil, err
		}
		c.pop()
		prog.Main = m
	}
	prog.Link()
	return prog, nil
}

func (c *converter) class(cd *ClassDoc) (*compiler.ClassDecl, error) {
	if cd.Name == "" {
		return nil, c.errorf(cd.Pos, "class without name")
	}
	cls := &compiler.ClassDecl{SpanVal: span(cd.Pos), Name: cd.Name, Superclass: cd.Extends}
	for i, ad := range cd.Attributes {
		if ad == nil {
			return nil, c.errorf(cd.Pos, "attribute %d is null", i)
		}
		t, err := c.typ(ad.Type, ad.Pos)
		if err != nil {
			return nil, err
		}
		cls.Attributes = append(cls.Attributes, &compiler.AttributeDecl{
			SpanVal: span(ad.Pos),
			Name:    ad.Name,
			Type:    t,
			Public:  ad.Public,
		})
	}
	if cd.Constructor != nil {
		c.push("constructor")
		m, err := c.method(cd.Constructor)
		if err != nil {
			return nil, err
		}
		c.pop()
		cls.Constructor = m
	}
	for i, md := range cd.Methods {
		if md == nil {
			return nil, c.errorf(cd.Pos, "method %d is null", i)
		}
		c.push("method %s", md.Name)
		m, err := c.method(md)
		if err != nil {
			return nil, err
		}
		c.pop()
		cls.Methods = append(cls.Methods, m)
	}
	return cls, nil
}

func (c *converter) method(md *MethodDoc) (*compiler.MethodDecl, error) {
	ret, err := c.typ(md.Returns, md.Pos)
	if err != nil {
		return nil, err
	}
	m := &compiler.MethodDecl{
		SpanVal:    span(md.Pos),
		Name:       md.Name,
		Static:     md.Static,
		ReturnType: ret,
	}
	for i, pd := range md.Params {
		if pd == nil {
			return nil, c.errorf(md.Pos, "param %d is null", i)
		}
		t, err := c.typ(pd.Type, pd.Pos)
		if err != nil {
			return nil, err
		}
		m.Params = append(m.Params, &compiler.Param{SpanVal: span(pd.Pos), Name: pd.Name, Type: t})
	}
	if md.Body == nil {
		m.Body = &compiler.Block{SpanVal: span(md.Pos)}
		return m, nil
	}
	m.Body, err = c.block(md.Body)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (c *converter) block(bd *BlockDoc) (*compiler.Block, error) {
	b := &compiler.Block{SpanVal: span(bd.Pos)}
	for i, ld := range bd.Locals {
		if ld == nil {
			return nil, c.errorf(bd.Pos, "local %d is null", i)
		}
		t, err := c.typ(ld.Type, ld.Pos)
		if err != nil {
			return nil, err
		}
		b.Locals = append(b.Locals, &compiler.VarDecl{SpanVal: span(ld.Pos), Name: ld.Name, Type: t})
	}
	for i, sd := range bd.Statements {
		c.push("stmt %d", i)
		st, err := c.stmt(sd)
		if err != nil {
			return nil, err
		}
		c.pop()
		b.Statements = append(b.Statements, st)
	}
	return b, nil
}

// optBlock converts an optional block.
func (c *converter) optBlock(bd *BlockDoc) (*compiler.Block, error) {
	if bd == nil {
		return nil, nil
	}
	return c.block(bd)
}

func (c *converter) stmt(n *NodeDoc) (compiler.Stmt, error) {
	if n == nil {
		return nil, c.errorf(Pos{}, "null statement")
	}
	sp := span(n.Pos)
	switch n.Kind {
	case KindExpr:
		e, err := c.required(n, "expr", n.Expr)
		if err != nil {
			return nil, err
		}
		return &compiler.ExprStmt{SpanVal: sp, Expr: e}, nil

	case KindAssign:
		target, err := c.required(n, "target", n.Target)
		if err != nil {
			return nil, err
		}
		value, err := c.required(n, "value", n.Value)
		if err != nil {
			return nil, err
		}
		return &compiler.Assign{SpanVal: sp, Target: target, Value: value}, nil

	case KindReturn:
		var value compiler.Expr
		if n.Value != nil {
			v, err := c.expr(n.Value)
			if err != nil {
				return nil, err
			}
			value = v
		}
		return &compiler.Return{SpanVal: sp, Value: value}, nil

	case KindIf:
		cond, err := c.required(n, "cond", n.Cond)
		if err != nil {
			return nil, err
		}
		if n.Then == nil {
			return nil, c.errorf(n.Pos, "if without then block")
		}
		then, err := c.block(n.Then)
		if err != nil {
			return nil, err
		}
		els, err := c.optBlock(n.Else)
		if err != nil {
			return nil, err
		}
		return &compiler.If{SpanVal: sp, Cond: cond, Then: then, Else: els}, nil

	case KindWhile:
		cond, err := c.required(n, "cond", n.Cond)
		if err != nil {
			return nil, err
		}
		if n.Body == nil {
			return nil, c.errorf(n.Pos, "while without body")
		}
		body, err := c.block(n.Body)
		if err != nil {
			return nil, err
		}
		return &compiler.While{SpanVal: sp, Cond: cond, Body: body}, nil

	case KindBlock:
		if n.Block == nil {
			return &compiler.Block{SpanVal: sp}, nil
		}
		b, err := c.block(n.Block)
		if err != nil {
			return nil, err
		}
		if !b.SpanVal.Start.IsValid() {
			b.SpanVal = sp
		}
		return b, nil
	}
	return nil, c.errorf(n.Pos, "unknown statement kind %q", n.Kind)
}

func (c *converter) required(parent *NodeDoc, field string, n *NodeDoc) (compiler.Expr, error) {
	if n == nil {
		return nil, c.errorf(parent.Pos, "%s node without %s", parent.Kind, field)
	}
	return c.expr(n)
}

func (c *converter) exprs(ns []*NodeDoc) ([]compiler.Expr, error) {
	var out []compiler.Expr
	for _, n := range ns {
		e, err := c.expr(n)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (c *converter) expr(n *NodeDoc) (compiler.Expr, error) {
	if n == nil {
		return nil, c.errorf(Pos{}, "null expression")
	}
	sp := span(n.Pos)
	switch n.Kind {
	case KindVar:
		if n.Name == "" {
			return nil, c.errorf(n.Pos, "var without name")
		}
		if n.Name == "self" {
			return &compiler.Self{SpanVal: sp}, nil
		}
		return &compiler.Variable{SpanVal: sp, Name: n.Name}, nil

	case KindSelf:
		return &compiler.Self{SpanVal: sp}, nil

	case KindLiteral:
		t, err := c.typ(n.Type, n.Pos)
		if err != nil {
			return nil, err
		}
		return &compiler.Literal{SpanVal: sp, Type: t, Value: n.Text}, nil

	case KindBinary:
		left, err := c.required(n, "left", n.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.required(n, "right", n.Right)
		if err != nil {
			return nil, err
		}
		return &compiler.Binary{SpanVal: sp, Op: n.Op, Left: left, Right: right}, nil

	case KindUnary:
		operand, err := c.required(n, "operand", n.Operand)
		if err != nil {
			return nil, err
		}
		return &compiler.Unary{SpanVal: sp, Op: n.Op, Operand: operand}, nil

	case KindCall:
		args, err := c.exprs(n.Args)
		if err != nil {
			return nil, err
		}
		return &compiler.Call{SpanVal: sp, Name: n.Name, Args: args}, nil

	case KindStaticCall:
		args, err := c.exprs(n.Args)
		if err != nil {
			return nil, err
		}
		return &compiler.StaticCall{SpanVal: sp, Class: n.Class, Name: n.Name, Args: args}, nil

	case KindNew:
		args, err := c.exprs(n.Args)
		if err != nil {
			return nil, err
		}
		return &compiler.New{SpanVal: sp, Class: n.Class, Args: args}, nil

	case KindNewArray:
		t, err := c.typ(n.Type, n.Pos)
		if err != nil {
			return nil, err
		}
		size, err := c.required(n, "size", n.Size)
		if err != nil {
			return nil, err
		}
		return &compiler.NewArray{SpanVal: sp, Elem: t, Size: size}, nil

	case KindField:
		recv, err := c.required(n, "receiver", n.Receiver)
		if err != nil {
			return nil, err
		}
		return &compiler.FieldAccess{SpanVal: sp, Receiver: recv, Name: n.Name}, nil

	case KindMethodCall:
		recv, err := c.required(n, "receiver", n.Receiver)
		if err != nil {
			return nil, err
		}
		args, err := c.exprs(n.Args)
		if err != nil {
			return nil, err
		}
		return &compiler.MethodCall{SpanVal: sp, Receiver: recv, Name: n.Name, Args: args}, nil

	case KindIndex:
		recv, err := c.required(n, "receiver", n.Receiver)
		if err != nil {
			return nil, err
		}
		idx, err := c.required(n, "index", n.Index)
		if err != nil {
			return nil, err
		}
		return &compiler.Index{SpanVal: sp, Receiver: recv, Index: idx}, nil
	}
	return nil, c.errorf(n.Pos, "unknown expression kind %q", n.Kind)
}
