package compiler

import (
	"encoding/json"
	"sort"
	"strconv"
)

// ---------------------------------------------------------------------------
// Symbol table
// ---------------------------------------------------------------------------

// Primitive type names.
const (
	TypeI32   = "I32"
	TypeBool  = "Bool"
	TypeStr   = "Str"
	TypeChar  = "Char"
	TypeArray = "Array"
	TypeVoid  = "void"

	ClassObject = "Object"
	ClassIO     = "IO"
)

// SymbolTable holds every class of a program, predefined classes included.
type SymbolTable struct {
	Name    string
	classes map[string]*ClassEntry
	order   []string
	main    *MethodEntry
}

// ClassEntry is a class as seen by the sentence phase: its own members plus,
// after consolidation, the members inherited from its superclasses.
type ClassEntry struct {
	Name       string
	Superclass string // resolved superclass; empty for Object and main
	Predefined bool
	Decl       *ClassDecl // nil for predefined classes
	Pos        Position

	attrs       []*AttributeEntry
	attrIndex   map[string]*AttributeEntry
	methods     []*MethodEntry
	methodIndex map[string]*MethodEntry
	Constructor *MethodEntry

	consolidated bool
}

// AttributeEntry is an instance attribute of a class.
type AttributeEntry struct {
	Name       string
	Type       TypeRef
	Public     bool
	Position   int
	Inherited  bool
	DeclaredIn string
	Decl       *AttributeDecl
}

// MethodEntry is a method signature.
type MethodEntry struct {
	Name       string
	Static     bool
	Params     []*Param
	Return     TypeRef
	Position   int
	Inherited  bool
	DeclaredIn string
	Decl       *MethodDecl // nil for predefined methods
}

// Arity returns the number of formal parameters.
func (m *MethodEntry) Arity() int {
	return len(m.Params)
}

func newSymbolTable(name string) *SymbolTable {
	st := &SymbolTable{
		Name:    name,
		classes: make(map[string]*ClassEntry),
	}
	for _, c := range predefinedClasses() {
		st.add(c)
	}
	return st
}

func newClassEntry(name string) *ClassEntry {
	return &ClassEntry{
		Name:        name,
		attrIndex:   make(map[string]*AttributeEntry),
		methodIndex: make(map[string]*MethodEntry),
	}
}

func (st *SymbolTable) add(c *ClassEntry) {
	st.classes[c.Name] = c
	st.order = append(st.order, c.Name)
}

// Class looks up a class by name.
func (st *SymbolTable) Class(name string) (*ClassEntry, bool) {
	c, ok := st.classes[name]
	return c, ok
}

// Classes returns all classes in declaration order, predefined ones first.
func (st *SymbolTable) Classes() []*ClassEntry {
	out := make([]*ClassEntry, 0, len(st.order))
	for _, name := range st.order {
		out = append(out, st.classes[name])
	}
	return out
}

// UserClasses returns the classes declared by the program.
func (st *SymbolTable) UserClasses() []*ClassEntry {
	var out []*ClassEntry
	for _, name := range st.order {
		if c := st.classes[name]; !c.Predefined {
			out = append(out, c)
		}
	}
	return out
}

// Main returns the entry for main, or nil if the program has none.
func (st *SymbolTable) Main() *MethodEntry {
	return st.main
}

// IsType reports whether t names a known type.
func (st *SymbolTable) IsType(t TypeRef) bool {
	switch t.Name {
	case TypeI32, TypeBool, TypeStr, TypeChar:
		return true
	case TypeVoid, "":
		return !t.Array
	}
	_, ok := st.classes[t.Name]
	return ok
}

// Attribute looks up an attribute, inherited ones included.
func (c *ClassEntry) Attribute(name string) (*AttributeEntry, bool) {
	a, ok := c.attrIndex[name]
	return a, ok
}

// LookupAttribute implements AttributeSet.
func (c *ClassEntry) LookupAttribute(name string) (*AttributeDecl, bool) {
	a, ok := c.attrIndex[name]
	if !ok {
		return nil, false
	}
	return a.Decl, true
}

// Method looks up a method, inherited ones included.
func (c *ClassEntry) Method(name string) (*MethodEntry, bool) {
	m, ok := c.methodIndex[name]
	return m, ok
}

// Attributes returns the attributes in position order.
func (c *ClassEntry) Attributes() []*AttributeEntry {
	return append([]*AttributeEntry(nil), c.attrs...)
}

// Methods returns the methods in position order.
func (c *ClassEntry) Methods() []*MethodEntry {
	return append([]*MethodEntry(nil), c.methods...)
}

func (c *ClassEntry) addAttribute(a *AttributeEntry) bool {
	if _, exists := c.attrIndex[a.Name]; exists {
		return false
	}
	a.Position = len(c.attrs) + 1
	c.attrs = append(c.attrs, a)
	c.attrIndex[a.Name] = a
	return true
}

func (c *ClassEntry) addMethod(m *MethodEntry) bool {
	if _, exists := c.methodIndex[m.Name]; exists {
		return false
	}
	m.Position = len(c.methods) + 1
	c.methods = append(c.methods, m)
	c.methodIndex[m.Name] = m
	return true
}

// ---------------------------------------------------------------------------
// Consolidation
// ---------------------------------------------------------------------------

// redefinitionHooks receive the members a subclass declares again.
type redefinitionHooks struct {
	attribute func(sub *ClassEntry, own, inherited *AttributeEntry)
	method    func(sub *ClassEntry, own, inherited *MethodEntry)
}

// consolidate copies the superclass members into c, superclass first.
// Inherited attributes come before the class's own ones. A redeclared
// attribute keeps the inherited entry; an overriding method takes the
// inherited method's slot.
func (st *SymbolTable) consolidate(c *ClassEntry, hooks redefinitionHooks) {
	if c.consolidated {
		return
	}
	c.consolidated = true
	if c.Superclass == "" {
		return
	}
	super, ok := st.classes[c.Superclass]
	if !ok {
		return
	}
	st.consolidate(super, hooks)

	own := c.attrs
	c.attrs = nil
	c.attrIndex = make(map[string]*AttributeEntry, len(own)+len(super.attrs))
	for _, sa := range super.attrs {
		inh := *sa
		inh.Inherited = true
		c.addAttribute(&inh)
	}
	for _, a := range own {
		if prev, exists := c.attrIndex[a.Name]; exists {
			if hooks.attribute != nil {
				hooks.attribute(c, a, prev)
			}
			continue
		}
		c.addAttribute(a)
	}

	ownMethods := c.methods
	c.methods = nil
	c.methodIndex = make(map[string]*MethodEntry, len(ownMethods)+len(super.methods))
	for _, sm := range super.methods {
		inh := *sm
		inh.Inherited = true
		c.addMethod(&inh)
	}
	for _, m := range ownMethods {
		if prev, exists := c.methodIndex[m.Name]; exists {
			if hooks.method != nil {
				hooks.method(c, m, prev)
			}
			m.Position = prev.Position
			c.methods[prev.Position-1] = m
			c.methodIndex[m.Name] = m
			continue
		}
		c.addMethod(m)
	}
}

// sameSignature compares static flag, return type and parameter types by
// position.
func sameSignature(a, b *MethodEntry) bool {
	if a.Static != b.Static || a.Return.String() != b.Return.String() || len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if a.Params[i].Type != b.Params[i].Type {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Predefined classes
// ---------------------------------------------------------------------------

var predefinedNames = map[string]bool{
	ClassObject: true,
	ClassIO:     true,
	TypeStr:     true,
	TypeI32:     true,
	TypeBool:    true,
	TypeChar:    true,
	TypeArray:   true,
}

// IsPredefined reports whether name is one of the built-in classes.
func IsPredefined(name string) bool {
	return predefinedNames[name]
}

// IsPrimitive reports whether name is a value type: I32, Bool, Str, Char
// or void.
func IsPrimitive(name string) bool {
	switch name {
	case TypeI32, TypeBool, TypeStr, TypeChar, TypeVoid, "":
		return true
	}
	return false
}

func builtin(name string, static bool, ret string, params ...string) *MethodEntry {
	m := &MethodEntry{Name: name, Static: static, Return: TypeRef{Name: ret}}
	for _, p := range params {
		m.Params = append(m.Params, &Param{Name: "p" + strconv.Itoa(len(m.Params)+1), Type: TypeRef{Name: p}})
	}
	return m
}

func predefinedClasses() []*ClassEntry {
	object := newClassEntry(ClassObject)

	io := newClassEntry(ClassIO)
	io.Superclass = ClassObject
	for _, m := range []*MethodEntry{
		builtin("out_str", true, TypeVoid, TypeStr),
		builtin("out_i32", true, TypeVoid, TypeI32),
		builtin("out_bool", true, TypeVoid, TypeBool),
		builtin("out_char", true, TypeVoid, TypeChar),
		builtin("out_array", true, TypeVoid, TypeArray),
		builtin("in_str", true, TypeStr),
		builtin("in_i32", true, TypeI32),
		builtin("in_bool", true, TypeBool),
		builtin("in_char", true, TypeChar),
	} {
		m.DeclaredIn = ClassIO
		io.addMethod(m)
	}

	str := newClassEntry(TypeStr)
	str.Superclass = ClassObject
	for _, m := range []*MethodEntry{
		builtin("length", false, TypeI32),
		builtin("concat", false, TypeStr, TypeStr),
		builtin("substr", false, TypeStr, TypeI32, TypeI32),
	} {
		m.DeclaredIn = TypeStr
		str.addMethod(m)
	}

	array := newClassEntry(TypeArray)
	array.Superclass = ClassObject
	length := builtin("length", false, TypeI32)
	length.DeclaredIn = TypeArray
	array.addMethod(length)

	out := []*ClassEntry{object, io, str, array}
	for _, name := range []string{TypeI32, TypeBool, TypeChar} {
		c := newClassEntry(name)
		c.Superclass = ClassObject
		out = append(out, c)
	}
	for _, c := range out {
		c.Predefined = true
		c.consolidated = true
	}
	return out
}

// ---------------------------------------------------------------------------
// JSON dump
// ---------------------------------------------------------------------------

type tableJSON struct {
	Name    string       `json:"nombre"`
	Classes []*classJSON `json:"clases"`
	Main    *methodJSON  `json:"main,omitempty"`
}

type classJSON struct {
	Name        string       `json:"nombre"`
	Extends     string       `json:"heredaDe,omitempty"`
	Extendable  bool         `json:"heredable"`
	Attributes  []attrJSON   `json:"atributos"`
	Constructor *methodJSON  `json:"constructor,omitempty"`
	Methods     []methodJSON `json:"metodos"`
}

type attrJSON struct {
	Name      string `json:"nombre"`
	Type      string `json:"tipo"`
	Public    bool   `json:"public"`
	Position  int    `json:"posicion"`
	Inherited bool   `json:"heredado,omitempty"`
}

type methodJSON struct {
	Name      string    `json:"nombre"`
	Static    bool      `json:"static"`
	Return    string    `json:"tipoRetorno"`
	Position  int       `json:"posicion"`
	Inherited bool      `json:"heredado,omitempty"`
	Params    []argJSON `json:"argumentosFormales"`
}

type argJSON struct {
	Name     string `json:"nombre"`
	Type     string `json:"tipo"`
	Position int    `json:"posicion"`
}

func methodToJSON(m *MethodEntry) methodJSON {
	out := methodJSON{
		Name:      m.Name,
		Static:    m.Static,
		Return:    m.Return.String(),
		Position:  m.Position,
		Inherited: m.Inherited,
		Params:    []argJSON{},
	}
	for i, p := range m.Params {
		out.Params = append(out.Params, argJSON{Name: p.Name, Type: p.Type.String(), Position: i + 1})
	}
	return out
}

// MarshalJSON dumps the user classes and main in the symbol table layout
// used by the TinyRust+ toolchain. Predefined classes are omitted.
func (st *SymbolTable) MarshalJSON() ([]byte, error) {
	doc := tableJSON{Name: st.Name, Classes: []*classJSON{}}
	for _, c := range st.UserClasses() {
		cj := &classJSON{
			Name:       c.Name,
			Extends:    c.Superclass,
			Extendable: true,
			Attributes: []attrJSON{},
			Methods:    []methodJSON{},
		}
		for _, a := range c.attrs {
			cj.Attributes = append(cj.Attributes, attrJSON{
				Name:      a.Name,
				Type:      a.Type.String(),
				Public:    a.Public,
				Position:  a.Position,
				Inherited: a.Inherited,
			})
		}
		for _, m := range c.methods {
			cj.Methods = append(cj.Methods, methodToJSON(m))
		}
		if c.Constructor != nil {
			mj := methodToJSON(c.Constructor)
			cj.Constructor = &mj
		}
		doc.Classes = append(doc.Classes, cj)
	}
	if st.main != nil {
		mj := methodToJSON(st.main)
		doc.Main = &mj
	}
	return json.Marshal(doc)
}

// ClassNames returns the user class names sorted alphabetically.
func (st *SymbolTable) ClassNames() []string {
	var names []string
	for _, c := range st.UserClasses() {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}
