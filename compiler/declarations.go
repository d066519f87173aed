package compiler

// ---------------------------------------------------------------------------
// Declarations phase: symbol table construction and consolidation
// ---------------------------------------------------------------------------

const (
	msgDuplicate        = "UNA DECLARACION DE%s CON EL NOMBRE \"%s\" YA EXISTE EN ESTE AMBITO."
	msgSelfDeclaration  = "NO ESTA PERMITIDO ASIGNAR EL IDENTIFICADOR \"self\" A ATRIBUTOS, VARIABLES O METODOS."
	msgPredefinedBase   = "NO ESTA PERMITIDO HEREDAR DE LA CLASE PREDEFINIDA %s"
	msgUndefinedBase    = "LA CLASE %s INTENTA HEREDAR DE LA CLASE NO DECLARADA %s"
	msgInheritanceCycle = "LA CLASE %s FORMA PARTE DE UN CICLO DE HERENCIA."
	msgAttrRedefined    = "EL ATRIBUTO %s DE LA CLASE %s YA ESTA DECLARADO EN LA SUPERCLASE %s. NO SE PERMITE REDEFINIR ATRIBUTOS."
	msgStaticRedefined  = "EL METODO ESTATICO %s DE LA CLASE %s NO PUEDE SER REDEFINIDO EN LA SUBCLASE %s."
	msgSignature        = "EL METODO %s DE LA CLASE %s NO RESPETA LA FIRMA DEL METODO HEREDADO DE LA CLASE %s."
	msgUndefinedType    = "SE INTENTO UTILIZAR EL TIPO NO DECLARADO %s"
)

// Entity kinds completing the duplicate declaration message.
const (
	entityClass     = " LA CLASE"
	entityAttribute = "L ATRIBUTO"
	entityMethod    = "L METODO"
	entityParam     = "L PARAMETRO FORMAL"
	entityLocal     = " LA VARIABLE"
)

// declarationChecker builds a SymbolTable and collects declarations-phase
// diagnostics. Every problem is recorded and the table is repaired so the
// sentences phase can still run.
type declarationChecker struct {
	st    *SymbolTable
	diags diagnostics
}

// Declarations builds the symbol table of prog, consolidates inheritance and
// reports declaration errors. The returned table is always usable.
func Declarations(prog *Program) (*SymbolTable, []Diagnostic) {
	d := &declarationChecker{
		st:    newSymbolTable(prog.Name),
		diags: diagnostics{phase: PhaseDeclarations},
	}
	for _, cls := range prog.Classes {
		d.declareClass(cls)
	}
	if prog.Main != nil {
		d.st.main = d.declareMain(prog.Main)
	}
	d.resolveSuperclasses()
	d.breakCycles()
	d.checkTypes(prog)
	d.consolidateAll()
	return d.st, d.diags.list
}

func (d *declarationChecker) declareClass(cls *ClassDecl) {
	pos := cls.SpanVal.Start
	if _, exists := d.st.classes[cls.Name]; exists || cls.Name == MainClassName {
		diag := d.diags.errorAt(pos, CodeDuplicateClass, msgDuplicate, entityClass, cls.Name)
		diag.Class = cls.Name
		diag.Name = cls.Name
		return
	}

	c := newClassEntry(cls.Name)
	c.Decl = cls
	c.Pos = pos
	c.Superclass = cls.Superclass
	d.st.add(c)

	for _, a := range cls.Attributes {
		apos := a.SpanVal.Start
		if a.Name == "self" {
			d.diags.errorAt(apos, CodeSelfDeclaration, msgSelfDeclaration).Class = cls.Name
			continue
		}
		entry := &AttributeEntry{Name: a.Name, Type: a.Type, Public: a.Public, DeclaredIn: cls.Name, Decl: a}
		if !c.addAttribute(entry) {
			diag := d.diags.errorAt(apos, CodeDuplicateAttribute, msgDuplicate, entityAttribute, a.Name)
			diag.Class = cls.Name
			diag.Name = a.Name
		}
	}

	for _, m := range cls.Methods {
		entry := d.declareMethod(cls.Name, m)
		if entry == nil {
			continue
		}
		if !c.addMethod(entry) {
			diag := d.diags.errorAt(m.SpanVal.Start, CodeDuplicateMethod, msgDuplicate, entityMethod, m.Name)
			diag.Class = cls.Name
			diag.Name = m.Name
		}
	}

	if cls.Constructor != nil {
		c.Constructor = d.declareMethod(cls.Name, cls.Constructor)
	}
}

func (d *declarationChecker) declareMain(m *MethodDecl) *MethodEntry {
	return d.declareMethod(MainClassName, m)
}

// declareMethod checks the parameters and locals of m and returns its entry,
// or nil when the method itself is named self.
func (d *declarationChecker) declareMethod(class string, m *MethodDecl) *MethodEntry {
	if m.Name == "self" {
		diag := d.diags.errorAt(m.SpanVal.Start, CodeSelfDeclaration, msgSelfDeclaration)
		diag.Class = class
		return nil
	}

	seen := make(map[string]bool, len(m.Params))
	var params []*Param
	for _, p := range m.Params {
		ppos := p.SpanVal.Start
		switch {
		case p.Name == "self":
			diag := d.diags.errorAt(ppos, CodeSelfDeclaration, msgSelfDeclaration)
			diag.Class, diag.Method = class, m.Name
		case seen[p.Name]:
			diag := d.diags.errorAt(ppos, CodeDuplicateParam, msgDuplicate, entityParam, p.Name)
			diag.Class, diag.Method, diag.Name = class, m.Name, p.Name
		default:
			seen[p.Name] = true
		}
		// Keep every parameter so the arity matches the declaration.
		params = append(params, p)
	}

	if m.Body != nil {
		d.checkLocals(class, m, m.Body, seen)
		WalkBody(m.Body, MethodScope(m), func(n Node, _ *Scope) bool {
			if b, ok := n.(*Block); ok {
				d.checkLocals(class, m, b, nil)
			}
			return true
		})
	}

	return &MethodEntry{
		Name:       m.Name,
		Static:     m.Static,
		Params:     params,
		Return:     m.ReturnType,
		DeclaredIn: class,
		Decl:       m,
	}
}

// checkLocals reports self and duplicate names among the locals of b.
// outer holds names the locals may not reuse (parameters, for the method's
// top-level block).
func (d *declarationChecker) checkLocals(class string, m *MethodDecl, b *Block, outer map[string]bool) {
	seen := make(map[string]bool, len(b.Locals))
	for _, l := range b.Locals {
		lpos := l.SpanVal.Start
		switch {
		case l.Name == "self":
			diag := d.diags.errorAt(lpos, CodeSelfDeclaration, msgSelfDeclaration)
			diag.Class, diag.Method = class, m.Name
		case seen[l.Name] || outer[l.Name]:
			diag := d.diags.errorAt(lpos, CodeDuplicateLocal, msgDuplicate, entityLocal, l.Name)
			diag.Class, diag.Method, diag.Name = class, m.Name, l.Name
		default:
			seen[l.Name] = true
		}
	}
}

// resolveSuperclasses validates every extends clause. Classes with an
// invalid parent fall back to Object.
func (d *declarationChecker) resolveSuperclasses() {
	for _, c := range d.st.UserClasses() {
		switch {
		case c.Superclass == "":
			c.Superclass = ClassObject
		case IsPredefined(c.Superclass):
			diag := d.diags.errorAt(c.Pos, CodePredefinedBase, msgPredefinedBase, c.Superclass)
			diag.Class = c.Name
			diag.Name = c.Superclass
			c.Superclass = ClassObject
		default:
			if _, ok := d.st.classes[c.Superclass]; !ok {
				diag := d.diags.errorAt(c.Pos, CodeUndefinedBase, msgUndefinedBase, c.Name, c.Superclass)
				diag.Class = c.Name
				diag.Name = c.Superclass
				c.Superclass = ClassObject
			}
		}
	}
}

// breakCycles reports one class per inheritance cycle and detaches it from
// its parent, which breaks the cycle for the remaining members.
func (d *declarationChecker) breakCycles() {
	for _, c := range d.st.UserClasses() {
		visited := map[string]bool{c.Name: true}
		for name := c.Superclass; name != "" && name != ClassObject; {
			if name == c.Name {
				diag := d.diags.errorAt(c.Pos, CodeInheritanceCycle, msgInheritanceCycle, c.Name)
				diag.Class = c.Name
				c.Superclass = ClassObject
				break
			}
			if visited[name] {
				// Cycle not involving c; reported when its members are visited.
				break
			}
			visited[name] = true
			next, ok := d.st.classes[name]
			if !ok {
				break
			}
			name = next.Superclass
		}
	}
}

// checkTypes reports declared types naming undeclared classes.
func (d *declarationChecker) checkTypes(prog *Program) {
	check := func(t TypeRef, pos Position, class, method string) {
		if d.st.IsType(t) {
			return
		}
		diag := d.diags.errorAt(pos, CodeUndefinedType, msgUndefinedType, t.Name)
		diag.Class, diag.Method, diag.Name = class, method, t.Name
	}
	checkMethod := func(class string, m *MethodDecl) {
		if m == nil {
			return
		}
		check(m.ReturnType, m.SpanVal.Start, class, m.Name)
		for _, p := range m.Params {
			check(p.Type, p.SpanVal.Start, class, m.Name)
		}
		if m.Body == nil {
			return
		}
		for _, l := range m.Body.Locals {
			check(l.Type, l.SpanVal.Start, class, m.Name)
		}
		WalkBody(m.Body, MethodScope(m), func(n Node, _ *Scope) bool {
			switch x := n.(type) {
			case *Block:
				for _, l := range x.Locals {
					check(l.Type, l.SpanVal.Start, class, m.Name)
				}
			case *NewArray:
				check(x.Elem, x.SpanVal.Start, class, m.Name)
			}
			return true
		})
	}

	for _, cls := range prog.Classes {
		for _, a := range cls.Attributes {
			check(a.Type, a.SpanVal.Start, cls.Name, "")
		}
		for _, m := range cls.Methods {
			checkMethod(cls.Name, m)
		}
		checkMethod(cls.Name, cls.Constructor)
	}
	checkMethod(MainClassName, prog.Main)
}

func (d *declarationChecker) consolidateAll() {
	hooks := redefinitionHooks{
		attribute: func(sub *ClassEntry, own, inherited *AttributeEntry) {
			diag := d.diags.errorAt(own.Decl.SpanVal.Start, CodeAttributeRedefined,
				msgAttrRedefined, own.Name, sub.Name, inherited.DeclaredIn)
			diag.Class, diag.Name = sub.Name, own.Name
		},
		method: func(sub *ClassEntry, own, inherited *MethodEntry) {
			var pos Position
			if own.Decl != nil {
				pos = own.Decl.SpanVal.Start
			}
			switch {
			case inherited.Static:
				diag := d.diags.errorAt(pos, CodeStaticRedefined,
					msgStaticRedefined, own.Name, inherited.DeclaredIn, sub.Name)
				diag.Class, diag.Method, diag.Name = sub.Name, own.Name, own.Name
			case !sameSignature(own, inherited):
				diag := d.diags.errorAt(pos, CodeSignatureMismatch,
					msgSignature, own.Name, sub.Name, inherited.DeclaredIn)
				diag.Class, diag.Method, diag.Name = sub.Name, own.Name, own.Name
			}
		},
	}
	for _, c := range d.st.UserClasses() {
		d.st.consolidate(c, hooks)
	}
}
