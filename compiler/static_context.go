package compiler

// ---------------------------------------------------------------------------
// Static-context checker: instance attributes referenced from static methods
// ---------------------------------------------------------------------------

// AttributeSet resolves the instance attributes visible in a class.
type AttributeSet interface {
	LookupAttribute(name string) (*AttributeDecl, bool)
}

// DeclaredAttributes is an AttributeSet over the attributes a class declares
// itself, without inherited ones.
type DeclaredAttributes struct {
	Class *ClassDecl
}

// LookupAttribute implements AttributeSet.
func (d DeclaredAttributes) LookupAttribute(name string) (*AttributeDecl, bool) {
	if d.Class == nil {
		return nil, false
	}
	a := d.Class.Attribute(name)
	return a, a != nil
}

// CheckStaticContext walks the body of a static method and reports every
// identifier reference that resolves to an instance attribute instead of a
// local or parameter. Lookup goes through scope first (innermost block
// first), then attrs. Names found in neither are left to the undeclared
// identifier check.
//
// scope is the scope in effect at the start of the body, as built by
// MethodScope; nil builds it from method. Non-static methods yield nil.
// The method and its declarations are never modified.
func CheckStaticContext(method *MethodDecl, attrs AttributeSet, scope *Scope) []Diagnostic {
	if method == nil || !method.Static || method.Body == nil || attrs == nil {
		return nil
	}
	if scope == nil {
		scope = MethodScope(method)
	}

	class := MainClassName
	if method.Owner != nil {
		class = method.Owner.Name
	}

	var out []Diagnostic
	WalkBody(method.Body, scope, func(n Node, sc *Scope) bool {
		v, ok := n.(*Variable)
		if !ok {
			return true
		}
		if _, bound := sc.Lookup(v.Name); bound {
			return true
		}
		if _, isAttr := attrs.LookupAttribute(v.Name); !isAttr {
			return true
		}
		pos := v.SpanVal.Start
		viol := &StaticContextViolation{
			Method:    method.Name,
			Attribute: v.Name,
			Line:      pos.Line,
			Column:    pos.Column,
		}
		out = append(out, viol.Diagnostic(class))
		return true
	})
	return out
}
