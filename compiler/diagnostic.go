package compiler

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

// Phase identifies the analysis pass that produced a diagnostic.
type Phase int

const (
	phaseInvalid Phase = iota
	PhaseDeclarations
	PhaseSentences
)

var phaseNames = map[Phase]string{
	PhaseDeclarations: "SEMANTICO - DECLARACIONES",
	PhaseSentences:    "SEMANTICO - SENTENCIAS",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return fmt.Sprintf("invalid(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	switch p {
	case PhaseDeclarations:
		return []byte("declarations"), nil
	case PhaseSentences:
		return []byte("sentences"), nil
	}
	return nil, fmt.Errorf("cannot marshal phase %d", int(p))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "declarations":
		*p = PhaseDeclarations
	case "sentences":
		*p = PhaseSentences
	default:
		return fmt.Errorf("unknown phase %q", text)
	}
	return nil
}

// Severity of a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText for setting values from configs and wire documents.
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "error", "":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Code names the rule a diagnostic was raised by.
type Code string

const (
	// Declarations phase.
	CodeDuplicateClass     Code = "duplicate-class"
	CodeDuplicateAttribute Code = "duplicate-attribute"
	CodeDuplicateMethod    Code = "duplicate-method"
	CodeDuplicateParam     Code = "duplicate-param"
	CodeDuplicateLocal     Code = "duplicate-local"
	CodeSelfDeclaration    Code = "self-declaration"
	CodePredefinedBase     Code = "predefined-base"
	CodeUndefinedBase      Code = "undefined-base"
	CodeInheritanceCycle   Code = "inheritance-cycle"
	CodeAttributeRedefined Code = "attribute-redefined"
	CodeStaticRedefined    Code = "static-redefined"
	CodeSignatureMismatch  Code = "signature-mismatch"
	CodeUndefinedType      Code = "undefined-type"

	// Sentences phase.
	CodeStaticAttribute   Code = "static-attribute"
	CodeStaticSelf        Code = "static-self"
	CodeStaticCall        Code = "static-call"
	CodeMainSelf          Code = "main-self"
	CodeSelfAssignment    Code = "self-assignment"
	CodeUndefinedVariable Code = "undefined-variable"
	CodePrivateInherited  Code = "private-inherited"
	CodeUndefinedClass    Code = "undefined-class"
	CodeUndefinedMethod   Code = "undefined-method"
	CodeUndefinedAttr     Code = "undefined-attribute"
	CodePrivateAttr       Code = "private-attribute"
	CodeArgumentCount     Code = "argument-count"
	CodeNonStaticCall     Code = "non-static-call"
	CodeConstructorCall   Code = "constructor-call"
	CodeTypeMismatch      Code = "type-mismatch"
	CodeUnreachableCode   Code = "unreachable-code"
)

var allCodes = []Code{
	CodeDuplicateClass, CodeDuplicateAttribute, CodeDuplicateMethod,
	CodeDuplicateParam, CodeDuplicateLocal, CodeSelfDeclaration,
	CodePredefinedBase, CodeUndefinedBase, CodeInheritanceCycle,
	CodeAttributeRedefined, CodeStaticRedefined, CodeSignatureMismatch,
	CodeUndefinedType,
	CodeStaticAttribute, CodeStaticSelf, CodeStaticCall, CodeMainSelf,
	CodeSelfAssignment, CodeUndefinedVariable, CodePrivateInherited,
	CodeUndefinedClass, CodeUndefinedMethod, CodeUndefinedAttr,
	CodePrivateAttr, CodeArgumentCount, CodeNonStaticCall,
	CodeConstructorCall, CodeTypeMismatch, CodeUnreachableCode,
}

// Codes returns every rule code, declarations first.
func Codes() []Code {
	return append([]Code(nil), allCodes...)
}

// KnownCode reports whether c names a rule.
func KnownCode(c Code) bool {
	for _, k := range allCodes {
		if k == c {
			return true
		}
	}
	return false
}

// Diagnostic is a single positioned analysis finding.
type Diagnostic struct {
	Phase    Phase    `json:"phase"`
	Severity Severity `json:"severity"`
	Code     Code     `json:"code"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Message  string   `json:"message"`

	// Context of the finding; empty when not applicable.
	Class  string `json:"class,omitempty"`
	Method string `json:"method,omitempty"`
	Name   string `json:"name,omitempty"`

	// Cause carries the typed error behind the diagnostic, when there is one.
	Cause error `json:"-"`
}

// Error implements error so a diagnostic can travel through error paths.
func (d Diagnostic) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", d.Line, d.Column, d.Message)
}

// Unwrap exposes Cause to errors.As.
func (d Diagnostic) Unwrap() error {
	return d.Cause
}

// UnmarshalJSON decodes a diagnostic and restores the typed cause of
// static-context findings, which is not serialized.
func (d *Diagnostic) UnmarshalJSON(data []byte) error {
	type plain Diagnostic
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = Diagnostic(p)
	if d.Code == CodeStaticAttribute {
		d.Cause = &StaticContextViolation{
			Method:    d.Method,
			Attribute: d.Name,
			Line:      d.Line,
			Column:    d.Column,
		}
	}
	return nil
}

// Row renders the diagnostic as a fixture table row.
func (d Diagnostic) Row() string {
	return fmt.Sprintf("| LINEA %d | COLUMNA %d | %s |", d.Line, d.Column, d.Message)
}

// StaticContextViolation reports an instance attribute referenced from a
// static method.
type StaticContextViolation struct {
	Method    string
	Attribute string
	Line      int
	Column    int
}

func (v *StaticContextViolation) Error() string {
	return fmt.Sprintf("SE INTENTO ACCEDER AL ATRIBUTO %s DENTRO DEL METODO ESTATICO %s. "+
		"NO SE PERMITE ACCEDER A ATRIBUTOS DINAMICOS DENTRO DE UN CONTEXTO ESTATICO.", v.Attribute, v.Method)
}

// Diagnostic converts the violation into its report record.
func (v *StaticContextViolation) Diagnostic(class string) Diagnostic {
	return Diagnostic{
		Phase:    PhaseSentences,
		Severity: SeverityError,
		Code:     CodeStaticAttribute,
		Line:     v.Line,
		Column:   v.Column,
		Message:  v.Error(),
		Class:    class,
		Method:   v.Method,
		Name:     v.Attribute,
		Cause:    v,
	}
}

// SortDiagnostics orders diagnostics by line, then column, keeping emission
// order for ties.
func SortDiagnostics(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].Line != diags[j].Line {
			return diags[i].Line < diags[j].Line
		}
		return diags[i].Column < diags[j].Column
	})
}

// diagnostics accumulates findings for one pass.
type diagnostics struct {
	phase Phase
	list  []Diagnostic
}

func (d *diagnostics) errorAt(pos Position, code Code, format string, args ...any) *Diagnostic {
	return d.add(SeverityError, pos, code, format, args...)
}

func (d *diagnostics) warnAt(pos Position, code Code, format string, args ...any) *Diagnostic {
	return d.add(SeverityWarning, pos, code, format, args...)
}

func (d *diagnostics) add(sev Severity, pos Position, code Code, format string, args ...any) *Diagnostic {
	d.list = append(d.list, Diagnostic{
		Phase:    d.phase,
		Severity: sev,
		Code:     code,
		Line:     pos.Line,
		Column:   pos.Column,
		Message:  fmt.Sprintf(format, args...),
	})
	return &d.list[len(d.list)-1]
}
