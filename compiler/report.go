package compiler

import (
	"fmt"
	"io"
	"strings"
)

// ---------------------------------------------------------------------------
// Reports
// ---------------------------------------------------------------------------

const reportTableHeader = "| NUMERO DE LINEA: | NUMERO DE COLUMNA: | DESCRIPCION: |"

// Report is the outcome of checking one program.
type Report struct {
	ID          string       `json:"id,omitempty"`
	Source      string       `json:"source"`
	Diagnostics []Diagnostic `json:"diagnostics"`

	// Symbols is the consolidated table the report was produced from. It is
	// not serialized with the report.
	Symbols *SymbolTable `json:"-"`
}

// NewReport sorts diags by position and wraps them in a report.
func NewReport(source string, diags []Diagnostic, st *SymbolTable) *Report {
	if diags == nil {
		diags = []Diagnostic{}
	}
	SortDiagnostics(diags)
	return &Report{Source: source, Diagnostics: diags, Symbols: st}
}

// Errors returns the error diagnostics in report order.
func (r *Report) Errors() []Diagnostic {
	return r.filter(func(d Diagnostic) bool { return d.Severity == SeverityError })
}

// Warnings returns the warning diagnostics in report order.
func (r *Report) Warnings() []Diagnostic {
	return r.filter(func(d Diagnostic) bool { return d.Severity == SeverityWarning })
}

func (r *Report) filter(keep func(Diagnostic) bool) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// OK reports whether the program has no errors.
func (r *Report) OK() bool {
	return len(r.Errors()) == 0
}

// Text renders the report in the TinyRust+ fixture format.
func (r *Report) Text() string {
	var sb strings.Builder
	_ = r.WriteText(&sb)
	return sb.String()
}

// WriteText writes the fixture rendering of r to w: one ERROR section per
// phase with errors, declarations first, or the CORRECTO line when there are
// none, followed by one ADVERTENCIA section per phase with warnings.
func (r *Report) WriteText(w io.Writer) error {
	var sections []string
	for _, phase := range []Phase{PhaseDeclarations, PhaseSentences} {
		if rows := r.rows(phase, SeverityError); len(rows) > 0 {
			sections = append(sections, section("ERROR", phase, rows))
		}
	}
	if len(sections) == 0 {
		sections = append(sections, fmt.Sprintf("CORRECTO: %s\n", PhaseSentences))
	}
	for _, phase := range []Phase{PhaseDeclarations, PhaseSentences} {
		if rows := r.rows(phase, SeverityWarning); len(rows) > 0 {
			sections = append(sections, section("ADVERTENCIA", phase, rows))
		}
	}
	_, err := io.WriteString(w, strings.Join(sections, ""))
	return err
}

func (r *Report) rows(phase Phase, sev Severity) []string {
	var rows []string
	for _, d := range r.Diagnostics {
		if d.Phase == phase && d.Severity == sev {
			rows = append(rows, d.Row())
		}
	}
	return rows
}

func section(kind string, phase Phase, rows []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", kind, phase)
	sb.WriteString(reportTableHeader)
	sb.WriteByte('\n')
	for _, row := range rows {
		sb.WriteString(row)
		sb.WriteByte('\n')
	}
	return sb.String()
}
