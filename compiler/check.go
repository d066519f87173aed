package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// Options tune the checks that are not fixed by the language.
type Options struct {
	// UndefinedSeverity is the severity of undeclared identifier findings.
	UndefinedSeverity Severity

	// Unreachable enables the unreachable-code warning.
	Unreachable bool

	// Disabled lists rule codes whose findings are dropped from reports.
	Disabled []Code
}

// DefaultOptions returns the options used when no project config exists.
func DefaultOptions() Options {
	return Options{
		UndefinedSeverity: SeverityError,
		Unreachable:       true,
	}
}

// Fingerprint returns a stable string identifying the options, used to key
// cached reports.
func (o Options) Fingerprint() string {
	disabled := make([]string, 0, len(o.Disabled))
	for _, c := range o.Disabled {
		disabled = append(disabled, string(c))
	}
	sort.Strings(disabled)
	return fmt.Sprintf("undefined=%s;unreachable=%t;disabled=%s",
		o.UndefinedSeverity, o.Unreachable, strings.Join(disabled, ","))
}

func (o Options) disabled(c Code) bool {
	for _, d := range o.Disabled {
		if d == c {
			return true
		}
	}
	return false
}

// Check runs both semantic phases over prog and returns the report. The
// declarations phase always runs first; the sentences phase runs on the
// repaired symbol table even when declarations failed.
func Check(prog *Program, opts Options) *Report {
	st, decl := Declarations(prog)
	diags := append(decl, Sentences(st, prog, opts)...)

	kept := diags[:0]
	for _, d := range diags {
		if !opts.disabled(d.Code) {
			kept = append(kept, d)
		}
	}
	return NewReport(prog.Name, kept, st)
}
