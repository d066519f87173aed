package server

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/RocioCM/tinyrust-compiler/compiler"
)

// ---------------------------------------------------------------------------
// LSP text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractWord_Middle(t *testing.T) {
	text := `{"kind": "new", "class": "Perro"}`
	pos := protocol.Position{Line: 0, Character: 28}
	if word := extractWord(text, pos); word != "Perro" {
		t.Errorf("extractWord = %q, want %q", word, "Perro")
	}
}

func TestExtractWord_MultiLine(t *testing.T) {
	text := "classes:\n  - name: Animal\n"
	pos := protocol.Position{Line: 1, Character: 12}
	if word := extractWord(text, pos); word != "Animal" {
		t.Errorf("extractWord = %q, want %q", word, "Animal")
	}
}

func TestExtractWord_NoWord(t *testing.T) {
	text := "a : b"
	pos := protocol.Position{Line: 0, Character: 2}
	if word := extractWord(text, pos); word != "" {
		t.Errorf("extractWord = %q, want empty string", word)
	}
}

func TestExtractWord_LineBeyondDocument(t *testing.T) {
	text := "single line"
	pos := protocol.Position{Line: 5, Character: 0}
	if word := extractWord(text, pos); word != "" {
		t.Errorf("extractWord beyond document = %q, want empty string", word)
	}
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func TestToLSPDiagnostics(t *testing.T) {
	diags := []compiler.Diagnostic{
		{Severity: compiler.SeverityError, Code: compiler.CodeStaticAttribute, Line: 7, Column: 4, Name: "attr", Message: "m1"},
		{Severity: compiler.SeverityWarning, Code: compiler.CodeUnreachableCode, Line: 1, Column: 1, Message: "m2"},
	}
	got := toLSPDiagnostics(diags)
	if len(got) != 2 {
		t.Fatalf("got %d diagnostics", len(got))
	}

	first := got[0]
	if first.Range.Start.Line != 6 || first.Range.Start.Character != 3 || first.Range.End.Character != 7 {
		t.Errorf("range = %+v", first.Range)
	}
	if *first.Severity != protocol.DiagnosticSeverityError {
		t.Errorf("severity = %v", *first.Severity)
	}
	if first.Code == nil || first.Code.Value != string(compiler.CodeStaticAttribute) {
		t.Errorf("code = %+v", first.Code)
	}
	if *got[1].Severity != protocol.DiagnosticSeverityWarning {
		t.Errorf("warning severity = %v", *got[1].Severity)
	}
	if got[1].Range.Start != got[1].Range.End {
		t.Errorf("unnamed diagnostic should have an empty range: %+v", got[1].Range)
	}
}

func TestUpdate_PublishesCheckDiagnostics(t *testing.T) {
	s := NewLSP(compiler.DefaultOptions())
	defer s.Stop()

	diags := s.update("file:///tp/ejemplo.json", readTestdata(t, "ejemplo.json"))
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %+v", diags)
	}
	if diags[0].Range.Start.Line != 6 || diags[0].Range.Start.Character != 3 {
		t.Errorf("range = %+v", diags[0].Range)
	}
}

func TestUpdate_DecodeError(t *testing.T) {
	s := NewLSP(compiler.DefaultOptions())
	defer s.Stop()

	diags := s.update("file:///tp/roto.yaml", "classes: [\n")
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %+v", diags)
	}
	if diags[0].Range.Start.Line != 0 || diags[0].Range.Start.Character != 0 {
		t.Errorf("decode errors belong at 0:0, got %+v", diags[0].Range)
	}

	// Broken buffers stay open but have no tree for hover.
	st, _ := s.symbols("file:///tp/roto.yaml", protocol.Position{})
	if st != nil {
		t.Error("expected no symbols for a broken document")
	}
}

func TestUpdate_NullElements(t *testing.T) {
	s := NewLSP(compiler.DefaultOptions())
	defer s.Stop()

	for uri, text := range map[string]string{
		"file:///tp/a.json": `{"classes":[{"name":"A","attributes":[null]}]}`,
		"file:///tp/b.yaml": "main:\n  body:\n    locals:\n      - null\n",
	} {
		diags := s.update(uri, text)
		if len(diags) != 1 || diags[0].Range.Start.Line != 0 {
			t.Errorf("%s: diagnostics = %+v", uri, diags)
		}
	}
}

func TestShutdownThenStop(t *testing.T) {
	s := NewLSP(compiler.DefaultOptions())
	if err := s.shutdown(nil); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	s.Stop()
}

// ---------------------------------------------------------------------------
// Hover
// ---------------------------------------------------------------------------

func TestHover_Class(t *testing.T) {
	s := NewLSP(compiler.DefaultOptions())
	defer s.Stop()

	uri := "file:///tp/herencia.yaml"
	text := readTestdata(t, "herencia.yaml")
	s.update(uri, text)

	// "extends: Animal" in the Perro class.
	line := lineOf(t, text, "extends: Animal")
	st, word := s.symbols(protocol.DocumentUri(uri), protocol.Position{Line: line, Character: 14})
	if st == nil || word != "Animal" {
		t.Fatalf("symbols = %v, %q", st, word)
	}

	h := hover(st, "Perro")
	if h == nil {
		t.Fatal("no hover for Perro")
	}
	content := h.Contents.(protocol.MarkupContent).Value
	for _, want := range []string{
		"**Perro** : Animal",
		"`I32: edad` (from Animal)",
		"`static fn crear() -> Perro`",
		"**Hierarchy:** Object → Animal → **Perro**",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("hover missing %q:\n%s", want, content)
		}
	}
}

func TestHover_NotAClass(t *testing.T) {
	st, _ := compiler.Declarations(&compiler.Program{Name: "vacio"})
	if h := hover(st, "nombre"); h != nil {
		t.Errorf("lowercase word should not hover, got %+v", h)
	}
	if h := hover(st, "Fantasma"); h != nil {
		t.Errorf("unknown class should not hover, got %+v", h)
	}
	if h := hover(st, "IO"); h == nil {
		t.Error("predefined classes should hover")
	}
}

func lineOf(t *testing.T, text, needle string) protocol.UInteger {
	t.Helper()
	for i, l := range strings.Split(text, "\n") {
		if strings.Contains(l, needle) {
			return protocol.UInteger(i)
		}
	}
	t.Fatalf("%q not found", needle)
	return 0
}
