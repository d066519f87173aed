package server

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/RocioCM/tinyrust-compiler/compiler"
	"github.com/RocioCM/tinyrust-compiler/compiler/treefile"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "tinyrust-lsp"

// document is an open editor buffer and its last successful decode.
type document struct {
	text string
	prog *compiler.Program // nil when the text does not decode
}

// LspServer publishes TinyRust+ diagnostics for tree documents open in an
// editor. Documents are JSON or YAML, chosen by the URI extension.
type LspServer struct {
	worker *CheckWorker

	mu   sync.Mutex
	docs map[string]*document // URI → buffer

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server checking with opts.
func NewLSP(opts compiler.Options) *LspServer {
	s := &LspServer{
		worker:  NewCheckWorker(&Checker{Options: opts}),
		docs:    make(map[string]*document),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// Stop shuts down the check worker.
func (s *LspServer) Stop() {
	s.worker.Stop()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("TinyRust+ LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	diagnostics := s.update(string(uri), params.TextDocument.Text)
	s.publish(ctx, uri, diagnostics)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			diagnostics := s.update(string(uri), whole.Text)
			s.publish(ctx, uri, diagnostics)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	s.publish(ctx, uri, []protocol.Diagnostic{})
	return nil
}

func (s *LspServer) publish(ctx *glsp.Context, uri protocol.DocumentUri, diagnostics []protocol.Diagnostic) {
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// update stores the new text of uri, checks it and returns the diagnostics
// to publish. A document that does not decode yields one error at 0:0.
func (s *LspServer) update(uri, text string) []protocol.Diagnostic {
	doc := &document{text: text}
	defer func() {
		s.mu.Lock()
		s.docs[uri] = doc
		s.mu.Unlock()
	}()

	prog, err := decodeBuffer(uri, text)
	if err != nil {
		return []protocol.Diagnostic{decodeDiagnostic(err)}
	}
	doc.prog = prog

	r, err := s.worker.Check(context.Background(), prog)
	if err != nil {
		log.Errorf("%s: %v", uri, err)
		return []protocol.Diagnostic{decodeDiagnostic(err)}
	}
	return toLSPDiagnostics(r.Diagnostics)
}

func decodeBuffer(uri, text string) (*compiler.Program, error) {
	f, err := treefile.FormatFromPath(uri)
	if err != nil || f == treefile.FormatCBOR {
		f = treefile.FormatJSON
	}
	prog, err := treefile.Decode([]byte(text), f)
	if err != nil {
		return nil, err
	}
	if prog.Name == "" {
		prog.Name = uri[strings.LastIndex(uri, "/")+1:]
	}
	return prog, nil
}

func decodeDiagnostic(err error) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	source := lspName
	return protocol.Diagnostic{
		Range:    protocol.Range{},
		Severity: &severity,
		Source:   &source,
		Message:  err.Error(),
	}
}

// toLSPDiagnostics converts 1-based report diagnostics to LSP diagnostics.
// The range covers the offending name when it is known.
func toLSPDiagnostics(diags []compiler.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diags))
	source := lspName
	for _, d := range diags {
		severity := protocol.DiagnosticSeverityError
		if d.Severity == compiler.SeverityWarning {
			severity = protocol.DiagnosticSeverityWarning
		}
		start := protocol.Position{Line: zeroBased(d.Line), Character: zeroBased(d.Column)}
		end := start
		end.Character += protocol.UInteger(len(d.Name))
		out = append(out, protocol.Diagnostic{
			Range:    protocol.Range{Start: start, End: end},
			Severity: &severity,
			Code:     &protocol.IntegerOrString{Value: string(d.Code)},
			Source:   &source,
			Message:  d.Message,
		})
	}
	return out
}

func zeroBased(n int) protocol.UInteger {
	if n < 1 {
		return 0
	}
	return protocol.UInteger(n - 1)
}

// --- Language features ---

// symbols returns the consolidated table of the last good decode of uri,
// and the word under pos.
func (s *LspServer) symbols(uri protocol.DocumentUri, pos protocol.Position) (*compiler.SymbolTable, string) {
	s.mu.Lock()
	doc, ok := s.docs[string(uri)]
	s.mu.Unlock()

	if !ok || doc.prog == nil {
		return nil, ""
	}
	word := extractWord(doc.text, pos)
	if word == "" {
		return nil, ""
	}

	result, err := s.worker.Do(func(*Checker) interface{} {
		st, _ := compiler.Declarations(doc.prog)
		return st
	})
	if err != nil {
		return nil, ""
	}
	return result.(*compiler.SymbolTable), word
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	st, word := s.symbols(params.TextDocument.URI, params.Position)
	if st == nil {
		return nil, nil
	}
	return hover(st, word), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	st, word := s.symbols(params.TextDocument.URI, params.Position)
	if st == nil {
		return nil, nil
	}
	cls, ok := st.Class(word)
	if !ok || cls.Predefined || cls.Decl == nil {
		return nil, nil
	}
	start := cls.Decl.Span().Start
	pos := protocol.Position{Line: zeroBased(start.Line), Character: zeroBased(start.Column)}
	return []protocol.Location{{
		URI:   params.TextDocument.URI,
		Range: protocol.Range{Start: pos, End: pos},
	}}, nil
}

// hover describes the class named word, or returns nil.
func hover(st *compiler.SymbolTable, word string) *protocol.Hover {
	if len(word) == 0 || !unicode.IsUpper(rune(word[0])) {
		return nil
	}
	cls, ok := st.Class(word)
	if !ok {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**", cls.Name)
	if cls.Superclass != "" {
		fmt.Fprintf(&b, " : %s", cls.Superclass)
	}
	if cls.Predefined {
		b.WriteString(" (predefined)")
	}
	b.WriteString("\n\n")

	if attrs := cls.Attributes(); len(attrs) > 0 {
		b.WriteString("Attributes:\n")
		for _, a := range attrs {
			vis := ""
			if a.Public {
				vis = "pub "
			}
			fmt.Fprintf(&b, "- `%s%s: %s`", vis, a.Type, a.Name)
			if a.Inherited {
				fmt.Fprintf(&b, " (from %s)", a.DeclaredIn)
			}
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	if cls.Constructor != nil {
		fmt.Fprintf(&b, "Constructor: `%s`\n\n", methodSignature(cls.Constructor))
	}

	if methods := cls.Methods(); len(methods) > 0 {
		b.WriteString("Methods:\n")
		for _, m := range methods {
			fmt.Fprintf(&b, "- `%s`", methodSignature(m))
			if m.Inherited {
				fmt.Fprintf(&b, " (from %s)", m.DeclaredIn)
			}
			b.WriteByte('\n')
		}
	}

	// Show hierarchy
	var chain []string
	for sup := cls.Superclass; sup != ""; {
		chain = append([]string{sup}, chain...)
		c, ok := st.Class(sup)
		if !ok || len(chain) > 64 {
			break
		}
		sup = c.Superclass
	}
	if len(chain) > 0 {
		fmt.Fprintf(&b, "\n**Hierarchy:** %s → **%s**", strings.Join(chain, " → "), cls.Name)
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: strings.TrimRight(b.String(), "\n"),
		},
	}
}

// methodSignature renders a method the way it is declared in source.
func methodSignature(m *compiler.MethodEntry) string {
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = fmt.Sprintf("%s: %s", p.Type, p.Name)
	}
	sig := fmt.Sprintf("fn %s(%s) -> %s", m.Name, strings.Join(params, ", "), m.Return)
	if m.Static {
		sig = "static " + sig
	}
	return sig
}

// --- Text extraction helpers ---

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Find start
	start := col
	for start > 0 {
		ch := rune(line[start-1])
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
			start--
		} else {
			break
		}
	}

	// Find end
	end := col
	for end < len(line) {
		ch := rune(line[end])
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
			end++
		} else {
			break
		}
	}

	if start == end {
		return ""
	}

	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
