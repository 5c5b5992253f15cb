package server

import (
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/stackc/compiler"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "stackc-lsp"

// LspServer publishes compile diagnostics and answers simple navigation
// requests for open documents.
type LspServer struct {
	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server.
func NewLSP(version string) *LspServer {
	s := &LspServer{
		docs:    make(map[string]string),
		version: version,
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"."},
	}

	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true

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
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.setDocument(uri, text)
	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.setDocument(uri, whole.Text)
			s.publishDiagnostics(ctx, uri, whole.Text)
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
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) setDocument(uri protocol.DocumentUri, text string) {
	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return complete(text, prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return hover(text, word), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	text, ok := s.document(uri)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	var locations []protocol.Location
	for _, d := range declarations(text) {
		if d.Name == word {
			locations = append(locations, protocol.Location{URI: uri, Range: d.Range})
		}
	}
	return locations, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	uri := params.TextDocument.URI
	text, ok := s.document(uri)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	var locations []protocol.Location
	for _, r := range references(text, word) {
		locations = append(locations, protocol.Location{URI: uri, Range: r})
	}
	return locations, nil
}

// --- Document analysis ---

// declaration is a name introduced by let, func or struct.
type declaration struct {
	Name   string
	Kind   string // variable, function or struct
	Detail string
	Range  protocol.Range
}

// declarations scans text for declared names. It works on tokens, so it
// still finds names in documents that do not compile.
func declarations(text string) []declaration {
	toks := compiler.Tokenize(text)
	var out []declaration
	for i := 0; i < len(toks); i++ {
		switch toks[i].Type {
		case compiler.TokenFunc, compiler.TokenStruct:
			if i+1 < len(toks) && toks[i+1].Type == compiler.TokenIdentifier {
				kind := "function"
				if toks[i].Type == compiler.TokenStruct {
					kind = "struct"
				}
				name := toks[i+1]
				out = append(out, declaration{
					Name:   name.Literal,
					Kind:   kind,
					Detail: sourceLine(text, name.Pos.Line),
					Range:  tokenRange(name),
				})
			}
		case compiler.TokenLet:
			// let TYPE[]... name =
			var typ strings.Builder
			for j := i + 1; j+1 < len(toks); j++ {
				if toks[j+1].Type == compiler.TokenAssign && toks[j].Type == compiler.TokenIdentifier {
					out = append(out, declaration{
						Name:   toks[j].Literal,
						Kind:   "variable",
						Detail: fmt.Sprintf("let %s %s", typ.String(), toks[j].Literal),
						Range:  tokenRange(toks[j]),
					})
					break
				}
				if toks[j].Type == compiler.TokenSemicolon || toks[j].Type == compiler.TokenEOF {
					break
				}
				typ.WriteString(toks[j].Literal)
			}
		}
	}
	return out
}

// references returns the ranges of every identifier token spelled word.
func references(text, word string) []protocol.Range {
	var out []protocol.Range
	for _, tok := range compiler.Tokenize(text) {
		if tok.Type == compiler.TokenIdentifier && tok.Literal == word {
			out = append(out, tokenRange(tok))
		}
	}
	return out
}

func complete(text, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := make(map[string]bool)
	add := func(label string, kind protocol.CompletionItemKind, detail string) {
		if seen[label] || !strings.HasPrefix(strings.ToLower(label), strings.ToLower(prefix)) {
			return
		}
		seen[label] = true
		labelCopy, detailCopy := label, detail
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detailCopy,
			InsertText: &labelCopy,
		})
	}

	for _, d := range declarations(text) {
		kind := protocol.CompletionItemKindVariable
		switch d.Kind {
		case "function":
			kind = protocol.CompletionItemKindFunction
		case "struct":
			kind = protocol.CompletionItemKindStruct
		}
		add(d.Name, kind, d.Detail)
	}
	for _, name := range compiler.BuiltinNames() {
		sig, _ := compiler.BuiltinSignature(name)
		add(name, protocol.CompletionItemKindFunction, sig)
	}
	for _, name := range compiler.PrimitiveTypeNames() {
		add(name, protocol.CompletionItemKindTypeParameter, "type")
	}
	for _, kw := range compiler.Keywords() {
		add(kw, protocol.CompletionItemKindKeyword, "keyword")
	}

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

func hover(text, word string) *protocol.Hover {
	var b strings.Builder
	for _, d := range declarations(text) {
		if d.Name == word {
			fmt.Fprintf(&b, "```\n%s\n```\n%s declared on line %d\n\n", d.Detail, d.Kind, d.Range.Start.Line+1)
		}
	}
	if b.Len() == 0 {
		sig, ok := compiler.BuiltinSignature(word)
		if !ok {
			return nil
		}
		fmt.Fprintf(&b, "```\n%s\n```\nbuilt-in", sig)
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: strings.TrimRight(b.String(), "\n"),
		},
	}
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnose(text),
	})
}

// diagnose compiles text and reports its first error over the whole line.
func diagnose(text string) []protocol.Diagnostic {
	err := compiler.Check(text)
	if err == nil {
		return []protocol.Diagnostic{}
	}

	d := diagnosticFor(err)
	line := d.Line - 1
	if line < 0 {
		line = 0
	}
	severity := protocol.DiagnosticSeverityError
	source := lspName
	code := protocol.IntegerOrString{Value: d.Kind}
	message := d.Message
	if d.Kind == "" {
		message = err.Error()
	}
	return []protocol.Diagnostic{{
		Range: protocol.Range{
			Start: protocol.Position{Line: protocol.UInteger(line), Character: 0},
			End: protocol.Position{
				Line:      protocol.UInteger(line),
				Character: protocol.UInteger(utf8.RuneCountInString(sourceLine(text, line+1))),
			},
		},
		Severity: &severity,
		Code:     &code,
		Source:   &source,
		Message:  message,
	}}
}

// --- Text extraction helpers ---

// sourceLine returns the trimmed text of a 1-based line.
func sourceLine(text string, line int) string {
	lines := strings.Split(text, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[line-1])
}

func tokenRange(tok compiler.Token) protocol.Range {
	line := protocol.UInteger(tok.Pos.Line - 1)
	col := protocol.UInteger(tok.Pos.Column - 1)
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: col},
		End:   protocol.Position{Line: line, Character: col + protocol.UInteger(utf8.RuneCountInString(tok.Literal))},
	}
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isIdentByte(line[start-1]) {
		start--
	}

	if start == col {
		return ""
	}
	return line[start:col]
}

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

	start := col
	for start > 0 && isIdentByte(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && isIdentByte(line[end]) {
		end++
	}

	if start == end {
		return ""
	}
	return line[start:end]
}

func isIdentByte(c byte) bool {
	ch := rune(c)
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

func boolPtr(b bool) *bool {
	return &b
}
