package main

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"unicode/utf16"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/mgomes/sdlang/sd"
)

const lspName = "sd-lsp"

type lspServer struct {
	msgs     *messages
	builtins []string
	log      commonlog.Logger

	mu   sync.Mutex
	docs map[string]string

	handler protocol.Handler
}

func newLSPServer(msgs *messages) *lspServer {
	s := &lspServer{
		msgs:     msgs,
		builtins: sd.NewProcessor(sd.Config{}).Builtins(),
		log:      commonlog.GetLogger(lspName),
		docs:     make(map[string]string),
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
	}
	return s
}

func runLSP() error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, err := findConfig(cwd)
	if err != nil {
		return err
	}
	msgs, err := newMessages(cfg.Lang)
	if err != nil {
		return err
	}
	s := newLSPServer(msgs)
	return glspserver.NewServer(&s.handler, lspName, false).RunStdio()
}

func (s *lspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.log.Info("initializing", "builtins", len(s.builtins))

	capabilities := s.handler.CreateServerCapabilities()
	syncKind := protocol.TextDocumentSyncKindFull
	openClose := true
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &openClose,
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name: lspName,
		},
	}, nil
}

func (s *lspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *lspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *lspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

func (s *lspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.store(params.TextDocument.URI, params.TextDocument.Text)
	s.publishDiagnostics(ctx, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (s *lspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	// Full sync: the last change carries the whole document.
	whole, ok := params.ContentChanges[len(params.ContentChanges)-1].(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		return nil
	}
	s.store(params.TextDocument.URI, whole.Text)
	s.publishDiagnostics(ctx, params.TextDocument.URI, whole.Text)
	return nil
}

func (s *lspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.mu.Lock()
	delete(s.docs, params.TextDocument.URI)
	s.mu.Unlock()

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *lspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	return completionItems(s.builtins), nil
}

func (s *lspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	source, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	tok, ok := tokenAtPosition(source, int(params.Position.Line), int(params.Position.Character))
	if !ok {
		return nil, nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: fmt.Sprintf("`%s`\n\nsd %s", tok.Content, s.classifyToken(tok)),
		},
	}, nil
}

func (s *lspServer) store(uri, text string) {
	s.mu.Lock()
	s.docs[uri] = text
	s.mu.Unlock()
}

func (s *lspServer) document(uri string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[uri]
	return text, ok
}

func (s *lspServer) publishDiagnostics(ctx *glsp.Context, uri, source string) {
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: s.diagnosticsForSource(source),
	})
}

// diagnosticsForSource reports a lex error alone, since no tokens exist to
// analyze past it.
func (s *lspServer) diagnosticsForSource(source string) []protocol.Diagnostic {
	tokens, err := sd.NewLexer(sd.NewReader(strings.NewReader(source))).Tokens()
	if err != nil {
		var lexErr *sd.LexError
		if errors.As(err, &lexErr) {
			return []protocol.Diagnostic{
				newDiagnostic(lexErr.Line, protocol.DiagnosticSeverityError, s.msgs.text(lexErr.Kind.String(), nil)),
			}
		}
		return []protocol.Diagnostic{newDiagnostic(1, protocol.DiagnosticSeverityError, err.Error())}
	}

	warnings := analyzeTokens(tokens)
	out := make([]protocol.Diagnostic, 0, len(warnings))
	for _, w := range warnings {
		severity := protocol.DiagnosticSeverityWarning
		if w.Fatal {
			severity = protocol.DiagnosticSeverityError
		}
		message := s.msgs.text(w.ID, nil)
		if w.Lexeme != "" {
			message += " (" + w.Lexeme + ")"
		}
		out = append(out, newDiagnostic(w.Line, severity, message))
	}
	return out
}

// newDiagnostic marks the start of a one-based script line.
func newDiagnostic(line int, severity protocol.DiagnosticSeverity, message string) protocol.Diagnostic {
	pos := protocol.UInteger(max(line-1, 0))
	source := lspName
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: pos, Character: 0},
			End:   protocol.Position{Line: pos, Character: 1},
		},
		Severity: &severity,
		Source:   &source,
		Message:  message,
	}
}

func completionItems(builtins []string) []protocol.CompletionItem {
	labels := slices.Concat(replKeywords, builtins)
	slices.Sort(labels)
	labels = slices.Compact(labels)

	items := make([]protocol.CompletionItem, 0, len(labels))
	for _, label := range labels {
		kind := protocol.CompletionItemKindFunction
		detail := "builtin"
		if slices.Contains(replKeywords, label) {
			kind = protocol.CompletionItemKindKeyword
			detail = "keyword"
		}
		items = append(items, protocol.CompletionItem{
			Label:  label,
			Kind:   &kind,
			Detail: &detail,
		})
	}
	return items
}

func (s *lspServer) classifyToken(tok sd.Token) string {
	if tok.Type == sd.TokenFunctionCall && slices.Contains(s.builtins, tok.Content) {
		return "builtin"
	}
	if tok.Sub != sd.SubNone {
		return tok.Type.String() + " " + tok.Sub.String()
	}
	return tok.Type.String()
}

// tokenAtPosition finds the token under an LSP position. Character offsets
// count UTF-16 code units. Tokens carry only a line, so each is located by
// searching for its content after the previous token on that line.
func tokenAtPosition(source string, line, character int) (sd.Token, bool) {
	lines := strings.Split(source, "\n")
	if line < 0 || line >= len(lines) {
		return sd.Token{}, false
	}
	runes := []rune(strings.TrimRight(lines[line], "\r"))
	cursor := min(runeOffset(runes, character), len(runes)-1)
	if cursor < 0 {
		return sd.Token{}, false
	}

	tokens, err := sd.NewLexer(sd.NewReader(strings.NewReader(source))).Tokens()
	if err != nil {
		return sd.Token{}, false
	}
	text := string(runes)
	from := 0
	for _, tok := range tokens {
		if tok.Line != line+1 || tok.Content == "" {
			continue
		}
		idx := strings.Index(text[from:], tok.Content)
		if idx < 0 {
			continue
		}
		start := len([]rune(text[:from+idx]))
		end := start + len([]rune(tok.Content))
		from += idx + len(tok.Content)
		if cursor >= start && cursor < end {
			return tok, true
		}
	}
	return sd.Token{}, false
}

func runeOffset(runes []rune, character int) int {
	units := 0
	for i, r := range runes {
		if units >= character {
			return i
		}
		units += utf16.RuneLen(r)
	}
	return len(runes)
}
