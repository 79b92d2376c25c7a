package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"go.lsp.dev/protocol"

	"github.com/synthlang/synkit/internal/synth/analysis"
	"github.com/synthlang/synkit/internal/synth/classifier"
	"github.com/synthlang/synkit/internal/synth/format"
	"github.com/synthlang/synkit/internal/synth/lang"
	"github.com/synthlang/synkit/internal/synth/refactor"
	"github.com/synthlang/synkit/internal/synth/source"
)

// Server handles LSP requests for Synth files.
type Server struct {
	conn *Conn

	// State
	mu          sync.RWMutex
	initialized bool
	shutdown    bool
	rootURI     protocol.DocumentURI

	// Open documents
	store *source.Store

	// Engines
	lintDriver *analysis.Driver
	refactor   *refactor.Engine
	fmtOpts    format.Options

	// Diagnostics
	debounce       *debouncer
	maxDiagnostics int

	// Watcher re-triggers diagnostics when open files change on disk.
	// Nil until a workspace root is known.
	watcher *Watcher

	onExit func()
}

// Options configures server behavior beyond what the protocol negotiates.
type Options struct {
	// Debounce is the quiet period after an edit burst before diagnostics
	// run. Zero means DefaultDebounce.
	Debounce time.Duration

	// MaxDiagnostics caps the findings published per document. Zero means
	// no cap.
	MaxDiagnostics int

	// Indent is the formatting indentation unit. Empty means the formatter
	// default.
	Indent string

	// MaxBlankLines is the longest blank-line run formatting keeps. Zero
	// means the formatter default.
	MaxBlankLines int

	// UncertaintyPercent is the spread attached by the add-uncertainty
	// code action.
	UncertaintyPercent float64
}

// DefaultDebounce is the diagnostics quiet period when none is configured.
const DefaultDebounce = 200 * time.Millisecond

// NewServer creates a new LSP server with default options.
func NewServer(onExit func()) *Server {
	return NewServerWithOptions(Options{}, onExit)
}

// NewServerWithOptions creates a new LSP server.
func NewServerWithOptions(opts Options, onExit func()) *Server {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	return &Server{
		store:          source.NewStore(),
		lintDriver:     analysis.NewDriver(analysis.NewDefaultRegistry()),
		refactor:       refactor.NewEngine(refactor.Options{UncertaintyPercent: opts.UncertaintyPercent}),
		fmtOpts:        format.Options{Indent: opts.Indent, MaxBlankLines: opts.MaxBlankLines},
		debounce:       newDebouncer(opts.Debounce),
		maxDiagnostics: opts.MaxDiagnostics,
		onExit:         onExit,
	}
}

// SetConn sets the connection for sending notifications.
func (s *Server) SetConn(conn *Conn) {
	s.conn = conn
}

// Handle implements Handler interface - routes requests to methods.
func (s *Server) Handle(ctx context.Context, req *Request) (any, error) {
	s.mu.RLock()
	shutdown := s.shutdown
	initialized := s.initialized
	s.mu.RUnlock()

	// Check shutdown state - only allow exit after shutdown
	if shutdown && req.Method != "exit" {
		return nil, &ResponseError{
			Code:    CodeInvalidRequest,
			Message: "server is shutting down",
		}
	}

	// Check initialization - only lifecycle methods allowed before initialize
	if !initialized {
		switch req.Method {
		case "initialize", "initialized", "shutdown", "exit":
			// Allowed before initialization
		default:
			return nil, &ResponseError{
				Code:    CodeServerNotInitialized,
				Message: "server not initialized",
			}
		}
	}

	// Route to method handlers
	switch req.Method {
	// Lifecycle
	case "initialize":
		return s.handleInitialize(ctx, req.Params)
	case "initialized":
		return s.handleInitialized(ctx, req.Params)
	case "shutdown":
		return s.handleShutdown(ctx)
	case "exit":
		return s.handleExit(ctx)

	// Text document sync
	case "textDocument/didOpen":
		return s.handleDidOpen(ctx, req.Params)
	case "textDocument/didChange":
		return s.handleDidChange(ctx, req.Params)
	case "textDocument/didClose":
		return s.handleDidClose(ctx, req.Params)
	case "textDocument/didSave":
		return s.handleDidSave(ctx, req.Params)

	// Language features
	case "textDocument/hover":
		return s.handleHover(ctx, req.Params)
	case "textDocument/definition":
		return s.handleDefinition(ctx, req.Params)
	case "textDocument/completion":
		return s.handleCompletion(ctx, req.Params)
	case "textDocument/references":
		return s.handleReferences(ctx, req.Params)
	case "textDocument/codeAction":
		return s.handleCodeAction(ctx, req.Params)
	case "textDocument/formatting":
		return s.handleFormatting(ctx, req.Params)
	case "textDocument/documentSymbol":
		return s.handleDocumentSymbol(ctx, req.Params)
	case "textDocument/foldingRange":
		return s.handleFoldingRange(ctx, req.Params)
	case "textDocument/signatureHelp":
		return s.handleSignatureHelp(ctx, req.Params)
	case "textDocument/prepareRename":
		return s.handlePrepareRename(ctx, req.Params)
	case "textDocument/rename":
		return s.handleRename(ctx, req.Params)
	case "workspace/symbol":
		return s.handleWorkspaceSymbol(ctx, req.Params)

	default:
		log.Printf("unhandled method: %s", req.Method)
		return nil, ErrMethodNotFound
	}
}

// --- Lifecycle methods ---

func (s *Server) handleInitialize(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.InitializeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("parsing initialize params: %w", err)
	}

	s.mu.Lock()
	if len(p.WorkspaceFolders) > 0 {
		s.rootURI = protocol.DocumentURI(p.WorkspaceFolders[0].URI)
	} else if p.RootURI != "" {
		s.rootURI = p.RootURI
	}
	s.mu.Unlock()

	log.Printf("initialize: root=%s", s.rootURI)

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindIncremental,
				Save: &protocol.SaveOptions{
					IncludeText: true,
				},
			},
			HoverProvider:          true,
			DefinitionProvider:     true,
			ReferencesProvider:     true,
			DocumentSymbolProvider: true,
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{"("},
			},
			CodeActionProvider:         true,
			DocumentFormattingProvider: true,
			SignatureHelpProvider: &protocol.SignatureHelpOptions{
				TriggerCharacters:   []string{"(", ","},
				RetriggerCharacters: []string{","},
			},
			FoldingRangeProvider: true,
			RenameProvider: &protocol.RenameOptions{
				PrepareProvider: true,
			},
			WorkspaceSymbolProvider: true,
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "synls",
			Version: "0.1.0",
		},
	}, nil
}

func (s *Server) handleInitialized(ctx context.Context, params json.RawMessage) (any, error) {
	s.mu.Lock()
	s.initialized = true
	root := s.rootURI
	s.mu.Unlock()

	log.Printf("initialized")

	if root != "" {
		w, err := newWatcher(s, uriToPath(root))
		if err != nil {
			log.Printf("file watcher disabled: %v", err)
		} else {
			s.mu.Lock()
			s.watcher = w
			s.mu.Unlock()
			log.Printf("watching %s", uriToPath(root))
		}
	}

	return nil, nil
}

func (s *Server) handleShutdown(ctx context.Context) (any, error) {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	log.Printf("shutdown")
	return nil, nil
}

func (s *Server) handleExit(ctx context.Context) (any, error) {
	log.Printf("exit")

	s.debounce.stop()

	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()
	if w != nil {
		if err := w.Close(); err != nil {
			log.Printf("closing watcher: %v", err)
		}
	}

	if s.onExit != nil {
		s.onExit()
	}
	return nil, nil
}

// --- Text document sync ---

func (s *Server) handleDidOpen(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	s.store.Open(string(p.TextDocument.URI), p.TextDocument.Text, p.TextDocument.Version)

	log.Printf("didOpen: %s", p.TextDocument.URI)

	s.mu.RLock()
	w := s.watcher
	s.mu.RUnlock()
	if w != nil {
		if err := w.Add(uriToPath(p.TextDocument.URI)); err != nil {
			log.Printf("didOpen: watch: %v", err)
		}
	}

	// Publish initial diagnostics
	s.publishDiagnostics(ctx, p.TextDocument.URI)

	return nil, nil
}

// didChangeParams mirrors protocol.DidChangeTextDocumentParams with a
// pointer range per change, so a missing range (a full-content replacement)
// is distinguishable from a zero one.
type didChangeParams struct {
	TextDocument   protocol.VersionedTextDocumentIdentifier `json:"textDocument"`
	ContentChanges []contentChange                          `json:"contentChanges"`
}

type contentChange struct {
	Range *protocol.Range `json:"range,omitempty"`
	Text  string          `json:"text"`
}

func (s *Server) handleDidChange(ctx context.Context, params json.RawMessage) (any, error) {
	var p didChangeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	changes := make([]source.Change, 0, len(p.ContentChanges))
	for _, c := range p.ContentChanges {
		ch := source.Change{Text: c.Text}
		if c.Range != nil {
			ch.Range = &source.Range{
				Start: source.Position{Line: int(c.Range.Start.Line), Character: int(c.Range.Start.Character)},
				End:   source.Position{Line: int(c.Range.End.Line), Character: int(c.Range.End.Character)},
			}
		}
		changes = append(changes, ch)
	}

	if _, err := s.store.Apply(string(p.TextDocument.URI), p.TextDocument.Version, changes); err != nil {
		log.Printf("didChange: %v", err)
		return nil, nil
	}

	log.Printf("didChange: %s v%d", p.TextDocument.URI, p.TextDocument.Version)

	s.scheduleDiagnostics(p.TextDocument.URI)
	return nil, nil
}

func (s *Server) handleDidClose(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.DidCloseTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	s.debounce.cancel(string(p.TextDocument.URI))
	s.store.Close(string(p.TextDocument.URI))

	log.Printf("didClose: %s", p.TextDocument.URI)

	s.mu.RLock()
	w := s.watcher
	s.mu.RUnlock()
	if w != nil {
		if err := w.Remove(uriToPath(p.TextDocument.URI)); err != nil {
			log.Printf("didClose: unwatch: %v", err)
		}
	}

	// Clear diagnostics for closed document
	s.clearDiagnostics(ctx, p.TextDocument.URI)

	return nil, nil
}

func (s *Server) handleDidSave(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.DidSaveTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	log.Printf("didSave: %s", p.TextDocument.URI)

	// The store copy is authoritative; a save doesn't change it. Re-run
	// diagnostics without the debounce delay.
	s.publishDiagnostics(ctx, p.TextDocument.URI)

	return nil, nil
}

// --- Language features ---

func (s *Server) handleHover(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.HoverParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	doc, ok := s.store.Get(string(p.TextDocument.URI))
	if !ok {
		return nil, nil
	}

	line, col, ok := docLineCol(&doc, p.Position)
	if !ok {
		return nil, nil
	}

	word, _, _ := lang.WordAt(line, col)
	if word == "" {
		return nil, nil
	}

	log.Printf("hover: %s @ %d:%d -> %q", uriToPath(p.TextDocument.URI), p.Position.Line, p.Position.Character, word)

	markdown, ok := lang.DocFor(word)
	if !ok {
		return nil, nil // No documentation found
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: markdown,
		},
	}, nil
}

func (s *Server) handleDefinition(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.DefinitionParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	doc, ok := s.store.Get(string(p.TextDocument.URI))
	if !ok {
		return nil, nil
	}

	line, col, ok := docLineCol(&doc, p.Position)
	if !ok {
		return nil, nil
	}

	word, _, _ := lang.WordAt(line, col)
	if word == "" {
		return nil, nil
	}

	log.Printf("definition: %s @ %d:%d -> %q", uriToPath(p.TextDocument.URI), p.Position.Line, p.Position.Character, word)

	decl, ok := lang.FindDecl(doc.Text, word)
	if !ok {
		return nil, nil // Not found
	}

	return []protocol.Location{
		{
			URI:   p.TextDocument.URI,
			Range: declRange(decl),
		},
	}, nil
}

func (s *Server) handleCompletion(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.CompletionParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("parsing completion params: %w", err)
	}

	doc, ok := s.store.Get(string(p.TextDocument.URI))
	if !ok {
		return &protocol.CompletionList{Items: []protocol.CompletionItem{}}, nil
	}

	offset, err := doc.OffsetAt(source.Position{Line: int(p.Position.Line), Character: int(p.Position.Character)})
	if err != nil {
		log.Printf("completion: %v", err)
		return &protocol.CompletionList{Items: []protocol.CompletionItem{}}, nil
	}

	line, col, _ := docLineCol(&doc, p.Position)
	prefix := lang.PrefixAt(line, col)

	// Tier 1: static keyword, gate, and builtin matches for the typed
	// prefix, alphabetical. Tier 2: snippets for the classified region,
	// in table order. Duplicate labels within a tier keep the first.
	items := staticCompletions(prefix)

	cls := classifier.Classify(doc.Text, offset)
	items = append(items, snippetCompletions(cls.Kind)...)

	return &protocol.CompletionList{
		IsIncomplete: false,
		Items:        items,
	}, nil
}

// staticCompletions returns prefix-filtered keyword, gate, and builtin
// completions sorted by label.
func staticCompletions(prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := make(map[string]bool)

	for _, kw := range lang.KeywordsWithPrefix(prefix) {
		if seen[kw] {
			continue
		}
		seen[kw] = true
		items = append(items, completionItem(kw, protocol.CompletionItemKindKeyword, "keyword", false))
	}

	for _, g := range lang.GatesWithPrefix(prefix) {
		if seen[g] {
			continue
		}
		seen[g] = true
		items = append(items, completionItem(g, protocol.CompletionItemKindOperator, "gate", false))
	}

	for _, b := range lang.BuiltinsWithPrefix(prefix) {
		if seen[b.Name] {
			continue
		}
		seen[b.Name] = true
		items = append(items, completionItem(b.Name, protocol.CompletionItemKindFunction, b.Doc, true))
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Label < items[j].Label
	})

	return items
}

// snippetCompletions returns the snippet templates active for the region
// kind, in declaration order.
func snippetCompletions(kind classifier.Kind) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := make(map[string]bool)

	for _, sn := range lang.SnippetsFor(kind.String()) {
		if seen[sn.Label] {
			continue
		}
		seen[sn.Label] = true
		items = append(items, protocol.CompletionItem{
			Label:            sn.Label,
			Kind:             protocol.CompletionItemKindSnippet,
			Detail:           sn.Detail,
			Documentation:    sn.Doc,
			InsertText:       sn.Insert,
			InsertTextFormat: protocol.InsertTextFormatSnippet,
		})
	}

	return items
}

// completionItem creates a completion item with optional snippet support.
func completionItem(label string, kind protocol.CompletionItemKind, detail string, isFunc bool) protocol.CompletionItem {
	item := protocol.CompletionItem{
		Label:  label,
		Kind:   kind,
		Detail: detail,
	}
	if isFunc {
		item.InsertText = label + "($0)"
		item.InsertTextFormat = protocol.InsertTextFormatSnippet
	}
	return item
}

func (s *Server) handleFormatting(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.DocumentFormattingParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	doc, ok := s.store.Get(string(p.TextDocument.URI))
	if !ok {
		return nil, nil
	}

	log.Printf("formatting: %s", uriToPath(p.TextDocument.URI))

	formatted := string(format.Format([]byte(doc.Text), s.fmtOpts))

	// If no changes, return empty edits
	if formatted == doc.Text {
		return []protocol.TextEdit{}, nil
	}

	// Return a single edit that replaces the entire document
	lines := strings.Count(doc.Text, "\n")
	lastLineLen := len(doc.Text)
	if idx := strings.LastIndex(doc.Text, "\n"); idx >= 0 {
		lastLineLen = len(doc.Text) - idx - 1
	}

	return []protocol.TextEdit{
		{
			Range: protocol.Range{
				Start: protocol.Position{Line: 0, Character: 0},
				End:   protocol.Position{Line: uint32(lines), Character: uint32(lastLineLen)},
			},
			NewText: formatted,
		},
	}, nil
}

func (s *Server) handleDocumentSymbol(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.DocumentSymbolParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	doc, ok := s.store.Get(string(p.TextDocument.URI))
	if !ok {
		return []protocol.DocumentSymbol{}, nil
	}

	log.Printf("documentSymbol: %s", uriToPath(p.TextDocument.URI))

	decls := lang.ScanDecls(doc.Text)
	symbols := make([]protocol.DocumentSymbol, 0, len(decls))
	for _, d := range decls {
		symbols = append(symbols, protocol.DocumentSymbol{
			Name:           d.Name,
			Detail:         d.Kind.String() + " " + d.Name,
			Kind:           declSymbolKind(d.Kind),
			Range:          declRange(d),
			SelectionRange: declRange(d),
		})
	}

	return symbols, nil
}

// declSymbolKind maps a declaration form to an LSP symbol kind.
func declSymbolKind(k lang.DeclKind) protocol.SymbolKind {
	switch k {
	case lang.DeclProcedure, lang.DeclFunction:
		return protocol.SymbolKindFunction
	case lang.DeclExperiment:
		return protocol.SymbolKindNamespace
	case lang.DeclConst:
		return protocol.SymbolKindConstant
	case lang.DeclTensor:
		return protocol.SymbolKindArray
	default:
		return protocol.SymbolKindVariable
	}
}

// declRange returns the range of a declaration's name.
func declRange(d lang.Decl) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: uint32(d.Line), Character: uint32(d.Col)},
		End:   protocol.Position{Line: uint32(d.Line), Character: uint32(d.Col + len(d.Name))},
	}
}

// docLineCol resolves a protocol position to the document line text and the
// byte column within it.
func docLineCol(doc *source.Document, pos protocol.Position) (line string, col int, ok bool) {
	offset, err := doc.OffsetAt(source.Position{Line: int(pos.Line), Character: int(pos.Character)})
	if err != nil {
		return "", 0, false
	}
	lineStart, err := doc.OffsetAt(source.Position{Line: int(pos.Line)})
	if err != nil {
		return "", 0, false
	}
	return doc.Line(int(pos.Line)), offset - lineStart, true
}

// lspRange converts byte offsets in a document to a protocol range.
func lspRange(doc *source.Document, start, end int) protocol.Range {
	return protocol.Range{
		Start: lspPosition(doc.PositionAt(start)),
		End:   lspPosition(doc.PositionAt(end)),
	}
}

func lspPosition(p source.Position) protocol.Position {
	return protocol.Position{Line: uint32(p.Line), Character: uint32(p.Character)}
}

// uriToPath converts a document URI to a file path.
// Handles file:// URIs and returns just the path component.
func uriToPath(uri protocol.DocumentURI) string {
	s := string(uri)
	if strings.HasPrefix(s, "file://") {
		return s[7:] // Remove "file://"
	}
	return s
}

// pathToURI converts a file path to a document URI.
func pathToURI(path string) protocol.DocumentURI {
	return protocol.DocumentURI("file://" + path)
}
