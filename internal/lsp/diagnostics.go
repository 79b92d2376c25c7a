package lsp

import (
	"context"
	"log"
	"sync"
	"time"

	"go.lsp.dev/protocol"

	"github.com/synthlang/synkit/internal/synth/analysis"
)

// debouncer coalesces per-key triggers into a single callback after a quiet
// period. A new trigger for the same key resets the pending timer.
type debouncer struct {
	mu     sync.Mutex
	delay  time.Duration
	timers map[string]*time.Timer
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:  delay,
		timers: make(map[string]*time.Timer),
	}
}

// trigger schedules fn after the quiet period, superseding any pending
// trigger for the same key.
func (d *debouncer) trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(d.delay, fn)
}

// cancel drops any pending trigger for key.
func (d *debouncer) cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
		delete(d.timers, key)
	}
}

// stop cancels every pending trigger.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}

// scheduleDiagnostics queues a debounced analysis run for a document. A
// burst of edits produces one run after the quiet period.
func (s *Server) scheduleDiagnostics(uri protocol.DocumentURI) {
	s.debounce.trigger(string(uri), func() {
		s.publishDiagnostics(context.Background(), uri)
	})
}

// publishDiagnostics analyzes the current snapshot of a document and
// publishes the findings.
func (s *Server) publishDiagnostics(ctx context.Context, uri protocol.DocumentURI) {
	// Guard against nil connection (e.g., in tests)
	if s.conn == nil {
		return
	}

	doc, ok := s.store.Get(string(uri))
	if !ok {
		return // closed while a run was pending
	}

	path := uriToPath(uri)
	findings := s.lintDriver.Analyze(path, doc.Text)

	diagnostics := make([]protocol.Diagnostic, 0, len(findings))
	for _, f := range findings {
		diagnostics = append(diagnostics, findingToDiagnostic(f))
	}
	if s.maxDiagnostics > 0 && len(diagnostics) > s.maxDiagnostics {
		diagnostics = diagnostics[:s.maxDiagnostics]
	}

	// An edit that landed during analysis supersedes this run; its own
	// publish is already scheduled.
	if v, ok := s.store.Version(string(uri)); !ok || v != doc.Version {
		return
	}

	if err := s.conn.Notify(ctx, "textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         uri,
		Version:     uint32(doc.Version),
		Diagnostics: diagnostics,
	}); err != nil {
		log.Printf("failed to publish diagnostics: %v", err)
	}

	log.Printf("published %d diagnostics for %s v%d", len(diagnostics), path, doc.Version)
}

// clearDiagnostics publishes an empty set for a document, removing any
// squiggles the client still shows.
func (s *Server) clearDiagnostics(ctx context.Context, uri protocol.DocumentURI) {
	if s.conn == nil {
		return
	}

	if err := s.conn.Notify(ctx, "textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	}); err != nil {
		log.Printf("failed to clear diagnostics: %v", err)
	}
}

// findingToDiagnostic converts an analysis finding to an LSP diagnostic.
func findingToDiagnostic(f analysis.Finding) protocol.Diagnostic {
	// Convert 1-based to 0-based positions
	startLine := uint32(0)
	if f.Line > 0 {
		startLine = uint32(f.Line - 1)
	}
	startChar := uint32(0)
	if f.Column > 0 {
		startChar = uint32(f.Column - 1)
	}
	endLine := startLine
	if f.EndLine > 0 {
		endLine = uint32(f.EndLine - 1)
	}
	endChar := startChar + 1 // Default to single character
	if f.EndColumn > 0 {
		endChar = uint32(f.EndColumn - 1)
	}

	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: startLine, Character: startChar},
			End:   protocol.Position{Line: endLine, Character: endChar},
		},
		Severity: severityToLSP(f.Severity),
		Code:     f.Rule,
		Source:   "synlint",
		Message:  f.Message,
	}
}

// severityToLSP converts analysis severity to LSP severity.
// Analysis: Error=0, Warning=1, Info=2, Hint=3
// LSP: Error=1, Warning=2, Information=3, Hint=4
func severityToLSP(s analysis.Severity) protocol.DiagnosticSeverity {
	switch s {
	case analysis.SeverityError:
		return protocol.DiagnosticSeverityError
	case analysis.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case analysis.SeverityInfo:
		return protocol.DiagnosticSeverityInformation
	case analysis.SeverityHint:
		return protocol.DiagnosticSeverityHint
	default:
		return protocol.DiagnosticSeverityWarning
	}
}
