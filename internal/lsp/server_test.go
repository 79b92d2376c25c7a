package lsp

import (
	"context"
	"encoding/json"
	"testing"

	"go.lsp.dev/protocol"

	"github.com/synthlang/synkit/internal/synth/analysis"
)

func TestServerInitialize(t *testing.T) {
	server := NewServer(nil)

	params, _ := json.Marshal(protocol.InitializeParams{
		ProcessID: 1234,
		RootURI:   "file:///workspace",
	})

	result, err := server.Handle(context.Background(), &Request{
		JSONRPC: "2.0",
		ID:      rawID(1),
		Method:  "initialize",
		Params:  params,
	})

	if err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	initResult, ok := result.(*protocol.InitializeResult)
	if !ok {
		t.Fatalf("result is not *InitializeResult: %T", result)
	}

	if initResult.ServerInfo == nil || initResult.ServerInfo.Name != "synls" {
		t.Errorf("ServerInfo = %+v, want name %q", initResult.ServerInfo, "synls")
	}

	caps := initResult.Capabilities
	if caps.HoverProvider != true {
		t.Error("HoverProvider should be true")
	}

	sync, ok := caps.TextDocumentSync.(protocol.TextDocumentSyncOptions)
	if !ok {
		t.Fatalf("TextDocumentSync is not TextDocumentSyncOptions: %T", caps.TextDocumentSync)
	}
	if !sync.OpenClose {
		t.Error("OpenClose should be true")
	}
	if sync.Change != protocol.TextDocumentSyncKindIncremental {
		t.Errorf("Change = %v, want incremental", sync.Change)
	}

	if caps.CompletionProvider == nil || len(caps.CompletionProvider.TriggerCharacters) == 0 {
		t.Error("CompletionProvider should declare trigger characters")
	}
}

func TestServerNotInitialized(t *testing.T) {
	server := NewServer(nil)

	// Try to call a method before initialization
	params, _ := json.Marshal(protocol.HoverParams{})
	_, err := server.Handle(context.Background(), &Request{
		JSONRPC: "2.0",
		ID:      rawID(1),
		Method:  "textDocument/hover",
		Params:  params,
	})

	if err == nil {
		t.Fatal("expected error for uninitialized server")
	}

	rpcErr, ok := err.(*ResponseError)
	if !ok {
		t.Fatalf("expected ResponseError, got %T", err)
	}

	if rpcErr.Code != CodeServerNotInitialized {
		t.Errorf("Code = %d, want %d", rpcErr.Code, CodeServerNotInitialized)
	}
}

func TestServerLifecycle(t *testing.T) {
	exitCalled := false
	server := NewServer(func() { exitCalled = true })

	// Initialize
	initParams, _ := json.Marshal(protocol.InitializeParams{})
	_, err := server.Handle(context.Background(), &Request{
		Method: "initialize",
		ID:     rawID(1),
		Params: initParams,
	})
	if err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	// Initialized notification (no ID)
	_, err = server.Handle(context.Background(), &Request{
		Method: "initialized",
		Params: json.RawMessage("{}"),
	})
	if err != nil {
		t.Fatalf("initialized failed: %v", err)
	}

	// Shutdown
	_, err = server.Handle(context.Background(), &Request{
		Method: "shutdown",
		ID:     rawID(2),
	})
	if err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	// After shutdown, only exit is allowed
	_, err = server.Handle(context.Background(), &Request{
		Method: "textDocument/hover",
		ID:     rawID(3),
		Params: json.RawMessage("{}"),
	})
	if err == nil {
		t.Error("expected error after shutdown")
	}

	// Exit
	_, err = server.Handle(context.Background(), &Request{
		Method: "exit",
	})
	if err != nil {
		t.Fatalf("exit failed: %v", err)
	}

	if !exitCalled {
		t.Error("exit callback was not called")
	}
}

func TestServerDocumentSync(t *testing.T) {
	server := newTestServer(t)

	// Open document
	openParams, _ := json.Marshal(protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        "file:///test.syn",
			LanguageID: "synth",
			Version:    1,
			Text:       "let x = 1\n",
		},
	})
	_, err := server.Handle(context.Background(), &Request{
		Method: "textDocument/didOpen",
		Params: openParams,
	})
	if err != nil {
		t.Fatalf("didOpen failed: %v", err)
	}

	doc, ok := server.store.Get("file:///test.syn")
	if !ok {
		t.Fatal("document not found after didOpen")
	}
	if doc.Version != 1 {
		t.Errorf("Version = %d, want 1", doc.Version)
	}

	// Incremental change: replace the "1" with "42"
	changeParams, _ := json.Marshal(didChangeParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: "file:///test.syn"},
			Version:                2,
		},
		ContentChanges: []contentChange{
			{
				Range: &protocol.Range{
					Start: protocol.Position{Line: 0, Character: 8},
					End:   protocol.Position{Line: 0, Character: 9},
				},
				Text: "42",
			},
		},
	})
	_, err = server.Handle(context.Background(), &Request{
		Method: "textDocument/didChange",
		Params: changeParams,
	})
	if err != nil {
		t.Fatalf("didChange failed: %v", err)
	}

	doc, _ = server.store.Get("file:///test.syn")
	if doc.Text != "let x = 42\n" {
		t.Errorf("Text = %q, want %q", doc.Text, "let x = 42\n")
	}
	if doc.Version != 2 {
		t.Errorf("Version = %d, want 2", doc.Version)
	}

	// Full replacement: no range
	fullParams, _ := json.Marshal(didChangeParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: "file:///test.syn"},
			Version:                3,
		},
		ContentChanges: []contentChange{
			{Text: "const y = 7\n"},
		},
	})
	_, err = server.Handle(context.Background(), &Request{
		Method: "textDocument/didChange",
		Params: fullParams,
	})
	if err != nil {
		t.Fatalf("didChange failed: %v", err)
	}

	doc, _ = server.store.Get("file:///test.syn")
	if doc.Text != "const y = 7\n" {
		t.Errorf("Text = %q, want %q", doc.Text, "const y = 7\n")
	}

	// Close document
	closeParams, _ := json.Marshal(protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{
			URI: "file:///test.syn",
		},
	})
	_, err = server.Handle(context.Background(), &Request{
		Method: "textDocument/didClose",
		Params: closeParams,
	})
	if err != nil {
		t.Fatalf("didClose failed: %v", err)
	}

	if _, ok := server.store.Get("file:///test.syn"); ok {
		t.Error("document should be removed after didClose")
	}
}

func TestServerFormatting(t *testing.T) {
	server := newTestServer(t)

	// Misindented body, ASCII uncertainty spelling
	unformatted := "procedure prep(q) {\napply H q\n}\n\nlet m = 5 +- 1\n"
	openTestDoc(t, server, "file:///test.syn", unformatted)

	fmtParams, _ := json.Marshal(protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{
			URI: "file:///test.syn",
		},
	})
	result, err := server.Handle(context.Background(), &Request{
		Method: "textDocument/formatting",
		ID:     rawID(2),
		Params: fmtParams,
	})

	if err != nil {
		t.Fatalf("formatting failed: %v", err)
	}

	edits, ok := result.([]protocol.TextEdit)
	if !ok {
		t.Fatalf("result is not []TextEdit: %T", result)
	}

	// Should have exactly one edit (whole document replacement)
	if len(edits) != 1 {
		t.Fatalf("expected 1 edit, got %d", len(edits))
	}

	formatted := edits[0].NewText
	if formatted == unformatted {
		t.Error("formatted text should differ from original")
	}
	if !containsSubstring(formatted, "    apply H q") {
		t.Errorf("body not re-indented: %q", formatted)
	}
	if !containsSubstring(formatted, "5 ± 1") {
		t.Errorf("uncertainty spelling not normalized: %q", formatted)
	}
}

func TestServerFormattingNoChange(t *testing.T) {
	server := newTestServer(t)

	formatted := "procedure prep(q) {\n    apply H q\n}\n"
	openTestDoc(t, server, "file:///test.syn", formatted)

	fmtParams, _ := json.Marshal(protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{
			URI: "file:///test.syn",
		},
	})
	result, err := server.Handle(context.Background(), &Request{
		Method: "textDocument/formatting",
		ID:     rawID(2),
		Params: fmtParams,
	})

	if err != nil {
		t.Fatalf("formatting failed: %v", err)
	}

	edits, ok := result.([]protocol.TextEdit)
	if !ok {
		t.Fatalf("result is not []TextEdit: %T", result)
	}

	if len(edits) != 0 {
		t.Errorf("expected 0 edits for already formatted code, got %d", len(edits))
	}
}

func TestServerDefinition(t *testing.T) {
	server := newTestServer(t)

	code := `const SHOTS = 100

function scale(x) {
    return x * 2
}

experiment demo {
    let y = scale(3)
}
`
	openTestDoc(t, server, "file:///test.syn", code)

	// "scale" in "    let y = scale(3)" on line 7
	defParams, _ := json.Marshal(protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{
				URI: "file:///test.syn",
			},
			Position: protocol.Position{Line: 7, Character: 13},
		},
	})
	result, err := server.Handle(context.Background(), &Request{
		Method: "textDocument/definition",
		ID:     rawID(2),
		Params: defParams,
	})

	if err != nil {
		t.Fatalf("definition failed: %v", err)
	}

	locations, ok := result.([]protocol.Location)
	if !ok {
		t.Fatalf("result is not []Location: %T", result)
	}

	if len(locations) != 1 {
		t.Fatalf("expected 1 location, got %d", len(locations))
	}

	// "function scale(x) {" is line 2, name at column 9
	if locations[0].Range.Start.Line != 2 {
		t.Errorf("definition line = %d, want 2", locations[0].Range.Start.Line)
	}
	if locations[0].Range.Start.Character != 9 {
		t.Errorf("definition column = %d, want 9", locations[0].Range.Start.Character)
	}
}

func TestServerDefinitionNotFound(t *testing.T) {
	server := newTestServer(t)
	openTestDoc(t, server, "file:///test.syn", "let x = undeclared\n")

	defParams, _ := json.Marshal(protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{
				URI: "file:///test.syn",
			},
			Position: protocol.Position{Line: 0, Character: 10},
		},
	})
	result, err := server.Handle(context.Background(), &Request{
		Method: "textDocument/definition",
		ID:     rawID(2),
		Params: defParams,
	})

	if err != nil {
		t.Fatalf("definition failed: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil for undeclared symbol, got %v", result)
	}
}

func TestServerHover(t *testing.T) {
	server := newTestServer(t)
	openTestDoc(t, server, "file:///test.syn", "uncertain mass = 5.2 ± 0.3\n")

	hoverParams, _ := json.Marshal(protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{
				URI: "file:///test.syn",
			},
			Position: protocol.Position{Line: 0, Character: 4}, // "uncertain"
		},
	})
	result, err := server.Handle(context.Background(), &Request{
		Method: "textDocument/hover",
		ID:     rawID(2),
		Params: hoverParams,
	})

	if err != nil {
		t.Fatalf("hover failed: %v", err)
	}

	hover, ok := result.(*protocol.Hover)
	if !ok {
		t.Fatalf("result is not *Hover: %T", result)
	}

	if hover.Contents.Kind != protocol.Markdown {
		t.Errorf("expected Markdown, got %v", hover.Contents.Kind)
	}
	if !containsSubstring(hover.Contents.Value, "**uncertain**") {
		t.Errorf("hover content missing keyword doc: %s", hover.Contents.Value)
	}
}

func TestServerHoverBuiltin(t *testing.T) {
	server := newTestServer(t)
	openTestDoc(t, server, "file:///test.syn", "let xs = sample(d, 100)\n")

	hoverParams, _ := json.Marshal(protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{
				URI: "file:///test.syn",
			},
			Position: protocol.Position{Line: 0, Character: 11}, // "sample"
		},
	})
	result, err := server.Handle(context.Background(), &Request{
		Method: "textDocument/hover",
		ID:     rawID(2),
		Params: hoverParams,
	})

	if err != nil {
		t.Fatalf("hover failed: %v", err)
	}

	hover, ok := result.(*protocol.Hover)
	if !ok {
		t.Fatalf("result is not *Hover: %T", result)
	}
	if !containsSubstring(hover.Contents.Value, "sample(dist, n)") {
		t.Errorf("hover content missing signature: %s", hover.Contents.Value)
	}
}

func TestServerHoverNoDoc(t *testing.T) {
	server := newTestServer(t)
	openTestDoc(t, server, "file:///test.syn", "uncertain mass = 5.2 ± 0.3\n")

	// "mass" is a user symbol with no documentation
	hoverParams, _ := json.Marshal(protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{
				URI: "file:///test.syn",
			},
			Position: protocol.Position{Line: 0, Character: 12},
		},
	})
	result, err := server.Handle(context.Background(), &Request{
		Method: "textDocument/hover",
		ID:     rawID(2),
		Params: hoverParams,
	})

	if err != nil {
		t.Fatalf("hover failed: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil hover for undocumented symbol, got %v", result)
	}
}

func TestServerDocumentSymbol(t *testing.T) {
	server := newTestServer(t)

	code := `const SHOTS = 100

uncertain mass = 5.2 ± 0.3

tensor pauli_x = [[0, 1], [1, 0]]

function scale(x) {
    return x * 2
}

experiment demo {
    let shots_used = SHOTS
}
`
	openTestDoc(t, server, "file:///test.syn", code)

	symbolParams, _ := json.Marshal(protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{
			URI: "file:///test.syn",
		},
	})
	result, err := server.Handle(context.Background(), &Request{
		Method: "textDocument/documentSymbol",
		ID:     rawID(2),
		Params: symbolParams,
	})

	if err != nil {
		t.Fatalf("documentSymbol failed: %v", err)
	}

	symbols, ok := result.([]protocol.DocumentSymbol)
	if !ok {
		t.Fatalf("result is not []DocumentSymbol: %T", result)
	}

	if len(symbols) != 6 {
		t.Errorf("expected 6 symbols, got %d", len(symbols))
		for _, s := range symbols {
			t.Logf("  symbol: %s (%v)", s.Name, s.Kind)
		}
	}

	kinds := make(map[string]protocol.SymbolKind)
	for _, s := range symbols {
		kinds[s.Name] = s.Kind
	}

	if kinds["SHOTS"] != protocol.SymbolKindConstant {
		t.Errorf("SHOTS kind = %v, want Constant", kinds["SHOTS"])
	}
	if kinds["mass"] != protocol.SymbolKindVariable {
		t.Errorf("mass kind = %v, want Variable", kinds["mass"])
	}
	if kinds["pauli_x"] != protocol.SymbolKindArray {
		t.Errorf("pauli_x kind = %v, want Array", kinds["pauli_x"])
	}
	if kinds["scale"] != protocol.SymbolKindFunction {
		t.Errorf("scale kind = %v, want Function", kinds["scale"])
	}
	if kinds["demo"] != protocol.SymbolKindNamespace {
		t.Errorf("demo kind = %v, want Namespace", kinds["demo"])
	}
}

func TestServerFoldingRange(t *testing.T) {
	server := newTestServer(t)

	code := `experiment bell {
    apply H q0
    if ok {
        apply X q1
    }
}
let n = 1 // {
`
	openTestDoc(t, server, "file:///test.syn", code)

	foldParams, _ := json.Marshal(protocol.FoldingRangeParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{
				URI: "file:///test.syn",
			},
		},
	})
	result, err := server.Handle(context.Background(), &Request{
		Method: "textDocument/foldingRange",
		ID:     rawID(2),
		Params: foldParams,
	})

	if err != nil {
		t.Fatalf("foldingRange failed: %v", err)
	}

	ranges, ok := result.([]protocol.FoldingRange)
	if !ok {
		t.Fatalf("result is not []FoldingRange: %T", result)
	}

	// The if block and the experiment block fold; the brace inside the
	// trailing comment does not open a region.
	if len(ranges) != 2 {
		t.Fatalf("expected 2 ranges, got %d: %+v", len(ranges), ranges)
	}
	if ranges[0].StartLine != 2 || ranges[0].EndLine != 4 {
		t.Errorf("inner range = %d-%d, want 2-4", ranges[0].StartLine, ranges[0].EndLine)
	}
	if ranges[1].StartLine != 0 || ranges[1].EndLine != 5 {
		t.Errorf("outer range = %d-%d, want 0-5", ranges[1].StartLine, ranges[1].EndLine)
	}
	if ranges[0].Kind != protocol.RegionFoldingRange {
		t.Errorf("Kind = %q, want region", ranges[0].Kind)
	}
}

func TestFindingToDiagnostic(t *testing.T) {
	tests := []struct {
		name        string
		finding     analysis.Finding
		wantLine    uint32
		wantChar    uint32
		wantEndChar uint32
		wantSev     protocol.DiagnosticSeverity
	}{
		{
			name: "error at line 5 col 10",
			finding: analysis.Finding{
				Line:     5,
				Column:   10,
				Severity: analysis.SeverityError,
				Message:  "test error",
				Rule:     "test-rule",
			},
			wantLine:    4, // 0-based
			wantChar:    9, // 0-based
			wantEndChar: 10, // single character default
			wantSev:     protocol.DiagnosticSeverityError,
		},
		{
			name: "warning with explicit end",
			finding: analysis.Finding{
				Line:      1,
				Column:    1,
				EndLine:   1,
				EndColumn: 15,
				Severity:  analysis.SeverityWarning,
				Message:   "test warning",
				Rule:      "warn-rule",
			},
			wantLine:    0,
			wantChar:    0,
			wantEndChar: 14,
			wantSev:     protocol.DiagnosticSeverityWarning,
		},
		{
			name: "info severity",
			finding: analysis.Finding{
				Line:     10,
				Column:   5,
				Severity: analysis.SeverityInfo,
				Message:  "info",
				Rule:     "info-rule",
			},
			wantLine:    9,
			wantChar:    4,
			wantEndChar: 5,
			wantSev:     protocol.DiagnosticSeverityInformation,
		},
		{
			name: "hint severity",
			finding: analysis.Finding{
				Line:     2,
				Column:   3,
				Severity: analysis.SeverityHint,
				Message:  "hint",
				Rule:     "hint-rule",
			},
			wantLine:    1,
			wantChar:    2,
			wantEndChar: 3,
			wantSev:     protocol.DiagnosticSeverityHint,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diag := findingToDiagnostic(tt.finding)

			if diag.Range.Start.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", diag.Range.Start.Line, tt.wantLine)
			}
			if diag.Range.Start.Character != tt.wantChar {
				t.Errorf("Character = %d, want %d", diag.Range.Start.Character, tt.wantChar)
			}
			if diag.Range.End.Character != tt.wantEndChar {
				t.Errorf("End.Character = %d, want %d", diag.Range.End.Character, tt.wantEndChar)
			}
			if diag.Severity != tt.wantSev {
				t.Errorf("Severity = %v, want %v", diag.Severity, tt.wantSev)
			}
			if diag.Source != "synlint" {
				t.Errorf("Source = %q, want %q", diag.Source, "synlint")
			}
			if diag.Code != tt.finding.Rule {
				t.Errorf("Code = %v, want %q", diag.Code, tt.finding.Rule)
			}
			if diag.Message != tt.finding.Message {
				t.Errorf("Message = %q, want %q", diag.Message, tt.finding.Message)
			}
		})
	}
}

// newTestServer returns an initialized server with no workspace root.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	server := NewServer(nil)

	initParams, _ := json.Marshal(protocol.InitializeParams{})
	if _, err := server.Handle(context.Background(), &Request{
		Method: "initialize",
		ID:     rawID(1),
		Params: initParams,
	}); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if _, err := server.Handle(context.Background(), &Request{
		Method: "initialized",
		Params: json.RawMessage("{}"),
	}); err != nil {
		t.Fatalf("initialized failed: %v", err)
	}
	return server
}

// openTestDoc opens a document on the server via didOpen.
func openTestDoc(t *testing.T, server *Server, uri, text string) {
	t.Helper()
	openParams, _ := json.Marshal(protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        protocol.DocumentURI(uri),
			LanguageID: "synth",
			Version:    1,
			Text:       text,
		},
	})
	if _, err := server.Handle(context.Background(), &Request{
		Method: "textDocument/didOpen",
		Params: openParams,
	}); err != nil {
		t.Fatalf("didOpen failed: %v", err)
	}
}

func containsSubstring(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(s) > 0 && containsSubstringHelper(s, substr))
}

func containsSubstringHelper(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func rawID(n int) *json.RawMessage {
	raw := json.RawMessage([]byte{byte('0' + n)})
	return &raw
}
