package lsp

import (
	"context"
	"encoding/json"
	"testing"

	"go.lsp.dev/protocol"
)

func requestCodeActions(t *testing.T, server *Server, uri string, rng protocol.Range) []protocol.CodeAction {
	t.Helper()

	params, _ := json.Marshal(protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
		Range:        rng,
	})
	result, err := server.Handle(context.Background(), &Request{
		JSONRPC: "2.0",
		ID:      rawID(1),
		Method:  "textDocument/codeAction",
		Params:  params,
	})
	if err != nil {
		t.Fatalf("codeAction failed: %v", err)
	}

	actions, ok := result.([]protocol.CodeAction)
	if !ok {
		t.Fatalf("result is not []CodeAction: %T", result)
	}
	return actions
}

func TestCodeActionSelection(t *testing.T) {
	server := newTestServer(t)
	openTestDoc(t, server, "file:///test.syn", "let m = 5\n")

	// Select the bare "5"
	actions := requestCodeActions(t, server, "file:///test.syn", protocol.Range{
		Start: protocol.Position{Line: 0, Character: 8},
		End:   protocol.Position{Line: 0, Character: 9},
	})

	// Extract variable, inline variable, add uncertainty
	if len(actions) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(actions))
	}

	titles := make([]string, len(actions))
	for i, a := range actions {
		titles[i] = a.Title
	}
	want := []string{"Extract variable", "Inline variable 'm'", "Add uncertainty specifier"}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("actions[%d].Title = %q, want %q", i, titles[i], want[i])
		}
	}

	// The add-uncertainty action appends the default 5% spread
	add := actions[2]
	if add.Kind != protocol.RefactorRewrite {
		t.Errorf("Kind = %q, want refactor.rewrite", add.Kind)
	}
	if add.Edit == nil {
		t.Fatal("action has no edit")
	}
	edits := add.Edit.Changes["file:///test.syn"]
	if len(edits) != 1 {
		t.Fatalf("expected 1 edit, got %d", len(edits))
	}
	if edits[0].NewText != "5 ± 0.25" {
		t.Errorf("NewText = %q, want %q", edits[0].NewText, "5 ± 0.25")
	}
}

func TestCodeActionQuickFix(t *testing.T) {
	server := newTestServer(t)
	openTestDoc(t, server, "file:///test.syn", "experiment demo {\n")

	actions := requestCodeActions(t, server, "file:///test.syn", protocol.Range{
		Start: protocol.Position{Line: 0, Character: 0},
		End:   protocol.Position{Line: 0, Character: 0},
	})

	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}

	fix := actions[0]
	if fix.Title != "Add missing closing bracket" {
		t.Errorf("Title = %q, want %q", fix.Title, "Add missing closing bracket")
	}
	if fix.Kind != protocol.QuickFix {
		t.Errorf("Kind = %q, want quickfix", fix.Kind)
	}
	if fix.Edit == nil {
		t.Fatal("quick fix has no edit")
	}

	edits := fix.Edit.Changes["file:///test.syn"]
	if len(edits) != 1 {
		t.Fatalf("expected 1 edit, got %d", len(edits))
	}
	if edits[0].NewText != "}" {
		t.Errorf("NewText = %q, want %q", edits[0].NewText, "}")
	}
	if edits[0].Range.Start.Character != 17 {
		t.Errorf("edit at char %d, want 17 (end of line)", edits[0].Range.Start.Character)
	}
}

func TestCodeActionUnknownDocument(t *testing.T) {
	server := newTestServer(t)

	actions := requestCodeActions(t, server, "file:///missing.syn", protocol.Range{})

	if len(actions) != 0 {
		t.Errorf("expected 0 actions for unknown document, got %d", len(actions))
	}
}
