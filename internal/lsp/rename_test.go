package lsp

import (
	"context"
	"encoding/json"
	"testing"

	"go.lsp.dev/protocol"
)

func TestRenameVariable(t *testing.T) {
	server := newTestServer(t)

	code := `let q0 = qubit(1)
apply H q0
measure q0 -> m
`
	openTestDoc(t, server, "file:///test.syn", code)

	renameParams, _ := json.Marshal(protocol.RenameParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{
				URI: "file:///test.syn",
			},
			Position: protocol.Position{Line: 0, Character: 4},
		},
		NewName: "control",
	})

	result, err := server.Handle(context.Background(), &Request{
		Method: "textDocument/rename",
		ID:     rawID(1),
		Params: renameParams,
	})

	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}

	workspaceEdit, ok := result.(*protocol.WorkspaceEdit)
	if !ok {
		t.Fatalf("result is not *WorkspaceEdit: %T", result)
	}

	edits := workspaceEdit.Changes["file:///test.syn"]
	if len(edits) != 3 {
		t.Errorf("expected 3 edits, got %d", len(edits))
		for i, e := range edits {
			t.Logf("edit %d: line %d, char %d-%d, text=%q", i, e.Range.Start.Line, e.Range.Start.Character, e.Range.End.Character, e.NewText)
		}
	}

	for _, e := range edits {
		if e.NewText != "control" {
			t.Errorf("expected NewText=%q, got %q", "control", e.NewText)
		}
	}
}

func TestRenameDoesNotTouchLongerIdentifiers(t *testing.T) {
	server := newTestServer(t)

	code := "let q0 = qubit(1)\nlet q01 = qubit(1)\napply CNOT q0 q01\n"
	openTestDoc(t, server, "file:///test.syn", code)

	renameParams, _ := json.Marshal(protocol.RenameParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{
				URI: "file:///test.syn",
			},
			Position: protocol.Position{Line: 0, Character: 4},
		},
		NewName: "anc",
	})

	result, err := server.Handle(context.Background(), &Request{
		Method: "textDocument/rename",
		ID:     rawID(1),
		Params: renameParams,
	})

	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}

	workspaceEdit, ok := result.(*protocol.WorkspaceEdit)
	if !ok {
		t.Fatalf("result is not *WorkspaceEdit: %T", result)
	}

	// q0 on lines 0 and 2; q01 untouched
	edits := workspaceEdit.Changes["file:///test.syn"]
	if len(edits) != 2 {
		t.Errorf("expected 2 edits, got %d", len(edits))
	}
}

func TestRenameRejectsReservedNames(t *testing.T) {
	server := newTestServer(t)
	openTestDoc(t, server, "file:///test.syn", "let x = sample(d, 10)\napply H q0\n")

	// "let" at 0:1, "sample" at 0:10, "H" at 1:6
	tests := []struct {
		name string
		pos  protocol.Position
	}{
		{"keyword", protocol.Position{Line: 0, Character: 1}},
		{"builtin", protocol.Position{Line: 0, Character: 10}},
		{"gate", protocol.Position{Line: 1, Character: 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renameParams, _ := json.Marshal(protocol.RenameParams{
				TextDocumentPositionParams: protocol.TextDocumentPositionParams{
					TextDocument: protocol.TextDocumentIdentifier{
						URI: "file:///test.syn",
					},
					Position: tt.pos,
				},
				NewName: "renamed",
			})

			result, err := server.Handle(context.Background(), &Request{
				Method: "textDocument/rename",
				ID:     rawID(1),
				Params: renameParams,
			})

			if err != nil {
				t.Fatalf("rename failed: %v", err)
			}
			if result != nil {
				t.Errorf("expected nil for reserved name, got %v", result)
			}
		})
	}
}

func TestRenameRejectsInvalidNewName(t *testing.T) {
	server := newTestServer(t)
	openTestDoc(t, server, "file:///test.syn", "let q0 = qubit(1)\n")

	for _, newName := range []string{"", "1abc", "has space", "let"} {
		renameParams, _ := json.Marshal(protocol.RenameParams{
			TextDocumentPositionParams: protocol.TextDocumentPositionParams{
				TextDocument: protocol.TextDocumentIdentifier{
					URI: "file:///test.syn",
				},
				Position: protocol.Position{Line: 0, Character: 4},
			},
			NewName: newName,
		})

		result, err := server.Handle(context.Background(), &Request{
			Method: "textDocument/rename",
			ID:     rawID(1),
			Params: renameParams,
		})

		if err != nil {
			t.Fatalf("rename failed: %v", err)
		}
		if result != nil {
			t.Errorf("NewName %q: expected nil, got %v", newName, result)
		}
	}
}

func TestPrepareRename(t *testing.T) {
	server := newTestServer(t)
	openTestDoc(t, server, "file:///test.syn", "let q0 = qubit(1)\n")

	// A user symbol yields its exact range
	params, _ := json.Marshal(protocol.PrepareRenameParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{
				URI: "file:///test.syn",
			},
			Position: protocol.Position{Line: 0, Character: 5},
		},
	})
	result, err := server.Handle(context.Background(), &Request{
		Method: "textDocument/prepareRename",
		ID:     rawID(1),
		Params: params,
	})
	if err != nil {
		t.Fatalf("prepareRename failed: %v", err)
	}

	rng, ok := result.(*protocol.Range)
	if !ok {
		t.Fatalf("result is not *Range: %T", result)
	}
	if rng.Start.Character != 4 || rng.End.Character != 6 {
		t.Errorf("range = %d-%d, want 4-6", rng.Start.Character, rng.End.Character)
	}

	// A keyword yields nil
	kwParams, _ := json.Marshal(protocol.PrepareRenameParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{
				URI: "file:///test.syn",
			},
			Position: protocol.Position{Line: 0, Character: 1},
		},
	})
	result, err = server.Handle(context.Background(), &Request{
		Method: "textDocument/prepareRename",
		ID:     rawID(2),
		Params: kwParams,
	})
	if err != nil {
		t.Fatalf("prepareRename failed: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil for keyword, got %v", result)
	}
}
