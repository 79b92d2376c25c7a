package lsp

import (
	"context"
	"encoding/json"
	"log"

	"go.lsp.dev/protocol"

	"github.com/synthlang/synkit/internal/synth/lang"
)

// handlePrepareRename reports whether the symbol under the cursor can be
// renamed, and if so, its exact range.
func (s *Server) handlePrepareRename(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.PrepareRenameParams
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

	word, start, end := lang.WordAt(line, col)
	log.Printf("prepareRename: %q @ %d:%d", word, p.Position.Line, p.Position.Character)

	if !renameable(word) {
		return nil, nil
	}

	return &protocol.Range{
		Start: protocol.Position{Line: p.Position.Line, Character: uint32(start)},
		End:   protocol.Position{Line: p.Position.Line, Character: uint32(end)},
	}, nil
}

// handleRename renames every whole-word occurrence of the symbol under the
// cursor across the document.
func (s *Server) handleRename(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.RenameParams
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
	if !renameable(word) || !validIdentifier(p.NewName) {
		return nil, nil
	}

	edits := make([]protocol.TextEdit, 0, 4)
	for _, r := range findWordRanges(doc.Text, word) {
		edits = append(edits, protocol.TextEdit{Range: r, NewText: p.NewName})
	}
	log.Printf("rename: %q -> %q (%d edits)", word, p.NewName, len(edits))

	return &protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentURI][]protocol.TextEdit{
			p.TextDocument.URI: edits,
		},
	}, nil
}

// renameable reports whether word is a user-defined symbol. Keywords, gates,
// and builtins keep their names.
func renameable(word string) bool {
	if word == "" {
		return false
	}
	if lang.IsKeyword(word) || lang.IsGate(word) {
		return false
	}
	if _, ok := lang.LookupBuiltin(word); ok {
		return false
	}
	return true
}

// validIdentifier reports whether s can serve as a symbol name.
func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && r >= '0' && r <= '9' {
			return false
		}
		if !lang.IsIdentRune(r) {
			return false
		}
	}
	return !lang.IsKeyword(s) && !lang.IsGate(s)
}
