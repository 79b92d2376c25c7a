package lsp

import (
	"context"
	"encoding/json"
	"log"

	"go.lsp.dev/protocol"

	"github.com/synthlang/synkit/internal/synth/refactor"
	"github.com/synthlang/synkit/internal/synth/source"
)

// handleCodeAction returns quick fixes and refactorings for the given range.
func (s *Server) handleCodeAction(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.CodeActionParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	doc, ok := s.store.Get(string(p.TextDocument.URI))
	if !ok {
		return []protocol.CodeAction{}, nil
	}

	path := uriToPath(p.TextDocument.URI)
	log.Printf("codeAction: %s range=%v", path, p.Range)

	start, end, err := doc.RangeOffsets(source.Range{
		Start: source.Position{Line: int(p.Range.Start.Line), Character: int(p.Range.Start.Character)},
		End:   source.Position{Line: int(p.Range.End.Line), Character: int(p.Range.End.Character)},
	})
	if err != nil {
		log.Printf("codeAction: %v", err)
		return []protocol.CodeAction{}, nil
	}

	// Findings feed the quick fixes; the selection feeds the refactorings.
	findings := s.lintDriver.Analyze(path, doc.Text)
	proposed := s.refactor.Actions(doc.Text, refactor.Span{Start: start, End: end}, findings)

	actions := make([]protocol.CodeAction, 0, len(proposed))
	for _, a := range proposed {
		actions = append(actions, toCodeAction(&doc, p.TextDocument.URI, a))
	}

	log.Printf("codeAction: returning %d actions", len(actions))
	return actions, nil
}

// toCodeAction converts an engine action to an LSP code action with a
// workspace edit against the given document.
func toCodeAction(doc *source.Document, uri protocol.DocumentURI, a refactor.Action) protocol.CodeAction {
	edits := make([]protocol.TextEdit, 0, len(a.Edits))
	for _, e := range a.Edits {
		edits = append(edits, protocol.TextEdit{
			Range:   lspRange(doc, e.Start, e.End),
			NewText: e.NewText,
		})
	}

	return protocol.CodeAction{
		Title: a.Title,
		Kind:  protocol.CodeActionKind(a.Kind),
		Edit: &protocol.WorkspaceEdit{
			Changes: map[protocol.DocumentURI][]protocol.TextEdit{
				uri: edits,
			},
		},
	}
}
