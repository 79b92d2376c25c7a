package lsp

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/synthlang/synkit/internal/synth/lang"
)

// handleReferences returns all references to the symbol at the given position.
func (s *Server) handleReferences(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.ReferenceParams
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

	// Don't find references to keywords
	if lang.IsKeyword(word) {
		return nil, nil
	}

	log.Printf("references: %s @ %d:%d -> %q", uriToPath(p.TextDocument.URI), p.Position.Line, p.Position.Character, word)

	// The declaration is just another occurrence to the line scanner, so
	// context.includeDeclaration does not change the result.
	ranges := findWordRanges(doc.Text, word)

	refs := make([]protocol.Location, 0, len(ranges))
	for _, r := range ranges {
		refs = append(refs, protocol.Location{
			URI:   p.TextDocument.URI,
			Range: r,
		})
	}

	log.Printf("references: found %d references to %q", len(refs), word)

	return refs, nil
}

// findWordRanges finds all whole-word occurrences of word in the content.
func findWordRanges(content, word string) []protocol.Range {
	var refs []protocol.Range

	for lineNum, lineContent := range strings.Split(content, "\n") {
		offset := 0
		for {
			idx := strings.Index(lineContent[offset:], word)
			if idx == -1 {
				break
			}

			start := offset + idx
			end := start + len(word)

			// Skip matches embedded in a longer identifier
			wholeWord := true
			if start > 0 && lang.IsIdentRune(rune(lineContent[start-1])) {
				wholeWord = false
			}
			if end < len(lineContent) && lang.IsIdentRune(rune(lineContent[end])) {
				wholeWord = false
			}

			if wholeWord {
				refs = append(refs, protocol.Range{
					Start: protocol.Position{Line: uint32(lineNum), Character: uint32(start)},
					End:   protocol.Position{Line: uint32(lineNum), Character: uint32(end)},
				})
			}

			offset = end
		}
	}

	return refs
}
