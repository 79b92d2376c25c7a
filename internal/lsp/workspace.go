package lsp

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/synthlang/synkit/internal/synth/lang"
)

// handleWorkspaceSymbol searches declarations across all open documents.
// The match is a case-insensitive substring test against the symbol name.
func (s *Server) handleWorkspaceSymbol(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.WorkspaceSymbolParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(p.Query))
	if query == "" {
		return []protocol.SymbolInformation{}, nil
	}

	uris := s.store.URIs()
	sort.Strings(uris)

	symbols := []protocol.SymbolInformation{}
	for _, uri := range uris {
		doc, ok := s.store.Get(uri)
		if !ok {
			continue
		}
		for _, d := range lang.ScanDecls(doc.Text) {
			if !strings.Contains(strings.ToLower(d.Name), query) {
				continue
			}
			symbols = append(symbols, protocol.SymbolInformation{
				Name: d.Name,
				Kind: declSymbolKind(d.Kind),
				Location: protocol.Location{
					URI:   protocol.DocumentURI(uri),
					Range: declRange(d),
				},
			})
		}
	}

	log.Printf("workspace/symbol: %q matched %d symbols", p.Query, len(symbols))
	return symbols, nil
}
