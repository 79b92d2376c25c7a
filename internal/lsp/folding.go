package lsp

import (
	"context"
	"encoding/json"
	"strings"

	"go.lsp.dev/protocol"
)

// handleFoldingRange returns folding ranges for the document's brace blocks.
func (s *Server) handleFoldingRange(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.FoldingRangeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}

	doc, ok := s.store.Get(string(p.TextDocument.URI))
	if !ok {
		return []protocol.FoldingRange{}, nil
	}

	return foldingRanges(doc.Text), nil
}

// foldingRanges pairs braces by line. Every multi-line {...} block becomes a
// region, innermost blocks emitted first.
func foldingRanges(content string) []protocol.FoldingRange {
	ranges := []protocol.FoldingRange{}
	var open []int // line numbers of unmatched opening braces

	for lineNum, line := range strings.Split(content, "\n") {
		// Braces inside a trailing comment do not open or close blocks.
		code := line
		if i := strings.Index(code, "//"); i >= 0 {
			code = code[:i]
		}

		for _, ch := range code {
			switch ch {
			case '{':
				open = append(open, lineNum)
			case '}':
				if len(open) == 0 {
					continue // unbalanced; analysis flags it
				}
				start := open[len(open)-1]
				open = open[:len(open)-1]
				if lineNum > start {
					ranges = append(ranges, protocol.FoldingRange{
						StartLine: uint32(start),
						EndLine:   uint32(lineNum),
						Kind:      protocol.RegionFoldingRange,
					})
				}
			}
		}
	}

	return ranges
}
