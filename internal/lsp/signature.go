package lsp

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/synthlang/synkit/internal/synth/lang"
)

// handleSignatureHelp returns the signature of the call surrounding the
// cursor, with the active parameter derived from the commas typed so far.
func (s *Server) handleSignatureHelp(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.SignatureHelpParams
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

	name, argIndex, ok := findCallContext(line, col)
	if !ok {
		return nil, nil
	}
	log.Printf("signatureHelp: %q arg=%d @ %d:%d", name, argIndex, p.Position.Line, p.Position.Character)

	sig, ok := signatureFor(doc.Text, name)
	if !ok {
		return nil, nil
	}

	active := uint32(0)
	if n := len(sig.Parameters); n > 0 {
		if argIndex >= n {
			argIndex = n - 1
		}
		active = uint32(argIndex)
	}

	return &protocol.SignatureHelp{
		Signatures:      []protocol.SignatureInformation{sig},
		ActiveSignature: 0,
		ActiveParameter: active,
	}, nil
}

// signatureFor resolves name against builtins first, then against callable
// declarations in the document.
func signatureFor(content, name string) (protocol.SignatureInformation, bool) {
	if b, ok := lang.LookupBuiltin(name); ok {
		return protocol.SignatureInformation{
			Label:         b.Signature,
			Documentation: b.Doc,
			Parameters:    parseParameters(b.Signature),
		}, true
	}

	decl, ok := lang.FindDecl(content, name)
	if !ok || !decl.Kind.IsCallable() {
		return protocol.SignatureInformation{}, false
	}

	label := declSignature(content, decl)
	return protocol.SignatureInformation{
		Label:      label,
		Parameters: parseParameters(label),
	}, true
}

// declSignature reconstructs "name(a, b)" from the declaration line.
func declSignature(content string, decl lang.Decl) string {
	lines := strings.Split(content, "\n")
	if decl.Line >= len(lines) {
		return decl.Name + "()"
	}
	line := lines[decl.Line]

	open := strings.Index(line[decl.Col:], "(")
	if open < 0 {
		return decl.Name + "()"
	}
	open += decl.Col

	depth := 0
	for i := open; i < len(line); i++ {
		switch line[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return decl.Name + line[open:i+1]
			}
		}
	}
	return decl.Name + line[open:] + ")"
}

// parseParameters splits the parenthesized part of a signature label into
// parameter entries.
func parseParameters(label string) []protocol.ParameterInformation {
	open := strings.Index(label, "(")
	end := strings.LastIndex(label, ")")
	if open < 0 || end <= open {
		return nil
	}
	inner := strings.TrimSpace(label[open+1 : end])
	if inner == "" {
		return nil
	}

	params := make([]protocol.ParameterInformation, 0, 4)
	for _, part := range strings.Split(inner, ",") {
		params = append(params, protocol.ParameterInformation{
			Label: strings.TrimSpace(part),
		})
	}
	return params
}

// findCallContext scans backward from col for the unclosed call the cursor
// sits inside. It returns the callee name and the zero-based argument index.
func findCallContext(line string, col int) (string, int, bool) {
	if col > len(line) {
		col = len(line)
	}

	parenDepth := 0
	bracketDepth := 0
	braceDepth := 0
	inString := false
	commas := 0

	for i := col - 1; i >= 0; i-- {
		ch := line[i]

		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case ')':
			parenDepth++
		case '(':
			if parenDepth == 0 {
				name := callNameBefore(line, i)
				if name == "" {
					return "", 0, false
				}
				return name, commas, true
			}
			parenDepth--
		case ']':
			bracketDepth++
		case '[':
			bracketDepth--
		case '}':
			braceDepth++
		case '{':
			braceDepth--
		case ',':
			if parenDepth == 0 && bracketDepth == 0 && braceDepth == 0 {
				commas++
			}
		}
	}

	return "", 0, false
}

// callNameBefore extracts the identifier immediately preceding the opening
// paren at index parenPos.
func callNameBefore(line string, parenPos int) string {
	end := parenPos
	for end > 0 && (line[end-1] == ' ' || line[end-1] == '\t') {
		end--
	}
	start := end
	for start > 0 && lang.IsIdentRune(rune(line[start-1])) {
		start--
	}
	return line[start:end]
}
