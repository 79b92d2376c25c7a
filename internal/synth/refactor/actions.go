package refactor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/synthlang/synkit/internal/synth/lang"
)

// MaxExtractParams caps the parameter list built by extract function.
const MaxExtractParams = 3

// ExtractedName is the name given to functions created by extract function.
const ExtractedName = "extracted"

// extractFunction proposes replacing a multi-line selection with a call to
// a new procedure inserted before the enclosing block header.
func (e *Engine) extractFunction(text string, sel Span) (Action, bool) {
	selected := text[sel.Start:sel.End]
	if strings.TrimSpace(selected) == "" || !strings.Contains(selected, "\n") {
		return Action{}, false
	}

	params := collectParams(selected)
	header := fmt.Sprintf("procedure %s(%s) {", ExtractedName, strings.Join(params, ", "))

	// The call keeps the selection's leading indentation and trailing
	// newline so the surrounding block stays well formed.
	call := indentOf(selected) + fmt.Sprintf("%s(%s)", ExtractedName, strings.Join(params, ", "))
	if strings.HasSuffix(selected, "\n") {
		call += "\n"
	}

	var body strings.Builder
	body.WriteString(header)
	body.WriteByte('\n')
	for _, line := range strings.Split(strings.TrimRight(selected, "\n"), "\n") {
		body.WriteString("    ")
		body.WriteString(strings.TrimLeft(line, " \t"))
		body.WriteByte('\n')
	}
	body.WriteString("}\n\n")

	insertAt := insertionPoint(text, sel.Start)
	return Action{
		Title: "Extract function",
		Kind:  KindExtractFunction,
		Edits: orderEdits(
			Edit{Start: insertAt, End: insertAt, NewText: body.String()},
			Edit{Start: sel.Start, End: sel.End, NewText: call},
		),
	}, true
}

// collectParams gathers up to MaxExtractParams distinct identifiers from a
// selection, skipping keywords and gate names, in first-seen order.
func collectParams(selected string) []string {
	var params []string
	seen := make(map[string]bool)
	for _, tok := range identPattern.FindAllString(selected, -1) {
		if lang.IsKeyword(tok) || lang.IsGate(tok) {
			continue
		}
		if _, isBuiltin := lang.LookupBuiltin(tok); isBuiltin {
			continue
		}
		if seen[tok] {
			continue
		}
		seen[tok] = true
		params = append(params, tok)
		if len(params) == MaxExtractParams {
			break
		}
	}
	return params
}

var identPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// insertionPoint finds where the extracted declaration goes: the start of
// the nearest block header at or above the selection, or the start of the
// document when the selection is at top level.
func insertionPoint(text string, selStart int) int {
	offset := lineStart(text, selStart)
	for offset > 0 {
		prev := lineStart(text, offset-1)
		line := text[prev : offset-1]
		if lang.IsBlockHeader(line) {
			return prev
		}
		offset = prev
	}
	return 0
}

// extractVariable proposes hoisting a single-line selection into a let
// binding above it.
func (e *Engine) extractVariable(text string, sel Span) (Action, bool) {
	selected := text[sel.Start:sel.End]
	if strings.TrimSpace(selected) == "" || strings.Contains(selected, "\n") {
		return Action{}, false
	}

	name := variableName(selected)
	start := lineStart(text, sel.Start)
	indent := indentOf(text[start:lineEnd(text, sel.Start)])
	decl := fmt.Sprintf("%slet %s = %s\n", indent, name, selected)

	return Action{
		Title: "Extract variable",
		Kind:  KindExtractVariable,
		Edits: orderEdits(
			Edit{Start: start, End: start, NewText: decl},
			Edit{Start: sel.Start, End: sel.End, NewText: name},
		),
	}, true
}

// variableName picks a binding name from the selection content.
func variableName(selected string) string {
	switch {
	case strings.Contains(selected, "tensor"):
		return "tensor_result"
	case strings.Contains(selected, lang.UncertaintySeparator),
		strings.Contains(selected, lang.UncertaintySeparatorASCII):
		return "uncertain_value"
	case strings.Contains(selected, "apply"), containsGate(selected):
		return "gate_result"
	case strings.Contains(selected, "measure"):
		return "measure_result"
	default:
		return "extracted_value"
	}
}

func containsGate(s string) bool {
	for _, tok := range identPattern.FindAllString(s, -1) {
		if lang.IsGate(tok) {
			return true
		}
	}
	return false
}

var inlinePattern = regexp.MustCompile(`^(\s*)(let|const)\s+([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.+?)\s*$`)

// inlineVariable proposes removing a let/const declaration and substituting
// its parenthesized value at every later use.
func (e *Engine) inlineVariable(text string, sel Span) (Action, bool) {
	start := lineStart(text, sel.Start)
	end := lineEnd(text, sel.Start)
	m := inlinePattern.FindStringSubmatch(text[start:end])
	if m == nil {
		return Action{}, false
	}
	name, value := m[3], m[4]

	// Delete the declaration line including its newline.
	deleteEnd := end
	if deleteEnd < len(text) {
		deleteEnd++
	}
	edits := []Edit{{Start: start, End: deleteEnd}}

	replacement := "(" + value + ")"
	for _, loc := range wholeWordOccurrences(text[deleteEnd:], name) {
		edits = append(edits, Edit{
			Start:   deleteEnd + loc[0],
			End:     deleteEnd + loc[1],
			NewText: replacement,
		})
	}
	return Action{
		Title: fmt.Sprintf("Inline variable '%s'", name),
		Kind:  KindInline,
		Edits: edits,
	}, true
}

// wholeWordOccurrences returns [start, end) byte spans of whole-word
// matches of name in text.
func wholeWordOccurrences(text, name string) [][2]int {
	var spans [][2]int
	offset := 0
	for {
		idx := strings.Index(text[offset:], name)
		if idx < 0 {
			return spans
		}
		idx += offset
		end := idx + len(name)
		before := idx == 0 || !lang.IsIdentRune(rune(text[idx-1]))
		after := end >= len(text) || !lang.IsIdentRune(rune(text[end]))
		if before && after {
			spans = append(spans, [2]int{idx, end})
		}
		offset = end
	}
}

var numericPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// addUncertainty proposes appending a default uncertainty term to a bare
// numeric literal.
func (e *Engine) addUncertainty(text string, sel Span) (Action, bool) {
	selected := strings.TrimSpace(text[sel.Start:sel.End])
	if !numericPattern.MatchString(selected) {
		return Action{}, false
	}
	line := text[lineStart(text, sel.Start):lineEnd(text, sel.Start)]
	if lang.HasUncertainty(line) {
		return Action{}, false
	}

	value, err := strconv.ParseFloat(selected, 64)
	if err != nil {
		return Action{}, false
	}
	margin := value * e.opts.UncertaintyPercent / 100

	return Action{
		Title: "Add uncertainty specifier",
		Kind:  KindRewrite,
		Edits: []Edit{{
			Start:   sel.Start,
			End:     sel.End,
			NewText: fmt.Sprintf("%s ± %s", selected, strconv.FormatFloat(margin, 'f', -1, 64)),
		}},
	}, true
}

// orderEdits returns the edits sorted by ascending start offset.
func orderEdits(edits ...Edit) []Edit {
	for i := 1; i < len(edits); i++ {
		for j := i; j > 0 && edits[j].Start < edits[j-1].Start; j-- {
			edits[j], edits[j-1] = edits[j-1], edits[j]
		}
	}
	return edits
}
