// Package refactor proposes code actions for Synth selections: extract
// function, extract variable, inline variable, add uncertainty, and quick
// fixes derived from analysis findings.
//
// Every action carries a set of edits that must be applied together.
// Preconditions gate each proposal; when they fail the action is simply not
// offered, never errored.
package refactor

import (
	"strings"

	"github.com/synthlang/synkit/internal/synth/analysis"
)

// Edit is one textual change, as byte offsets into the document.
type Edit struct {
	// Start is the byte offset where the edit begins.
	Start int

	// End is the byte offset where the edit ends (exclusive).
	End int

	// NewText replaces the [Start, End) span.
	NewText string
}

// Action kinds, following the LSP code-action kind hierarchy.
const (
	KindQuickFix        = "quickfix"
	KindExtractFunction = "refactor.extract.function"
	KindExtractVariable = "refactor.extract.variable"
	KindInline          = "refactor.inline"
	KindRewrite         = "refactor.rewrite"
)

// Action is one proposed code action. Edits apply atomically: a client
// applies all of them or none.
type Action struct {
	// Title is the user-visible action title.
	Title string

	// Kind is the action kind constant.
	Kind string

	// Edits is the atomic edit set, ordered by ascending start offset.
	Edits []Edit
}

// Span is a byte-offset selection into a document.
type Span struct {
	Start int
	End   int
}

// Options configures the engine.
type Options struct {
	// UncertaintyPercent is the default uncertainty attached by the add-
	// uncertainty action, as a percentage of the value. Zero means 5.
	UncertaintyPercent float64
}

// DefaultUncertaintyPercent is the uncertainty attached when no percentage
// is configured.
const DefaultUncertaintyPercent = 5

// Engine proposes code actions.
type Engine struct {
	opts Options
}

// NewEngine creates an engine with the given options.
func NewEngine(opts Options) *Engine {
	if opts.UncertaintyPercent <= 0 {
		opts.UncertaintyPercent = DefaultUncertaintyPercent
	}
	return &Engine{opts: opts}
}

// Actions proposes the actions available for a selection. findings are the
// analysis findings overlapping the selection; their attached replacements
// become quick fixes. The selection span is clamped to the text bounds.
func (e *Engine) Actions(text string, sel Span, findings []analysis.Finding) []Action {
	sel = clampSpan(sel, len(text))

	var actions []Action
	for _, f := range findings {
		if a, ok := quickFix(f); ok {
			actions = append(actions, a)
		}
	}
	if a, ok := e.extractFunction(text, sel); ok {
		actions = append(actions, a)
	}
	if a, ok := e.extractVariable(text, sel); ok {
		actions = append(actions, a)
	}
	if a, ok := e.inlineVariable(text, sel); ok {
		actions = append(actions, a)
	}
	if a, ok := e.addUncertainty(text, sel); ok {
		actions = append(actions, a)
	}
	return actions
}

// quickFix turns a finding's replacement into an action.
func quickFix(f analysis.Finding) (Action, bool) {
	if f.Replacement == nil {
		return Action{}, false
	}

	title := "Apply suggested fix"
	switch f.Rule {
	case "unmatched-brackets":
		title = "Add missing closing bracket"
	case "lowercase-gate":
		title = "Uppercase gate name"
	}

	return Action{
		Title: title,
		Kind:  KindQuickFix,
		Edits: []Edit{{
			Start:   f.Replacement.Start,
			End:     f.Replacement.End,
			NewText: f.Replacement.Content,
		}},
	}, true
}

func clampSpan(sel Span, n int) Span {
	if sel.Start < 0 {
		sel.Start = 0
	}
	if sel.End > n {
		sel.End = n
	}
	if sel.End < sel.Start {
		sel.End = sel.Start
	}
	return sel
}

// Apply applies edits to text. Edits must not overlap; they are applied
// from the end of the text backwards so earlier offsets stay valid.
func Apply(text string, edits []Edit) string {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Start < sorted[j-1].Start; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	for i := len(sorted) - 1; i >= 0; i-- {
		e := sorted[i]
		if e.Start < 0 || e.End > len(text) || e.End < e.Start {
			continue
		}
		text = text[:e.Start] + e.NewText + text[e.End:]
	}
	return text
}

// lineStart returns the byte offset of the start of the line containing
// offset.
func lineStart(text string, offset int) int {
	return strings.LastIndexByte(text[:offset], '\n') + 1
}

// lineEnd returns the byte offset just past the last character of the line
// containing offset, excluding the newline.
func lineEnd(text string, offset int) int {
	if nl := strings.IndexByte(text[offset:], '\n'); nl >= 0 {
		return offset + nl
	}
	return len(text)
}

// indentOf returns the leading whitespace of the line.
func indentOf(line string) string {
	for i, r := range line {
		if r != ' ' && r != '\t' {
			return line[:i]
		}
	}
	return line
}
