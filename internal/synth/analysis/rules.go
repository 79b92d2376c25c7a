package analysis

import (
	"regexp"
	"strings"

	"github.com/synthlang/synkit/internal/synth/lang"
)

// UnmatchedBracketsRule flags lines whose brace counts do not balance.
// This is a per-line heuristic: a block legitimately opened on one line and
// closed on another is flagged on both. The attached replacement appends
// the missing closing braces at the end of the line.
var UnmatchedBracketsRule = &Rule{
	Name:     "unmatched-brackets",
	Doc:      "flags lines with unbalanced curly braces (per-line heuristic, not a block matcher)",
	Category: "structure",
	Severity: SeverityError,
	AutoFix:  true,
	Run:      runUnmatchedBrackets,
}

// MissingUncertaintyRule flags uncertain declarations without an
// uncertainty separator.
var MissingUncertaintyRule = &Rule{
	Name:     "missing-uncertainty",
	Doc:      "flags uncertain declarations that carry no ± term",
	Category: "uncertainty",
	Severity: SeverityWarning,
	Run:      runMissingUncertainty,
}

// EmptyBlockRule flags empty brace blocks.
var EmptyBlockRule = &Rule{
	Name:     "empty-block",
	Doc:      "flags empty { } blocks",
	Category: "structure",
	Severity: SeverityInfo,
	Run:      runEmptyBlock,
}

// LowercaseGateRule flags gate applications written in lowercase.
var LowercaseGateRule = &Rule{
	Name:     "lowercase-gate",
	Doc:      "flags known gates applied in lowercase; gate names are uppercase",
	Category: "gates",
	Severity: SeverityWarning,
	AutoFix:  true,
	Run:      runLowercaseGate,
}

// DefaultRules returns the built-in rules in registration order.
func DefaultRules() []*Rule {
	return []*Rule{
		UnmatchedBracketsRule,
		MissingUncertaintyRule,
		EmptyBlockRule,
		LowercaseGateRule,
	}
}

// NewDefaultRegistry returns a registry with all built-in rules enabled.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	// Built-in rule names are validated by tests; Register cannot fail here.
	if err := r.Register(DefaultRules()...); err != nil {
		panic(err)
	}
	return r
}

func runUnmatchedBrackets(pass *Pass) error {
	for i, line := range pass.Lines {
		opens := strings.Count(line, "{")
		closes := strings.Count(line, "}")
		if opens == closes {
			continue
		}

		f := Finding{
			Severity:  SeverityError,
			Message:   "Unmatched brackets",
			Line:      i + 1,
			Column:    1,
			EndLine:   i + 1,
			EndColumn: len(line) + 1,
		}
		if opens > closes {
			end := pass.LineOffset(i) + len(line)
			f.Replacement = &Replacement{
				Content: strings.Repeat("}", opens-closes),
				Start:   end,
				End:     end,
			}
		}
		pass.Report(f)
	}
	return nil
}

func runMissingUncertainty(pass *Pass) error {
	for i, line := range pass.Lines {
		col := indexOfWord(line, "uncertain")
		if col < 0 {
			continue
		}
		if lang.HasUncertainty(line) {
			continue
		}
		pass.Report(Finding{
			Severity:  SeverityWarning,
			Message:   "missing uncertainty specifier",
			Line:      i + 1,
			Column:    col + 1,
			EndLine:   i + 1,
			EndColumn: len(line) + 1,
		})
	}
	return nil
}

var emptyBlockPattern = regexp.MustCompile(`\{\s*\}`)

func runEmptyBlock(pass *Pass) error {
	for i, line := range pass.Lines {
		loc := emptyBlockPattern.FindStringIndex(line)
		if loc == nil {
			continue
		}
		pass.Report(Finding{
			Severity:  SeverityInfo,
			Message:   "empty block",
			Line:      i + 1,
			Column:    loc[0] + 1,
			EndLine:   i + 1,
			EndColumn: loc[1] + 1,
		})
	}
	return nil
}

var applyGatePattern = regexp.MustCompile(`\bapply\s+([a-z][a-zA-Z0-9]*)`)

func runLowercaseGate(pass *Pass) error {
	for i, line := range pass.Lines {
		m := applyGatePattern.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}
		token := line[m[2]:m[3]]
		upper := strings.ToUpper(token)
		if !lang.IsGate(upper) {
			continue
		}
		pass.Report(Finding{
			Severity:  SeverityWarning,
			Message:   "gate " + upper + " written in lowercase",
			Line:      i + 1,
			Column:    m[2] + 1,
			EndLine:   i + 1,
			EndColumn: m[3] + 1,
			Replacement: &Replacement{
				Content: upper,
				Start:   pass.LineOffset(i) + m[2],
				End:     pass.LineOffset(i) + m[3],
			},
		})
	}
	return nil
}

// indexOfWord returns the byte index of word in line when it appears as a
// whole word, or -1.
func indexOfWord(line, word string) int {
	start := 0
	for {
		idx := strings.Index(line[start:], word)
		if idx < 0 {
			return -1
		}
		idx += start
		before := idx == 0 || !lang.IsIdentRune(rune(line[idx-1]))
		afterIdx := idx + len(word)
		after := afterIdx >= len(line) || !lang.IsIdentRune(rune(line[afterIdx]))
		if before && after {
			return idx
		}
		start = idx + len(word)
	}
}
