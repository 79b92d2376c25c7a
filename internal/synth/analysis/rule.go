// Package analysis provides the Synth diagnostics engine: a registry of
// line-scan rules and a driver that runs them over document text.
//
// The rules are heuristic analyzers, not a grammar-correct parser. They scan
// line by line, which keeps them fast and dependency-free but means a rule
// like unmatched-brackets will flag blocks that are legitimately split
// across lines. Each rule's Doc states its limitation.
package analysis

// Severity represents the severity level of a finding.
type Severity int

const (
	// SeverityError indicates a structural defect.
	SeverityError Severity = iota
	// SeverityWarning indicates a likely mistake that does not block analysis.
	SeverityWarning
	// SeverityInfo indicates informational findings.
	SeverityInfo
	// SeverityHint indicates suggestions for improvement.
	SeverityHint
)

// String returns the string representation of the Severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// Rule defines a single analysis rule.
type Rule struct {
	// Name is the unique kebab-case identifier (e.g. "unmatched-brackets").
	Name string

	// Doc is a one-line description of what this rule checks.
	Doc string

	// Category groups related rules (e.g. "structure", "uncertainty").
	Category string

	// Severity is the default severity for findings from this rule.
	Severity Severity

	// AutoFix indicates whether this rule attaches replacements.
	AutoFix bool

	// Run executes the rule against a pass and reports findings.
	Run func(*Pass) error
}

// Pass provides context to a running rule.
type Pass struct {
	// Path is the path or URI of the text being analyzed. May be empty for
	// in-memory analysis.
	Path string

	// Text is the full source text.
	Text string

	// Lines is Text split on newlines, without terminators.
	Lines []string

	// lineOffsets[i] is the byte offset of the start of Lines[i] in Text.
	lineOffsets []int

	// Config holds per-rule configuration options.
	Config RuleConfig

	// Report is called to report a finding.
	Report func(Finding)
}

// LineOffset returns the byte offset of the start of 0-based line i in Text.
func (p *Pass) LineOffset(i int) int {
	if i < 0 || i >= len(p.lineOffsets) {
		return len(p.Text)
	}
	return p.lineOffsets[i]
}

// RuleConfig holds per-rule configuration options.
type RuleConfig struct {
	// Severity overrides the rule's default severity.
	// Zero value means use the rule's default.
	Severity Severity

	// Options holds rule-specific configuration.
	Options map[string]any
}

// Finding represents one diagnostic produced by a rule.
type Finding struct {
	// Path is the path or URI of the text containing this finding.
	Path string

	// Severity is the severity of this finding.
	Severity Severity

	// Message is a human-readable description of the issue.
	Message string

	// Line is the 1-based line number where the issue starts.
	Line int

	// Column is the 1-based column number where the issue starts.
	Column int

	// EndLine is the 1-based line number where the issue ends.
	EndLine int

	// EndColumn is the 1-based column number where the issue ends.
	EndColumn int

	// Rule is the name of the rule that produced this finding.
	Rule string

	// Category is the category of the rule.
	Category string

	// Replacement is an optional suggested fix.
	Replacement *Replacement
}

// Replacement represents a suggested fix for a finding.
type Replacement struct {
	// Content is the replacement text.
	Content string

	// Start is the byte offset where the replacement starts.
	Start int

	// End is the byte offset where the replacement ends.
	End int
}

// Result represents the outcome of analyzing one or more files.
type Result struct {
	// Files is the number of files that were analyzed.
	Files int

	// Findings is the list of all findings.
	Findings []Finding

	// Errors is the list of files that could not be analyzed.
	Errors []FileError
}

// FileError represents an error that occurred while analyzing a file.
type FileError struct {
	// Path is the path to the file.
	Path string

	// Err is the error that occurred.
	Err error
}

// HasErrors returns true if any finding has error severity.
func (r *Result) HasErrors() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of findings with error severity.
func (r *Result) ErrorCount() int {
	count := 0
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			count++
		}
	}
	return count
}

// WarningCount returns the number of findings with warning severity.
func (r *Result) WarningCount() int {
	count := 0
	for _, f := range r.Findings {
		if f.Severity == SeverityWarning {
			count++
		}
	}
	return count
}
