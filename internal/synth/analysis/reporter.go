package analysis

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/synthlang/synkit/internal/synth/sortutil"
)

// Reporter formats and outputs analysis results.
type Reporter interface {
	// Report writes the results to the writer.
	Report(w io.Writer, result *Result) error
}

// TextReporter outputs findings in human-readable text format, one finding
// per line: file:line:column: severity: message (rule).
type TextReporter struct {
	// ShowRule includes the rule name in the output.
	ShowRule bool
}

// NewTextReporter creates a new text reporter with default settings.
func NewTextReporter() *TextReporter {
	return &TextReporter{ShowRule: true}
}

// Report implements the Reporter interface for text output.
func (r *TextReporter) Report(w io.Writer, result *Result) error {
	if len(result.Findings) == 0 && len(result.Errors) == 0 {
		return nil
	}

	sorted := make([]Finding, len(result.Findings))
	copy(sorted, result.Findings)
	sortutil.ByLocation(sorted,
		func(f Finding) string { return f.Path },
		func(f Finding) int { return f.Line },
		func(f Finding) int { return f.Column },
	)

	// Findings grouped by file, blank line between files
	var currentFile string
	for _, finding := range sorted {
		if finding.Path != currentFile {
			if currentFile != "" {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			currentFile = finding.Path
		}

		if err := r.reportFinding(w, finding); err != nil {
			return err
		}
	}

	for _, fileErr := range result.Errors {
		if _, err := fmt.Fprintf(w, "Error processing %s: %v\n", fileErr.Path, fileErr.Err); err != nil {
			return err
		}
	}

	if len(sorted) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		r.reportSummary(w, result)
	}

	return nil
}

// reportFinding outputs a single finding.
func (r *TextReporter) reportFinding(w io.Writer, f Finding) error {
	var parts []string

	if f.Column > 0 {
		parts = append(parts, fmt.Sprintf("%s:%d:%d:", f.Path, f.Line, f.Column))
	} else {
		parts = append(parts, fmt.Sprintf("%s:%d:", f.Path, f.Line))
	}

	parts = append(parts, f.Severity.String()+":")
	parts = append(parts, f.Message)

	if r.ShowRule && f.Rule != "" {
		parts = append(parts, fmt.Sprintf("(%s)", f.Rule))
	}

	_, err := fmt.Fprintln(w, strings.Join(parts, " "))
	return err
}

// reportSummary outputs a summary of the results.
func (r *TextReporter) reportSummary(w io.Writer, result *Result) {
	errors := result.ErrorCount()
	warnings := result.WarningCount()

	var parts []string

	if errors > 0 {
		word := "error"
		if errors > 1 {
			word = "errors"
		}
		parts = append(parts, fmt.Sprintf("%d %s", errors, word))
	}

	if warnings > 0 {
		word := "warning"
		if warnings > 1 {
			word = "warnings"
		}
		parts = append(parts, fmt.Sprintf("%d %s", warnings, word))
	}

	if len(parts) > 0 {
		_, _ = fmt.Fprintf(w, "Found %s in %d file(s)\n", strings.Join(parts, ", "), result.Files)
	}
}

// JSONReporter outputs findings in JSON format for CI integration.
type JSONReporter struct{}

// NewJSONReporter creates a new JSON reporter.
func NewJSONReporter() *JSONReporter {
	return &JSONReporter{}
}

// jsonOutput represents the root JSON structure.
type jsonOutput struct {
	Files   []jsonFile  `json:"files"`
	Summary jsonSummary `json:"summary"`
}

// jsonFile represents a file and its findings.
type jsonFile struct {
	Path     string        `json:"path"`
	Findings []jsonFinding `json:"findings"`
}

// jsonFinding represents a single finding.
type jsonFinding struct {
	Rule      string `json:"rule"`
	Category  string `json:"category"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"end_line,omitempty"`
	EndColumn int    `json:"end_column,omitempty"`
	Fixable   bool   `json:"fixable,omitempty"`
}

// jsonSummary represents summary statistics.
type jsonSummary struct {
	TotalFiles    int             `json:"total_files"`
	TotalFindings int             `json:"total_findings"`
	Errors        int             `json:"errors"`
	Warnings      int             `json:"warnings"`
	Fixable       int             `json:"fixable"`
	BySeverity    map[string]int  `json:"by_severity"`
	ByRule        map[string]int  `json:"by_rule"`
	FileErrors    []jsonFileError `json:"file_errors,omitempty"`
}

// jsonFileError represents an error that occurred while processing a file.
type jsonFileError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Report implements the Reporter interface for JSON output.
func (r *JSONReporter) Report(w io.Writer, result *Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r.buildOutput(result))
}

// buildOutput constructs the JSON output structure from the result.
// Files appear in the order their first finding was reported.
func (r *JSONReporter) buildOutput(result *Result) jsonOutput {
	fileMap := make(map[string]int)
	files := []jsonFile{}
	for _, f := range result.Findings {
		i, seen := fileMap[f.Path]
		if !seen {
			i = len(files)
			fileMap[f.Path] = i
			files = append(files, jsonFile{Path: f.Path, Findings: []jsonFinding{}})
		}
		files[i].Findings = append(files[i].Findings, jsonFinding{
			Rule:      f.Rule,
			Category:  f.Category,
			Severity:  f.Severity.String(),
			Message:   f.Message,
			Line:      f.Line,
			Column:    f.Column,
			EndLine:   f.EndLine,
			EndColumn: f.EndColumn,
			Fixable:   f.Replacement != nil,
		})
	}

	summary := jsonSummary{
		TotalFiles:    result.Files,
		TotalFindings: len(result.Findings),
		Errors:        result.ErrorCount(),
		Warnings:      result.WarningCount(),
		Fixable:       FixableCount(result.Findings),
		BySeverity:    make(map[string]int),
		ByRule:        make(map[string]int),
	}
	for _, f := range result.Findings {
		summary.BySeverity[f.Severity.String()]++
		if f.Rule != "" {
			summary.ByRule[f.Rule]++
		}
	}

	if len(result.Errors) > 0 {
		summary.FileErrors = make([]jsonFileError, len(result.Errors))
		for i, err := range result.Errors {
			summary.FileErrors[i] = jsonFileError{
				Path:    err.Path,
				Message: err.Err.Error(),
			}
		}
	}

	return jsonOutput{Files: files, Summary: summary}
}
