package analysis

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/synthlang/synkit/internal/synth/sortutil"
)

// FixResult represents the result of applying fixes to a file.
type FixResult struct {
	// Path is the file path.
	Path string

	// OriginalContent is the original file content.
	OriginalContent []byte

	// FixedContent is the content after applying fixes.
	FixedContent []byte

	// AppliedFixes is the number of fixes that were applied.
	AppliedFixes int

	// SkippedFixes is the number of fixes skipped due to conflicts.
	SkippedFixes int
}

// HasChanges returns true if fixes were applied.
func (r *FixResult) HasChanges() bool {
	return !bytes.Equal(r.OriginalContent, r.FixedContent)
}

// Diff returns a unified diff between original and fixed content.
func (r *FixResult) Diff() string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(r.OriginalContent)),
		B:        difflib.SplitLines(string(r.FixedContent)),
		FromFile: r.Path,
		ToFile:   r.Path,
		Context:  3,
	}
	text, _ := difflib.GetUnifiedDiffString(diff)
	return text
}

// ApplyFixes applies the given fixes to the content.
// Fixes are applied in reverse order (from end to start) to preserve byte
// offsets. When fixes overlap, the one with the earlier start position wins.
func ApplyFixes(content []byte, fixes []*Replacement) ([]byte, int, int) {
	var valid []*Replacement
	for _, fix := range fixes {
		if fix != nil && fix.Start >= 0 && fix.End >= fix.Start && fix.End <= len(content) {
			valid = append(valid, fix)
		}
	}
	if len(valid) == 0 {
		return content, 0, 0
	}

	sortutil.Asc(valid, func(f *Replacement) int { return f.Start })

	var accepted []*Replacement
	skipped := 0
	lastEnd := 0
	for _, fix := range valid {
		if fix.Start >= lastEnd {
			accepted = append(accepted, fix)
			lastEnd = fix.End
		} else {
			skipped++
		}
	}

	sortutil.Desc(accepted, func(f *Replacement) int { return f.Start })

	result := content
	for _, fix := range accepted {
		var buf bytes.Buffer
		buf.Grow(len(result) - (fix.End - fix.Start) + len(fix.Content))
		buf.Write(result[:fix.Start])
		buf.WriteString(fix.Content)
		buf.Write(result[fix.End:])
		result = buf.Bytes()
	}

	return result, len(accepted), skipped
}

// FixFiles applies fixes to the given files based on findings.
func FixFiles(findings []Finding) ([]FixResult, error) {
	byFile := make(map[string][]Finding)
	var order []string
	for _, f := range findings {
		if f.Replacement == nil {
			continue
		}
		if _, seen := byFile[f.Path]; !seen {
			order = append(order, f.Path)
		}
		byFile[f.Path] = append(byFile[f.Path], f)
	}

	var results []FixResult
	for _, path := range order {
		result, err := fixFile(path, byFile[path])
		if err != nil {
			return nil, fmt.Errorf("fixing %s: %w", path, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// fixFile applies fixes to a single file.
func fixFile(path string, findings []Finding) (FixResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return FixResult{}, fmt.Errorf("reading file: %w", err)
	}

	var fixes []*Replacement
	for _, f := range findings {
		if f.Replacement != nil {
			fixes = append(fixes, f.Replacement)
		}
	}

	fixed, applied, skipped := ApplyFixes(content, fixes)
	return FixResult{
		Path:            path,
		OriginalContent: content,
		FixedContent:    fixed,
		AppliedFixes:    applied,
		SkippedFixes:    skipped,
	}, nil
}

// WriteFixResults writes the fixed content back to files.
// Only writes files that have changes.
func WriteFixResults(results []FixResult) error {
	for _, r := range results {
		if !r.HasChanges() {
			continue
		}
		if err := os.WriteFile(r.Path, r.FixedContent, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", r.Path, err)
		}
	}
	return nil
}

// FixableCount returns the number of findings that have fixes.
func FixableCount(findings []Finding) int {
	count := 0
	for _, f := range findings {
		if f.Replacement != nil {
			count++
		}
	}
	return count
}
