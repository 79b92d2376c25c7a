package analysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/synthlang/synkit/internal/synth/sortutil"
)

// Driver executes analysis rules on Synth sources.
type Driver struct {
	registry *Registry
}

// NewDriver creates a new driver with the given registry.
func NewDriver(registry *Registry) *Driver {
	return &Driver{registry: registry}
}

// Analyze runs all enabled rules over in-memory text. Findings are ordered
// by line then column. Analysis is stateless: the same text always yields
// the same findings.
func (d *Driver) Analyze(path, text string) []Finding {
	lines := strings.Split(text, "\n")
	offsets := make([]int, len(lines))
	offset := 0
	for i, line := range lines {
		offsets[i] = offset
		offset += len(line) + 1
	}

	var findings []Finding
	for _, rule := range d.registry.EnabledRules() {
		config := d.registry.GetConfig(rule.Name)
		pass := &Pass{
			Path:        path,
			Text:        text,
			Lines:       lines,
			lineOffsets: offsets,
			Config:      config,
			Report: func(f Finding) {
				f.Path = path
				f.Rule = rule.Name
				f.Category = rule.Category
				if config.Severity != 0 {
					f.Severity = config.Severity
				}
				findings = append(findings, f)
			},
		}

		// Rules are line scans and do not fail on malformed input; a rule
		// error is a rule bug, reported as a finding so it stays visible.
		if err := rule.Run(pass); err != nil {
			findings = append(findings, Finding{
				Path:     path,
				Severity: SeverityError,
				Message:  fmt.Sprintf("rule %s failed: %v", rule.Name, err),
				Line:     1,
				Column:   1,
				Rule:     rule.Name,
				Category: rule.Category,
			})
		}
	}

	sortutil.ByLineColumn(findings,
		func(f Finding) int { return f.Line },
		func(f Finding) int { return f.Column })
	return findings
}

// Run executes all enabled rules on the specified files and returns the
// results. Paths may be files or directories; directories are walked for
// Synth sources.
func (d *Driver) Run(ctx context.Context, paths []string) (*Result, error) {
	files, err := ExpandPaths(paths)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Files:    len(files),
		Findings: []Finding{},
		Errors:   []FileError{},
	}

	for _, path := range files {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		findings, err := d.RunFile(path)
		if err != nil {
			result.Errors = append(result.Errors, FileError{Path: path, Err: err})
			continue
		}
		result.Findings = append(result.Findings, findings...)
	}

	return result, nil
}

// RunFile executes all enabled rules on a single file.
func (d *Driver) RunFile(path string) ([]Finding, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return d.Analyze(path, string(content)), nil
}

// ExpandPaths expands a list of paths into individual Synth files.
// Directories are walked recursively (dot-directories skipped); explicit
// file arguments are kept regardless of extension. Duplicates are removed.
func ExpandPaths(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	for _, path := range paths {
		expanded, err := expandPath(path)
		if err != nil {
			return nil, err
		}
		for _, f := range expanded {
			abs, err := filepath.Abs(f)
			if err != nil {
				abs = f
			}
			if !seen[abs] {
				seen[abs] = true
				files = append(files, f)
			}
		}
	}

	return files, nil
}

// expandPath expands a single path into files.
func expandPath(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() && strings.HasPrefix(entry.Name(), ".") && entry.Name() != "." {
			return filepath.SkipDir
		}
		if entry.IsDir() {
			return nil
		}
		if IsSynthFile(entry.Name()) {
			files = append(files, p)
		}
		return nil
	})

	return files, err
}

// IsSynthFile checks if a filename is a Synth source file.
func IsSynthFile(name string) bool {
	return filepath.Ext(name) == ".syn"
}
