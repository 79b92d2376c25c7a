// Package format provides Synth source formatting.
//
// The formatter is line-based, matching the rest of the tooling's heuristic
// tier: it re-indents by brace depth, trims trailing whitespace, collapses
// blank-line runs, normalizes the ASCII uncertainty spelling to ±, and
// guarantees a trailing newline. Formatting is idempotent.
package format

import (
	"bytes"
	"os"
	"strings"

	"github.com/synthlang/synkit/internal/synth/lang"
)

// Options controls formatting.
type Options struct {
	// Indent is the indentation unit. Empty means four spaces.
	Indent string

	// MaxBlankLines is the longest run of blank lines kept between
	// statements. Zero means 1.
	MaxBlankLines int
}

// DefaultIndent is the indentation unit used when none is configured.
const DefaultIndent = "    "

// Result represents the outcome of formatting a file.
type Result struct {
	// Path is the file path (empty for stdin).
	Path string
	// Original is the original content.
	Original []byte
	// Formatted is the formatted content.
	Formatted []byte
	// Err is any error that occurred during formatting.
	Err error
}

// Changed returns true if the file content was changed by formatting.
func (r *Result) Changed() bool {
	if r.Err != nil {
		return false
	}
	return !bytes.Equal(r.Original, r.Formatted)
}

// Format formats Synth source text.
func Format(src []byte, opts Options) []byte {
	indent := opts.Indent
	if indent == "" {
		indent = DefaultIndent
	}
	maxBlank := opts.MaxBlankLines
	if maxBlank <= 0 {
		maxBlank = 1
	}

	lines := strings.Split(string(src), "\n")
	var out []string
	depth := 0
	blanks := 0

	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		trimmed := strings.TrimLeft(line, " \t")

		if trimmed == "" {
			blanks++
			continue
		}
		if blanks > 0 && len(out) > 0 {
			run := blanks
			if run > maxBlank {
				run = maxBlank
			}
			for i := 0; i < run; i++ {
				out = append(out, "")
			}
		}
		blanks = 0

		trimmed = strings.ReplaceAll(trimmed,
			lang.UncertaintySeparatorASCII, lang.UncertaintySeparator)

		// A line that starts by closing a block dedents before printing.
		lineDepth := depth
		if strings.HasPrefix(trimmed, "}") {
			lineDepth--
		}
		if lineDepth < 0 {
			lineDepth = 0
		}

		out = append(out, strings.Repeat(indent, lineDepth)+trimmed)

		// Braces inside a trailing comment do not open or close blocks.
		code := trimmed
		if i := strings.Index(code, "//"); i >= 0 {
			code = code[:i]
		}
		depth += strings.Count(code, "{") - strings.Count(code, "}")
		if depth < 0 {
			depth = 0
		}
	}

	if len(out) == 0 {
		return []byte{}
	}
	return []byte(strings.Join(out, "\n") + "\n")
}

// FormatFile reads a file, formats it, and returns the result.
func FormatFile(path string, opts Options) *Result {
	result := &Result{Path: path}

	src, err := os.ReadFile(path)
	if err != nil {
		result.Err = err
		return result
	}
	result.Original = src
	result.Formatted = Format(src, opts)
	return result
}
