// Package classifier labels the syntactic region around a cursor position in
// Synth source. The label drives context-aware completion: snippet templates
// only surface when the surrounding text matches their trigger.
//
// Classification is a pure function over a bounded window of text — roughly
// 100 characters before the cursor and five lines after it. The same text
// and offset always produce the same result.
package classifier

import (
	"strings"

	"github.com/synthlang/synkit/internal/synth/lang"
)

// Kind is the classified region around the cursor.
type Kind int

const (
	// KindGeneral is the default when no marker matches.
	KindGeneral Kind = iota
	// KindKeyword means the cursor is on a partially typed keyword at the
	// start of a statement.
	KindKeyword
	// KindGate means the cursor is inside a gate application.
	KindGate
	// KindTensor means the cursor is inside a tensor declaration or literal.
	KindTensor
	// KindUncertainty means the cursor is inside an uncertain declaration
	// or next to an uncertainty separator.
	KindUncertainty
)

// String returns the kind name used by snippet triggers.
func (k Kind) String() string {
	switch k {
	case KindKeyword:
		return "keyword"
	case KindGate:
		return "gate"
	case KindTensor:
		return "tensor"
	case KindUncertainty:
		return "uncertainty"
	default:
		return "general"
	}
}

// WindowBefore is the number of characters scanned behind the cursor.
const WindowBefore = 100

// WindowAfterLines is the number of lines scanned past the cursor.
const WindowAfterLines = 5

// Context is the classification result along with the scanned windows.
type Context struct {
	// Kind is the classified region.
	Kind Kind

	// Before is the scanned text behind the cursor, ending at it.
	Before string

	// After is the scanned text ahead of the cursor.
	After string
}

// rule matches one region kind against the scanned windows. Rules run in
// order; the first match wins.
type rule struct {
	kind  Kind
	match func(linePrefix, before, after string) bool
}

var rules = []rule{
	{KindUncertainty, matchUncertainty},
	{KindGate, matchGate},
	{KindTensor, matchTensor},
	{KindKeyword, matchKeyword},
}

// Classify determines the region kind at a byte offset in text. Offsets
// outside [0, len(text)] clamp to the nearest bound.
func Classify(text string, offset int) Context {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}

	before := windowBefore(text, offset)
	after := windowAfter(text, offset)
	linePrefix := before
	if nl := strings.LastIndexByte(before, '\n'); nl >= 0 {
		linePrefix = before[nl+1:]
	}

	ctx := Context{Kind: KindGeneral, Before: before, After: after}
	for _, r := range rules {
		if r.match(linePrefix, before, after) {
			ctx.Kind = r.kind
			break
		}
	}
	return ctx
}

// windowBefore returns up to WindowBefore characters ending at offset.
func windowBefore(text string, offset int) string {
	start := offset - WindowBefore
	if start < 0 {
		start = 0
	}
	return text[start:offset]
}

// windowAfter returns the text from offset through WindowAfterLines line
// breaks, or to the end of text.
func windowAfter(text string, offset int) string {
	rest := text[offset:]
	pos := 0
	for i := 0; i < WindowAfterLines; i++ {
		nl := strings.IndexByte(rest[pos:], '\n')
		if nl < 0 {
			return rest
		}
		pos += nl + 1
	}
	return rest[:pos]
}

func matchUncertainty(linePrefix, before, after string) bool {
	if strings.Contains(linePrefix, "uncertain") {
		return true
	}
	return strings.Contains(linePrefix, lang.UncertaintySeparator) ||
		strings.Contains(linePrefix, lang.UncertaintySeparatorASCII)
}

func matchGate(linePrefix, before, after string) bool {
	if strings.Contains(linePrefix, "apply") || strings.Contains(linePrefix, "measure") {
		return true
	}
	// A bare uppercase fragment that prefixes a known gate also counts, so
	// typing "CN" offers gate completions without the apply keyword.
	frag := trailingIdent(linePrefix)
	if frag == "" || frag != strings.ToUpper(frag) {
		return false
	}
	return len(lang.GatesWithPrefix(frag)) > 0
}

func matchTensor(linePrefix, before, after string) bool {
	return strings.Contains(linePrefix, "tensor") || strings.Contains(linePrefix, "[[")
}

func matchKeyword(linePrefix, before, after string) bool {
	frag := strings.TrimSpace(linePrefix)
	if frag == "" || frag != trailingIdent(linePrefix) {
		return false
	}
	for _, k := range lang.Keywords {
		if k != frag && strings.HasPrefix(k, frag) {
			return true
		}
	}
	return false
}

// trailingIdent returns the identifier fragment that ends s, if any.
func trailingIdent(s string) string {
	end := len(s)
	start := end
	for start > 0 && lang.IsIdentRune(rune(s[start-1])) {
		start--
	}
	return s[start:end]
}
