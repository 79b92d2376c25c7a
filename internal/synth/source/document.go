// Package source maintains the set of open Synth documents and the position
// arithmetic shared by the language server and the analysis engines.
//
// Positions follow the LSP convention: 0-based lines, 0-based character
// offsets counted in UTF-16 code units. Byte offsets are used internally
// whenever text is sliced.
package source

import (
	"fmt"
	"strings"
)

// Position is a 0-based line and UTF-16 character offset in a document.
type Position struct {
	Line      int
	Character int
}

// Range is a half-open [Start, End) span between two positions.
type Range struct {
	Start Position
	End   Position
}

// Change is one edit to a document. A nil Range replaces the whole text.
type Change struct {
	Range *Range
	Text  string
}

// Document is an open document snapshot. Values returned by the store are
// copies; mutating a snapshot does not affect the store.
type Document struct {
	// URI identifies the document (e.g. "file:///tmp/a.syn").
	URI string

	// Version is the client-supplied document version. Strictly increasing
	// for the lifetime of an open document.
	Version int32

	// Text is the full document content.
	Text string
}

// Lines splits the document into lines without trailing newlines.
func (d *Document) Lines() []string {
	return strings.Split(d.Text, "\n")
}

// Line returns the 0-based line i, or "" when i is out of range.
func (d *Document) Line(i int) string {
	if i < 0 {
		return ""
	}
	lines := d.Lines()
	if i >= len(lines) {
		return ""
	}
	return lines[i]
}

// LineCount returns the number of lines in the document. The empty
// document has one (empty) line.
func (d *Document) LineCount() int {
	return strings.Count(d.Text, "\n") + 1
}

// OffsetAt converts a position to a byte offset into Text. Positions past
// the end of a line clamp to the line end; a line past the last line is an
// error.
func (d *Document) OffsetAt(pos Position) (int, error) {
	if pos.Line < 0 || pos.Character < 0 {
		return 0, fmt.Errorf("%w: negative position %d:%d", ErrInvalidRange, pos.Line, pos.Character)
	}

	offset := 0
	line := 0
	rest := d.Text
	for line < pos.Line {
		nl := strings.IndexByte(rest, '\n')
		if nl < 0 {
			return 0, fmt.Errorf("%w: line %d beyond end of document", ErrInvalidRange, pos.Line)
		}
		offset += nl + 1
		rest = rest[nl+1:]
		line++
	}

	lineText := rest
	if nl := strings.IndexByte(lineText, '\n'); nl >= 0 {
		lineText = lineText[:nl]
	}
	return offset + utf16ToByte(lineText, pos.Character), nil
}

// PositionAt converts a byte offset into Text to a position. Offsets are
// clamped to the document bounds.
func (d *Document) PositionAt(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.Text) {
		offset = len(d.Text)
	}

	prefix := d.Text[:offset]
	line := strings.Count(prefix, "\n")
	lineStart := strings.LastIndexByte(prefix, '\n') + 1
	return Position{
		Line:      line,
		Character: utf16Len(prefix[lineStart:]),
	}
}

// RangeOffsets converts a range to byte offsets, validating order.
func (d *Document) RangeOffsets(r Range) (start, end int, err error) {
	start, err = d.OffsetAt(r.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err = d.OffsetAt(r.End)
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("%w: end %d:%d before start %d:%d",
			ErrInvalidRange, r.End.Line, r.End.Character, r.Start.Line, r.Start.Character)
	}
	return start, end, nil
}

// utf16ToByte converts a UTF-16 character offset within a single line to a
// byte offset. Offsets past the line end clamp to the end.
func utf16ToByte(line string, chars int) int {
	if chars <= 0 {
		return 0
	}
	units := 0
	for i, r := range line {
		if units >= chars {
			return i
		}
		units += utf16RuneLen(r)
	}
	return len(line)
}

// utf16Len returns the UTF-16 code unit length of s.
func utf16Len(s string) int {
	units := 0
	for _, r := range s {
		units += utf16RuneLen(r)
	}
	return units
}
