// Package lang defines the surface vocabulary of the Synth language as used
// by the editor tooling: keywords, gate names, builtin functions, and the
// identifier scanning helpers shared by completion, hover, and references.
//
// The tables here are authored by hand. Tooling treats Synth heuristically
// (line and token scans, not a grammar), so this package is the single place
// where the recognized vocabulary lives.
package lang

import (
	"sort"
	"strings"
)

// UncertaintySeparator is the canonical separator between a value and its
// uncertainty in an uncertain declaration, as in "5 ± 0.5".
const UncertaintySeparator = "±"

// UncertaintySeparatorASCII is the ASCII spelling accepted by the scanner.
const UncertaintySeparatorASCII = "+-"

// Keywords lists all Synth keywords in declaration order.
var Keywords = []string{
	"let",
	"const",
	"uncertain",
	"procedure",
	"function",
	"experiment",
	"apply",
	"measure",
	"tensor",
	"if",
	"else",
	"for",
	"while",
	"return",
	"true",
	"false",
}

// Gates lists the quantum gate names the tooling recognizes after "apply".
var Gates = []string{
	"H", "X", "Y", "Z", "S", "T",
	"CNOT", "CZ", "SWAP",
	"RX", "RY", "RZ",
	"TOFFOLI",
}

// Builtin describes a builtin function exposed to Synth programs.
type Builtin struct {
	// Name is the function name.
	Name string

	// Signature is the display form, e.g. "sample(dist, n)".
	Signature string

	// Doc is a one-line description shown in completion and hover.
	Doc string
}

// Builtins lists the builtin functions, alphabetically by name.
var Builtins = []Builtin{
	{Name: "abs", Signature: "abs(x)", Doc: "Absolute value of a number or tensor elementwise."},
	{Name: "mean", Signature: "mean(xs)", Doc: "Arithmetic mean of a sample list."},
	{Name: "norm", Signature: "norm(t)", Doc: "Euclidean norm of a tensor."},
	{Name: "print", Signature: "print(value)", Doc: "Write a value to the experiment log."},
	{Name: "qubit", Signature: "qubit(n)", Doc: "Allocate a register of n qubits in the zero state."},
	{Name: "sample", Signature: "sample(dist, n)", Doc: "Draw n samples from an uncertain value or distribution."},
	{Name: "shape", Signature: "shape(t)", Doc: "Dimensions of a tensor as a list."},
	{Name: "sqrt", Signature: "sqrt(x)", Doc: "Square root, propagating uncertainty when present."},
	{Name: "state", Signature: "state()", Doc: "Current statevector of the active experiment."},
	{Name: "stddev", Signature: "stddev(xs)", Doc: "Sample standard deviation."},
	{Name: "transpose", Signature: "transpose(t)", Doc: "Transpose of a rank-2 tensor."},
}

var (
	keywordSet = make(map[string]bool, len(Keywords))
	gateSet    = make(map[string]bool, len(Gates))
	builtinMap = make(map[string]Builtin, len(Builtins))
)

func init() {
	for _, k := range Keywords {
		keywordSet[k] = true
	}
	for _, g := range Gates {
		gateSet[g] = true
	}
	for _, b := range Builtins {
		builtinMap[b.Name] = b
	}
}

// IsKeyword reports whether word is a Synth keyword.
func IsKeyword(word string) bool {
	return keywordSet[word]
}

// IsGate reports whether word names a known gate. Gate names are
// conventionally uppercase; the match is exact.
func IsGate(word string) bool {
	return gateSet[word]
}

// LookupBuiltin returns the builtin with the given name.
func LookupBuiltin(name string) (Builtin, bool) {
	b, ok := builtinMap[name]
	return b, ok
}

// KeywordsWithPrefix returns the keywords starting with prefix, sorted.
// An empty prefix matches everything.
func KeywordsWithPrefix(prefix string) []string {
	var out []string
	for _, k := range Keywords {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// GatesWithPrefix returns the gate names starting with prefix, sorted.
// Matching is case-insensitive so a lowercase prefix still surfaces gates.
func GatesWithPrefix(prefix string) []string {
	upper := strings.ToUpper(prefix)
	var out []string
	for _, g := range Gates {
		if strings.HasPrefix(g, upper) {
			out = append(out, g)
		}
	}
	sort.Strings(out)
	return out
}

// BuiltinsWithPrefix returns the builtins whose name starts with prefix,
// sorted by name.
func BuiltinsWithPrefix(prefix string) []Builtin {
	var out []Builtin
	for _, b := range Builtins {
		if strings.HasPrefix(b.Name, prefix) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IsIdentRune reports whether r can appear in a Synth identifier.
func IsIdentRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// WordAt returns the identifier containing byte column col in line, along
// with its start and end byte offsets. It returns "" when col does not touch
// an identifier. col may equal the end of a word (cursor just past it).
func WordAt(line string, col int) (word string, start, end int) {
	if col < 0 || col > len(line) {
		return "", 0, 0
	}

	start = col
	for start > 0 && IsIdentRune(rune(line[start-1])) {
		start--
	}
	end = col
	for end < len(line) && IsIdentRune(rune(line[end])) {
		end++
	}
	if start == end {
		return "", 0, 0
	}
	return line[start:end], start, end
}

// ContainsWord reports whether word appears in s as a whole word, not as
// part of a longer identifier.
func ContainsWord(s, word string) bool {
	if word == "" {
		return false
	}
	for start := 0; ; {
		idx := strings.Index(s[start:], word)
		if idx < 0 {
			return false
		}
		idx += start
		before := idx == 0 || !IsIdentRune(rune(s[idx-1]))
		afterIdx := idx + len(word)
		after := afterIdx >= len(s) || !IsIdentRune(rune(s[afterIdx]))
		if before && after {
			return true
		}
		start = idx + len(word)
	}
}

// PrefixAt returns the identifier characters immediately before byte column
// col in line. This is the completion filter prefix.
func PrefixAt(line string, col int) string {
	if col < 0 || col > len(line) {
		return ""
	}
	start := col
	for start > 0 && IsIdentRune(rune(line[start-1])) {
		start--
	}
	return line[start:col]
}

// HasUncertainty reports whether the line carries an uncertainty separator,
// either the canonical "±" or the ASCII "+-".
func HasUncertainty(line string) bool {
	return strings.Contains(line, UncertaintySeparator) ||
		strings.Contains(line, UncertaintySeparatorASCII)
}
