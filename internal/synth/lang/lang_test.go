package lang

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIsKeyword(t *testing.T) {
	tests := []struct {
		word string
		want bool
	}{
		{"let", true},
		{"uncertain", true},
		{"experiment", true},
		{"apply", true},
		{"qubit", false}, // builtin, not keyword
		{"H", false},
		{"", false},
		{"Let", false},
	}

	for _, tt := range tests {
		if got := IsKeyword(tt.word); got != tt.want {
			t.Errorf("IsKeyword(%q) = %v, want %v", tt.word, got, tt.want)
		}
	}
}

func TestIsGate(t *testing.T) {
	tests := []struct {
		word string
		want bool
	}{
		{"H", true},
		{"CNOT", true},
		{"TOFFOLI", true},
		{"h", false}, // case-sensitive
		{"cnot", false},
		{"HADAMARD", false},
	}

	for _, tt := range tests {
		if got := IsGate(tt.word); got != tt.want {
			t.Errorf("IsGate(%q) = %v, want %v", tt.word, got, tt.want)
		}
	}
}

func TestKeywordsWithPrefix(t *testing.T) {
	got := KeywordsWithPrefix("e")
	want := []string{"else", "experiment"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("KeywordsWithPrefix(\"e\") mismatch (-want +got):\n%s", diff)
	}
}

func TestGatesWithPrefixCaseInsensitive(t *testing.T) {
	got := GatesWithPrefix("cn")
	want := []string{"CNOT"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GatesWithPrefix(\"cn\") mismatch (-want +got):\n%s", diff)
	}
}

func TestBuiltinsWithPrefix(t *testing.T) {
	got := BuiltinsWithPrefix("s")
	names := make([]string, len(got))
	for i, b := range got {
		names[i] = b.Name
	}
	want := []string{"sample", "shape", "sqrt", "state", "stddev"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("BuiltinsWithPrefix(\"s\") names mismatch (-want +got):\n%s", diff)
	}
}

func TestWordAt(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		col       int
		wantWord  string
		wantStart int
		wantEnd   int
	}{
		{"middle of word", "let energy = 5", 6, "energy", 4, 10},
		{"start of word", "let energy = 5", 4, "energy", 4, 10},
		{"cursor just past word", "let energy = 5", 10, "energy", 4, 10},
		{"on whitespace", "let energy = 5", 3, "let", 0, 3},
		{"between tokens", "a = b", 2, "", 0, 0},
		{"out of range", "abc", 10, "", 0, 0},
		{"negative", "abc", -1, "", 0, 0},
		{"empty line", "", 0, "", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			word, start, end := WordAt(tt.line, tt.col)
			if word != tt.wantWord || start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("WordAt(%q, %d) = (%q, %d, %d), want (%q, %d, %d)",
					tt.line, tt.col, word, start, end, tt.wantWord, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestPrefixAt(t *testing.T) {
	tests := []struct {
		line string
		col  int
		want string
	}{
		{"let unc", 7, "unc"},
		{"let unc", 4, ""},
		{"apply CN", 8, "CN"},
		{"", 0, ""},
		{"x", 5, ""},
	}

	for _, tt := range tests {
		if got := PrefixAt(tt.line, tt.col); got != tt.want {
			t.Errorf("PrefixAt(%q, %d) = %q, want %q", tt.line, tt.col, got, tt.want)
		}
	}
}

func TestHasUncertainty(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"uncertain x = 5 ± 0.5", true},
		{"uncertain x = 5 +- 0.5", true},
		{"uncertain x = 5", false},
		{"let y = 1 + 2", false},
	}

	for _, tt := range tests {
		if got := HasUncertainty(tt.line); got != tt.want {
			t.Errorf("HasUncertainty(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestDocFor(t *testing.T) {
	for _, word := range []string{"uncertain", "CNOT", "sample"} {
		if _, ok := DocFor(word); !ok {
			t.Errorf("DocFor(%q) returned no documentation", word)
		}
	}

	if doc, ok := DocFor("no_such_symbol"); ok {
		t.Errorf("DocFor returned %q for unknown symbol", doc)
	}
}

func TestSnippetsFor(t *testing.T) {
	gate := SnippetsFor("gate")
	if len(gate) != 2 {
		t.Fatalf("SnippetsFor(\"gate\") returned %d snippets, want 2", len(gate))
	}
	if gate[0].Label != "apply gate" {
		t.Errorf("first gate snippet = %q, want %q", gate[0].Label, "apply gate")
	}

	if got := SnippetsFor("no-such-kind"); got != nil {
		t.Errorf("SnippetsFor(unknown) = %v, want nil", got)
	}
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		s    string
		word string
		want bool
	}{
		{"let x = factor * 2", "factor", true},
		{"let x = factorial(3)", "factor", false},
		{"prepare(q0)", "prepare", true},
		{"unprepared", "prepare", false},
		{"x", "x", true},
		{"", "x", false},
		{"let x = 1", "", false},
	}

	for _, tt := range tests {
		if got := ContainsWord(tt.s, tt.word); got != tt.want {
			t.Errorf("ContainsWord(%q, %q) = %v, want %v", tt.s, tt.word, got, tt.want)
		}
	}
}
