package classifier

import (
	"strings"
	"testing"
)

func TestClassifyKinds(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		cursor string // substring whose end is the cursor position
		want   Kind
	}{
		{"uncertain declaration", "uncertain x = 5", "uncertain x = 5", KindUncertainty},
		{"mid uncertain declaration", "uncertain mass = ", "uncertain mass = ", KindUncertainty},
		{"after separator", "let x = 5 ± ", "let x = 5 ± ", KindUncertainty},
		{"ascii separator", "let x = 5 +- ", "+- ", KindUncertainty},
		{"apply statement", "apply H q0", "apply ", KindGate},
		{"measure statement", "measure q0 -> m", "measure q0", KindGate},
		{"bare gate fragment", "let x = 1\nCN", "CN", KindGate},
		{"tensor declaration", "tensor m = [[1, 2]]", "tensor ", KindTensor},
		{"nested list literal", "let m = [[1", "[[1", KindTensor},
		{"partial keyword at line start", "proc", "proc", KindKeyword},
		{"partial keyword on later line", "let x = 1\nexp", "exp", KindKeyword},
		{"plain expression", "let x = 1 + 2", "1 + ", KindGeneral},
		{"empty document", "", "", KindGeneral},
		{"identifier that is no keyword prefix", "zz", "zz", KindGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset := strings.Index(tt.text, tt.cursor)
			if offset < 0 {
				t.Fatalf("cursor substring %q not in text", tt.cursor)
			}
			offset += len(tt.cursor)

			got := Classify(tt.text, offset)
			if got.Kind != tt.want {
				t.Errorf("Classify(%q, %d).Kind = %v, want %v", tt.text, offset, got.Kind, tt.want)
			}
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	text := "experiment bell {\n    apply H q0\n    uncertain m = 5\n}\n"
	for offset := 0; offset <= len(text); offset++ {
		first := Classify(text, offset)
		second := Classify(text, offset)
		if first != second {
			t.Fatalf("Classify(%d) not deterministic: %+v vs %+v", offset, first, second)
		}
	}
}

func TestClassifyWindows(t *testing.T) {
	long := strings.Repeat("x", 300)
	ctx := Classify(long, 250)
	if len(ctx.Before) != WindowBefore {
		t.Errorf("Before window = %d chars, want %d", len(ctx.Before), WindowBefore)
	}

	many := strings.Repeat("line\n", 20)
	ctx = Classify(many, 0)
	if got := strings.Count(ctx.After, "\n"); got != WindowAfterLines {
		t.Errorf("After window spans %d line breaks, want %d", got, WindowAfterLines)
	}
}

func TestClassifyClampsOffset(t *testing.T) {
	if got := Classify("let x", -5); got.Kind != KindGeneral {
		t.Errorf("negative offset: kind = %v, want general", got.Kind)
	}
	// Past-the-end clamps to the end, where "x" ends the line.
	got := Classify("apply H", 100)
	if got.Kind != KindGate {
		t.Errorf("clamped offset: kind = %v, want gate", got.Kind)
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindGeneral, "general"},
		{KindKeyword, "keyword"},
		{KindGate, "gate"},
		{KindTensor, "tensor"},
		{KindUncertainty, "uncertainty"},
		{Kind(42), "general"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
