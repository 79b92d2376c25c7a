package source

import (
	"errors"
	"testing"
)

func TestOpenGetClose(t *testing.T) {
	s := NewStore()

	s.Open("file:///a.syn", "let x = 1\n", 1)

	doc, ok := s.Get("file:///a.syn")
	if !ok {
		t.Fatal("Get after Open: document not found")
	}
	if doc.Text != "let x = 1\n" || doc.Version != 1 {
		t.Errorf("Get = %+v, want text %q version 1", doc, "let x = 1\n")
	}

	if !s.Close("file:///a.syn") {
		t.Error("Close returned false for open document")
	}
	if _, ok := s.Get("file:///a.syn"); ok {
		t.Error("Get after Close: document still present")
	}
	if s.Close("file:///a.syn") {
		t.Error("Close returned true for already-closed document")
	}
}

func TestOpenReplacesExisting(t *testing.T) {
	s := NewStore()
	s.Open("file:///a.syn", "old", 1)
	s.Open("file:///a.syn", "new", 5)

	doc, _ := s.Get("file:///a.syn")
	if doc.Text != "new" || doc.Version != 5 {
		t.Errorf("reopen = %+v, want text \"new\" version 5", doc)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestApplyFullReplacement(t *testing.T) {
	s := NewStore()
	s.Open("file:///a.syn", "let x = 1\n", 1)

	doc, err := s.Apply("file:///a.syn", 2, []Change{{Text: "let y = 2\n"}})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if doc.Text != "let y = 2\n" {
		t.Errorf("text = %q, want %q", doc.Text, "let y = 2\n")
	}
	if doc.Version != 2 {
		t.Errorf("version = %d, want 2", doc.Version)
	}
}

func TestApplyIncremental(t *testing.T) {
	s := NewStore()
	s.Open("file:///a.syn", "let x = 1\nlet y = 2\n", 1)

	// Replace "1" with "10" on line 0.
	doc, err := s.Apply("file:///a.syn", 2, []Change{{
		Range: &Range{Start: Position{Line: 0, Character: 8}, End: Position{Line: 0, Character: 9}},
		Text:  "10",
	}})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if doc.Text != "let x = 10\nlet y = 2\n" {
		t.Errorf("text = %q, want %q", doc.Text, "let x = 10\nlet y = 2\n")
	}
}

func TestApplyMultipleChangesInOrder(t *testing.T) {
	s := NewStore()
	s.Open("file:///a.syn", "abc", 1)

	// Each change is interpreted against the text produced by the previous
	// one, in the order received.
	doc, err := s.Apply("file:///a.syn", 2, []Change{
		{
			Range: &Range{Start: Position{Line: 0, Character: 3}, End: Position{Line: 0, Character: 3}},
			Text:  "def",
		},
		{
			Range: &Range{Start: Position{Line: 0, Character: 0}, End: Position{Line: 0, Character: 3}},
			Text:  "",
		},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if doc.Text != "def" {
		t.Errorf("text = %q, want %q", doc.Text, "def")
	}
}

func TestApplyDeletionAcrossLines(t *testing.T) {
	s := NewStore()
	s.Open("file:///a.syn", "one\ntwo\nthree\n", 1)

	doc, err := s.Apply("file:///a.syn", 2, []Change{{
		Range: &Range{Start: Position{Line: 0, Character: 3}, End: Position{Line: 2, Character: 0}},
		Text:  " ",
	}})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if doc.Text != "one three\n" {
		t.Errorf("text = %q, want %q", doc.Text, "one three\n")
	}
}

func TestApplyUnknownDocument(t *testing.T) {
	s := NewStore()

	_, err := s.Apply("file:///missing.syn", 1, []Change{{Text: "x"}})
	if !errors.Is(err, ErrUnknownDocument) {
		t.Errorf("Apply on unknown URI: err = %v, want ErrUnknownDocument", err)
	}
}

func TestApplyInvalidRange(t *testing.T) {
	s := NewStore()
	s.Open("file:///a.syn", "short\n", 1)

	_, err := s.Apply("file:///a.syn", 2, []Change{{
		Range: &Range{Start: Position{Line: 9, Character: 0}, End: Position{Line: 9, Character: 1}},
		Text:  "x",
	}})
	if !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Apply with out-of-bounds line: err = %v, want ErrInvalidRange", err)
	}

	// Nothing applied, version unchanged.
	doc, _ := s.Get("file:///a.syn")
	if doc.Text != "short\n" || doc.Version != 1 {
		t.Errorf("document mutated by failed Apply: %+v", doc)
	}
}

func TestVersionAlwaysAdvances(t *testing.T) {
	s := NewStore()
	s.Open("file:///a.syn", "a", 5)

	// A stale client version must not move the document backwards.
	doc, err := s.Apply("file:///a.syn", 3, []Change{{Text: "b"}})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if doc.Version != 6 {
		t.Errorf("version = %d, want 6 (monotonic bump past 5)", doc.Version)
	}

	doc, err = s.Apply("file:///a.syn", 10, []Change{{Text: "c"}})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if doc.Version != 10 {
		t.Errorf("version = %d, want 10", doc.Version)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := NewStore()
	s.Open("file:///a.syn", "first", 1)

	snap, _ := s.Get("file:///a.syn")
	if _, err := s.Apply("file:///a.syn", 2, []Change{{Text: "second"}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if snap.Text != "first" {
		t.Errorf("snapshot changed under mutation: %q", snap.Text)
	}
}

func TestURIs(t *testing.T) {
	s := NewStore()
	s.Open("file:///b.syn", "", 1)
	s.Open("file:///a.syn", "", 1)

	uris := s.URIs()
	if len(uris) != 2 || uris[0] != "file:///a.syn" || uris[1] != "file:///b.syn" {
		t.Errorf("URIs = %v, want sorted [a b]", uris)
	}
}
