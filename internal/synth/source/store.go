package source

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownDocument is returned for operations on a URI that is not open.
var ErrUnknownDocument = errors.New("unknown document")

// ErrInvalidRange is returned when an edit range does not fit the document.
var ErrInvalidRange = errors.New("invalid range")

// Store holds the open documents, keyed by URI. All methods are safe for
// concurrent use.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewStore creates an empty document store.
func NewStore() *Store {
	return &Store{docs: make(map[string]*Document)}
}

// Open registers a document with its full text. Reopening a URI replaces
// the previous content and version.
func (s *Store) Open(uri, text string, version int32) Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := &Document{URI: uri, Version: version, Text: text}
	s.docs[uri] = doc
	return *doc
}

// Apply applies changes to an open document in order and records the new
// version. When the client-supplied version does not advance the stored
// one, the store bumps by one instead so versions stay strictly increasing.
// On a range error nothing is applied.
func (s *Store) Apply(uri string, version int32, changes []Change) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[uri]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrUnknownDocument, uri)
	}

	text := doc.Text
	for _, ch := range changes {
		if ch.Range == nil {
			text = ch.Text
			continue
		}
		scratch := Document{Text: text}
		start, end, err := scratch.RangeOffsets(*ch.Range)
		if err != nil {
			return Document{}, err
		}
		text = text[:start] + ch.Text + text[end:]
	}

	doc.Text = text
	if version > doc.Version {
		doc.Version = version
	} else {
		doc.Version++
	}
	return *doc, nil
}

// Close removes a document. It reports whether the URI was open.
func (s *Store) Close(uri string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.docs[uri]
	delete(s.docs, uri)
	return ok
}

// Get returns a snapshot of the document. The snapshot is a copy and stays
// stable while the store keeps mutating.
func (s *Store) Get(uri string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[uri]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}

// Version returns the current version of an open document.
func (s *Store) Version(uri string) (int32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[uri]
	if !ok {
		return 0, false
	}
	return doc.Version, true
}

// URIs returns the open document URIs, sorted.
func (s *Store) URIs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uris := make([]string, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// Len returns the number of open documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
