// Package store keeps the vector index and the chunk documents in lock-step.
package store

import (
	"errors"
	"fmt"
	"sync"

	"doctalk/backend/internal/vector"
)

var (
	// ErrEmptyStore is returned when retrieval is attempted before any
	// ingestion has completed. User-correctable, not retryable.
	ErrEmptyStore = errors.New("vector store is empty")

	// ErrOutOfRange is returned for a document position outside the store.
	// Given the alignment invariant it indicates an internal bug if it ever
	// surfaces from a search result.
	ErrOutOfRange = errors.New("document position out of range")

	// ErrStateMismatch is returned when the persisted index and document
	// files disagree on the number of entries, e.g. after a crash between
	// the two writes.
	ErrStateMismatch = errors.New("persisted index and documents are out of sync")
)

// Document is one retrievable chunk of an uploaded file. Records are
// immutable once appended and are never deleted.
type Document struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// Persister flushes the paired state to durable storage. Save is called with
// the store's write lock held, so implementations see a consistent snapshot.
type Persister interface {
	Save(index *vector.Index, docs []Document) error
}

// Store bundles the vector index, the ordered document list and the lock
// guarding both. Row i of the index always holds the embedding of document i;
// the only mutation path appends to both sides inside one critical section,
// so the two can never diverge. The index is created lazily by the first
// append, which fixes the embedding dimension for the store's lifetime.
type Store struct {
	mu      sync.RWMutex
	index   *vector.Index
	docs    []Document
	persist Persister
}

// New creates an empty store. persist may be nil, in which case appends are
// not flushed to disk (used by tests).
func New(persist Persister) *Store {
	return &Store{persist: persist}
}

// NewWithState creates a store around previously loaded state. A nil index is
// treated as a fresh store; docs are then required to be empty. Misaligned
// state is rejected with ErrStateMismatch rather than served.
func NewWithState(persist Persister, index *vector.Index, docs []Document) (*Store, error) {
	if index == nil {
		if len(docs) != 0 {
			return nil, fmt.Errorf("%w: no index for %d documents", ErrStateMismatch, len(docs))
		}
		return New(persist), nil
	}
	if index.Rows() != len(docs) {
		return nil, fmt.Errorf("%w: %d index rows, %d documents", ErrStateMismatch, index.Rows(), len(docs))
	}
	return &Store{persist: persist, index: index, docs: docs}, nil
}

// AppendBatch appends each vector and its document as one unit and flushes
// the pair to durable storage before returning. On the first append the
// index is created with the width of the incoming vectors. A dimension
// mismatch against an established index is rejected before anything is
// mutated, leaving both in-memory and persisted state untouched.
func (s *Store) AppendBatch(vectors [][]float32, docs []Document) error {
	if len(vectors) != len(docs) {
		return fmt.Errorf("got %d vectors for %d documents", len(vectors), len(docs))
	}
	if len(vectors) == 0 {
		return errors.New("nothing to append")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == nil {
		ix, err := vector.New(len(vectors[0]))
		if err != nil {
			return err
		}
		if err := ix.Add(vectors); err != nil {
			return err
		}
		s.index = ix
	} else if err := s.index.Add(vectors); err != nil {
		return err
	}
	s.docs = append(s.docs, docs...)

	if s.persist != nil {
		if err := s.persist.Save(s.index, s.docs); err != nil {
			return fmt.Errorf("persisting store: %w", err)
		}
	}
	return nil
}

// Search embeds nothing itself; it maps the query against the index under a
// read lock and resolves the hit rows to documents, skipping sentinel slots.
// Results come back in ascending distance order.
func (s *Store) Search(query []float32, k int) ([]Document, []float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.index == nil || s.index.Rows() == 0 || len(s.docs) == 0 {
		return nil, nil, ErrEmptyStore
	}

	rows, dists, err := s.index.Search(query, k)
	if err != nil {
		return nil, nil, err
	}

	docs := make([]Document, 0, len(rows))
	kept := make([]float32, 0, len(rows))
	for i, row := range rows {
		if row == vector.NoMatch {
			continue
		}
		docs = append(docs, s.docs[row])
		kept = append(kept, dists[i])
	}
	return docs, kept, nil
}

// Get returns the document at the given position. Sentinel and out-of-bounds
// positions fail with ErrOutOfRange.
func (s *Store) Get(pos int) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pos < 0 || pos >= len(s.docs) {
		return Document{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, pos, len(s.docs))
	}
	return s.docs[pos], nil
}

// Count returns the number of stored documents, which by invariant equals
// the number of index rows.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Dimension returns the established embedding width, or 0 before the first
// ingestion.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return 0
	}
	return s.index.Dimension()
}

// Filenames returns the distinct source filenames in first-seen order.
func (s *Store) Filenames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool, len(s.docs))
	var names []string
	for _, d := range s.docs {
		if !seen[d.Filename] {
			seen[d.Filename] = true
			names = append(names, d.Filename)
		}
	}
	return names
}
