package memstore

import (
	"context"
	"sync"

	"github.com/cognicore/ticketlens/pkg/ticketlens/store"
)

// Store is an in-memory corpus for tests and embedding callers.
type Store struct {
	mu     sync.RWMutex
	corpus *store.Corpus
}

// New creates a store holding a copy of c. A nil corpus starts empty.
func New(c *store.Corpus) *Store {
	return &Store{corpus: c.Clone()}
}

// Load returns a copy of the stored corpus.
func (s *Store) Load(ctx context.Context) (*store.Corpus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corpus.Clone(), nil
}

// Save replaces the stored corpus.
func (s *Store) Save(ctx context.Context, c *store.Corpus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corpus = c.Clone()
	return nil
}

// Update applies fn to the stored corpus under the write lock.
func (s *Store) Update(fn func(c *store.Corpus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.corpus)
}
