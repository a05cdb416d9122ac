package memory

import (
	"context"
	"fmt"
	"sync"

	"bilancio/internal/core"
)

// Store is an in-memory row appender for local runs and tests.
type Store struct {
	mu    sync.Mutex
	items []core.Transaction
	fail  error
}

func New() *Store {
	return &Store{}
}

// FailWith makes every subsequent Append return the given error.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Append stores the transaction and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, t core.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	s.items = append(s.items, t)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.items))
	copy(out, s.items)
	return out
}
