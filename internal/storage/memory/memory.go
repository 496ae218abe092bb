// Package memory provides an in-process Store, used in tests and with the "memory" backend.
package memory

import (
	"context"
	"sync"

	"github.com/and161185/capture-queue/internal/errs"
	"github.com/and161185/capture-queue/internal/storage"
)

// Store keeps slots in a map. Values are copied on the way in and out.
type Store struct {
	mu   sync.Mutex
	data map[string][]byte
}

var _ storage.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store { return &Store{data: make(map[string][]byte)} }

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Len reports how many slots hold a value.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
