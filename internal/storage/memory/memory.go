// Package memory provides a process-local storage.Store.
package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"budgetfamille/internal/storage"
)

type Store struct {
	mu   sync.Mutex
	data map[string][]byte
}

func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// NewFromDir seeds the store from <key>.json files in dir. Missing files
// are skipped so the collections fall back to their defaults.
func NewFromDir(dir string) (*Store, error) {
	s := New()
	for _, key := range storage.Keys() {
		b, err := os.ReadFile(filepath.Join(dir, key+".json"))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", key, err)
		}
		s.data[key] = b
	}
	return s, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (s *Store) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Close() error { return nil }
