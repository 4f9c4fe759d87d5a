package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryStore is an in-process Store bounded by an LRU policy.
type MemoryStore struct {
	entries *lru.Cache[string, []byte]
}

func NewMemoryStore(size int) (*MemoryStore, error) {
	entries, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &MemoryStore{entries: entries}, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	raw, ok := s.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	s.entries.Add(key, stored)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		s.entries.Remove(k)
	}
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Len reports the number of cached entries.
func (s *MemoryStore) Len() int {
	return s.entries.Len()
}
