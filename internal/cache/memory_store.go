package cache

import (
	"context"
	"path"
	"sort"
	"sync"
)

// MemoryStore is a process-local Store for development and tests.
// Entries are kept encoded so behaviour matches RedisStore byte for byte.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
	codec   *Codec
}

func NewMemoryStore(codec *Codec) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]byte),
		codec:   codec,
	}
}

func (s *MemoryStore) Read(_ context.Context, key string) (Entry, error) {
	s.mu.RLock()
	raw, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return AbsentEntry(), nil
	}
	return s.codec.Decode(raw)
}

func (s *MemoryStore) Write(_ context.Context, key string, e Entry) error {
	raw, err := s.codec.Encode(e)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entries[key] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	_, ok := s.entries[key]
	s.mu.RUnlock()
	return ok, nil
}

// Keys returns the sorted keys matching a glob pattern
func (s *MemoryStore) Keys(_ context.Context, pattern string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key := range s.entries {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return nil, err
		}
		if matched {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored keys
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ Store = (*MemoryStore)(nil)
