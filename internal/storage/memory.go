package storage

import (
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is the in-process store used in tests and as the default
// backend. Documents round-trip through JSON so behavior matches the
// persistent stores exactly.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]json.RawMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]json.RawMessage)}
}

func (s *MemoryStore) Get(key string, dest any) (bool, error) {
	s.mu.RLock()
	raw, ok := s.docs[key]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cached document %q: %w", key, err)
	}
	return true, nil
}

func (s *MemoryStore) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode document %q: %w", key, err)
	}

	s.mu.Lock()
	s.docs[key] = raw
	s.mu.Unlock()
	return nil
}
