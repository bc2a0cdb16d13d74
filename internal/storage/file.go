// Package storage provides the swappable document stores backing the news
// cache: a JSON file, an in-memory map and a Postgres table. All three
// persist opaque JSON documents by key; TTL decisions belong to the caller.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps all documents in a single pretty-printed JSON file, the
// same shape the site served from data/news_cache.json. Every write rewrites
// the whole file; the mutex only guards against concurrent writers within
// this process.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Get(key string, dest any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.read()
	if err != nil {
		return false, err
	}
	raw, ok := docs[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cached document %q: %w", key, err)
	}
	return true, nil
}

func (s *FileStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.read()
	if err != nil {
		// A corrupt cache file is not worth failing a fetch over; start over.
		docs = map[string]json.RawMessage{}
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode document %q: %w", key, err)
	}
	docs[key] = raw

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache file: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	return nil
}

func (s *FileStore) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return map[string]json.RawMessage{}, nil
	}

	docs := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse cache file %s: %w", s.path, err)
	}
	return docs, nil
}
