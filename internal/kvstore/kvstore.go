// Package kvstore provides the flat string key-value store backing device
// identity, cached coordinates and permission flags.
package kvstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Store is a flat string key-value store. Get returns ok=false for a
// missing key; Remove of a missing key is a no-op.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// Memory is an in-memory Store, used by tests and as a degraded fallback
// when the file store cannot be opened.
type Memory struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string]string)}
}

func (s *Memory) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

func (s *Memory) Set(key, value string) error {
	s.mu.Lock()
	s.m[key] = value
	s.mu.Unlock()
	return nil
}

func (s *Memory) Remove(key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

// Open returns the store rooted at dir: a JSON file named
// farmerchat-store.json under dir, or an in-memory store when dir is
// empty.
func Open(dir string) (Store, error) {
	if dir == "" {
		return NewMemory(), nil
	}
	return OpenFile(filepath.Join(dir, "farmerchat-store.json"))
}

// File is a Store persisted as a single JSON object on disk. Every write
// rewrites the file; the data set is a handful of short strings.
type File struct {
	mu   sync.Mutex
	path string
	m    map[string]string
}

// OpenFile loads (or creates) a file-backed store at path.
func OpenFile(path string) (*File, error) {
	s := &File{path: path, m: make(map[string]string)}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &s.m); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *File) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok
}

func (s *File) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return s.flushLocked()
}

func (s *File) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[key]; !ok {
		return nil
	}
	delete(s.m, key)
	return s.flushLocked()
}

func (s *File) flushLocked() error {
	b, err := json.Marshal(s.m)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
