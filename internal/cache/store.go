package cache

import (
	"sync"
	"time"
)

// Entry is a stored node output keyed by input fingerprint. Entries are
// created on first success and never auto-expired.
type Entry struct {
	Key       string         `json:"key"`
	Output    map[string]any `json:"output"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store persists node outputs across runs. Implementations must treat
// their own unavailability as a miss rather than an error the scheduler
// has to care about.
type Store interface {
	// Get returns the entry for key, or ok=false on miss (including any
	// storage failure).
	Get(key string) (*Entry, bool)
	// Put stores an output under key.
	Put(key string, output map[string]any) error
	// Clear removes every entry.
	Clear() error
}

// MemoryStore is an in-memory Store for isolated test runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

func (s *MemoryStore) Get(key string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

func (s *MemoryStore) Put(key string, output map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &Entry{Key: key, Output: output, CreatedAt: time.Now()}
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*Entry)
	return nil
}

// Len reports the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
