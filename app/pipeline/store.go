package pipeline

import (
	"sync"

	"github.com/openwhatcom/civicstream/app/record"
)

// Store answers "is this a no-op re-fetch?". The changed decision is keyed
// on stable_id and content_hash and must be linearizable per stable_id: it
// is always made against the latest committed state.
type Store interface {
	Upsert(rec record.Normalized) (bool, error)
}

type storeEntry struct {
	payload     map[string]any
	contentHash string
}

// MemoryStore is the process-local dedup cache used for single-run dedup and
// tests. Production deployments back the same interface with the durable
// record repository so dedup survives restarts.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]storeEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]storeEntry),
	}
}

func (s *MemoryStore) Upsert(rec record.Normalized) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[rec.StableID]; ok && existing.contentHash == rec.ContentHash {
		return false, nil
	}

	s.entries[rec.StableID] = storeEntry{payload: rec.Payload, contentHash: rec.ContentHash}
	return true, nil
}

// Len reports the number of distinct stable identifiers stored.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// ContentHash returns the stored hash for a stable identifier, if any.
func (s *MemoryStore) ContentHash(stableID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[stableID]
	if !ok {
		return "", false
	}
	return entry.contentHash, true
}
