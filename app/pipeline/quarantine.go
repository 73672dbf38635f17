package pipeline

import (
	"sync"
	"time"

	"github.com/openwhatcom/civicstream/app/record"
)

// Quarantine is the append-only sink for records that failed validation.
// The pipeline never mutates or deletes entries; retention is someone
// else's policy.
type Quarantine interface {
	Record(stableID, reason string, payload map[string]any) error
}

type MemoryQuarantine struct {
	mu      sync.Mutex
	entries []record.Quarantined
}

func NewMemoryQuarantine() *MemoryQuarantine {
	return &MemoryQuarantine{}
}

func (q *MemoryQuarantine) Record(stableID, reason string, payload map[string]any) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = append(q.entries, record.Quarantined{
		StableID:  stableID,
		Reason:    reason,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (q *MemoryQuarantine) Entries() []record.Quarantined {
	q.mu.Lock()
	defer q.mu.Unlock()

	entriesCopy := make([]record.Quarantined, len(q.entries))
	copy(entriesCopy, q.entries)
	return entriesCopy
}
