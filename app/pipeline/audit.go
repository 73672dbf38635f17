package pipeline

import (
	"sync"

	"github.com/openwhatcom/civicstream/app/record"
)

// AuditSink receives one event per successful fetch, independent of
// validation outcome, so usage rights and retrieval provenance stay
// reviewable even for records that never reach the store.
type AuditSink interface {
	RecordFetch(event record.FetchEvent) error
}

type MemoryAudit struct {
	mu     sync.Mutex
	events []record.FetchEvent
}

func NewMemoryAudit() *MemoryAudit {
	return &MemoryAudit{}
}

func (a *MemoryAudit) RecordFetch(event record.FetchEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

func (a *MemoryAudit) Events() []record.FetchEvent {
	a.mu.Lock()
	defer a.mu.Unlock()

	eventsCopy := make([]record.FetchEvent, len(a.events))
	copy(eventsCopy, a.events)
	return eventsCopy
}
