package database

import (
	"time"

	"github.com/openwhatcom/civicstream/app/record"
)

type SourceRepository interface {
	GetSource(sourceName string) (*Source, error)
	GetSourceCount() (int, error)

	UpsertSource(sourceName, kind, url string) error
	UpdateSourceRunState(sourceName string, nextFetch time.Time) error
}

type RecordRepository interface {
	GetRecord(stableID string) (*Record, error)
	GetRecordCount() (int, error)
	GetRecordCountsByType() (map[string]int, error)

	// Upsert satisfies the pipeline's dedup store contract: it reports
	// false when an entry with the same stable_id and content_hash is
	// already committed, and persists the full record otherwise.
	Upsert(rec record.Normalized) (bool, error)
}

type QuarantineRepository interface {
	Record(stableID, reason string, payload map[string]any) error
	GetEntries(limit int) ([]QuarantineEntry, error)
	GetEntryCount() (int, error)
}

type AuditRepository interface {
	RecordFetch(event record.FetchEvent) error
	GetEventCount() (int, error)
}
