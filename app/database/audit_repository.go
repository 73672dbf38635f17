package database

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/openwhatcom/civicstream/app/record"
)

// AuditRepository persists one row per successful fetch for provenance
// review, independent of whether the fetched content validated.
type auditRepository struct {
	db *DB
}

func NewAuditRepository(db *DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) RecordFetch(event record.FetchEvent) error {
	data, err := json.Marshal(event.Headers)
	if err != nil {
		return fmt.Errorf("failed to serialize headers: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO fetch_audit (id, source_id, url, headers, robots_policy, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), event.SourceID, event.URL, string(data), string(event.RobotsPolicy), event.FetchedAt.UTC())

	if err != nil {
		return fmt.Errorf("failed to record fetch event: %w", err)
	}

	return nil
}

func (r *auditRepository) GetEventCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM fetch_audit").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get audit event count: %w", err)
	}
	return count, nil
}
