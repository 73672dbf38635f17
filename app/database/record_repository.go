package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openwhatcom/civicstream/app/record"
)

// RecordRepository persists accepted normalized records and doubles as the
// pipeline's durable dedup store, so "is this a no-op re-fetch?" survives
// process restarts.
type recordRepository struct {
	db *DB
}

func NewRecordRepository(db *DB) RecordRepository {
	return &recordRepository{db: db}
}

// Upsert compares the committed content hash for rec's stable_id inside a
// transaction and stores the record when it is new or changed. The whole
// decision runs in one transaction so concurrent upserts for the same
// stable_id cannot lose updates.
func (r *recordRepository) Upsert(rec record.Normalized) (bool, error) {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return false, fmt.Errorf("failed to serialize payload: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existingHash string
	err = tx.QueryRow("SELECT content_hash FROM records WHERE stable_id = ?", rec.StableID).Scan(&existingHash)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("failed to check existing record: %w", err)
	}

	if err == nil && existingHash == rec.ContentHash {
		return false, nil
	}

	_, err = tx.Exec(`
		INSERT INTO records (
			id, stable_id, record_type, canonical_url, source_id,
			content_hash, payload, robots_policy, retrieved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (stable_id) DO UPDATE SET
			record_type = excluded.record_type,
			canonical_url = excluded.canonical_url,
			source_id = excluded.source_id,
			content_hash = excluded.content_hash,
			payload = excluded.payload,
			robots_policy = excluded.robots_policy,
			retrieved_at = excluded.retrieved_at,
			updated_at = CURRENT_TIMESTAMP
	`, uuid.NewString(), rec.StableID, string(rec.Type), rec.CanonicalURL, rec.SourceID,
		rec.ContentHash, string(payload), string(rec.RobotsPolicy), rec.RetrievedAt.UTC())

	if err != nil {
		return false, fmt.Errorf("failed to store record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit record: %w", err)
	}

	return true, nil
}

// GetRecord returns the stored record for a stable identifier
func (r *recordRepository) GetRecord(stableID string) (*Record, error) {
	var rec Record
	var payload string
	var retrievedAt time.Time

	err := r.db.QueryRow(`
		SELECT id, stable_id, record_type, canonical_url, source_id,
		       content_hash, payload, robots_policy, retrieved_at, created_at, updated_at
		FROM records
		WHERE stable_id = ?
	`, stableID).Scan(
		&rec.ID, &rec.StableID, &rec.RecordType, &rec.CanonicalURL, &rec.SourceID,
		&rec.ContentHash, &payload, &rec.RobotsPolicy, &retrievedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	rec.RetrievedAt = retrievedAt
	if err := json.Unmarshal([]byte(payload), &rec.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	return &rec, nil
}

// GetRecordCount returns the total number of stored records
func (r *recordRepository) GetRecordCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get record count: %w", err)
	}
	return count, nil
}

// GetRecordCountsByType returns stored record counts grouped by record type
func (r *recordRepository) GetRecordCountsByType() (map[string]int, error) {
	rows, err := r.db.Query("SELECT record_type, COUNT(*) FROM records GROUP BY record_type")
	if err != nil {
		return nil, fmt.Errorf("failed to get record counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var recordType string
		var count int
		if err := rows.Scan(&recordType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[recordType] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating count rows: %w", err)
	}

	return counts, nil
}
