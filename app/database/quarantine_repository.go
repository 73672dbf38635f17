package database

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// QuarantineRepository is the durable append-only sink for records that
// failed validation. Entries are never updated or deleted here; retention
// is an operational concern outside the ingestion core.
type quarantineRepository struct {
	db *DB
}

func NewQuarantineRepository(db *DB) QuarantineRepository {
	return &quarantineRepository{db: db}
}

func (r *quarantineRepository) Record(stableID, reason string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize payload: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO quarantine (id, stable_id, reason, payload)
		VALUES (?, ?, ?, ?)
	`, uuid.NewString(), stableID, reason, string(data))

	if err != nil {
		return fmt.Errorf("failed to append quarantine entry: %w", err)
	}

	return nil
}

func (r *quarantineRepository) GetEntries(limit int) ([]QuarantineEntry, error) {
	rows, err := r.db.Query(`
		SELECT id, stable_id, reason, payload, created_at
		FROM quarantine
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get quarantine entries: %w", err)
	}
	defer rows.Close()

	var entries []QuarantineEntry
	for rows.Next() {
		var entry QuarantineEntry
		var payload string
		if err := rows.Scan(&entry.ID, &entry.StableID, &entry.Reason, &payload, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quarantine row: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &entry.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode quarantine payload: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quarantine rows: %w", err)
	}

	return entries, nil
}

func (r *quarantineRepository) GetEntryCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM quarantine").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get quarantine count: %w", err)
	}
	return count, nil
}
