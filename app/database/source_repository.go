package database

import (
	"database/sql"
	"fmt"
	"time"
)

// SourceRepository tracks the configured sources and their run state, which
// the scheduler uses to decide when a source is due for another pass.
type sourceRepository struct {
	db *DB
}

func NewSourceRepository(db *DB) SourceRepository {
	return &sourceRepository{db: db}
}

func (r *sourceRepository) GetSource(sourceName string) (*Source, error) {
	var source Source

	err := r.db.QueryRow(`
		SELECT name, kind, url, last_fetched_at, next_fetch_at, created_at, updated_at
		FROM sources
		WHERE name = ?
	`, sourceName).Scan(
		&source.Name, &source.Kind, &source.URL,
		&source.LastFetchedAt, &source.NextFetchAt,
		&source.CreatedAt, &source.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return &source, nil
}

func (r *sourceRepository) GetSourceCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM sources").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}

// UpsertSource registers a configured source, updating kind and url when the
// configuration file changed.
func (r *sourceRepository) UpsertSource(sourceName, kind, url string) error {
	_, err := r.db.Exec(`
		INSERT INTO sources (name, kind, url)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			kind = excluded.kind,
			url = excluded.url,
			updated_at = CURRENT_TIMESTAMP
	`, sourceName, kind, url)

	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}

	return nil
}

// UpdateSourceRunState stamps the completed run and schedules the next one.
func (r *sourceRepository) UpdateSourceRunState(sourceName string, nextFetch time.Time) error {
	_, err := r.db.Exec(`
		UPDATE sources
		SET last_fetched_at = CURRENT_TIMESTAMP,
		    next_fetch_at = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE name = ?
	`, nextFetch.UTC(), sourceName)

	if err != nil {
		return fmt.Errorf("failed to update source run state: %w", err)
	}

	return nil
}
