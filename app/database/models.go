package database

import (
	"time"
)

type Source struct {
	Name          string // Configuration source identifier derived from filename
	Kind          string
	URL           string
	LastFetchedAt *time.Time
	NextFetchAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Record struct {
	ID           string // Database UUID
	StableID     string
	RecordType   string
	CanonicalURL string
	SourceID     string
	ContentHash  string
	Payload      map[string]any
	RobotsPolicy string
	RetrievedAt  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type QuarantineEntry struct {
	ID        string
	StableID  string
	Reason    string
	Payload   map[string]any
	CreatedAt time.Time
}

type FetchAuditEntry struct {
	ID           string
	SourceID     string
	URL          string
	Headers      map[string]string
	RobotsPolicy string
	FetchedAt    time.Time
}
