package record

import (
	"time"
)

// Type identifies which schema a normalized record's payload must satisfy.
type Type string

const (
	TypeMeeting    Type = "meeting"
	TypeAgendaItem Type = "agenda_item"
	TypeMatter     Type = "matter"
	TypeVote       Type = "vote"
	TypeDocument   Type = "document"
	TypeNewsItem   Type = "news_item"
)

func (t Type) Valid() bool {
	switch t {
	case TypeMeeting, TypeAgendaItem, TypeMatter, TypeVote, TypeDocument, TypeNewsItem:
		return true
	default:
		return false
	}
}

// RobotsPolicy is the usage-rights tag attached to fetched content. It
// constrains what downstream consumers may display, not what we store.
type RobotsPolicy string

const (
	RobotsAllow        RobotsPolicy = "allow"
	RobotsAllowSnippet RobotsPolicy = "allow-snippet"
	RobotsDeny         RobotsPolicy = "deny"
)

func (p RobotsPolicy) Valid() bool {
	switch p {
	case RobotsAllow, RobotsAllowSnippet, RobotsDeny:
		return true
	default:
		return false
	}
}

// DiscoveredItem is a candidate unit of work produced by an adapter's
// Discover pass, before any full-content fetch has happened.
type DiscoveredItem struct {
	StableID     string
	CanonicalURL string
	Metadata     map[string]any
}

// RawFetch holds the raw retrieved bytes for one discovered item plus the
// transport metadata needed for change detection and provenance.
type RawFetch struct {
	Body         []byte
	Headers      map[string]string
	RobotsPolicy RobotsPolicy
}

// Normalized is the pipeline's unit of currency. ContentHash is always
// recomputed from the fetched body, never taken on faith from upstream
// headers.
type Normalized struct {
	Type         Type
	StableID     string
	CanonicalURL string
	Payload      map[string]any
	SourceID     string
	ContentHash  string
	RetrievedAt  time.Time
	RobotsPolicy RobotsPolicy
}

// Quarantined is one validation failure, kept verbatim for later triage.
type Quarantined struct {
	StableID  string
	Reason    string
	Payload   map[string]any
	Timestamp time.Time
}

// FetchEvent describes one successful fetch for the provenance audit trail.
type FetchEvent struct {
	SourceID     string
	URL          string
	Headers      map[string]string
	RobotsPolicy RobotsPolicy
	FetchedAt    time.Time
}
