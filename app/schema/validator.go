package schema

import (
	"time"

	"github.com/openwhatcom/civicstream/app/record"
)

// Validate checks a normalized record against the schema declared by its
// type. Validation is purely structural: it never consults network or
// storage state. A nil return means the record may enter the store.
func Validate(rec record.Normalized) error {
	if err := validateEnvelope(rec); err != nil {
		return err
	}

	switch rec.Type {
	case record.TypeMeeting:
		return validateMeeting(rec.Payload)
	case record.TypeAgendaItem:
		return validateAgendaItem(rec.Payload)
	case record.TypeMatter:
		return validateMatter(rec.Payload)
	case record.TypeVote:
		return validateVote(rec.Payload)
	case record.TypeDocument:
		return validateDocument(rec.Payload)
	case record.TypeNewsItem:
		return validateNewsItem(rec.Payload)
	default:
		return &Violation{Field: "record_type", Reason: "unrecognized record type: " + string(rec.Type)}
	}
}

func validateEnvelope(rec record.Normalized) error {
	if rec.StableID == "" {
		return missing("stable_id")
	}
	if rec.CanonicalURL == "" {
		return missing("canonical_url")
	}
	if rec.ContentHash == "" {
		return missing("content_hash")
	}
	if rec.RetrievedAt.IsZero() {
		return missing("retrieved_at")
	}
	if !rec.RobotsPolicy.Valid() {
		return &Violation{Field: "robots_policy", Reason: "unrecognized robots policy: " + string(rec.RobotsPolicy)}
	}
	return nil
}

func validateMeeting(payload map[string]any) error {
	if err := requireString(payload, "title"); err != nil {
		return err
	}
	if err := requireTimestamp(payload, "meeting_datetime"); err != nil {
		return err
	}
	if err := optionalString(payload, "location"); err != nil {
		return err
	}
	return optionalString(payload, "agenda_status")
}

func validateAgendaItem(payload map[string]any) error {
	if _, ok := payload["meeting_id"]; !ok {
		// Distinguishes a failed cross-reference from an ordinary missing
		// field so triage can separate linkage problems from bad payloads.
		return &Violation{Field: "meeting_id", Reason: "unresolved cross-reference to parent meeting"}
	}
	if err := requireString(payload, "meeting_id"); err != nil {
		return err
	}
	if err := requireString(payload, "title"); err != nil {
		return err
	}
	if err := requireInteger(payload, "order"); err != nil {
		return err
	}
	return optionalString(payload, "matter_id")
}

func validateMatter(payload map[string]any) error {
	for _, field := range []string{"matter_type", "title", "status"} {
		if err := requireString(payload, field); err != nil {
			return err
		}
	}
	if err := optionalString(payload, "sponsor"); err != nil {
		return err
	}
	return optionalTimestamp(payload, "introduced_at")
}

func validateVote(payload map[string]any) error {
	for _, field := range []string{"matter_id", "person_name", "vote_value"} {
		if err := requireString(payload, field); err != nil {
			return err
		}
	}
	return nil
}

func validateDocument(payload map[string]any) error {
	if err := requireString(payload, "title"); err != nil {
		return err
	}
	if _, ok := payload["text"]; !ok {
		return missing("text")
	}
	if _, ok := payload["text"].(string); !ok {
		return wrongShape("text", "string")
	}
	if err := requireInteger(payload, "page_count"); err != nil {
		return err
	}
	return validateCitations(payload)
}

func validateNewsItem(payload map[string]any) error {
	for _, field := range []string{"title", "snippet", "publisher"} {
		if err := requireString(payload, field); err != nil {
			return err
		}
	}
	if err := optionalTimestamp(payload, "published_at"); err != nil {
		return err
	}
	return optionalString(payload, "language")
}

// validateCitations checks the optional list of citation spans on document
// records: each span needs integer page, line_start and line_end.
func validateCitations(payload map[string]any) error {
	raw, ok := payload["citations"]
	if !ok {
		return nil
	}

	spans, ok := raw.([]any)
	if !ok {
		// A typed slice also satisfies the shape requirement.
		typed, isTyped := raw.([]map[string]any)
		if !isTyped {
			return wrongShape("citations", "list of citation spans")
		}
		for _, span := range typed {
			if err := validateSpan(span); err != nil {
				return err
			}
		}
		return nil
	}

	for _, entry := range spans {
		span, ok := entry.(map[string]any)
		if !ok {
			return wrongShape("citations", "list of citation spans")
		}
		if err := validateSpan(span); err != nil {
			return err
		}
	}
	return nil
}

func validateSpan(span map[string]any) error {
	for _, field := range []string{"page", "line_start", "line_end"} {
		if err := requireInteger(span, field); err != nil {
			return &Violation{Field: "citations", Reason: err.(*Violation).Error()}
		}
	}
	return nil
}

func requireString(payload map[string]any, field string) error {
	raw, ok := payload[field]
	if !ok || raw == nil {
		return missing(field)
	}
	s, ok := raw.(string)
	if !ok {
		return wrongShape(field, "string")
	}
	if s == "" {
		return &Violation{Field: field, Reason: "required field is empty"}
	}
	return nil
}

func optionalString(payload map[string]any, field string) error {
	raw, ok := payload[field]
	if !ok || raw == nil {
		return nil
	}
	if _, ok := raw.(string); !ok {
		return wrongShape(field, "string")
	}
	return nil
}

// requireInteger accepts native ints and integral float64 values, since
// payloads decoded from JSON carry all numbers as float64.
func requireInteger(payload map[string]any, field string) error {
	raw, ok := payload[field]
	if !ok || raw == nil {
		return missing(field)
	}
	switch v := raw.(type) {
	case int, int32, int64:
		return nil
	case float64:
		if v == float64(int64(v)) {
			return nil
		}
		return wrongShape(field, "integer")
	default:
		return wrongShape(field, "integer")
	}
}

func requireTimestamp(payload map[string]any, field string) error {
	raw, ok := payload[field]
	if !ok || raw == nil {
		return missing(field)
	}
	return checkTimestamp(raw, field)
}

func optionalTimestamp(payload map[string]any, field string) error {
	raw, ok := payload[field]
	if !ok || raw == nil {
		return nil
	}
	return checkTimestamp(raw, field)
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func checkTimestamp(raw any, field string) error {
	switch v := raw.(type) {
	case time.Time:
		return nil
	case string:
		for _, layout := range timestampLayouts {
			if _, err := time.Parse(layout, v); err == nil {
				return nil
			}
		}
		return &Violation{Field: field, Reason: "field must be a parseable timestamp"}
	default:
		return wrongShape(field, "timestamp")
	}
}
