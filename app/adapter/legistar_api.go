package adapter

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/openwhatcom/civicstream/app/record"
)

// apiPageSize matches the Legistar web API's maximum $top value.
const apiPageSize = 200

// LegistarAPI ingests meetings from a Legistar-style JSON event listing.
// The listing is cursor-paginated with $top/$skip and every row is already
// complete at discovery, so Fetch re-serializes the discovered row instead
// of issuing a second network request.
type LegistarAPI struct {
	sourceID  string
	endpoint  string
	client    *http.Client
	userAgent string
	timeout   time.Duration
	maxItems  int
}

func NewLegistarAPI(sourceID, endpoint string, client *http.Client, userAgent string, timeout time.Duration, maxItems int) *LegistarAPI {
	return &LegistarAPI{
		sourceID:  sourceID,
		endpoint:  endpoint,
		client:    client,
		userAgent: userAgent,
		timeout:   timeout,
		maxItems:  maxItems,
	}
}

func (a *LegistarAPI) SourceID() string {
	return a.sourceID
}

func (a *LegistarAPI) Discover(ctx context.Context) ([]record.DiscoveredItem, error) {
	var items []record.DiscoveredItem

	skip := 0
	for {
		url := fmt.Sprintf("%s?$top=%d&$skip=%d", a.endpoint, apiPageSize, skip)
		data, _, err := fetchURL(ctx, a.client, url, a.userAgent, a.timeout)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to list events: %v", ErrSourceUnavailable, err)
		}

		var rows []map[string]any
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("%w: failed to decode event listing: %v", ErrSourceUnavailable, err)
		}

		for _, row := range rows {
			eventID := jsonFieldString(row, "EventId")
			if eventID == "" {
				continue
			}

			canonical := jsonFieldString(row, "EventInSiteURL")
			if canonical == "" {
				canonical = fmt.Sprintf("%s/%s", a.endpoint, eventID)
			}

			items = append(items, record.DiscoveredItem{
				StableID:     "meeting:" + eventID,
				CanonicalURL: canonical,
				Metadata:     row,
			})

			if a.maxItems > 0 && len(items) >= a.maxItems {
				return items, nil
			}
		}

		if len(rows) < apiPageSize {
			break
		}
		skip += apiPageSize
	}

	return items, nil
}

func (a *LegistarAPI) Fetch(ctx context.Context, item record.DiscoveredItem) (*record.RawFetch, error) {
	body, err := json.Marshal(item.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize event row: %w", err)
	}

	return &record.RawFetch{
		Body:         body,
		Headers:      map[string]string{"ETag": record.Hash(body)},
		RobotsPolicy: record.RobotsAllow,
	}, nil
}

func (a *LegistarAPI) Parse(raw *record.RawFetch) ([]record.Normalized, error) {
	var row map[string]any
	if err := json.Unmarshal(raw.Body, &row); err != nil {
		return nil, fmt.Errorf("failed to decode event row: %w", err)
	}

	eventID := jsonFieldString(row, "EventId")
	if eventID == "" {
		return nil, fmt.Errorf("event row has no EventId")
	}

	stableID := "meeting:" + eventID
	canonical := jsonFieldString(row, "EventInSiteURL")
	if canonical == "" {
		canonical = fmt.Sprintf("%s/%s", a.endpoint, eventID)
	}

	contentHash := record.Hash(raw.Body)
	retrievedAt := time.Now().UTC()

	meeting := record.Normalized{
		Type:         record.TypeMeeting,
		StableID:     stableID,
		CanonicalURL: canonical,
		Payload: map[string]any{
			"id":               stableID,
			"title":            cmp.Or(jsonFieldString(row, "EventBodyName"), "County Council"),
			"meeting_datetime": jsonFieldString(row, "EventDate"),
			"location":         jsonFieldString(row, "EventLocation"),
			"agenda_status":    cmp.Or(jsonFieldString(row, "EventAgendaStatusName"), "Unknown"),
		},
		SourceID:     a.sourceID,
		ContentHash:  contentHash,
		RetrievedAt:  retrievedAt,
		RobotsPolicy: raw.RobotsPolicy,
	}

	records := []record.Normalized{meeting}

	// Agenda items ride along inside the event row. Their parent reference
	// is filled in by Link from the sibling meeting record.
	if eventItems, ok := row["EventItems"].([]any); ok {
		for _, entry := range eventItems {
			itemRow, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			itemID := jsonFieldString(itemRow, "EventItemId")
			if itemID == "" {
				continue
			}

			payload := map[string]any{
				"id":    "agenda_item:" + itemID,
				"title": jsonFieldString(itemRow, "EventItemTitle"),
				"order": jsonFieldInt(itemRow, "EventItemAgendaSequence"),
			}
			if matterID := jsonFieldString(itemRow, "EventItemMatterId"); matterID != "" {
				payload["matter_id"] = "matter:" + matterID
			}

			records = append(records, record.Normalized{
				Type:         record.TypeAgendaItem,
				StableID:     "agenda_item:" + itemID,
				CanonicalURL: canonical,
				Payload:      payload,
				SourceID:     a.sourceID,
				ContentHash:  contentHash,
				RetrievedAt:  retrievedAt,
				RobotsPolicy: raw.RobotsPolicy,
			})
		}
	}

	return records, nil
}

// Link back-fills the parent meeting reference on agenda items produced in
// the same parse batch. An agenda item without a sibling meeting keeps its
// payload unchanged and is caught by validation downstream.
func (a *LegistarAPI) Link(records []record.Normalized) []record.Normalized {
	var meetingID string
	for _, r := range records {
		if r.Type == record.TypeMeeting {
			meetingID = r.StableID
			break
		}
	}

	if meetingID == "" {
		return records
	}

	for _, r := range records {
		if r.Type == record.TypeAgendaItem {
			if _, ok := r.Payload["meeting_id"]; !ok {
				r.Payload["meeting_id"] = meetingID
			}
		}
	}

	return records
}

// jsonFieldString renders a decoded JSON value as a string. Numeric IDs come
// back from encoding/json as float64, so integral floats are formatted
// without a fraction.
func jsonFieldString(row map[string]any, key string) string {
	switch v := row[key].(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func jsonFieldInt(row map[string]any, key string) int {
	switch v := row[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}
