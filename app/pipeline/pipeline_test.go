package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/openwhatcom/civicstream/app/adapter"
	"github.com/openwhatcom/civicstream/app/record"
)

// mockAdapter serves pre-baked record batches. Fetch returns the serialized
// batch for an item, Parse decodes it, so content hashes follow the batch
// bytes exactly as they do for real adapters.
type mockAdapter struct {
	sourceID    string
	items       []record.DiscoveredItem
	bodies      map[string][]byte
	fetchFail   map[string]bool
	discoverErr error
	linkCalls   int
}

var _ adapter.SourceAdapter = (*mockAdapter)(nil)

func (m *mockAdapter) SourceID() string {
	return m.sourceID
}

func (m *mockAdapter) Discover(ctx context.Context) ([]record.DiscoveredItem, error) {
	if m.discoverErr != nil {
		return nil, m.discoverErr
	}
	return m.items, nil
}

func (m *mockAdapter) Fetch(ctx context.Context, item record.DiscoveredItem) (*record.RawFetch, error) {
	if m.fetchFail[item.StableID] {
		return nil, fmt.Errorf("connection refused")
	}
	body := m.bodies[item.StableID]
	return &record.RawFetch{
		Body:         body,
		Headers:      map[string]string{"ETag": record.Hash(body)},
		RobotsPolicy: record.RobotsAllow,
	}, nil
}

func (m *mockAdapter) Parse(raw *record.RawFetch) ([]record.Normalized, error) {
	var records []record.Normalized
	if err := json.Unmarshal(raw.Body, &records); err != nil {
		return nil, err
	}
	for i := range records {
		records[i].SourceID = m.sourceID
		records[i].ContentHash = record.Hash(raw.Body)
		records[i].RetrievedAt = time.Now().UTC()
		records[i].RobotsPolicy = raw.RobotsPolicy
	}
	return records, nil
}

func (m *mockAdapter) Link(records []record.Normalized) []record.Normalized {
	m.linkCalls++
	return records
}

func meetingBatch(t *testing.T, stableID, title, datetime string) []byte {
	t.Helper()
	payload := map[string]any{"id": stableID, "title": title}
	if datetime != "" {
		payload["meeting_datetime"] = datetime
	}
	body, err := json.Marshal([]record.Normalized{{
		Type:         record.TypeMeeting,
		StableID:     stableID,
		CanonicalURL: "https://example.com/" + stableID,
		Payload:      payload,
	}})
	if err != nil {
		t.Fatalf("Failed to marshal batch: %v", err)
	}
	return body
}

func newMockAdapter(t *testing.T, stableIDs ...string) *mockAdapter {
	t.Helper()
	m := &mockAdapter{
		sourceID:  "test_source",
		bodies:    make(map[string][]byte),
		fetchFail: make(map[string]bool),
	}
	for _, id := range stableIDs {
		m.items = append(m.items, record.DiscoveredItem{
			StableID:     id,
			CanonicalURL: "https://example.com/" + id,
			Metadata:     map[string]any{},
		})
		m.bodies[id] = meetingBatch(t, id, "County Council", "2026-07-03T18:00:00Z")
	}
	return m
}

func TestRunInsertsRecords(t *testing.T) {
	m := newMockAdapter(t, "meeting:1", "meeting:2")
	store := NewMemoryStore()
	p := New(store, NewMemoryQuarantine(), NewMemoryAudit(), 2)

	result, err := p.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Inserted != 2 {
		t.Errorf("Expected 2 inserted, got: %d", result.Inserted)
	}
	if result.Duplicates != 0 || result.Errors != 0 || result.Skipped != 0 {
		t.Errorf("Expected clean run, got: %+v", result)
	}
	if store.Len() != 2 {
		t.Errorf("Expected 2 stored records, got: %d", store.Len())
	}
	if m.linkCalls != 2 {
		t.Errorf("Expected Link once per fetched item, got: %d", m.linkCalls)
	}
}

func TestRunIdempotence(t *testing.T) {
	m := newMockAdapter(t, "meeting:1", "meeting:2", "meeting:3")
	store := NewMemoryStore()
	p := New(store, NewMemoryQuarantine(), NewMemoryAudit(), 2)

	first, err := p.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if first.Inserted != 3 {
		t.Fatalf("Expected 3 inserted on first run, got: %d", first.Inserted)
	}

	second, err := p.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if second.Inserted != 0 {
		t.Errorf("Expected 0 inserted on second run, got: %d", second.Inserted)
	}
	if second.Duplicates != 3 {
		t.Errorf("Expected 3 duplicates on second run, got: %d", second.Duplicates)
	}
}

func TestRunContentChange(t *testing.T) {
	m := newMockAdapter(t, "meeting:1")
	store := NewMemoryStore()
	p := New(store, NewMemoryQuarantine(), NewMemoryAudit(), 1)

	first, _ := p.Run(context.Background(), m)
	if first.Inserted != 1 {
		t.Fatalf("Expected 1 inserted on first run, got: %d", first.Inserted)
	}

	// Upstream content changed: same stable_id, new bytes
	m.bodies["meeting:1"] = meetingBatch(t, "meeting:1", "County Council (amended)", "2026-07-03T18:00:00Z")

	second, _ := p.Run(context.Background(), m)
	if second.Inserted != 1 || second.Duplicates != 0 {
		t.Errorf("Expected changed content to count as insert, got: %+v", second)
	}

	third, _ := p.Run(context.Background(), m)
	if third.Inserted != 0 || third.Duplicates != 1 {
		t.Errorf("Expected unchanged resubmission to be a duplicate, got: %+v", third)
	}
}

func TestRunQuarantinesInvalidRecords(t *testing.T) {
	m := newMockAdapter(t, "meeting:1", "meeting:2")
	// meeting:2 is missing its required meeting_datetime
	m.bodies["meeting:2"] = meetingBatch(t, "meeting:2", "County Council", "")

	store := NewMemoryStore()
	quarantine := NewMemoryQuarantine()
	p := New(store, quarantine, NewMemoryAudit(), 2)

	result, err := p.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Inserted != 1 {
		t.Errorf("Expected 1 inserted, got: %d", result.Inserted)
	}
	if result.Errors != 1 {
		t.Errorf("Expected 1 error, got: %d", result.Errors)
	}

	entries := quarantine.Entries()
	if len(entries) != 1 {
		t.Fatalf("Expected exactly 1 quarantine entry, got: %d", len(entries))
	}
	if entries[0].StableID != "meeting:2" {
		t.Errorf("Expected quarantined stable_id 'meeting:2', got: %s", entries[0].StableID)
	}
	if entries[0].Reason == "" {
		t.Error("Expected non-empty quarantine reason")
	}

	// A quarantined record must never reach the store
	if _, ok := store.ContentHash("meeting:2"); ok {
		t.Error("Expected invalid record to be absent from store")
	}
}

func TestRunFetchFailureIsolation(t *testing.T) {
	m := newMockAdapter(t, "meeting:1", "meeting:2", "meeting:3")
	m.fetchFail["meeting:2"] = true

	store := NewMemoryStore()
	p := New(store, NewMemoryQuarantine(), NewMemoryAudit(), 2)

	result, err := p.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Skipped != 1 {
		t.Errorf("Expected 1 skipped, got: %d", result.Skipped)
	}
	if result.Inserted != 2 {
		t.Errorf("Expected other items to still be processed, got: %d inserted", result.Inserted)
	}
	if result.Errors != 0 {
		t.Errorf("Expected fetch failure not to count as error, got: %d", result.Errors)
	}
}

func TestRunDiscoverFailure(t *testing.T) {
	m := newMockAdapter(t)
	m.discoverErr = fmt.Errorf("%w: listing returned 503", adapter.ErrSourceUnavailable)

	p := New(NewMemoryStore(), NewMemoryQuarantine(), NewMemoryAudit(), 2)

	result, err := p.Run(context.Background(), m)
	if err == nil {
		t.Fatal("Expected error for failed discovery")
	}
	if !errors.Is(err, adapter.ErrSourceUnavailable) {
		t.Errorf("Expected ErrSourceUnavailable, got: %v", err)
	}
	if result.Inserted != 0 || result.Errors != 0 {
		t.Errorf("Expected empty result, got: %+v", result)
	}
}

func TestRunParseFailure(t *testing.T) {
	m := newMockAdapter(t, "meeting:1")
	m.bodies["meeting:1"] = []byte("not json")

	quarantine := NewMemoryQuarantine()
	p := New(NewMemoryStore(), quarantine, NewMemoryAudit(), 1)

	result, err := p.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Errors != 1 {
		t.Errorf("Expected 1 error, got: %d", result.Errors)
	}
	entries := quarantine.Entries()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 quarantine entry, got: %d", len(entries))
	}
	if entries[0].Reason == "" {
		t.Error("Expected non-empty quarantine reason")
	}
}

func TestRunAuditsEveryFetch(t *testing.T) {
	m := newMockAdapter(t, "meeting:1", "meeting:2")
	// meeting:2 fails validation, but its fetch must still be audited
	m.bodies["meeting:2"] = meetingBatch(t, "meeting:2", "County Council", "")

	audit := NewMemoryAudit()
	p := New(NewMemoryStore(), NewMemoryQuarantine(), audit, 2)

	if _, err := p.Run(context.Background(), m); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	events := audit.Events()
	if len(events) != 2 {
		t.Fatalf("Expected 2 audit events, got: %d", len(events))
	}
	for _, event := range events {
		if event.SourceID != "test_source" {
			t.Errorf("Expected source_id 'test_source', got: %s", event.SourceID)
		}
		if event.FetchedAt.IsZero() {
			t.Error("Expected fetched_at to be set")
		}
	}
}

func TestRunCancellation(t *testing.T) {
	m := newMockAdapter(t, "meeting:1", "meeting:2")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(NewMemoryStore(), NewMemoryQuarantine(), NewMemoryAudit(), 1)

	// A cancelled context stops the feed; the run still returns cleanly
	result, err := p.Run(ctx, m)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.Inserted > 2 {
		t.Errorf("Unexpected result: %+v", result)
	}
}
