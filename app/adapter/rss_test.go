package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openwhatcom/civicstream/app/record"
	"github.com/openwhatcom/civicstream/app/schema"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Cascadia Daily News</title>
<link>https://www.cascadiadaily.com</link>
<language>EN-us</language>
<item>
<title>Council approves flood district budget</title>
<link>https://www.cascadiadaily.com/news/council-budget</link>
<guid>https://www.cascadiadaily.com/news/council-budget</guid>
<description>%s</description>
<pubDate>Tue, 25 Aug 2026 09:00:00 GMT</pubDate>
</item>
<item>
<title>Planning commission delays shoreline vote</title>
<link>https://www.cascadiadaily.com/news/shoreline-vote</link>
<guid>https://www.cascadiadaily.com/news/shoreline-vote</guid>
<description>The commission postponed its decision to September.</description>
</item>
</channel>
</rss>`

func newFeedServer(t *testing.T, description string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, feedXML, description)
	}))
}

func TestRSSDiscover(t *testing.T) {
	server := newFeedServer(t, "The council voted 5-2 on Tuesday.")
	defer server.Close()

	a := NewRSS("county_news", server.URL, "Cascadia Daily News", server.Client(), "test-agent", 5*time.Second, 0)

	items, err := a.Discover(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(items))
	}

	first := items[0]
	if first.StableID != "news:https://www.cascadiadaily.com/news/council-budget" {
		t.Errorf("Unexpected stable ID: %s", first.StableID)
	}
	if first.Metadata["publisher"] != "Cascadia Daily News" {
		t.Errorf("Unexpected publisher: %v", first.Metadata["publisher"])
	}
	// Feed language declarations are canonicalized to BCP 47
	if first.Metadata["language"] != "en-US" {
		t.Errorf("Expected language 'en-US', got: %v", first.Metadata["language"])
	}
	if _, ok := first.Metadata["published_at"]; !ok {
		t.Error("Expected published_at for dated entry")
	}
	if _, ok := items[1].Metadata["published_at"]; ok {
		t.Error("Expected no published_at for undated entry")
	}
}

func TestRSSDiscoverUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	a := NewRSS("county_news", server.URL, "", server.Client(), "test-agent", 5*time.Second, 0)

	_, err := a.Discover(context.Background())
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("Expected ErrSourceUnavailable, got: %v", err)
	}
}

func TestRSSFetchAndParse(t *testing.T) {
	longDescription := strings.Repeat("City hall reporting continues. ", 20)
	server := newFeedServer(t, longDescription)
	defer server.Close()

	a := NewRSS("county_news", server.URL, "Cascadia Daily News", server.Client(), "test-agent", 5*time.Second, 0)

	items, err := a.Discover(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	raw, err := a.Fetch(context.Background(), items[0])
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if raw.RobotsPolicy != record.RobotsAllowSnippet {
		t.Errorf("Expected allow-snippet policy, got: %s", raw.RobotsPolicy)
	}

	records, err := a.Parse(raw)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got: %d", len(records))
	}

	rec := records[0]
	if rec.Type != record.TypeNewsItem {
		t.Errorf("Expected news item record, got: %s", rec.Type)
	}
	if rec.Payload["title"] != "Council approves flood district budget" {
		t.Errorf("Unexpected title: %v", rec.Payload["title"])
	}

	// Usage rights limit carried text to a bounded snippet
	snippet, ok := rec.Payload["snippet"].(string)
	if !ok {
		t.Fatal("Expected snippet in payload")
	}
	if len(snippet) > snippetLength {
		t.Errorf("Expected snippet capped at %d bytes, got: %d", snippetLength, len(snippet))
	}
	if rec.RobotsPolicy != record.RobotsAllowSnippet {
		t.Errorf("Expected allow-snippet policy on record, got: %s", rec.RobotsPolicy)
	}

	if err := schema.Validate(rec); err != nil {
		t.Errorf("Expected parsed record to validate, got: %v", err)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"EN-us", "en-US"},
		{"en", "en"},
		{"", ""},
		{"not a language tag", "not a language tag"},
	}

	for _, tt := range tests {
		if got := normalizeLanguage(tt.input); got != tt.expected {
			t.Errorf("normalizeLanguage(%q): expected %q, got: %q", tt.input, tt.expected, got)
		}
	}
}
