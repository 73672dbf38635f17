package adapter

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/text/language"

	"github.com/openwhatcom/civicstream/app/record"
)

const snippetLength = 280

// RSS ingests syndicated news coverage of local government. Feed entries
// arrive complete at discovery, so Fetch re-serializes the discovered entry
// rather than hitting the publisher's site. Snippet-only usage rights are
// recorded on every record.
type RSS struct {
	sourceID  string
	feedURL   string
	publisher string
	client    *http.Client
	userAgent string
	timeout   time.Duration
	maxItems  int
	parser    *gofeed.Parser
}

func NewRSS(sourceID, feedURL, publisher string, client *http.Client, userAgent string, timeout time.Duration, maxItems int) *RSS {
	return &RSS{
		sourceID:  sourceID,
		feedURL:   feedURL,
		publisher: publisher,
		client:    client,
		userAgent: userAgent,
		timeout:   timeout,
		maxItems:  maxItems,
		parser:    gofeed.NewParser(),
	}
}

func (a *RSS) SourceID() string {
	return a.sourceID
}

func (a *RSS) Discover(ctx context.Context) ([]record.DiscoveredItem, error) {
	data, _, err := fetchURL(ctx, a.client, a.feedURL, a.userAgent, a.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch feed: %v", ErrSourceUnavailable, err)
	}

	feed, err := a.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse feed: %v", ErrSourceUnavailable, err)
	}

	lang := normalizeLanguage(feed.Language)

	items := make([]record.DiscoveredItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		guid := cmp.Or(entry.GUID, entry.Link)
		if guid == "" {
			continue
		}

		metadata := map[string]any{
			"guid":        guid,
			"title":       entry.Title,
			"link":        entry.Link,
			"description": entry.Description,
			"publisher":   cmp.Or(a.publisher, feed.Title),
			"language":    lang,
		}
		if entry.PublishedParsed != nil {
			metadata["published_at"] = entry.PublishedParsed.UTC().Format(time.RFC3339)
		}

		items = append(items, record.DiscoveredItem{
			StableID:     "news:" + guid,
			CanonicalURL: cmp.Or(entry.Link, a.feedURL),
			Metadata:     metadata,
		})

		if a.maxItems > 0 && len(items) >= a.maxItems {
			break
		}
	}

	return items, nil
}

func (a *RSS) Fetch(ctx context.Context, item record.DiscoveredItem) (*record.RawFetch, error) {
	body, err := json.Marshal(item.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize feed entry: %w", err)
	}

	return &record.RawFetch{
		Body:         body,
		Headers:      map[string]string{"ETag": record.Hash(body)},
		RobotsPolicy: record.RobotsAllowSnippet,
	}, nil
}

func (a *RSS) Parse(raw *record.RawFetch) ([]record.Normalized, error) {
	var entry map[string]any
	if err := json.Unmarshal(raw.Body, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode feed entry: %w", err)
	}

	guid := jsonFieldString(entry, "guid")
	if guid == "" {
		return nil, fmt.Errorf("feed entry has no guid")
	}

	stableID := "news:" + guid

	snippet := jsonFieldString(entry, "description")
	if len(snippet) > snippetLength {
		snippet = snippet[:snippetLength]
	}

	payload := map[string]any{
		"id":        stableID,
		"title":     jsonFieldString(entry, "title"),
		"snippet":   snippet,
		"publisher": jsonFieldString(entry, "publisher"),
	}
	if publishedAt := jsonFieldString(entry, "published_at"); publishedAt != "" {
		payload["published_at"] = publishedAt
	}
	if lang := jsonFieldString(entry, "language"); lang != "" {
		payload["language"] = lang
	}

	return []record.Normalized{{
		Type:         record.TypeNewsItem,
		StableID:     stableID,
		CanonicalURL: cmp.Or(jsonFieldString(entry, "link"), a.feedURL),
		Payload:      payload,
		SourceID:     a.sourceID,
		ContentHash:  record.Hash(raw.Body),
		RetrievedAt:  time.Now().UTC(),
		RobotsPolicy: raw.RobotsPolicy,
	}}, nil
}

func (a *RSS) Link(records []record.Normalized) []record.Normalized {
	return records
}

// normalizeLanguage canonicalizes feed language declarations ("EN-us",
// "en_US") to a BCP 47 tag. Unparseable values pass through untouched.
func normalizeLanguage(lang string) string {
	if lang == "" {
		return ""
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return lang
	}
	return tag.String()
}
