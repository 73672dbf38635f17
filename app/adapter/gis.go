package adapter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openwhatcom/civicstream/app/record"
)

// excerptLength bounds how much of a dataset body is carried into the
// document payload for indexing.
const excerptLength = 4000

// GIS ingests a single static dataset endpoint. The whole dataset is one
// discovered item; its body may be binary, so only a bounded text excerpt
// lands in the normalized payload while the content hash covers the full
// raw bytes.
type GIS struct {
	sourceID  string
	endpoint  string
	dataset   string
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

func NewGIS(sourceID, endpoint, dataset string, client *http.Client, userAgent string, timeout time.Duration) *GIS {
	return &GIS{
		sourceID:  sourceID,
		endpoint:  endpoint,
		dataset:   dataset,
		client:    client,
		userAgent: userAgent,
		timeout:   timeout,
	}
}

func (a *GIS) SourceID() string {
	return a.sourceID
}

func (a *GIS) Discover(ctx context.Context) ([]record.DiscoveredItem, error) {
	return []record.DiscoveredItem{{
		StableID:     "gis:" + a.dataset,
		CanonicalURL: a.endpoint,
		Metadata:     map[string]any{},
	}}, nil
}

func (a *GIS) Fetch(ctx context.Context, item record.DiscoveredItem) (*record.RawFetch, error) {
	data, headers, err := fetchURL(ctx, a.client, a.endpoint, a.userAgent, a.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dataset: %w", err)
	}

	if _, ok := headers["ETag"]; !ok {
		headers["ETag"] = record.Hash(data)
	}

	return &record.RawFetch{
		Body:         data,
		Headers:      headers,
		RobotsPolicy: record.RobotsAllow,
	}, nil
}

func (a *GIS) Parse(raw *record.RawFetch) ([]record.Normalized, error) {
	stableID := fmt.Sprintf("gis:%s:%s", a.dataset, record.ShortHash(raw.Body, 8))

	return []record.Normalized{{
		Type:         record.TypeDocument,
		StableID:     stableID,
		CanonicalURL: a.endpoint,
		Payload: map[string]any{
			"id":         stableID,
			"title":      "GIS Dataset: " + a.dataset,
			"text":       excerpt(raw.Body, excerptLength),
			"page_count": 1,
		},
		SourceID:     a.sourceID,
		ContentHash:  record.Hash(raw.Body),
		RetrievedAt:  time.Now().UTC(),
		RobotsPolicy: raw.RobotsPolicy,
	}}, nil
}

func (a *GIS) Link(records []record.Normalized) []record.Normalized {
	return records
}

// excerpt truncates to at most n bytes and drops invalid UTF-8 sequences
// from binary payloads.
func excerpt(data []byte, n int) string {
	if len(data) > n {
		data = data[:n]
	}
	return strings.ToValidUTF8(string(data), "")
}
