package adapter

import (
	"context"

	"github.com/openwhatcom/civicstream/app/record"
)

// SourceAdapter is the capability contract one upstream source kind
// implements. Discover enumerates candidate items from a listing without
// fetching full content; Fetch retrieves one item and is safe to retry;
// Parse converts raw bytes into zero or more normalized records without
// touching the network; Link may rewrite records using only the records
// produced within the same Parse batch.
type SourceAdapter interface {
	SourceID() string
	Discover(ctx context.Context) ([]record.DiscoveredItem, error)
	Fetch(ctx context.Context, item record.DiscoveredItem) (*record.RawFetch, error)
	Parse(raw *record.RawFetch) ([]record.Normalized, error)
	Link(records []record.Normalized) []record.Normalized
}
