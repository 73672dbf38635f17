package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openwhatcom/civicstream/app/adapter"
	"github.com/openwhatcom/civicstream/app/record"
	"github.com/openwhatcom/civicstream/app/schema"
)

const DefaultWorkerCount = 4

// Result summarizes one adapter run. Skipped counts items whose fetch
// failed; those are neither inserts, duplicates nor errors.
type Result struct {
	Inserted   int
	Duplicates int
	Errors     int
	Skipped    int
}

func (r *Result) merge(other Result) {
	r.Inserted += other.Inserted
	r.Duplicates += other.Duplicates
	r.Errors += other.Errors
	r.Skipped += other.Skipped
}

// Pipeline drives one adapter through discover, fetch, parse, link,
// validate and store/quarantine. Item-level failures never abort a run;
// only a discovery failure surfaces to the caller.
type Pipeline struct {
	store       Store
	quarantine  Quarantine
	audit       AuditSink
	workerCount int
}

func New(store Store, quarantine Quarantine, audit AuditSink, workerCount int) *Pipeline {
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}
	return &Pipeline{
		store:       store,
		quarantine:  quarantine,
		audit:       audit,
		workerCount: workerCount,
	}
}

// Run executes one full ingestion pass for the adapter. Items are processed
// on a bounded worker pool; cancelling ctx stops new fetches promptly but
// already-applied store and quarantine writes stand.
func (p *Pipeline) Run(ctx context.Context, a adapter.SourceAdapter) (Result, error) {
	items, err := a.Discover(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to discover items for %s: %w", a.SourceID(), err)
	}

	var (
		mu     sync.Mutex
		result Result
	)

	queue := make(chan record.DiscoveredItem)
	var wg sync.WaitGroup

	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				delta := p.processItem(ctx, a, item)
				mu.Lock()
				result.merge(delta)
				mu.Unlock()
			}
		}()
	}

feeding:
	for _, item := range items {
		select {
		case <-ctx.Done():
			break feeding
		case queue <- item:
		}
	}
	close(queue)
	wg.Wait()

	slog.Info("Pipeline run completed",
		"source", a.SourceID(),
		"discovered", len(items),
		"inserted", result.Inserted,
		"duplicates", result.Duplicates,
		"errors", result.Errors,
		"skipped", result.Skipped)

	return result, nil
}

func (p *Pipeline) processItem(ctx context.Context, a adapter.SourceAdapter, item record.DiscoveredItem) Result {
	var delta Result

	raw, err := a.Fetch(ctx, item)
	if err != nil || raw == nil {
		slog.Debug("Fetch failed, skipping item", "source", a.SourceID(), "item", item.StableID, "error", err)
		delta.Skipped++
		return delta
	}

	if p.audit != nil {
		event := record.FetchEvent{
			SourceID:     a.SourceID(),
			URL:          item.CanonicalURL,
			Headers:      raw.Headers,
			RobotsPolicy: raw.RobotsPolicy,
			FetchedAt:    time.Now().UTC(),
		}
		if err := p.audit.RecordFetch(event); err != nil {
			slog.Warn("Failed to record fetch audit event", "source", a.SourceID(), "item", item.StableID, "error", err)
		}
	}

	records, err := a.Parse(raw)
	if err != nil {
		delta.Errors++
		if qErr := p.quarantine.Record(item.StableID, "parse failure: "+err.Error(), item.Metadata); qErr != nil {
			slog.Error("Failed to quarantine item", "source", a.SourceID(), "item", item.StableID, "error", qErr)
		}
		return delta
	}

	for _, rec := range a.Link(records) {
		if err := schema.Validate(rec); err != nil {
			delta.Errors++
			if qErr := p.quarantine.Record(rec.StableID, err.Error(), rec.Payload); qErr != nil {
				slog.Error("Failed to quarantine record", "source", a.SourceID(), "record", rec.StableID, "error", qErr)
			}
			continue
		}

		changed, err := p.store.Upsert(rec)
		if err != nil {
			delta.Errors++
			slog.Error("Failed to upsert record", "source", a.SourceID(), "record", rec.StableID, "error", err)
			continue
		}

		if changed {
			delta.Inserted++
		} else {
			delta.Duplicates++
		}
	}

	return delta
}
