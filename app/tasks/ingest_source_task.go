package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openwhatcom/civicstream/app/adapter"
	"github.com/openwhatcom/civicstream/app/database"
	"github.com/openwhatcom/civicstream/app/pipeline"
	"github.com/openwhatcom/civicstream/app/sources"
)

type IngestSourceTask struct {
	Task
	SourceConfig *sources.Config
	httpClient   *http.Client
	pipe         *pipeline.Pipeline
	sourceRepo   database.SourceRepository
	userAgent    string
}

func NewIngestSourceTask(sourceName string, sourceConfig *sources.Config, httpClient *http.Client, pipe *pipeline.Pipeline, sourceRepo database.SourceRepository, userAgent string) *IngestSourceTask {
	return &IngestSourceTask{
		Task:         NewTask(TaskTypeIngestSource, sourceName),
		SourceConfig: sourceConfig,
		httpClient:   httpClient,
		pipe:         pipe,
		sourceRepo:   sourceRepo,
		userAgent:    userAgent,
	}
}

func (t *IngestSourceTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.SourceConfig.Settings.Enabled {
		slog.Debug("Source disabled, skipping", "source", t.SourceName)
		return nil
	}

	a, err := adapter.New(t.SourceConfig, t.httpClient, t.userAgent)
	if err != nil {
		return fmt.Errorf("failed to build adapter: %w", err)
	}

	result, err := t.pipe.Run(ctx, a)
	if err != nil {
		slog.Error("Task failed", "type", "IngestSource", "source", t.SourceName, "error", err)
		return fmt.Errorf("failed to ingest source: %w", err)
	}

	nextFetch := time.Now().UTC().Add(t.SourceConfig.Settings.GetRefreshInterval())
	if err := t.sourceRepo.UpdateSourceRunState(t.SourceName, nextFetch); err != nil {
		return fmt.Errorf("failed to update source run state: %w", err)
	}

	slog.Info("Task completed",
		"type", "IngestSource",
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"inserted", result.Inserted,
		"duplicates", result.Duplicates,
		"errors", result.Errors,
		"skipped", result.Skipped)

	return nil
}
