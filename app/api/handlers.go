package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openwhatcom/civicstream/app/cfg"
	"github.com/openwhatcom/civicstream/app/database"
	"github.com/openwhatcom/civicstream/app/pipeline"
	"github.com/openwhatcom/civicstream/app/sources"
	"github.com/openwhatcom/civicstream/app/tasks"
)

func NewHandler(configCache *sources.ConfigCache, sourceRepo database.SourceRepository,
	recordRepo database.RecordRepository, quarantineRepo database.QuarantineRepository,
	auditRepo database.AuditRepository, scheduler tasks.TaskSchedulerInterface,
	httpClient *http.Client, pipe *pipeline.Pipeline) *Handler {
	return &Handler{
		sourceRepo:     sourceRepo,
		recordRepo:     recordRepo,
		quarantineRepo: quarantineRepo,
		auditRepo:      auditRepo,
		configCache:    configCache,
		scheduler:      scheduler,
		httpClient:     httpClient,
		pipe:           pipe,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if sourceCount, err := h.sourceRepo.GetSourceCount(); err == nil {
		health["sources"] = sourceCount
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if recordCount, err := h.recordRepo.GetRecordCount(); err == nil {
		stats["records"] = recordCount
	}
	if counts, err := h.recordRepo.GetRecordCountsByType(); err == nil {
		stats["records_by_type"] = counts
	}
	if quarantineCount, err := h.quarantineRepo.GetEntryCount(); err == nil {
		stats["quarantined"] = quarantineCount
	}
	if eventCount, err := h.auditRepo.GetEventCount(); err == nil {
		stats["fetch_events"] = eventCount
	}
	if sourceCount, err := h.sourceRepo.GetSourceCount(); err == nil {
		stats["sources"] = sourceCount
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetRecord(c *gin.Context) {
	stableID := c.Param("stable_id")
	if stableID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing stable_id parameter"})
		return
	}

	rec, err := h.recordRepo.GetRecord(stableID)
	if err != nil {
		slog.Error("Database error", "operation", "get_record", "stable_id", stableID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"stable_id":     rec.StableID,
		"record_type":   rec.RecordType,
		"canonical_url": rec.CanonicalURL,
		"source_id":     rec.SourceID,
		"content_hash":  rec.ContentHash,
		"payload":       rec.Payload,
		"robots_policy": rec.RobotsPolicy,
		"retrieved_at":  rec.RetrievedAt,
		"updated_at":    rec.UpdatedAt,
	})
}

func (h *Handler) APIListSources(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	sourceList := make([]map[string]interface{}, 0, len(configs))

	for _, sourceConfig := range configs {
		sourceInfo := map[string]interface{}{
			"name":             sourceConfig.Name,
			"kind":             string(sourceConfig.Kind),
			"url":              sourceConfig.URL,
			"enabled":          sourceConfig.Settings.Enabled,
			"max_items":        sourceConfig.Settings.MaxItems,
			"refresh_interval": sourceConfig.Settings.GetRefreshInterval().String(),
		}

		if source, err := h.sourceRepo.GetSource(sourceConfig.Name); err == nil && source != nil {
			sourceInfo["last_fetched_at"] = source.LastFetchedAt
			sourceInfo["next_fetch_at"] = source.NextFetchAt
			sourceInfo["updated_at"] = source.UpdatedAt
		}

		sourceList = append(sourceList, sourceInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": sourceList,
		"total":   len(sourceList),
	})
}

func (h *Handler) APITriggerIngest(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	sourceConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	ingestTask := tasks.NewIngestSourceTask(name, sourceConfig, h.httpClient, h.pipe, h.sourceRepo, cfg.Get().UserAgent)
	if err := h.scheduler.EnqueueTask(ingestTask); err != nil {
		slog.Error("Error enqueueing ingest task", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to enqueue ingest task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Ingest task enqueued successfully",
		"source": gin.H{
			"name": name,
			"kind": string(sourceConfig.Kind),
			"url":  sourceConfig.URL,
		},
		"task": gin.H{
			"id":   ingestTask.ID,
			"type": ingestTask.Type,
		},
	})
}

func (h *Handler) APIListQuarantine(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}

	entries, err := h.quarantineRepo.GetEntries(limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_quarantine", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	entryList := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		entryList = append(entryList, map[string]interface{}{
			"stable_id":  entry.StableID,
			"reason":     entry.Reason,
			"payload":    entry.Payload,
			"created_at": entry.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"entries": entryList,
		"total":   len(entryList),
	})
}
