package api

import (
	"net/http"

	"github.com/openwhatcom/civicstream/app/database"
	"github.com/openwhatcom/civicstream/app/pipeline"
	"github.com/openwhatcom/civicstream/app/sources"
	"github.com/openwhatcom/civicstream/app/tasks"
)

type Handler struct {
	sourceRepo     database.SourceRepository
	recordRepo     database.RecordRepository
	quarantineRepo database.QuarantineRepository
	auditRepo      database.AuditRepository
	configCache    *sources.ConfigCache
	scheduler      tasks.TaskSchedulerInterface
	httpClient     *http.Client
	pipe           *pipeline.Pipeline
}
