package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/tanglebrook/vicinity/internal/common"
	"github.com/tanglebrook/vicinity/internal/interfaces"
)

// StatusHandler handles HTTP requests for application status
type StatusHandler struct {
	jobService interfaces.JobService
	details    interfaces.DetailsStorage
	llm        interfaces.LLMService
	startTime  time.Time
	logger     arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(jobService interfaces.JobService, details interfaces.DetailsStorage, llm interfaces.LLMService, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		jobService: jobService,
		details:    details,
		llm:        llm,
		startTime:  time.Now(),
		logger:     logger,
	}
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	detailCount := 0
	if h.details != nil {
		if n, err := h.details.Count(r.Context()); err == nil {
			detailCount = n
		}
	}

	provider := ""
	if h.llm != nil {
		provider = h.llm.ProviderName()
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":        common.GetVersion(),
		"uptime":         time.Since(h.startTime).Round(time.Second).String(),
		"live_jobs":      h.jobService.Count(),
		"cached_details": detailCount,
		"llm_provider":   provider,
		"timestamp":      time.Now(),
	})
}
