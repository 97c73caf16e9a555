package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/tanglebrook/vicinity/internal/interfaces"
	"github.com/tanglebrook/vicinity/internal/models"
)

// SearchHandler exposes the asynchronous search job API: submit returns
// immediately with a job id, results are collected by polling or over the
// WebSocket push channel.
type SearchHandler struct {
	jobService interfaces.JobService
	logger     arbor.ILogger
}

// NewSearchHandler creates a new SearchHandler
func NewSearchHandler(jobService interfaces.JobService, logger arbor.ILogger) *SearchHandler {
	return &SearchHandler{
		jobService: jobService,
		logger:     logger,
	}
}

// jobResponse is the wire shape of a job snapshot. The owner session never
// leaves the server; callers already know their own session id.
type jobResponse struct {
	JobID        string                `json:"job_id"`
	State        models.JobState       `json:"state"`
	ProgressPct  int                   `json:"progress_pct"`
	CreatedAt    time.Time             `json:"created_at"`
	StartedAt    *time.Time            `json:"started_at,omitempty"`
	CompletedAt  *time.Time            `json:"completed_at,omitempty"`
	Result       *models.SearchResult  `json:"result,omitempty"`
	ErrorKind    models.ErrorKind      `json:"error_kind,omitempty"`
	ErrorMessage string                `json:"error_message,omitempty"`
}

func toJobResponse(job *models.SearchJob) jobResponse {
	return jobResponse{
		JobID:        job.ID,
		State:        job.State,
		ProgressPct:  job.ProgressPct,
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		Result:       job.Result,
		ErrorKind:    job.ErrorKind,
		ErrorMessage: job.ErrorMessage,
	}
}

// CreateSearchHandler handles POST /api/search. A valid request is accepted
// with 202 and runs in the background.
func (h *SearchHandler) CreateSearchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	sessionID := SessionFromRequest(r)

	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}

	job, err := h.jobService.CreateJob(r.Context(), sessionID, &req)
	if err != nil {
		h.writeJobError(w, err)
		return
	}

	h.logger.Info().
		Str("job_id", job.ID).
		Str("query", req.Query).
		Msg("Search job accepted")

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":     job.ID,
		"state":      job.State,
		"status_url": fmt.Sprintf("/api/search/%s", job.ID),
	})
}

// GetSearchHandler handles GET /api/search/{id}. Unknown, expired and
// foreign jobs are indistinguishable: all return 404.
func (h *SearchHandler) GetSearchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	jobID := PathID(r.URL.Path, "/api/search/")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Missing job id")
		return
	}

	job, err := h.jobService.GetJob(r.Context(), SessionFromRequest(r), jobID)
	if err != nil {
		h.writeJobError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, toJobResponse(job))
}

// writeJobError maps service errors onto HTTP statuses.
func (h *SearchHandler) writeJobError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrJobNotFound):
		WriteError(w, http.StatusNotFound, "Job not found")
	case errors.Is(err, models.ErrSessionRequired):
		WriteError(w, http.StatusUnauthorized, "Session required")
	case errors.Is(err, models.ErrInvalidRequest):
		WriteError(w, http.StatusBadRequest, "Invalid search request")
	default:
		h.logger.Error().Err(err).Msg("Search request failed")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
