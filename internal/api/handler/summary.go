package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kiranshivaraju/lambdapulse/internal/ai"
	"github.com/kiranshivaraju/lambdapulse/internal/api/response"
	"github.com/kiranshivaraju/lambdapulse/internal/logs"
	"github.com/kiranshivaraju/lambdapulse/pkg/models"
)

// Summaries starts, reports and clears AI summary jobs.
type Summaries interface {
	Start(ctx context.Context, key ai.JobKey, load ai.Loader) (*models.AISummaryJob, error)
	Status(ctx context.Context, key ai.JobKey) (*models.AISummaryJob, error)
	Clear(ctx context.Context, key ai.JobKey) (string, error)
}

// ContextLoader builds the material a summary job reads.
type ContextLoader interface {
	SummaryContext(ctx context.Context, in *models.Integration, q logs.Query, maxLogs int) (*ai.SummaryContext, error)
}

// SummaryHandlers serves the ai-summary resource of an integration.
type SummaryHandlers struct {
	store   IntegrationStore
	jobs    Summaries
	loader  ContextLoader
	maxLogs int
}

// NewSummaryHandlers creates the ai-summary handlers. maxLogs bounds the
// events loaded into one job.
func NewSummaryHandlers(st IntegrationStore, jobs Summaries, loader ContextLoader, maxLogs int) *SummaryHandlers {
	return &SummaryHandlers{store: st, jobs: jobs, loader: loader, maxLogs: maxLogs}
}

// Start handles POST /api/v1/integrations/{integrationID}/ai-summary.
func (h *SummaryHandlers) Start(w http.ResponseWriter, r *http.Request) {
	in, q, key, ok := h.request(w, r)
	if !ok {
		return
	}

	// The loader outlives the request; it runs inside the job's task.
	load := func(ctx context.Context) (*ai.SummaryContext, error) {
		return h.loader.SummaryContext(ctx, in, q, h.maxLogs)
	}

	job, err := h.jobs.Start(r.Context(), key, load)
	if err != nil {
		slog.Error("starting summary job failed", "integration_id", in.ID, "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Failed to start summary job", nil)
		return
	}

	audit(r, h.store, "lambda.ai_summary.start", in, map[string]any{
		"fingerprint": job.Fingerprint,
		"model":       job.Model,
	})
	response.Accepted(w, job)
}

// Status handles GET /api/v1/integrations/{integrationID}/ai-summary.
func (h *SummaryHandlers) Status(w http.ResponseWriter, r *http.Request) {
	in, _, key, ok := h.request(w, r)
	if !ok {
		return
	}

	job, err := h.jobs.Status(r.Context(), key)
	if err != nil {
		slog.Error("reading summary job failed", "integration_id", in.ID, "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Failed to read summary job", nil)
		return
	}
	response.JSON(w, job)
}

// Clear handles DELETE /api/v1/integrations/{integrationID}/ai-summary.
func (h *SummaryHandlers) Clear(w http.ResponseWriter, r *http.Request) {
	in, _, key, ok := h.request(w, r)
	if !ok {
		return
	}

	fp, err := h.jobs.Clear(r.Context(), key)
	if err != nil {
		slog.Error("clearing summary job failed", "integration_id", in.ID, "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Failed to clear summary job", nil)
		return
	}
	response.JSON(w, map[string]string{"fingerprint": fp, "status": "cleared"})
}

// request resolves the integration and job key shared by the three
// operations. The time range must be explicit so that polls of the same
// job resolve to the same fingerprint.
func (h *SummaryHandlers) request(w http.ResponseWriter, r *http.Request) (*models.Integration, logs.Query, ai.JobKey, bool) {
	in, ok := loadIntegration(w, r, h.store)
	if !ok {
		return nil, logs.Query{}, ai.JobKey{}, false
	}

	v := r.URL.Query()
	if v.Get("startTime") == "" || v.Get("endTime") == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
			"startTime and endTime are required", nil)
		return nil, logs.Query{}, ai.JobKey{}, false
	}

	q, err := logs.ParseQuery(v, time.Now())
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return nil, logs.Query{}, ai.JobKey{}, false
	}

	key := ai.JobKey{
		IntegrationID: in.ID,
		Mode:          string(q.Mode),
		Start:         q.Start,
		End:           q.End,
		Search:        q.Search,
		Model:         strings.TrimSpace(v.Get("model")),
	}
	return in, q, key, true
}
