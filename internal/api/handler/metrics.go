package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kiranshivaraju/lambdapulse/internal/api/response"
	"github.com/kiranshivaraju/lambdapulse/internal/cache"
	"github.com/kiranshivaraju/lambdapulse/internal/lambdametrics"
	"github.com/kiranshivaraju/lambdapulse/pkg/models"
)

const (
	defaultMetricsPeriod = 3600
	defaultMetricsDays   = 7
	// CloudWatch keeps hourly datapoints for 455 days.
	maxMetricsDays = 455
)

// MetricsFetcher reads function metrics for an integration.
type MetricsFetcher interface {
	Fetch(ctx context.Context, in *models.Integration, period, days int) (*lambdametrics.FunctionMetrics, error)
}

// NewFunctionMetricsHandler returns an http.HandlerFunc for
// GET /api/v1/integrations/{integrationID}/metrics.
func NewFunctionMetricsHandler(st IntegrationStore, f MetricsFetcher, ca cache.Cache, ttl time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := loadIntegration(w, r, st)
		if !ok {
			return
		}

		period, err := intParam(r, "period", defaultMetricsPeriod)
		if err != nil || period < 60 || period%60 != 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"period must be a positive multiple of 60 seconds", nil)
			return
		}
		days, err := intParam(r, "days", defaultMetricsDays)
		if err != nil || days < 1 || days > maxMetricsDays {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"days must be between 1 and "+strconv.Itoa(maxMetricsDays), nil)
			return
		}

		key := cache.FunctionMetricsKey(in.ID, period, days)
		if raw, found, err := ca.Get(r.Context(), key); err == nil && found {
			var cached lambdametrics.FunctionMetrics
			if json.Unmarshal(raw, &cached) == nil {
				response.JSON(w, &cached)
				return
			}
		}

		fm, err := f.Fetch(r.Context(), in, period, days)
		if err != nil {
			writeUpstreamError(w, err)
			return
		}

		if raw, err := json.Marshal(fm); err == nil {
			if err := ca.Set(r.Context(), key, raw, ttl); err != nil {
				slog.Warn("caching function metrics failed", "integration_id", in.ID, "error", err)
			}
		}

		audit(r, st, "lambda.metrics.fetch", in, map[string]any{"period": period, "days": days})
		response.JSON(w, fm)
	}
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
