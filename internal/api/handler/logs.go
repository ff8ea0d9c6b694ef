package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/kiranshivaraju/lambdapulse/internal/api/response"
	"github.com/kiranshivaraju/lambdapulse/internal/logs"
	"github.com/kiranshivaraju/lambdapulse/pkg/models"
)

// LogQuerier answers log queries for an integration.
type LogQuerier interface {
	Query(ctx context.Context, in *models.Integration, q logs.Query) (*logs.Result, error)
}

// NewLogsHandler returns an http.HandlerFunc for
// GET /api/v1/integrations/{integrationID}/logs.
func NewLogsHandler(st IntegrationStore, svc LogQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := loadIntegration(w, r, st)
		if !ok {
			return
		}

		q, err := logs.ParseQuery(r.URL.Query(), time.Now())
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		res, err := svc.Query(r.Context(), in, q)
		if err != nil {
			writeUpstreamError(w, err)
			return
		}

		audit(r, st, "lambda.logs.fetch", in, map[string]any{
			"type":      string(q.Mode),
			"limit":     q.Limit,
			"startTime": q.Start.UnixMilli(),
			"endTime":   q.End.UnixMilli(),
			"search":    q.Search,
		})
		response.JSON(w, res)
	}
}
