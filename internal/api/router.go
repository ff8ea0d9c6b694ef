package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/lambdapulse/internal/api/middleware"
	"github.com/kiranshivaraju/lambdapulse/internal/api/response"
	"github.com/kiranshivaraju/lambdapulse/internal/metrics"
)

// SummaryScope is the key scope that may start or clear AI summaries.
const SummaryScope = "summarize"

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit
	Metrics   *metrics.Handler

	HealthHandler       http.HandlerFunc
	ListIntegrations    http.HandlerFunc
	LogsHandler         http.HandlerFunc
	FunctionMetrics     http.HandlerFunc
	StartSummaryHandler http.HandlerFunc
	SummaryStatus       http.HandlerFunc
	ClearSummaryHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Instrument(deps.Metrics))
	r.Use(mw.Recovery)

	// Public endpoints
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.HTTPHandler())
	}

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/v1/integrations", orNotImplemented(deps.ListIntegrations))

		r.Route("/api/v1/integrations/{integrationID}", func(r chi.Router) {
			r.Get("/logs", orNotImplemented(deps.LogsHandler))
			r.Get("/metrics", orNotImplemented(deps.FunctionMetrics))
			r.Get("/ai-summary", orNotImplemented(deps.SummaryStatus))

			r.Group(func(r chi.Router) {
				r.Use(deps.Auth.RequireScope(SummaryScope))

				r.Post("/ai-summary", orNotImplemented(deps.StartSummaryHandler))
				r.Delete("/ai-summary", orNotImplemented(deps.ClearSummaryHandler))
			})
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
