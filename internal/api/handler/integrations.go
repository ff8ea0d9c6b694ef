package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/lambdapulse/internal/api/middleware"
	"github.com/kiranshivaraju/lambdapulse/internal/api/response"
	"github.com/kiranshivaraju/lambdapulse/internal/store"
	"github.com/kiranshivaraju/lambdapulse/pkg/models"
)

// IntegrationStore is the part of the store the handlers read and audit through.
type IntegrationStore interface {
	GetIntegration(ctx context.Context, id, tenantID uuid.UUID) (*models.Integration, error)
	ListIntegrations(ctx context.Context, tenantID uuid.UUID) ([]*models.Integration, error)
	RecordAudit(ctx context.Context, entry *models.AuditEntry) error
}

// NewListIntegrationsHandler returns an http.HandlerFunc for GET /api/v1/integrations.
func NewListIntegrationsHandler(st IntegrationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := mw.GetTenantID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}

		list, err := st.ListIntegrations(r.Context(), tenantID)
		if err != nil {
			slog.Error("listing integrations failed", "tenant_id", tenantID, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		response.JSON(w, list)
	}
}

// loadIntegration resolves the {integrationID} URL parameter for the
// authenticated tenant. It writes the error response and returns false when
// the integration cannot be used.
func loadIntegration(w http.ResponseWriter, r *http.Request, st IntegrationStore) (*models.Integration, bool) {
	tenantID, ok := mw.GetTenantID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
		return nil, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "integrationID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "integrationID must be a valid UUID", nil)
		return nil, false
	}

	in, err := st.GetIntegration(r.Context(), id, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "INTEGRATION_NOT_FOUND", "Integration not found", nil)
			return nil, false
		}
		slog.Error("loading integration failed", "integration_id", id, "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
		return nil, false
	}
	return in, true
}

// audit records an action against an integration. Failures are logged and
// never fail the request.
func audit(r *http.Request, st IntegrationStore, action string, in *models.Integration, metadata map[string]any) {
	prefix, _ := mw.GetKeyPrefix(r)
	entry := &models.AuditEntry{
		TenantID:     in.TenantID,
		Action:       action,
		ResourceType: "integration",
		ResourceID:   in.ID.String(),
		Metadata:     metadata,
		KeyPrefix:    prefix,
		IPAddress:    r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
	defer cancel()
	if err := st.RecordAudit(ctx, entry); err != nil {
		slog.Warn("recording audit entry failed", "action", action, "integration_id", in.ID, "error", err)
	}
}
