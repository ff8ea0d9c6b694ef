package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/lambdapulse/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateTenant(ctx context.Context, tenant *models.Tenant) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error

	CreateIntegration(ctx context.Context, in *models.Integration) error
	// GetIntegration returns ErrNotFound when id belongs to another tenant.
	GetIntegration(ctx context.Context, id, tenantID uuid.UUID) (*models.Integration, error)
	ListIntegrations(ctx context.Context, tenantID uuid.UUID) ([]*models.Integration, error)

	RecordAudit(ctx context.Context, entry *models.AuditEntry) error
}
