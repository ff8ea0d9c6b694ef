package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents a customer company. Integrations and API keys belong to a tenant.
type Tenant struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
