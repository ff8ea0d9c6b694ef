package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry records one user-visible action against a tenant resource.
type AuditEntry struct {
	ID           uuid.UUID      `db:"id"            json:"id"`
	TenantID     uuid.UUID      `db:"tenant_id"     json:"tenant_id"`
	Action       string         `db:"action"        json:"action"`
	ResourceType string         `db:"resource_type" json:"resource_type,omitempty"`
	ResourceID   string         `db:"resource_id"   json:"resource_id,omitempty"`
	Metadata     map[string]any `db:"metadata"      json:"metadata,omitempty"`
	KeyPrefix    string         `db:"key_prefix"    json:"key_prefix,omitempty"`
	IPAddress    string         `db:"ip_address"    json:"ip_address,omitempty"`
	UserAgent    string         `db:"user_agent"    json:"user_agent,omitempty"`
	CreatedAt    time.Time      `db:"created_at"    json:"created_at"`
}
