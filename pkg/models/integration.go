package models

import (
	"time"

	"github.com/google/uuid"
)

// Integration links a tenant to one serverless function and the credentials used to read it.
// Credentials are stored sealed and opened only when a client is built.
type Integration struct {
	ID              uuid.UUID  `db:"id"                json:"id"`
	TenantID        uuid.UUID  `db:"tenant_id"         json:"tenant_id"`
	Name            string     `db:"name"              json:"name"`
	FunctionName    string     `db:"function_name"     json:"function_name"`
	Region          string     `db:"region"            json:"region"`
	AccessKeySealed string     `db:"access_key_sealed" json:"-"`
	SecretKeySealed string     `db:"secret_key_sealed" json:"-"`
	OwnerUserID     *uuid.UUID `db:"owner_user_id"     json:"owner_user_id,omitempty"`
	ClientUserID    *uuid.UUID `db:"client_user_id"    json:"client_user_id,omitempty"`
	CreatedAt       time.Time  `db:"created_at"        json:"created_at"`
}

// LogGroup returns the log group the function writes to.
func (i *Integration) LogGroup() string {
	return "/aws/lambda/" + i.FunctionName
}
