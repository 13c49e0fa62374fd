package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionSignup        = "SIGNUP"
	AuditActionLogin         = "LOGIN"
	AuditActionSignout       = "SIGNOUT"
	AuditActionTokenRefresh  = "TOKEN_REFRESH"
	AuditActionProfileUpdate = "PROFILE_UPDATE"
)

// AuditLog represents an audit trail record. Writes are best-effort and
// never block the operation being audited.
type AuditLog struct {
	ID        string    `db:"id" json:"id"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	Action    string    `db:"action" json:"action"`
	Detail    []byte    `db:"detail" json:"detail,omitempty"`
	IPAddress string    `db:"ip_address" json:"ip_address"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
