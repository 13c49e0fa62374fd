package models

import "time"

// RevocationEntry records a refresh token that was explicitly signed out.
// Entries reference tokens by their embedded jti, never the raw token, and
// are append-only. ExpiresAt mirrors the token's own expiry so operators can
// purge entries that could no longer be honored anyway.
type RevocationEntry struct {
	TokenID   string    `db:"token_id" json:"token_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	RevokedAt time.Time `db:"revoked_at" json:"revoked_at"`
}
