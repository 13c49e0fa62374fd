package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type discriminators embedded in the token_type claim so an access
// token can never be replayed where a refresh token is expected.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// SignupRequest registers a new account. The account stays inactive until
// email verification completes.
type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// SignupResponse echoes only the new identity's id and email; password and
// MFA fields are never returned.
type SignupResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// LoginRequest holds credentials for authenticating a user. MFACode is
// required only when the account has MFA enabled.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	MFACode   string `json:"mfa_code"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued token pair and a minimal user projection.
type LoginResponse struct {
	AccessToken  string    `json:"access"`
	RefreshToken string    `json:"refresh"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
	User         UserInfo  `json:"user"`
}

// SignoutRequest carries the refresh token to revoke.
type SignoutRequest struct {
	RefreshToken string `json:"refresh" validate:"required"`
}

// RefreshRequest exchanges a refresh token for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh" validate:"required"`
}

// RefreshResponse returns the reissued access token. The refresh token is
// not rotated; it stays valid until expiry or revocation.
type RefreshResponse struct {
	AccessToken string    `json:"access"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo is the projection of a user exposed after login. The MFA secret
// is deliberately absent.
type UserInfo struct {
	Email      string `json:"email"`
	MFAEnabled bool   `json:"mfa_enabled"`
}

// AccessClaims is the JWT payload for access tokens.
type AccessClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// RefreshClaims is the JWT payload for refresh tokens. The registered ID
// (jti) is the revocation key consulted by the ledger.
type RefreshClaims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}
