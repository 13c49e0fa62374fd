package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tastebook/tastebook-api/internal/models"
)

// TokenConfig defines the process-wide signing configuration. The secret is
// loaded once at startup and shared read-only by all handlers; rotating it
// invalidates every outstanding token.
type TokenConfig struct {
	Secret        string
	Issuer        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// TokenService mints and verifies the signed token pair. Issuance is a pure
// function of (user, now, secret): no store is touched, and refresh tokens
// are not persisted. Only revocation writes to the ledger.
type TokenService struct {
	config TokenConfig
}

// NewTokenService constructs a TokenService.
func NewTokenService(config TokenConfig) *TokenService {
	return &TokenService{config: config}
}

// IssueAccessToken mints a short-lived access token for the user.
func (s *TokenService) IssueAccessToken(user *models.User) (string, *models.AccessClaims, error) {
	issuedAt := time.Now().UTC()
	claims := &models.AccessClaims{
		UserID:    user.ID,
		Email:     user.Email,
		TokenType: models.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// IssueRefreshToken mints a long-lived refresh token. The embedded jti is
// the key the revocation ledger tracks.
func (s *TokenService) IssueRefreshToken(user *models.User) (string, *models.RefreshClaims, error) {
	issuedAt := time.Now().UTC()
	claims := &models.RefreshClaims{
		UserID:    user.ID,
		TokenType: models.TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.RefreshExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ParseAccessToken verifies signature, expiry and token type of an access
// token and returns its claims.
func (s *TokenService) ParseAccessToken(tokenString string) (*models.AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.AccessClaims{}, s.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*models.AccessClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid access token claims")
	}
	if claims.TokenType != models.TokenTypeAccess {
		return nil, fmt.Errorf("token is not an access token")
	}
	return claims, nil
}

// ParseRefreshToken verifies signature, expiry and token type of a refresh
// token and returns its claims. Revocation is a separate ledger check; both
// must pass for a token to be honored.
func (s *TokenService) ParseRefreshToken(tokenString string) (*models.RefreshClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.RefreshClaims{}, s.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("parse refresh token: %w", err)
	}

	claims, ok := token.Claims.(*models.RefreshClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid refresh token claims")
	}
	if claims.TokenType != models.TokenTypeRefresh {
		return nil, fmt.Errorf("token is not a refresh token")
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("refresh token missing jti")
	}
	return claims, nil
}

func (s *TokenService) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method != jwt.SigningMethodHS256 {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return []byte(s.config.Secret), nil
}
