package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tastebook/tastebook-api/internal/models"
	"github.com/tastebook/tastebook-api/internal/repository"
	appErrors "github.com/tastebook/tastebook-api/pkg/errors"
	"github.com/tastebook/tastebook-api/pkg/password"
	"github.com/tastebook/tastebook-api/pkg/totp"
)

type authUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type revocationLedger interface {
	Revoke(ctx context.Context, entry *models.RevocationEntry) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthService sequences the signup, login, signout and refresh flows over
// the credential store, the verifiers, the token issuer and the revocation
// ledger. Failed flows leave the stores untouched.
type AuthService struct {
	users     authUserRepository
	ledger    revocationLedger
	tokens    *TokenService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, ledger revocationLedger, tokens *TokenService, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &AuthService{users: users, ledger: ledger, tokens: tokens, validator: validate, logger: logger}
}

// Signup registers a new account. The account is created inactive; an
// external verification step activates it later. Only id and email are
// echoed back.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest) (*models.SignupResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Active:       false,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, appErrors.WithField(appErrors.ErrDuplicateEmail, "email", "user with this email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.audit(ctx, &user.ID, models.AuditActionSignup, map[string]string{"email": user.Email}, "", "")

	return &models.SignupResponse{ID: user.ID, Email: user.Email}, nil
}

// Login authenticates a user and returns an issued token pair.
//
// The error for an unknown email and for a wrong password is identical on
// purpose. An unverified account is reported distinctly, before the
// password is checked; both asymmetries match the behavior existing
// clients depend on.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invalidCredentials()
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if !user.Active {
		return nil, appErrors.WithField(appErrors.ErrAccountNotVerified, "non_field_errors", "Account not verified")
	}

	if !password.Verify(req.Password, user.PasswordHash) {
		return nil, invalidCredentials()
	}

	if user.MFAEnabled {
		if req.MFACode == "" {
			return nil, appErrors.WithField(appErrors.ErrMFACodeRequired, "mfa_code", "MFA code is required")
		}
		if user.MFASecret == nil || !totp.Verify(req.MFACode, *user.MFASecret, time.Now()) {
			return nil, appErrors.WithField(appErrors.ErrInvalidMFACode, "mfa_code", "Invalid MFA code")
		}
	}

	accessToken, accessClaims, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	refreshToken, _, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}

	s.audit(ctx, &user.ID, models.AuditActionLogin, map[string]string{"status": "success"}, req.IP, req.UserAgent)

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(time.Until(accessClaims.ExpiresAt.Time).Seconds()),
		IssuedAt:     accessClaims.IssuedAt.Time,
		User: models.UserInfo{
			Email:      user.Email,
			MFAEnabled: user.MFAEnabled,
		},
	}, nil
}

// Signout revokes the presented refresh token. The actor must already be
// authenticated by access-token validation; the revocation is committed to
// the ledger before this function returns, so no refresh racing with a
// signout can succeed once the caller has its response.
func (s *AuthService) Signout(ctx context.Context, actor *models.AccessClaims, req models.SignoutRequest) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "Authentication credentials were not provided.")
	}

	if err := s.validator.Struct(req); err != nil {
		return validationError(err)
	}

	claims, err := s.tokens.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		return appErrors.WithField(appErrors.ErrInvalidRefresh, "refresh", "Invalid or expired refresh token")
	}

	entry := &models.RevocationEntry{
		TokenID:   claims.ID,
		UserID:    claims.UserID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err := s.ledger.Revoke(ctx, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke refresh token")
	}

	s.audit(ctx, &actor.UserID, models.AuditActionSignout, map[string]string{"token_id": claims.ID}, "", "")

	return nil
}

// Refresh reissues an access token from a valid, unrevoked refresh token.
// The ledger is consulted on every call; the refresh token itself is not
// rotated.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshRequest) (*models.RefreshResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	claims, err := s.tokens.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "Token is invalid or expired")
	}

	revoked, err := s.ledger.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check revocation")
	}
	if revoked {
		return nil, appErrors.Clone(appErrors.ErrTokenBlacklisted, "token is blacklisted")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "associated user no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if !user.Active {
		return nil, appErrors.WithField(appErrors.ErrAccountNotVerified, "non_field_errors", "Account not verified")
	}

	accessToken, accessClaims, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	s.audit(ctx, &user.ID, models.AuditActionTokenRefresh, map[string]string{"token_id": claims.ID}, "", "")

	return &models.RefreshResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(time.Until(accessClaims.ExpiresAt.Time).Seconds()),
		IssuedAt:    accessClaims.IssuedAt.Time,
	}, nil
}

// ValidateToken parses and validates an access token returning the claims.
// The resulting identity is passed explicitly to downstream handlers; there
// is no ambient "current user".
func (s *AuthService) ValidateToken(tokenString string) (*models.AccessClaims, error) {
	claims, err := s.tokens.ParseAccessToken(tokenString)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	return claims, nil
}

func (s *AuthService) audit(ctx context.Context, userID *string, action string, detail map[string]string, ip, userAgent string) {
	payload, err := json.Marshal(detail)
	if err != nil {
		payload = nil
	}
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:    userID,
		Action:    action,
		Detail:    payload,
		IPAddress: ip,
		UserAgent: userAgent,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func invalidCredentials() *appErrors.Error {
	return appErrors.WithField(appErrors.ErrInvalidCredentials, "non_field_errors", "Invalid credentials")
}
