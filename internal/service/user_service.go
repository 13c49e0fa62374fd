package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tastebook/tastebook-api/internal/models"
	"github.com/tastebook/tastebook-api/internal/repository"
	appErrors "github.com/tastebook/tastebook-api/pkg/errors"
)

type profileRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserService exposes profile reads and partial profile updates for the
// authenticated user.
type UserService struct {
	users     profileRepository
	validator *validator.Validate
	logger    *zap.Logger
}

func NewUserService(users profileRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &UserService{users: users, validator: validate, logger: logger}
}

func (s *UserService) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of update and returns the fresh
// profile. An empty update is accepted and changes nothing.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.User, error) {
	if err := s.validator.Struct(update); err != nil {
		return nil, validationError(err)
	}

	if err := s.users.UpdateProfile(ctx, userID, update); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, appErrors.WithField(appErrors.ErrDuplicateEmail, "email", "user with this email already exists")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
		}
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID: &userID,
		Action: models.AuditActionProfileUpdate,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", models.AuditActionProfileUpdate), zap.Error(err))
	}

	return user, nil
}
