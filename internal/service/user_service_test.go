package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tastebook/tastebook-api/internal/models"
	"github.com/tastebook/tastebook-api/internal/repository"
	appErrors "github.com/tastebook/tastebook-api/pkg/errors"
)

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) error {
	u, ok := m.usersByID[id]
	if !ok {
		return nil
	}
	if update.Email != nil {
		if existing, taken := m.usersByEmail[*update.Email]; taken && existing.ID != id {
			return repository.ErrDuplicateEmail
		}
		delete(m.usersByEmail, u.Email)
		u.Email = *update.Email
		m.usersByEmail[u.Email] = u
	}
	if update.Username != nil {
		u.Username = *update.Username
	}
	if update.Bio != nil {
		u.Bio = *update.Bio
	}
	if update.Picture != nil {
		u.Picture = *update.Picture
	}
	return nil
}

func strPtr(s string) *string { return &s }

func TestProfileReturnsUser(t *testing.T) {
	user := activeUser(t, "test@example.com", "Testpass123!")
	svc := NewUserService(newMockUserRepo(user), NewValidator(), zap.NewNop())

	got, err := svc.Profile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)
}

func TestProfileUnknownUser(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), NewValidator(), zap.NewNop())

	_, err := svc.Profile(context.Background(), "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestUpdateProfilePartial(t *testing.T) {
	user := activeUser(t, "test@example.com", "Testpass123!")
	repo := newMockUserRepo(user)
	svc := NewUserService(repo, NewValidator(), zap.NewNop())

	got, err := svc.UpdateProfile(context.Background(), user.ID, models.ProfileUpdate{
		Bio: strPtr("Home cook from Lisbon"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Home cook from Lisbon", got.Bio)
	assert.Equal(t, "test@example.com", got.Email)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionProfileUpdate, repo.auditLogs[0].Action)
}

func TestUpdateProfileDuplicateEmail(t *testing.T) {
	first := activeUser(t, "test@example.com", "Testpass123!")
	second := &models.User{ID: "u2", Username: "other", Email: "other@example.com", Active: true}
	svc := NewUserService(newMockUserRepo(first, second), NewValidator(), zap.NewNop())

	_, err := svc.UpdateProfile(context.Background(), second.ID, models.ProfileUpdate{
		Email: strPtr("test@example.com"),
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrDuplicateEmail.Code, appErr.Code)
	assert.Contains(t, appErr.Fields, "email")
}

func TestUpdateProfileInvalidEmail(t *testing.T) {
	user := activeUser(t, "test@example.com", "Testpass123!")
	svc := NewUserService(newMockUserRepo(user), NewValidator(), zap.NewNop())

	_, err := svc.UpdateProfile(context.Background(), user.ID, models.ProfileUpdate{
		Email: strPtr("not-an-email"),
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Fields, "email")
}
