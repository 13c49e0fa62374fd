package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tastebook/tastebook-api/internal/models"
)

// ErrDuplicateEmail is returned by Create when the email is already taken.
// The users table carries a unique index on LOWER(email), so the check is
// case-insensitive and race-free.
var ErrDuplicateEmail = errors.New("duplicate email")

const uniqueViolation = "23505"

// UserRepository provides database access for user accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user record. The caller supplies the already-hashed
// password; raw passwords never reach this layer.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, username, email, password_hash, bio, picture, active, mfa_enabled, mfa_secret, created_at, updated_at)
		VALUES (:id, :username, :email, :password_hash, :bio, :picture, :active, :mfa_enabled, :mfa_secret, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByEmail returns a user by email address, matched case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT id, username, email, password_hash, bio, picture, active, mfa_enabled, mfa_secret, created_at, updated_at
		FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, username, email, password_hash, bio, picture, active, mfa_enabled, mfa_secret, created_at, updated_at
		FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// UpdateProfile applies a partial update of profile fields. Nil pointers are
// skipped; a no-op update still bumps updated_at.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) error {
	sets := []string{"updated_at = $1"}
	args := []interface{}{time.Now().UTC()}

	appendSet := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Username != nil {
		appendSet("username", *update.Username)
	}
	if update.Email != nil {
		appendSet("email", *update.Email)
	}
	if update.Bio != nil {
		appendSet("bio", *update.Bio)
	}
	if update.Picture != nil {
		appendSet("picture", *update.Picture)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// Activate marks an account as verified. Invoked by the email verification
// collaborator, never by the core auth flows.
func (r *UserRepository) Activate(ctx context.Context, id string) error {
	const query = `UPDATE users SET active = TRUE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("activate user: %w", err)
	}
	return nil
}

// SetMFA stores the MFA end-state for a user. The secret must be non-nil
// exactly when enabled is true.
func (r *UserRepository) SetMFA(ctx context.Context, id string, enabled bool, secret *string) error {
	if enabled == (secret == nil) {
		return fmt.Errorf("mfa secret must be set iff mfa is enabled")
	}
	const query = `UPDATE users SET mfa_enabled = $2, mfa_secret = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, enabled, secret, time.Now().UTC()); err != nil {
		return fmt.Errorf("set mfa: %w", err)
	}
	return nil
}

// CreateAuditLog stores an audit trail entry.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, detail, ip_address, user_agent, created_at)
		VALUES (:id, :user_id, :action, :detail, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
