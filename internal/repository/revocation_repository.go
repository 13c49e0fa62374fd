package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tastebook/tastebook-api/internal/models"
)

const revokedKeyPrefix = "revoked_token:"

// RevocationRepository is the durable ledger of refresh tokens that have
// been signed out. Postgres is the source of truth: Revoke commits there
// before returning, so a revocation is visible to every subsequent check
// the moment the caller gets its response. Redis holds a positive-only
// cache of revoked IDs; a cache miss always falls through to Postgres, so
// the cache can only speed up checks, never hide a committed revocation.
type RevocationRepository struct {
	db     *sqlx.DB
	redis  *redis.Client
	logger *zap.Logger
}

// NewRevocationRepository constructs a revocation repository. The Redis
// client is optional; without it every check hits Postgres.
func NewRevocationRepository(db *sqlx.DB, rdb *redis.Client, logger *zap.Logger) *RevocationRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RevocationRepository{db: db, redis: rdb, logger: logger}
}

// Revoke records a refresh token's jti in the ledger. Revoking an already
// revoked token is a no-op success, so double signout never errors.
func (r *RevocationRepository) Revoke(ctx context.Context, entry *models.RevocationEntry) error {
	if entry.RevokedAt.IsZero() {
		entry.RevokedAt = time.Now().UTC()
	}

	const query = `INSERT INTO revoked_tokens (token_id, user_id, expires_at, revoked_at)
		VALUES (:token_id, :user_id, :expires_at, :revoked_at)
		ON CONFLICT (token_id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	r.cacheRevocation(ctx, entry)
	return nil
}

// IsRevoked reports whether the given token id appears in the ledger.
// Absence means "not revoked"; signature and expiry checks are the caller's
// responsibility.
func (r *RevocationRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if r.redis != nil {
		hit, err := r.redis.Exists(ctx, revokedKeyPrefix+tokenID).Result()
		if err == nil && hit > 0 {
			return true, nil
		}
		if err != nil {
			r.logger.Warn("revocation cache lookup failed", zap.Error(err))
		}
	}

	const query = `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_id = $1)`
	var revoked bool
	if err := r.db.GetContext(ctx, &revoked, query, tokenID); err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return revoked, nil
}

// PurgeExpired deletes ledger entries whose token has passed its own expiry.
// Safe at any time: an expired token already fails signature-expiry checks.
// Invoked by operators; no background purge runs.
func (r *RevocationRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM revoked_tokens WHERE expires_at < $1`
	res, err := r.db.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return count, nil
}

func (r *RevocationRepository) cacheRevocation(ctx context.Context, entry *models.RevocationEntry) {
	if r.redis == nil {
		return
	}
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return
	}
	if err := r.redis.Set(ctx, revokedKeyPrefix+entry.TokenID, "1", ttl).Err(); err != nil {
		r.logger.Warn("revocation cache write failed", zap.Error(err))
	}
}
