// Package postgres implements refresh token storage on PostgreSQL
package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/coffersec/coffer/internal/cofferd/auth/token"
	"github.com/coffersec/coffer/internal/cofferd/database"
)

type repository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRepository creates a PostgreSQL refresh token repository
func NewRepository(db *sql.DB, logger *slog.Logger) token.RefreshRepository {
	return &repository{db: db, logger: logger}
}

func (r *repository) Save(ctx context.Context, record *token.RefreshRecord) error {
	const op = "RefreshTokenRepository.Save"

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (
			token, user_id, device_id, expires_at, created_at
		) VALUES ($1, $2, $3, $4, $5)
	`,
		record.Token,
		record.UserID,
		record.DeviceID,
		record.ExpiresAt,
		time.Now(),
	)
	if err != nil {
		return database.MapError(err, op)
	}
	return nil
}

func (r *repository) Find(ctx context.Context, tokenStr string) (*token.RefreshRecord, error) {
	const op = "RefreshTokenRepository.Find"

	var record token.RefreshRecord
	err := r.db.QueryRowContext(ctx, `
		SELECT token, user_id, device_id, expires_at, revoked_at
		FROM refresh_tokens
		WHERE token = $1
	`, tokenStr).Scan(
		&record.Token,
		&record.UserID,
		&record.DeviceID,
		&record.ExpiresAt,
		&record.RevokedAt,
	)

	if err == sql.ErrNoRows {
		return nil, token.ErrRecordNotFound
	}
	if err != nil {
		return nil, database.MapError(err, op)
	}

	return &record, nil
}

func (r *repository) Revoke(ctx context.Context, tokenStr string, at time.Time) error {
	const op = "RefreshTokenRepository.Revoke"

	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE token = $1
		AND revoked_at IS NULL
	`, tokenStr, at)
	if err != nil {
		return database.MapError(err, op)
	}
	return nil
}
