// Package postgres implements secret storage on PostgreSQL
package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coffersec/coffer/internal/cofferd/database"
	"github.com/coffersec/coffer/internal/cofferd/secret"
)

const secretColumns = "id, org_id, name, value, created_by, created_at, updated_at"

type repository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRepository creates a PostgreSQL secret repository
func NewRepository(db *sql.DB, logger *slog.Logger) secret.Repository {
	return &repository{db: db, logger: logger}
}

func (r *repository) GetSecret(ctx context.Context, orgID uuid.UUID, name string) (*secret.Secret, error) {
	const op = "SecretRepository.GetSecret"

	row := r.db.QueryRowContext(ctx, `
		SELECT `+secretColumns+`
		FROM secrets
		WHERE org_id = $1 AND name = $2
	`, orgID, name)

	return scanSecret(row, op)
}

func (r *repository) ListSecrets(ctx context.Context, orgID uuid.UUID) ([]secret.Secret, error) {
	const op = "SecretRepository.ListSecrets"

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+secretColumns+`
		FROM secrets
		WHERE org_id = $1
		ORDER BY name
	`, orgID)
	if err != nil {
		return nil, database.MapError(err, op)
	}
	defer rows.Close()

	var secrets []secret.Secret
	for rows.Next() {
		var s secret.Secret
		if err := rows.Scan(
			&s.ID, &s.OrgID, &s.Name, &s.Value,
			&s.CreatedBy, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, database.MapError(err, op)
		}
		secrets = append(secrets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, database.MapError(err, op)
	}
	return secrets, nil
}

func (r *repository) CreateSecret(ctx context.Context, s *secret.Secret) error {
	const op = "SecretRepository.CreateSecret"

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO secrets (
			id, org_id, name, value, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		s.ID, s.OrgID, s.Name, s.Value,
		s.CreatedBy, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return database.MapError(err, op)
	}
	return nil
}

func (r *repository) UpdateSecret(ctx context.Context, s *secret.Secret) error {
	const op = "SecretRepository.UpdateSecret"

	result, err := r.db.ExecContext(ctx, `
		UPDATE secrets
		SET value = $2, updated_at = $3
		WHERE id = $1
	`, s.ID, s.Value, s.UpdatedAt)
	if err != nil {
		return database.MapError(err, op)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return secret.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteSecret(ctx context.Context, id uuid.UUID) error {
	const op = "SecretRepository.DeleteSecret"

	// ACLs and history rows cascade
	result, err := r.db.ExecContext(ctx, `DELETE FROM secrets WHERE id = $1`, id)
	if err != nil {
		return database.MapError(err, op)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return secret.ErrNotFound
	}
	return nil
}

func (r *repository) ListACLs(ctx context.Context, secretID uuid.UUID) ([]secret.AclEntry, error) {
	const op = "SecretRepository.ListACLs"

	rows, err := r.db.QueryContext(ctx, `
		SELECT principal, principal_id, can_read, can_write
		FROM secret_acls
		WHERE secret_id = $1
		ORDER BY created_at
	`, secretID)
	if err != nil {
		return nil, database.MapError(err, op)
	}
	defer rows.Close()

	var entries []secret.AclEntry
	for rows.Next() {
		var entry secret.AclEntry
		if err := rows.Scan(&entry.Principal, &entry.PrincipalID, &entry.CanRead, &entry.CanWrite); err != nil {
			return nil, database.MapError(err, op)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, database.MapError(err, op)
	}
	return entries, nil
}

func (r *repository) AddACL(ctx context.Context, secretID uuid.UUID, entry secret.AclEntry) error {
	const op = "SecretRepository.AddACL"

	// Replace any existing grant for the same principal in one tx
	err := database.RunInTx(ctx, r.db, nil, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM secret_acls
			WHERE secret_id = $1
			AND principal = $2
			AND principal_id IS NOT DISTINCT FROM $3
		`, secretID, entry.Principal, entry.PrincipalID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO secret_acls (
				id, secret_id, principal, principal_id, can_read, can_write, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			uuid.New(), secretID, entry.Principal, entry.PrincipalID,
			entry.CanRead, entry.CanWrite, time.Now(),
		)
		return err
	})
	if err != nil {
		return database.MapError(err, op)
	}
	return nil
}

func (r *repository) RemoveACL(ctx context.Context, secretID uuid.UUID, principal secret.Principal, principalID *uuid.UUID) error {
	const op = "SecretRepository.RemoveACL"

	_, err := r.db.ExecContext(ctx, `
		DELETE FROM secret_acls
		WHERE secret_id = $1
		AND principal = $2
		AND principal_id IS NOT DISTINCT FROM $3
	`, secretID, principal, principalID)
	if err != nil {
		return database.MapError(err, op)
	}
	return nil
}

func (r *repository) AppendHistory(ctx context.Context, secretID uuid.UUID, version *secret.Version) error {
	const op = "SecretRepository.AppendHistory"

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO secret_history (secret_id, version, value, changed_by, changed_at)
		SELECT $1, COALESCE(MAX(version), 0) + 1, $2, $3, $4
		FROM secret_history
		WHERE secret_id = $1
	`, secretID, version.Value, version.ChangedBy, version.ChangedAt)
	if err != nil {
		return database.MapError(err, op)
	}
	return nil
}

func (r *repository) ListHistory(ctx context.Context, secretID uuid.UUID) ([]secret.Version, error) {
	const op = "SecretRepository.ListHistory"

	rows, err := r.db.QueryContext(ctx, `
		SELECT version, value, changed_by, changed_at
		FROM secret_history
		WHERE secret_id = $1
		ORDER BY version DESC
	`, secretID)
	if err != nil {
		return nil, database.MapError(err, op)
	}
	defer rows.Close()

	var versions []secret.Version
	for rows.Next() {
		var v secret.Version
		if err := rows.Scan(&v.Version, &v.Value, &v.ChangedBy, &v.ChangedAt); err != nil {
			return nil, database.MapError(err, op)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, database.MapError(err, op)
	}
	return versions, nil
}

func scanSecret(row *sql.Row, op string) (*secret.Secret, error) {
	var s secret.Secret
	err := row.Scan(
		&s.ID, &s.OrgID, &s.Name, &s.Value,
		&s.CreatedBy, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, secret.ErrNotFound
	}
	if err != nil {
		return nil, database.MapError(err, op)
	}
	return &s, nil
}
