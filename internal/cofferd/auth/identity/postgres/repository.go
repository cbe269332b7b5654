// Package postgres implements identity storage on PostgreSQL
package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coffersec/coffer/internal/cofferd/auth/identity"
	"github.com/coffersec/coffer/internal/cofferd/database"
)

// querier is satisfied by both *sql.DB and *database.Tx
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type repository struct {
	db     *sql.DB
	tx     *database.Tx
	logger *slog.Logger
}

// NewRepository creates a PostgreSQL identity repository
func NewRepository(db *sql.DB, logger *slog.Logger) identity.Repository {
	return &repository{db: db, logger: logger}
}

func (r *repository) q() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// InTx runs fn against a transaction-scoped repository. Nested calls
// reuse the already open transaction.
func (r *repository) InTx(ctx context.Context, fn func(identity.Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	return database.RunInTx(ctx, r.db, nil, func(tx *database.Tx) error {
		return fn(&repository{db: r.db, tx: tx, logger: r.logger})
	})
}

const userColumns = `id, org_id, email, display_name, is_admin, provider, provider_id`

func scanUser(row *sql.Row) (*identity.User, error) {
	var user identity.User
	err := row.Scan(
		&user.ID,
		&user.OrgID,
		&user.Email,
		&user.DisplayName,
		&user.IsAdmin,
		&user.Provider,
		&user.ProviderID,
	)
	if err == sql.ErrNoRows {
		return nil, identity.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindUserByProvider(ctx context.Context, provider, providerID string) (*identity.User, error) {
	const op = "IdentityRepository.FindUserByProvider"

	user, err := scanUser(r.q().QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE provider = $1 AND provider_id = $2
	`, provider, providerID))
	if err != nil && err != identity.ErrUserNotFound {
		return nil, database.MapError(err, op)
	}
	return user, err
}

func (r *repository) FindUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	const op = "IdentityRepository.FindUserByEmail"

	user, err := scanUser(r.q().QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, email))
	if err != nil && err != identity.ErrUserNotFound {
		return nil, database.MapError(err, op)
	}
	return user, err
}

func (r *repository) GetUser(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	const op = "IdentityRepository.GetUser"

	user, err := scanUser(r.q().QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id))
	if err != nil && err != identity.ErrUserNotFound {
		return nil, database.MapError(err, op)
	}
	return user, err
}

func (r *repository) CreateUser(ctx context.Context, user *identity.User) error {
	const op = "IdentityRepository.CreateUser"

	_, err := r.q().ExecContext(ctx, `
		INSERT INTO users (
			id, org_id, email, display_name, is_admin,
			provider, provider_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`,
		user.ID,
		user.OrgID,
		user.Email,
		user.DisplayName,
		user.IsAdmin,
		user.Provider,
		user.ProviderID,
		time.Now(),
	)
	if err != nil {
		return database.MapError(err, op)
	}
	return nil
}

func (r *repository) UpdateUser(ctx context.Context, user *identity.User) error {
	const op = "IdentityRepository.UpdateUser"

	_, err := r.q().ExecContext(ctx, `
		UPDATE users
		SET email = $2,
			display_name = $3,
			provider = $4,
			provider_id = $5,
			updated_at = $6
		WHERE id = $1
	`,
		user.ID,
		user.Email,
		user.DisplayName,
		user.Provider,
		user.ProviderID,
		time.Now(),
	)
	if err != nil {
		return database.MapError(err, op)
	}
	return nil
}

func (r *repository) FindOrgByName(ctx context.Context, name string) (*identity.Organization, error) {
	const op = "IdentityRepository.FindOrgByName"

	var org identity.Organization
	err := r.q().QueryRowContext(ctx, `
		SELECT id, name
		FROM organizations
		WHERE name = $1
	`, name).Scan(&org.ID, &org.Name)

	if err == sql.ErrNoRows {
		return nil, identity.ErrOrgNotFound
	}
	if err != nil {
		return nil, database.MapError(err, op)
	}
	return &org, nil
}

func (r *repository) CreateOrg(ctx context.Context, org *identity.Organization) error {
	const op = "IdentityRepository.CreateOrg"

	_, err := r.q().ExecContext(ctx, `
		INSERT INTO organizations (id, name, created_at)
		VALUES ($1, $2, $3)
	`, org.ID, org.Name, time.Now())
	if err != nil {
		return database.MapError(err, op)
	}
	return nil
}

func (r *repository) ListTeamIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	const op = "IdentityRepository.ListTeamIDs"

	rows, err := r.q().QueryContext(ctx, `
		SELECT team_id
		FROM team_memberships
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, database.MapError(err, op)
	}
	defer rows.Close()

	var teamIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, database.MapError(err, op)
		}
		teamIDs = append(teamIDs, id)
	}
	return teamIDs, database.MapError(rows.Err(), op)
}
