// Package database provides utilities for database operations
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	cerrors "github.com/coffersec/coffer/internal/cofferd/errors"
)

// Tx wraps a database transaction with additional functionality
type Tx struct {
	*sql.Tx
}

// TxOptions defines options for transaction execution
type TxOptions struct {
	// Isolation sets the transaction isolation level
	Isolation sql.IsolationLevel
	// ReadOnly indicates if the transaction is read-only
	ReadOnly bool
}

// SetupDatabase opens a connection pool and verifies connectivity,
// retrying the initial ping to tolerate slow database startup
func SetupDatabase(connStr string, maxRetries int, retryDelay time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	var pingErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if pingErr = db.Ping(); pingErr == nil {
			return db, nil
		}
		time.Sleep(retryDelay)
	}

	db.Close()
	return nil, fmt.Errorf("error connecting to database after %d attempts: %w", maxRetries+1, pingErr)
}

// ConfigurePool applies connection pool settings
func ConfigurePool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)
}

// RunInTx executes a function within a transaction
func RunInTx(ctx context.Context, db *sql.DB, opts *TxOptions, fn func(*Tx) error) error {
	var txOpts *sql.TxOptions
	if opts != nil {
		txOpts = &sql.TxOptions{
			Isolation: opts.Isolation,
			ReadOnly:  opts.ReadOnly,
		}
	}

	tx, err := db.BeginTx(ctx, txOpts)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	wtx := &Tx{Tx: tx}

	if err := fn(wtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("error rolling back transaction: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}

// MapError converts database-specific errors to domain errors
func MapError(err error, op string) error {
	if err == nil {
		return nil
	}

	// Handle specific PostgreSQL errors
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return cerrors.NewError(
				"CONFLICT",
				"resource already exists",
				op,
				cerrors.ErrConflict,
			)
		case "23503": // foreign_key_violation
			return cerrors.NewError(
				"NOT_FOUND",
				"referenced resource not found",
				op,
				cerrors.ErrNotFound,
			)
		case "23514": // check_violation
			return cerrors.NewError(
				"INVALID_INPUT",
				pqErr.Message,
				op,
				cerrors.ErrInvalidInput,
			)
		}
	}

	// Handle sql.ErrNoRows
	if errors.Is(err, sql.ErrNoRows) {
		return cerrors.NewError(
			"NOT_FOUND",
			"resource not found",
			op,
			cerrors.ErrNotFound,
		)
	}

	return cerrors.NewError(
		"INTERNAL",
		"internal database error",
		op,
		err,
	)
}
