package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the subset of pgx operations the repositories need.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// DB is the PostgreSQL-backed Store.
type DB struct {
	pool *pgxpool.Pool
	q    DBTX
}

// NewDB creates a Store backed by the given connection pool.
func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool, q: pool}
}

func (d *DB) People() People                 { return &pgPeople{q: d.q} }
func (d *DB) Projects() Projects             { return &pgProjects{q: d.q} }
func (d *DB) TaskCategories() TaskCategories { return &pgTaskCategories{q: d.q} }
func (d *DB) TimeEntries() TimeEntries       { return &pgTimeEntries{q: d.q} }
func (d *DB) ImportRuns() ImportRuns         { return &pgImportRuns{q: d.q} }

// WithTx runs fn against a transaction-bound Store. A nested call reuses the
// enclosing transaction.
func (d *DB) WithTx(ctx context.Context, fn func(Store) error) error {
	if _, ok := d.q.(pgx.Tx); ok {
		return fn(d)
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&DB{pool: d.pool, q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// mapPgError translates driver errors into store-level error types.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &UniqueViolationError{Constraint: pgErr.ConstraintName}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
