// Package postgres implements store.Store on a pgx connection pool. The
// redemption commit runs in a single transaction with the token row locked,
// so a failed step never strands a submission or ticket.
package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkfest/backend/internal/store"
)

// Store is the PostgreSQL-backed storage implementation.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Postgres store on an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// mapErr translates pgx errors into store sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return store.ErrConflict
	}
	return err
}
