package identity

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore serves challenges from a challenges table. Query failures
// degrade to the default challenge so a flaky database never breaks a
// verification in progress.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pool to databaseURL.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to challenge database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging challenge database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Lookup(ctx context.Context, name string) (Challenge, error) {
	var c Challenge
	err := s.pool.QueryRow(ctx,
		"SELECT question, answer FROM challenges WHERE name = $1",
		Normalize(name),
	).Scan(&c.Question, &c.Answer)

	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, pgx.ErrNoRows):
		return DefaultChallenge, nil
	default:
		log.Printf("challenge lookup for %q: %v", name, err)
		return DefaultChallenge, nil
	}
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
