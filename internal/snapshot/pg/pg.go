// Package pg guarda el snapshot en Postgres (tabla catalog_snapshots).
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/hellopos/internal/snapshot"
	migrations "github.com/dropDatabas3/hellopos/migrations/postgres"
)

// Store implementa snapshot.Store sobre un pool (normalmente compartido con el workbook pg).
type Store struct {
	pool *pgxpool.Pool
	name string
}

// New crea la tabla si no existe. El pool no se cierra en Close.
func New(ctx context.Context, pool *pgxpool.Pool, name string) (*Store, error) {
	if name == "" {
		name = snapshot.DefaultName
	}
	if err := migrations.Apply(ctx, pool); err != nil {
		return nil, fmt.Errorf("pg schema: %w", err)
	}
	return &Store{pool: pool, name: name}, nil
}

func (s *Store) ReadBlob(ctx context.Context) ([]byte, error) {
	var b []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM catalog_snapshots WHERE name = $1`, s.name).Scan(&b)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, snapshot.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return b, nil
}

func (s *Store) WriteBlob(ctx context.Context, data []byte) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO catalog_snapshots(name, payload, updated_at) VALUES($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`, s.name, data)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }

var _ snapshot.Store = (*Store)(nil)
