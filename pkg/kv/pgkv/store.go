// Package pgkv persists kv blobs in a Postgres table through pgxpool.
package pgkv

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/shopflow/pkg/kv"
)

const schema = `CREATE TABLE IF NOT EXISTS kv_blobs (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type Store struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func New(log *slog.Logger, pool *pgxpool.Pool) *Store {
	return &Store{log: log, pool: pool}
}

// Migrate creates the blob table. Safe to call on every start.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv_blobs WHERE key=$1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO kv_blobs (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value=$2, updated_at=now()`, key, value)
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM kv_blobs WHERE key=$1`, key)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		s.log.Debug("kv delete of absent key", "key", key)
	}
	return nil
}

// Close is a no-op; the pool is shared with the outbox store and closed by main.
func (s *Store) Close() error { return nil }
