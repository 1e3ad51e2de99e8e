// Package rediskv persists kv blobs as plain Redis string values.
package rediskv

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/shopflow/pkg/kv"
)

type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.rdb.Set(ctx, key, value, 0).Err()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Close is a no-op; the client is owned by whoever created it.
func (s *Store) Close() error { return nil }
