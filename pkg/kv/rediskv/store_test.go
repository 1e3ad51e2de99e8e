package rediskv

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/shopflow/pkg/kv"
	"github.com/dmehra2102/shopflow/pkg/kv/kvtest"
)

func TestStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	kvtest.Run(t, New(rdb))
}

func TestStore_ConnectionFailureIsNotNotFound(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	_, err := New(rdb).Get(t.Context(), "shopflow_cart")
	require.Error(t, err)
	assert.NotErrorIs(t, err, kv.ErrNotFound)
}
