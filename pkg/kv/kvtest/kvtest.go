// Package kvtest is a conformance suite every kv.Store backend runs.
package kvtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/shopflow/pkg/kv"
)

func Run(t *testing.T, s kv.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := s.Get(ctx, "kvtest_missing")
		assert.ErrorIs(t, err, kv.ErrNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "kvtest_cart", []byte(`[{"productId":1,"quantity":2}]`)))
		got, err := s.Get(ctx, "kvtest_cart")
		require.NoError(t, err)
		assert.JSONEq(t, `[{"productId":1,"quantity":2}]`, string(got))
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "kvtest_orders", []byte(`[]`)))
		require.NoError(t, s.Set(ctx, "kvtest_orders", []byte(`[{"id":1}]`)))
		got, err := s.Get(ctx, "kvtest_orders")
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":1}]`, string(got))
	})

	t.Run("regions are independent", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "kvtest_a", []byte(`"a"`)))
		require.NoError(t, s.Set(ctx, "kvtest_b", []byte(`"b"`)))
		a, err := s.Get(ctx, "kvtest_a")
		require.NoError(t, err)
		assert.JSONEq(t, `"a"`, string(a))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "kvtest_gone", []byte(`1`)))
		require.NoError(t, s.Delete(ctx, "kvtest_gone"))
		_, err := s.Get(ctx, "kvtest_gone")
		assert.ErrorIs(t, err, kv.ErrNotFound)
		assert.NoError(t, s.Delete(ctx, "kvtest_gone"), "deleting twice is not an error")
	})
}
