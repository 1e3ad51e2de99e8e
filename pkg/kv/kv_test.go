package kv_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/shopflow/pkg/kv"
	"github.com/dmehra2102/shopflow/pkg/kv/kvtest"
)

func TestMemory(t *testing.T) {
	kvtest.Run(t, kv.NewMemory())
}

func TestMemory_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := kv.NewMemory()
	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", buf))
	buf[0] = 'z'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	got[1] = 'z'
	again, _ := s.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestNamespaced(t *testing.T) {
	ctx := context.Background()
	base := kv.NewMemory()
	s := kv.WithNamespace(base, "shopflow")
	kvtest.Run(t, s)

	require.NoError(t, s.Set(ctx, "cart", []byte(`[]`)))
	_, err := base.Get(ctx, "shopflow_cart")
	assert.NoError(t, err)
	_, err = base.Get(ctx, "cart")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestWithNamespace_EmptyIsIdentity(t *testing.T) {
	base := kv.NewMemory()
	assert.Same(t, base, kv.WithNamespace(base, ""))
}
