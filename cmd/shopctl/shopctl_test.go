package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func useTempStore(t *testing.T) {
	t.Helper()
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "shopctl.db"))
}

func TestProducts(t *testing.T) {
	useTempStore(t)

	out, err := run(t, "products", "list", "--category", "books")
	require.NoError(t, err)
	assert.Contains(t, out, "Books")
	assert.Contains(t, out, "2 product(s)")

	out, err = run(t, "products", "search", "cotton", "--sort", "price-high")
	require.NoError(t, err)
	assert.Contains(t, out, "3 product(s)")

	_, err = run(t, "products", "list", "--sort", "popular")
	assert.Error(t, err)
}

func TestCartPersistsAcrossInvocations(t *testing.T) {
	useTempStore(t)

	out, err := run(t, "cart", "add", "1", "2")
	require.NoError(t, err)
	assert.Equal(t, "cart now holds 2 item(s)\n", out)

	out, err = run(t, "cart", "add", "1")
	require.NoError(t, err)
	assert.Equal(t, "cart now holds 3 item(s)\n", out)

	out, err = run(t, "cart", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Wireless Noise-Cancelling Headphones")
	assert.Contains(t, out, "599.97")

	_, err = run(t, "cart", "add", "404")
	assert.Error(t, err)

	out, err = run(t, "cart", "clear")
	require.NoError(t, err)
	assert.Equal(t, "cart cleared\n", out)
}

func TestOrders(t *testing.T) {
	useTempStore(t)

	out, err := run(t, "orders", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "STATUS")

	_, err = run(t, "orders", "get", "1")
	assert.Error(t, err)

	_, err = run(t, "orders", "status", "x", "Shipped")
	assert.Error(t, err)
}

func TestEventsTailNeedsKafka(t *testing.T) {
	t.Setenv("KAFKA_ADDR", "")
	_, err := run(t, "events", "tail")
	assert.ErrorContains(t, err, "KAFKA_ADDR")
}
