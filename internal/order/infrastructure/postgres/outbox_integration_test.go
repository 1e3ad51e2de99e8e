//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dmehra2102/shopflow/pkg/logging"
	"github.com/dmehra2102/shopflow/pkg/outbox"
)

func newStore(t *testing.T) (*OutboxStore, *pgxpool.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pgC, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("shopflow"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, pgURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := NewOutboxStore(logging.Discard(), pool)
	require.NoError(t, s.Migrate(ctx))
	return s, pool
}

func TestOutboxStore_Lifecycle(t *testing.T) {
	s, pool := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, outbox.Event{
		AggregateType: "order", AggregateID: "1", Type: "OrderPlaced",
		Payload: []byte(`{"orderId":1}`), Headers: map[string]string{"source": "storefront"},
	}))
	require.NoError(t, s.Append(ctx, outbox.Event{
		AggregateType: "order", AggregateID: "2", Type: "OrderPlaced", Payload: []byte(`{"orderId":2}`),
	}))

	batch, err := s.LockBatch(ctx, "relay-a", 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "storefront", batch[0].Headers["source"])
	assert.NotEmpty(t, batch[0].EventID)

	again, err := s.LockBatch(ctx, "relay-b", 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, again, "leased events are not handed out twice")

	require.NoError(t, s.MarkSent(ctx, []int64{batch[0].ID}))
	require.NoError(t, s.MarkFailed(ctx, batch[1].ID, "broker down"))

	retry, err := s.LockBatch(ctx, "relay-b", 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, retry, 1)
	assert.Equal(t, batch[1].ID, retry[0].ID)
	assert.Equal(t, 1, retry[0].RetryCount)

	var status string
	require.NoError(t, pool.QueryRow(ctx, `SELECT status FROM outbox WHERE id=$1`, batch[0].ID).Scan(&status))
	assert.Equal(t, "sent", status)
}

func TestOutboxStore_ExpiredLeaseIsReclaimed(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, outbox.Event{AggregateType: "order", AggregateID: "9", Type: "OrderPlaced", Payload: []byte(`{}`)}))

	first, err := s.LockBatch(ctx, "relay-a", 10, time.Millisecond)
	require.NoError(t, err)
	require.Len(t, first, 1)

	time.Sleep(20 * time.Millisecond)
	second, err := s.LockBatch(ctx, "relay-b", 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "relay-b", second[0].RelayID)
}

func TestOutboxStore_ParksAfterMaxRetries(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, outbox.Event{AggregateType: "order", AggregateID: "3", Type: "OrderPlaced", Payload: []byte(`{}`)}))

	for range outbox.MaxRetries {
		batch, err := s.LockBatch(ctx, "relay", 10, time.Minute)
		require.NoError(t, err)
		require.Len(t, batch, 1)
		require.NoError(t, s.MarkFailed(ctx, batch[0].ID, "nope"))
	}
	batch, err := s.LockBatch(ctx, "relay", 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, batch)
}
