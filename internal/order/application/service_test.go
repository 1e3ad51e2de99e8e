package application

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartapp "github.com/dmehra2102/shopflow/internal/cart/application"
	cartdomain "github.com/dmehra2102/shopflow/internal/cart/domain"
	cartkv "github.com/dmehra2102/shopflow/internal/cart/infrastructure/kvstore"
	"github.com/dmehra2102/shopflow/internal/catalog/infrastructure/static"
	"github.com/dmehra2102/shopflow/internal/order/domain"
	"github.com/dmehra2102/shopflow/internal/order/infrastructure/kvstore"
	"github.com/dmehra2102/shopflow/pkg/apperr"
	"github.com/dmehra2102/shopflow/pkg/kv"
	"github.com/dmehra2102/shopflow/pkg/latency"
	"github.com/dmehra2102/shopflow/pkg/logging"
	"github.com/dmehra2102/shopflow/pkg/outbox"
)

type failingRepo struct {
	OrderRepository
	failSave bool
	failLoad bool
}

func (r *failingRepo) Load(ctx context.Context) ([]domain.Order, error) {
	if r.failLoad {
		return nil, errors.New("read timeout")
	}
	return r.OrderRepository.Load(ctx)
}

func (r *failingRepo) Save(ctx context.Context, orders []domain.Order) error {
	if r.failSave {
		return errors.New("disk full")
	}
	return r.OrderRepository.Save(ctx, orders)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

type fixture struct {
	orders *Service
	cart   *cartapp.Service
	mem    *kv.Memory
	repo   *failingRepo
	outbox *outbox.MemoryStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	products, err := static.Embedded()
	require.NoError(t, err)

	mem := kv.NewMemory()
	cart := cartapp.NewService(logging.Discard(), cartkv.NewRepository(mem), products, latency.New(0))
	t.Cleanup(cart.Close)

	repo := &failingRepo{OrderRepository: kvstore.NewRepository(mem)}
	box := outbox.NewMemoryStore()
	c := &clock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	orders := NewService(logging.Discard(), repo, cart, latency.New(0), WithEvents(box), WithClock(c.now))
	return fixture{orders: orders, cart: cart, mem: mem, repo: repo, outbox: box}
}

func draft() domain.Draft {
	return domain.Draft{
		Items: []domain.LineItem{{ProductID: 2, Quantity: 1, Price: decimal.RequireFromString("49.99"), Title: "Smart Fitness Watch"}},
		Shipping: domain.Shipping{
			FirstName: "Alan", LastName: "Turing", Email: "alan@example.com",
			Address: "1 Bletchley Park", City: "Milton Keynes", State: "BKM", ZipCode: "MK3 6EB",
		},
		Payment: domain.PaymentInput{CardNumber: "4242 4242 4242 4242", ExpiryDate: "08/30", CVV: "999", NameOnCard: "A M Turing"},
		Total:   decimal.RequireFromString("63.98"),
	}
}

func TestOrders_CreateAssignsNextID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.orders.Create(ctx, draft())
	require.NoError(t, err)
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, domain.StatusProcessing, first.Status)
	assert.Equal(t, "**** **** **** 4242", first.Payment.CardNumber)
	assert.Equal(t, domain.DefaultCountry, first.Shipping.Country)

	require.NoError(t, f.mem.Set(ctx, kvstore.Key, mustJSON(t, []domain.Order{first, {ID: 41, Status: "Delivered"}})))
	next, err := f.orders.Create(ctx, draft())
	require.NoError(t, err)
	assert.Equal(t, 42, next.ID)
}

func TestOrders_CreateNeverStoresCVVOrFullCard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.orders.Create(ctx, draft())
	require.NoError(t, err)

	raw, err := f.mem.Get(ctx, kvstore.Key)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "999")
	assert.NotContains(t, string(raw), "4242 4242")
	assert.NotContains(t, string(raw), "4242424242424242")
}

func TestOrders_CreateRejectsInvalidDraft(t *testing.T) {
	f := newFixture(t)
	d := draft()
	d.Shipping.Email = ""
	_, err := f.orders.Create(context.Background(), d)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	assert.Empty(t, f.outbox.Pending())
}

func TestOrders_CreateClearsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cart.Add(ctx, 1, 2))

	changes := make(chan struct{}, 4)
	f.cart.Subscribe(func(cartdomain.ChangeEvent) { changes <- struct{}{} })

	_, err := f.orders.Create(ctx, draft())
	require.NoError(t, err)

	n, err := f.cart.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("cart clear was not broadcast")
	}
}

func TestOrders_CreateWriteFailurePropagates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cart.Add(ctx, 1, 1))

	f.repo.failSave = true
	_, err := f.orders.Create(ctx, draft())
	assert.Error(t, err)

	n, _ := f.cart.Count(ctx)
	assert.Equal(t, 1, n, "cart kept when the order was not stored")
	assert.Empty(t, f.outbox.Pending())
}

func TestOrders_ReadFailureDuringWriteKeepsStoredOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.orders.Create(ctx, draft())
	require.NoError(t, err)
	second, err := f.orders.Create(ctx, draft())
	require.NoError(t, err)

	f.repo.failLoad = true
	_, err = f.orders.Create(ctx, draft())
	assert.ErrorIs(t, err, apperr.ErrStorage)
	_, err = f.orders.UpdateStatus(ctx, first.ID, domain.StatusShipped)
	assert.ErrorIs(t, err, apperr.ErrStorage)

	f.repo.failLoad = false
	list, err := f.orders.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.StatusProcessing, list[1].Status)

	third, err := f.orders.Create(ctx, draft())
	require.NoError(t, err)
	assert.Equal(t, second.ID+1, third.ID, "ids are not reused after a failed read")
}

func TestOrders_GetAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	list, err := f.orders.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	for range 3 {
		_, err := f.orders.Create(ctx, draft())
		require.NoError(t, err)
	}

	list, err = f.orders.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int{3, 2, 1}, []int{list[0].ID, list[1].ID, list[2].ID})

	got, err := f.orders.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ID)

	_, err = f.orders.Get(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestOrders_GetReturnsCopy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.orders.Create(ctx, draft())
	require.NoError(t, err)

	o, err := f.orders.Get(ctx, 1)
	require.NoError(t, err)
	o.Items[0].Title = "tampered"

	again, err := f.orders.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Smart Fitness Watch", again.Items[0].Title)
}

func TestOrders_UpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.orders.Create(ctx, draft())
	require.NoError(t, err)

	updated, err := f.orders.UpdateStatus(ctx, created.ID, domain.StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, updated.Status)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, created.Total.String(), updated.Total.String())

	stored, err := f.orders.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, stored.Status)

	_, err = f.orders.UpdateStatus(ctx, 404, domain.StatusDelivered)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = f.orders.UpdateStatus(ctx, created.ID, " ")
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestOrders_EmitsOutboxEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.orders.Create(ctx, draft())
	require.NoError(t, err)
	_, err = f.orders.UpdateStatus(ctx, o.ID, domain.StatusCancelled)
	require.NoError(t, err)

	events := f.outbox.Pending()
	require.Len(t, events, 2)

	assert.Equal(t, domain.EventOrderPlaced, events[0].Type)
	assert.Equal(t, "order", events[0].AggregateType)
	assert.Equal(t, "1", events[0].AggregateID)
	var placed domain.OrderPlaced
	require.NoError(t, json.Unmarshal(events[0].Payload, &placed))
	assert.Equal(t, 1, placed.ItemCount)
	assert.True(t, placed.Total.Equal(o.Total))

	var changed domain.OrderStatusChanged
	require.NoError(t, json.Unmarshal(events[1].Payload, &changed))
	assert.Equal(t, domain.StatusProcessing, changed.From)
	assert.Equal(t, domain.StatusCancelled, changed.To)
}

func TestOrders_Checkout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := CheckoutRequest{Shipping: draft().Shipping, Payment: draft().Payment}

	_, err := f.orders.Checkout(ctx, req)
	assert.ErrorIs(t, err, ErrEmptyCart)

	require.NoError(t, f.cart.Add(ctx, 18, 2))
	o, err := f.orders.Checkout(ctx, req)
	require.NoError(t, err)

	require.Len(t, o.Items, 1)
	assert.Equal(t, 18, o.Items[0].ProductID)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.NotEmpty(t, o.Items[0].Title)
	// 29.98 subtotal, 2.3984 tax, 9.99 shipping
	assert.Equal(t, "42.3684", o.Total.String())

	n, _ := f.cart.Count(ctx)
	assert.Equal(t, 0, n)
}

func TestOrders_ConcurrentCreatesGetDistinctIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orders.Create(ctx, draft())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	list, err := f.orders.List(ctx)
	require.NoError(t, err)
	seen := map[int]bool{}
	for _, o := range list {
		seen[o.ID] = true
	}
	assert.Len(t, seen, 20)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
