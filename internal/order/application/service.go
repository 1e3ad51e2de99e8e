package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/dmehra2102/shopflow/internal/order/domain"
	"github.com/dmehra2102/shopflow/pkg/apperr"
	"github.com/dmehra2102/shopflow/pkg/latency"
	"github.com/dmehra2102/shopflow/pkg/outbox"
	"github.com/dmehra2102/shopflow/pkg/tracing"
)

type Service struct {
	log    *slog.Logger
	repo   OrderRepository
	cart   Cart
	events EventSink
	delay  latency.Simulator
	now    func() time.Time

	mu sync.Mutex
}

type Option func(*Service)

// WithEvents publishes OrderPlaced and OrderStatusChanged through sink.
func WithEvents(sink EventSink) Option { return func(s *Service) { s.events = sink } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(log *slog.Logger, repo OrderRepository, cart Cart, delay latency.Simulator, opts ...Option) *Service {
	s := &Service{log: log, repo: repo, cart: cart, delay: delay, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create persists a new order with the next id and status Processing, then
// clears the cart.
func (s *Service) Create(ctx context.Context, d domain.Draft) (domain.Order, error) {
	if err := s.delay.Wait(ctx, 500*time.Millisecond); err != nil {
		return domain.Order{}, err
	}
	if err := d.Validate(); err != nil {
		return domain.Order{}, err
	}

	o, err := s.insert(ctx, d)
	if err != nil {
		return domain.Order{}, err
	}

	s.log.Info("order created", "order_id", o.ID, "items", len(o.Items), "total", o.Total.String())
	s.emit(ctx, o.ID, domain.EventOrderPlaced, domain.OrderPlaced{OrderID: o.ID, Total: o.Total, ItemCount: len(o.Items)})

	if err := s.cart.Clear(ctx); err != nil {
		s.log.Error("cart clear after order failed", "order_id", o.ID, "err", err)
	}
	return o.Clone(), nil
}

func (s *Service) Get(ctx context.Context, id int) (domain.Order, error) {
	if err := s.delay.Wait(ctx, 200*time.Millisecond); err != nil {
		return domain.Order{}, err
	}
	for _, o := range s.load(ctx) {
		if o.ID == id {
			return o.Clone(), nil
		}
	}
	return domain.Order{}, fmt.Errorf("%w: id %d", domain.ErrOrderNotFound, id)
}

// List returns every order, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Order, error) {
	if err := s.delay.Wait(ctx, 300*time.Millisecond); err != nil {
		return nil, err
	}
	orders := s.load(ctx)
	if orders == nil {
		orders = []domain.Order{}
	}
	slices.SortStableFunc(orders, func(a, b domain.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	for i := range orders {
		orders[i] = orders[i].Clone()
	}
	return orders, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id int, status domain.Status) (domain.Order, error) {
	if err := s.delay.Wait(ctx, 200*time.Millisecond); err != nil {
		return domain.Order{}, err
	}

	prev, updated, err := s.setStatus(ctx, id, status)
	if err != nil {
		return domain.Order{}, err
	}

	s.log.Info("order status updated", "order_id", id, "from", prev, "to", updated.Status)
	s.emit(ctx, id, domain.EventOrderStatusChanged, domain.OrderStatusChanged{OrderID: id, From: prev, To: updated.Status})
	return updated.Clone(), nil
}

func (s *Service) insert(ctx context.Context, d domain.Draft) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.loadForWrite(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	o, err := domain.NewOrder(domain.NextID(orders), d, s.now())
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.repo.Save(ctx, append(orders, o)); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (s *Service) setStatus(ctx context.Context, id int, status domain.Status) (prev domain.Status, updated domain.Order, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.loadForWrite(ctx)
	if err != nil {
		return "", domain.Order{}, err
	}
	i := slices.IndexFunc(orders, func(o domain.Order) bool { return o.ID == id })
	if i < 0 {
		return "", domain.Order{}, fmt.Errorf("%w: id %d", domain.ErrOrderNotFound, id)
	}
	prev = orders[i].Status
	updated, err = orders[i].WithStatus(status, s.now())
	if err != nil {
		return "", domain.Order{}, err
	}
	orders[i] = updated
	if err := s.repo.Save(ctx, orders); err != nil {
		return "", domain.Order{}, err
	}
	return prev, updated, nil
}

func (s *Service) load(ctx context.Context) []domain.Order {
	orders, err := s.repo.Load(ctx)
	if err != nil {
		s.log.Warn("orders read failed, treating as empty", "err", err)
		return nil
	}
	return orders
}

// loadForWrite fails instead of degrading to an empty list, so a broken read
// never ends in a save that drops the stored orders.
func (s *Service) loadForWrite(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrStorage) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load orders: %v", apperr.ErrStorage, err)
	}
	return orders, nil
}

func (s *Service) emit(ctx context.Context, orderID int, eventType string, payload any) {
	if s.events == nil {
		return
	}
	ev, err := outbox.NewEvent("order", strconv.Itoa(orderID), eventType, payload, s.now())
	if err != nil {
		s.log.Error("order event encode failed", "order_id", orderID, "err", err)
		return
	}
	ev.Headers["source"] = "storefront"
	ev.Traceparent = tracing.Traceparent(ctx)
	if err := s.events.Append(ctx, ev); err != nil {
		s.log.Error("order event append failed", "order_id", orderID, "type", eventType, "err", err)
	}
}
