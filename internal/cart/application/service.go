package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmehra2102/shopflow/internal/cart/domain"
	catalog "github.com/dmehra2102/shopflow/internal/catalog/domain"
	"github.com/dmehra2102/shopflow/internal/pricing"
	"github.com/dmehra2102/shopflow/pkg/latency"
	"github.com/dmehra2102/shopflow/pkg/notify"
)

const (
	opDelay    = 200 * time.Millisecond
	countDelay = 100 * time.Millisecond
)

// Service is the cart store. Mutations are serialised within the process so
// two rapid adds cannot lose an update; every committed mutation is followed
// by a ChangeEvent on the service's broadcaster.
type Service struct {
	log      *slog.Logger
	repo     EntryRepository
	products ProductLookup
	delay    latency.Simulator
	changes  *notify.Broadcaster[domain.ChangeEvent]
	now      func() time.Time

	mu sync.Mutex
}

func NewService(log *slog.Logger, repo EntryRepository, products ProductLookup, delay latency.Simulator) *Service {
	return &Service{
		log:      log,
		repo:     repo,
		products: products,
		delay:    delay,
		changes:  notify.NewBroadcaster[domain.ChangeEvent](log),
		now:      time.Now,
	}
}

// Subscribe registers fn for change notifications.
func (s *Service) Subscribe(fn func(domain.ChangeEvent)) (unsubscribe func()) {
	return s.changes.Subscribe(fn)
}

// Close stops delivering notifications.
func (s *Service) Close() {
	s.changes.Close()
}

// load treats an unreadable cart as empty.
func (s *Service) load(ctx context.Context) domain.Entries {
	entries, err := s.repo.Load(ctx)
	if err != nil {
		s.log.Warn("cart read failed, treating as empty", "err", err)
		return nil
	}
	return entries
}

// commit persists entries and, only once the write succeeded, notifies
// subscribers. A failed write is logged and the mutation is dropped.
func (s *Service) commit(ctx context.Context, op domain.Op, productID int, entries domain.Entries) {
	if err := s.repo.Save(ctx, entries); err != nil {
		s.log.Error("cart write failed", "op", op, "product_id", productID, "err", err)
		return
	}
	s.changes.Publish(domain.ChangeEvent{
		Op:        op,
		ProductID: productID,
		Count:     entries.Count(),
		At:        s.now().UTC(),
	})
}

// List returns the enriched cart; entries whose product no longer exists
// are left out.
func (s *Service) List(ctx context.Context) (domain.Items, error) {
	if err := s.delay.Wait(ctx, opDelay); err != nil {
		return nil, err
	}
	entries := s.load(ctx)
	items := make(domain.Items, 0, len(entries))
	for _, e := range entries {
		p, ok := s.products.Product(e.ProductID)
		if !ok {
			continue
		}
		items = append(items, domain.Enrich(e, p))
	}
	return items, nil
}

func (s *Service) Add(ctx context.Context, productID, quantity int) error {
	if err := s.delay.Wait(ctx, opDelay); err != nil {
		return err
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidQuantity, quantity)
	}
	if _, ok := s.products.Product(productID); !ok {
		return fmt.Errorf("%w: id %d", catalog.ErrProductNotFound, productID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.load(ctx).Add(productID, quantity)
	s.commit(ctx, domain.OpAdd, productID, entries)
	return nil
}

// SetQuantity overwrites an entry's quantity; zero or below removes it. A
// product with no entry is left alone.
func (s *Service) SetQuantity(ctx context.Context, productID, quantity int) error {
	if err := s.delay.Wait(ctx, opDelay); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.load(ctx).SetQuantity(productID, quantity)
	if !ok {
		return nil
	}
	op := domain.OpSetQuantity
	if quantity <= 0 {
		op = domain.OpRemove
	}
	s.commit(ctx, op, productID, entries)
	return nil
}

func (s *Service) Remove(ctx context.Context, productID int) error {
	if err := s.delay.Wait(ctx, opDelay); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.commit(ctx, domain.OpRemove, productID, s.load(ctx).Remove(productID))
	return nil
}

func (s *Service) Clear(ctx context.Context) error {
	if err := s.delay.Wait(ctx, opDelay); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.commit(ctx, domain.OpClear, 0, domain.Entries{})
	return nil
}

// Count sums quantities across all persisted entries.
func (s *Service) Count(ctx context.Context) (int, error) {
	if err := s.delay.Wait(ctx, countDelay); err != nil {
		return 0, err
	}
	return s.load(ctx).Count(), nil
}

type Summary struct {
	Items   domain.Items    `json:"items"`
	Count   int             `json:"count"`
	Pricing pricing.Summary `json:"pricing"`
}

// Summary is what the cart and checkout pages render.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	items, err := s.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	count := 0
	for _, it := range items {
		count += it.Quantity
	}
	return Summary{Items: items, Count: count, Pricing: items.Summary()}, nil
}
