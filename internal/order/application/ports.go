package application

import (
	"context"

	cart "github.com/dmehra2102/shopflow/internal/cart/domain"
	"github.com/dmehra2102/shopflow/internal/order/domain"
	"github.com/dmehra2102/shopflow/pkg/outbox"
)

type OrderRepository interface {
	Load(ctx context.Context) ([]domain.Order, error)
	Save(ctx context.Context, orders []domain.Order) error
}

// Cart is the slice of the cart store checkout needs. Clear must persist and
// broadcast the change like any other cart mutation.
type Cart interface {
	List(ctx context.Context) (cart.Items, error)
	Clear(ctx context.Context) error
}

// EventSink receives order events for the outbox relay. Optional.
type EventSink interface {
	Append(ctx context.Context, ev outbox.Event) error
}
