package application

import (
	"context"
	"fmt"

	cart "github.com/dmehra2102/shopflow/internal/cart/domain"
	"github.com/dmehra2102/shopflow/internal/order/domain"
	"github.com/dmehra2102/shopflow/pkg/apperr"
)

var ErrEmptyCart = fmt.Errorf("%w: cart is empty", apperr.ErrInvalid)

type CheckoutRequest struct {
	Shipping domain.Shipping     `json:"shipping"`
	Payment  domain.PaymentInput `json:"payment"`
}

// Checkout snapshots the current cart, prices it and creates the order.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (domain.Order, error) {
	items, err := s.cart.List(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	if len(items) == 0 {
		return domain.Order{}, ErrEmptyCart
	}
	return s.Create(ctx, domain.Draft{
		Items:    snapshot(items),
		Shipping: req.Shipping,
		Payment:  req.Payment,
		Total:    items.Summary().Total,
	})
}

func snapshot(items cart.Items) []domain.LineItem {
	out := make([]domain.LineItem, len(items))
	for i, it := range items {
		out[i] = domain.LineItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Title:     it.Title,
			Category:  it.Category,
			Image:     it.Image,
		}
	}
	return out
}
