// Package kvstore keeps every order in one JSON array blob.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmehra2102/shopflow/internal/order/domain"
	"github.com/dmehra2102/shopflow/pkg/apperr"
	"github.com/dmehra2102/shopflow/pkg/kv"
)

const Key = "orders"

type Repository struct {
	store kv.Store
}

func NewRepository(store kv.Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) Load(ctx context.Context) ([]domain.Order, error) {
	raw, err := r.store.Get(ctx, Key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read orders: %v", apperr.ErrStorage, err)
	}
	var orders []domain.Order
	if err := json.Unmarshal(raw, &orders); err != nil {
		return nil, fmt.Errorf("%w: decode orders: %v", apperr.ErrStorage, err)
	}
	return orders, nil
}

func (r *Repository) Save(ctx context.Context, orders []domain.Order) error {
	if orders == nil {
		orders = []domain.Order{}
	}
	raw, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("%w: encode orders: %v", apperr.ErrStorage, err)
	}
	if err := r.store.Set(ctx, Key, raw); err != nil {
		return fmt.Errorf("%w: write orders: %v", apperr.ErrStorage, err)
	}
	return nil
}
