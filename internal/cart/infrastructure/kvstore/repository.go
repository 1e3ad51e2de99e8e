// Package kvstore keeps the cart as one JSON blob in a kv.Store.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmehra2102/shopflow/internal/cart/domain"
	"github.com/dmehra2102/shopflow/pkg/apperr"
	"github.com/dmehra2102/shopflow/pkg/kv"
)

const Key = "cart"

type Repository struct {
	store kv.Store
}

func NewRepository(store kv.Store) *Repository {
	return &Repository{store: store}
}

// Load returns nil when no cart has been written yet.
func (r *Repository) Load(ctx context.Context) (domain.Entries, error) {
	raw, err := r.store.Get(ctx, Key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read cart: %v", apperr.ErrStorage, err)
	}
	var entries domain.Entries
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode cart: %v", apperr.ErrStorage, err)
	}
	return entries.Normalize(), nil
}

func (r *Repository) Save(ctx context.Context, entries domain.Entries) error {
	if entries == nil {
		entries = domain.Entries{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("%w: encode cart: %v", apperr.ErrStorage, err)
	}
	if err := r.store.Set(ctx, Key, raw); err != nil {
		return fmt.Errorf("%w: write cart: %v", apperr.ErrStorage, err)
	}
	return nil
}
