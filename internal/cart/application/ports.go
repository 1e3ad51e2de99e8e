package application

import (
	"context"

	"github.com/dmehra2102/shopflow/internal/cart/domain"
	catalog "github.com/dmehra2102/shopflow/internal/catalog/domain"
)

type EntryRepository interface {
	Load(ctx context.Context) (domain.Entries, error)
	Save(ctx context.Context, entries domain.Entries) error
}

type ProductLookup interface {
	Product(id int) (catalog.Product, bool)
}
