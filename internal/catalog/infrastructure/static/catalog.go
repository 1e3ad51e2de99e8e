// Package static serves the mock product catalog: a read-only JSON dataset
// loaded once at startup.
package static

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dmehra2102/shopflow/internal/catalog/domain"
	"github.com/dmehra2102/shopflow/pkg/apperr"
)

//go:embed products.json
var embedded []byte

type Catalog struct {
	products []domain.Product
	byID     map[int]int
}

// Embedded loads the catalog compiled into the binary.
func Embedded() (*Catalog, error) {
	return Load(bytes.NewReader(embedded))
}

func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a JSON array of products. Ids must be unique.
func Load(r io.Reader) (*Catalog, error) {
	var products []domain.Product
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&products); err != nil {
		return nil, fmt.Errorf("%w: decode catalog: %v", apperr.ErrInvalid, err)
	}

	byID := make(map[int]int, len(products))
	for i, p := range products {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate product id %d", apperr.ErrInvalid, p.ID)
		}
		byID[p.ID] = i
	}
	return &Catalog{products: products, byID: byID}, nil
}

// Products returns deep copies in catalog order.
func (c *Catalog) Products() []domain.Product {
	return domain.CloneAll(c.products)
}

func (c *Catalog) Product(id int) (domain.Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Product{}, false
	}
	return c.products[i].Clone(), true
}

func (c *Catalog) Len() int { return len(c.products) }
