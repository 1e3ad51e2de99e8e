package domain

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/shopflow/pkg/apperr"
)

var ErrProductNotFound = fmt.Errorf("product %w", apperr.ErrNotFound)

type Product struct {
	ID             int               `json:"id"`
	Title          string            `json:"title"`
	Category       string            `json:"category"`
	Price          decimal.Decimal   `json:"price"`
	OriginalPrice  *decimal.Decimal  `json:"originalPrice,omitempty"`
	Discount       *int              `json:"discount,omitempty"`
	Rating         float64           `json:"rating"`
	ReviewCount    int               `json:"reviewCount"`
	Images         []string          `json:"images"`
	InStock        bool              `json:"inStock"`
	Description    string            `json:"description"`
	Specifications map[string]string `json:"specifications,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	Featured       bool              `json:"featured"`
}

// Clone returns a copy sharing no mutable state with p.
func (p Product) Clone() Product {
	c := p
	c.Images = slices.Clone(p.Images)
	c.Specifications = maps.Clone(p.Specifications)
	if p.OriginalPrice != nil {
		v := *p.OriginalPrice
		c.OriginalPrice = &v
	}
	if p.Discount != nil {
		v := *p.Discount
		c.Discount = &v
	}
	return c
}

// PrimaryImage is the first image, or "" when the product has none.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

func (p Product) Validate() error {
	var errs []error
	if p.ID <= 0 {
		errs = append(errs, errors.New("id must be positive"))
	}
	if p.Title == "" {
		errs = append(errs, errors.New("title is required"))
	}
	if p.Category == "" {
		errs = append(errs, errors.New("category is required"))
	}
	if p.Price.IsNegative() {
		errs = append(errs, errors.New("price must not be negative"))
	}
	if p.Rating < 0 || p.Rating > 5 {
		errs = append(errs, errors.New("rating must be within 0..5"))
	}
	if p.Discount != nil && (*p.Discount < 0 || *p.Discount > 100) {
		errs = append(errs, errors.New("discount must be a percentage"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: product %d: %w", apperr.ErrInvalid, p.ID, err)
	}
	return nil
}

// CloneAll deep-copies a product slice.
func CloneAll(ps []Product) []Product {
	out := make([]Product, len(ps))
	for i, p := range ps {
		out[i] = p.Clone()
	}
	return out
}
