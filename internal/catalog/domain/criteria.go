package domain

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/shopflow/pkg/apperr"
)

var ErrInvalidCriteria = fmt.Errorf("%w criteria", apperr.ErrInvalid)

type SortKey string

const (
	SortFeatured  SortKey = "featured"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortRating    SortKey = "rating"
	SortNewest    SortKey = "newest"
)

func (k SortKey) Valid() bool {
	switch k {
	case SortFeatured, SortPriceLow, SortPriceHigh, SortRating, SortNewest:
		return true
	}
	return false
}

var (
	DefaultMinPrice = decimal.Zero
	DefaultMaxPrice = decimal.NewFromInt(1000)
)

type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

func (r PriceRange) IsDefault() bool {
	return r.Min.Equal(DefaultMinPrice) && r.Max.Equal(DefaultMaxPrice)
}

func (r PriceRange) Contains(p decimal.Decimal) bool {
	return p.GreaterThanOrEqual(r.Min) && p.LessThanOrEqual(r.Max)
}

// Criteria is the complete set of browse filters and the sort key.
type Criteria struct {
	Categories []string   `json:"categories"`
	PriceRange PriceRange `json:"priceRange"`
	MinRating  float64    `json:"minRating"`
	InStock    bool       `json:"inStock"`
	Sort       SortKey    `json:"sort"`
}

func DefaultCriteria() Criteria {
	return Criteria{
		PriceRange: PriceRange{Min: DefaultMinPrice, Max: DefaultMaxPrice},
		Sort:       SortFeatured,
	}
}

func (c Criteria) Validate() error {
	if !c.Sort.Valid() {
		return fmt.Errorf("%w: unknown sort %q", ErrInvalidCriteria, c.Sort)
	}
	if c.PriceRange.Min.IsNegative() {
		return fmt.Errorf("%w: negative minimum price", ErrInvalidCriteria)
	}
	if c.PriceRange.Min.GreaterThan(c.PriceRange.Max) {
		return fmt.Errorf("%w: minimum price above maximum", ErrInvalidCriteria)
	}
	if c.MinRating < 0 || c.MinRating > 5 {
		return fmt.Errorf("%w: minimum rating must be within 0..5", ErrInvalidCriteria)
	}
	return nil
}

// DecodeCriteria reads a JSON criteria document on top of the defaults.
// Unrecognised fields are rejected; an empty document means the defaults.
func DecodeCriteria(r io.Reader) (Criteria, error) {
	c := DefaultCriteria()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); errors.Is(err, io.EOF) {
		return c, nil
	} else if err != nil {
		return Criteria{}, fmt.Errorf("%w: %v", ErrInvalidCriteria, err)
	}
	return c, c.Validate()
}

// ParseQuery builds criteria from URL query parameters. Keys other than the
// criteria fields and the explicitly passed extras are rejected.
//
//	category=Audio&category=Home  or  category=Audio,Home
//	minPrice=10&maxPrice=200&minRating=4&inStock=true&sort=price-low
func ParseQuery(q url.Values, extra ...string) (Criteria, error) {
	c := DefaultCriteria()
	for key, vals := range q {
		if len(vals) == 0 {
			continue
		}
		last := strings.TrimSpace(vals[len(vals)-1])
		var err error
		switch key {
		case "category":
			for _, v := range vals {
				for _, part := range strings.Split(v, ",") {
					if part = strings.TrimSpace(part); part != "" {
						c.Categories = append(c.Categories, part)
					}
				}
			}
		case "minPrice":
			c.PriceRange.Min, err = decimal.NewFromString(last)
		case "maxPrice":
			c.PriceRange.Max, err = decimal.NewFromString(last)
		case "minRating":
			c.MinRating, err = strconv.ParseFloat(last, 64)
		case "inStock":
			c.InStock, err = strconv.ParseBool(last)
		case "sort":
			c.Sort = SortKey(last)
		default:
			if !slices.Contains(extra, key) {
				return Criteria{}, fmt.Errorf("%w: unknown parameter %q", ErrInvalidCriteria, key)
			}
		}
		if err != nil {
			return Criteria{}, fmt.Errorf("%w: %s: %v", ErrInvalidCriteria, key, err)
		}
	}
	return c, c.Validate()
}

// Apply filters products conjunctively and then sorts them stably. The input
// slice is not modified.
func Apply(products []Product, c Criteria) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if c.matches(p) {
			out = append(out, p)
		}
	}

	switch c.Sort {
	case SortPriceLow:
		slices.SortStableFunc(out, func(a, b Product) int { return a.Price.Cmp(b.Price) })
	case SortPriceHigh:
		slices.SortStableFunc(out, func(a, b Product) int { return b.Price.Cmp(a.Price) })
	case SortRating:
		slices.SortStableFunc(out, func(a, b Product) int { return cmp.Compare(b.Rating, a.Rating) })
	case SortNewest:
		slices.SortStableFunc(out, func(a, b Product) int { return b.CreatedAt.Compare(a.CreatedAt) })
	}
	return out
}

func (c Criteria) matches(p Product) bool {
	if len(c.Categories) > 0 && !slices.Contains(c.Categories, p.Category) {
		return false
	}
	if !c.PriceRange.IsDefault() && !c.PriceRange.Contains(p.Price) {
		return false
	}
	if c.MinRating > 0 && p.Rating < c.MinRating {
		return false
	}
	if c.InStock && !p.InStock {
		return false
	}
	return true
}

// Search keeps products whose title, description or category contains query,
// ignoring case, in catalog order.
func Search(products []Product, query string) []Product {
	q := strings.ToLower(query)
	var out []Product
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Description), q) ||
			strings.Contains(strings.ToLower(p.Category), q) {
			out = append(out, p)
		}
	}
	return out
}

// CategoryFromSlug turns a URL slug such as "home-kitchen" into the lower
// cased label it is compared against.
func CategoryFromSlug(slug string) string {
	return strings.ReplaceAll(strings.ToLower(slug), "-", " ")
}

func InCategory(p Product, category string) bool {
	return strings.EqualFold(p.Category, category)
}
