package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	catalog "github.com/dmehra2102/shopflow/internal/catalog/domain"
	"github.com/dmehra2102/shopflow/internal/pricing"
	"github.com/dmehra2102/shopflow/pkg/apperr"
)

var ErrInvalidQuantity = fmt.Errorf("%w quantity", apperr.ErrInvalid)

// Entry is the persisted form of a cart line.
type Entry struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

// Entries holds at most one entry per product, each with quantity >= 1.
type Entries []Entry

func (es Entries) index(productID int) int {
	for i, e := range es {
		if e.ProductID == productID {
			return i
		}
	}
	return -1
}

// Add increments an existing entry or appends a new one.
func (es Entries) Add(productID, quantity int) Entries {
	out := append(Entries(nil), es...)
	if i := out.index(productID); i >= 0 {
		out[i].Quantity += quantity
		return out
	}
	return append(out, Entry{ProductID: productID, Quantity: quantity})
}

// SetQuantity overwrites the quantity, removing the entry when quantity <= 0.
// It reports false when no entry exists for productID.
func (es Entries) SetQuantity(productID, quantity int) (Entries, bool) {
	i := es.index(productID)
	if i < 0 {
		return es, false
	}
	if quantity <= 0 {
		return es.Remove(productID), true
	}
	out := append(Entries(nil), es...)
	out[i].Quantity = quantity
	return out, true
}

func (es Entries) Remove(productID int) Entries {
	out := make(Entries, 0, len(es))
	for _, e := range es {
		if e.ProductID != productID {
			out = append(out, e)
		}
	}
	return out
}

func (es Entries) Count() int {
	n := 0
	for _, e := range es {
		n += e.Quantity
	}
	return n
}

// Normalize merges duplicate product ids and drops non-positive quantities so
// a hand-edited or corrupted blob still satisfies the invariants.
func (es Entries) Normalize() Entries {
	var out Entries
	for _, e := range es {
		if e.Quantity <= 0 || e.ProductID <= 0 {
			continue
		}
		out = out.Add(e.ProductID, e.Quantity)
	}
	return out
}

// Item is an entry enriched with the live product fields.
type Item struct {
	ProductID int             `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Title     string          `json:"title"`
	Category  string          `json:"category"`
	Image     string          `json:"image"`
}

func Enrich(e Entry, p catalog.Product) Item {
	return Item{
		ProductID: e.ProductID,
		Quantity:  e.Quantity,
		Price:     p.Price,
		Title:     p.Title,
		Category:  p.Category,
		Image:     p.PrimaryImage(),
	}
}

func (it Item) LineTotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type Items []Item

func (its Items) Lines() []pricing.Line {
	out := make([]pricing.Line, len(its))
	for i, it := range its {
		out[i] = pricing.Line{UnitPrice: it.Price, Quantity: it.Quantity}
	}
	return out
}

func (its Items) Summary() pricing.Summary {
	return pricing.Summarize(its.Lines())
}

type Op string

const (
	OpAdd         Op = "add"
	OpSetQuantity Op = "set_quantity"
	OpRemove      Op = "remove"
	OpClear       Op = "clear"
)

// ChangeEvent is broadcast after every committed cart mutation.
type ChangeEvent struct {
	Op        Op        `json:"op"`
	ProductID int       `json:"productId,omitempty"`
	Count     int       `json:"count"`
	At        time.Time `json:"at"`
}
