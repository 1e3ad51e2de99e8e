package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/shopflow/pkg/apperr"
)

var (
	ErrOrderNotFound = fmt.Errorf("order %w", apperr.ErrNotFound)
	ErrInvalidOrder  = fmt.Errorf("%w order", apperr.ErrInvalid)
)

// Status is open-ended; these are the values the storefront itself sets.
type Status string

const (
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

// LineItem is the snapshot of an enriched cart entry taken at checkout.
type LineItem struct {
	ProductID int             `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Title     string          `json:"title"`
	Category  string          `json:"category"`
	Image     string          `json:"image"`
}

type Shipping struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
}

const DefaultCountry = "United States"

func (s Shipping) Validate() error {
	required := map[string]string{
		"firstName": s.FirstName,
		"lastName":  s.LastName,
		"email":     s.Email,
		"address":   s.Address,
		"city":      s.City,
		"state":     s.State,
		"zipCode":   s.ZipCode,
	}
	return missing("shipping", required)
}

// PaymentInput is what the customer submits. It never reaches storage.
type PaymentInput struct {
	CardNumber string `json:"cardNumber"`
	ExpiryDate string `json:"expiryDate"`
	CVV        string `json:"cvv"`
	NameOnCard string `json:"nameOnCard"`
}

func (p PaymentInput) Validate() error {
	return missing("payment", map[string]string{
		"cardNumber": p.CardNumber,
		"expiryDate": p.ExpiryDate,
		"cvv":        p.CVV,
		"nameOnCard": p.NameOnCard,
	})
}

// Payment is the stored, masked form.
type Payment struct {
	CardNumber string `json:"cardNumber"`
	ExpiryDate string `json:"expiryDate"`
	NameOnCard string `json:"nameOnCard"`
}

type Order struct {
	ID        int             `json:"id"`
	Items     []LineItem      `json:"items"`
	Shipping  Shipping        `json:"shipping"`
	Payment   Payment         `json:"payment"`
	Total     decimal.Decimal `json:"total"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Clone copies the item snapshot so callers cannot edit a stored order.
func (o Order) Clone() Order {
	c := o
	c.Items = append([]LineItem(nil), o.Items...)
	return c
}

// Draft is the order data handed to the store's create operation.
type Draft struct {
	Items    []LineItem      `json:"items"`
	Shipping Shipping        `json:"shipping"`
	Payment  PaymentInput    `json:"payment"`
	Total    decimal.Decimal `json:"total"`
}

func (d Draft) Validate() error {
	var errs []error
	if len(d.Items) == 0 {
		errs = append(errs, errors.New("no items"))
	}
	for _, it := range d.Items {
		if it.ProductID <= 0 || it.Quantity <= 0 {
			errs = append(errs, fmt.Errorf("item for product %d has quantity %d", it.ProductID, it.Quantity))
		}
	}
	if d.Total.IsNegative() {
		errs = append(errs, errors.New("negative total"))
	}
	errs = append(errs, d.Shipping.Validate(), d.Payment.Validate())
	if _, err := MaskCardNumber(d.Payment.CardNumber); err != nil && d.Payment.CardNumber != "" {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOrder, err)
	}
	return nil
}

// NewOrder validates d and builds the record that gets persisted: the card
// number masked, the CVV dropped, status Processing.
func NewOrder(id int, d Draft, now time.Time) (Order, error) {
	if err := d.Validate(); err != nil {
		return Order{}, err
	}
	masked, err := MaskCardNumber(d.Payment.CardNumber)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %w", ErrInvalidOrder, err)
	}
	shipping := d.Shipping
	if strings.TrimSpace(shipping.Country) == "" {
		shipping.Country = DefaultCountry
	}
	now = now.UTC()
	return Order{
		ID:       id,
		Items:    append([]LineItem(nil), d.Items...),
		Shipping: shipping,
		Payment: Payment{
			CardNumber: masked,
			ExpiryDate: d.Payment.ExpiryDate,
			NameOnCard: d.Payment.NameOnCard,
		},
		Total:     d.Total,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// WithStatus returns o with a new status; nothing else about an order changes
// after creation.
func (o Order) WithStatus(s Status, now time.Time) (Order, error) {
	s = Status(strings.TrimSpace(string(s)))
	if s == "" {
		return Order{}, fmt.Errorf("%w: empty status", ErrInvalidOrder)
	}
	c := o.Clone()
	c.Status = s
	c.UpdatedAt = now.UTC()
	return c, nil
}

// NextID is one more than the largest existing id, or 1 for no orders.
func NextID(orders []Order) int {
	max := 0
	for _, o := range orders {
		if o.ID > max {
			max = o.ID
		}
	}
	return max + 1
}

func missing(section string, fields map[string]string) error {
	var names []string
	for _, name := range []string{"firstName", "lastName", "email", "address", "city", "state", "zipCode", "cardNumber", "expiryDate", "cvv", "nameOnCard"} {
		v, ok := fields[name]
		if ok && strings.TrimSpace(v) == "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	return fmt.Errorf("%s: missing %s", section, strings.Join(names, ", "))
}
