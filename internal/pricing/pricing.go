// Package pricing derives the order summary shown on the cart and checkout
// pages. Every caller goes through Summarize so the two views cannot drift.
package pricing

import (
	"github.com/shopspring/decimal"
)

var (
	TaxRate               = decimal.RequireFromString("0.08")
	FreeShippingThreshold = decimal.NewFromInt(50)
	FlatShipping          = decimal.RequireFromString("9.99")
)

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Summary struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

func Summarize(lines []Line) Summary {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return FromSubtotal(subtotal)
}

func FromSubtotal(subtotal decimal.Decimal) Summary {
	tax := subtotal.Mul(TaxRate)
	shipping := FlatShipping
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	return Summary{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}
