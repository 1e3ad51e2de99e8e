package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/shopflow/pkg/apperr"
)

func validDraft() Draft {
	return Draft{
		Items: []LineItem{{ProductID: 1, Quantity: 2, Price: decimal.RequireFromString("19.99"), Title: "Mug"}},
		Shipping: Shipping{
			FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
			Address: "12 Analytical Way", City: "London", State: "LDN", ZipCode: "N1 9GU",
		},
		Payment: PaymentInput{
			CardNumber: "4111111111111111", ExpiryDate: "12/29", CVV: "123", NameOnCard: "A Lovelace",
		},
		Total: decimal.RequireFromString("53.17"),
	}
}

func TestMaskCardNumber(t *testing.T) {
	cases := map[string]string{
		"4111111111111111":    "************1111",
		"4111 1111 1111 1234": "**** **** **** 1234",
		"5500-0000-0000-0004": "****-****-****-0004",
		"3782 822463 10005":   "**** ****** *0005",
		"378282246310005":     "***********0005",
		"1234":                "1234",
		"12":                  "12",
	}
	for in, want := range cases {
		got, err := MaskCardNumber(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := MaskCardNumber("4111-abcd-1111-1111")
	assert.ErrorIs(t, err, ErrCardNumber)
}

func TestMaskCardNumber_KeepsExactlyLastFour(t *testing.T) {
	for _, n := range []string{"12345", "4000056655665556", "6011111111111117", "30569309025904"} {
		got, err := MaskCardNumber(n)
		require.NoError(t, err)
		require.Len(t, got, len(n))
		assert.Equal(t, n[len(n)-4:], got[len(got)-4:])
		assert.Equal(t, strings.Repeat("*", len(n)-4), got[:len(got)-4])
	}
}

func TestMaskCardNumber_PreservesLayout(t *testing.T) {
	for _, raw := range []string{"4242 4242 4242 4242", "5105-1051-0510-5100", " 4000 0566 5566 5556 ", "6011\t1111 1111 1117"} {
		masked, err := MaskCardNumber(raw)
		require.NoError(t, err)
		assert.Len(t, masked, len(raw), raw)
		for i := range raw {
			if raw[i] < '0' || raw[i] > '9' {
				assert.Equal(t, raw[i], masked[i], "separator at %d moved in %q", i, raw)
			}
		}
		assert.Equal(t, raw[len(raw)-5:], masked[len(masked)-5:], raw)
	}
}

func TestNewOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	o, err := NewOrder(7, validDraft(), now)
	require.NoError(t, err)

	assert.Equal(t, 7, o.ID)
	assert.Equal(t, StatusProcessing, o.Status)
	assert.Equal(t, "************1111", o.Payment.CardNumber)
	assert.Equal(t, "12/29", o.Payment.ExpiryDate)
	assert.Equal(t, DefaultCountry, o.Shipping.Country)
	assert.Equal(t, now.UTC(), o.CreatedAt)
	assert.Equal(t, o.CreatedAt, o.UpdatedAt)
	assert.Equal(t, time.UTC, o.CreatedAt.Location())
}

func TestNewOrder_KeepsCountry(t *testing.T) {
	d := validDraft()
	d.Shipping.Country = "Canada"
	o, err := NewOrder(1, d, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Canada", o.Shipping.Country)
}

func TestDraft_Validate(t *testing.T) {
	d := validDraft()
	d.Items = nil
	d.Shipping.City = "  "
	d.Payment.CVV = ""
	err := d.Validate()
	assert.ErrorIs(t, err, ErrInvalidOrder)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	assert.ErrorContains(t, err, "no items")
	assert.ErrorContains(t, err, "shipping: missing city")
	assert.ErrorContains(t, err, "payment: missing cvv")

	d = validDraft()
	d.Payment.CardNumber = "not-a-card"
	assert.ErrorIs(t, d.Validate(), ErrInvalidOrder)

	d = validDraft()
	d.Items[0].Quantity = 0
	assert.ErrorContains(t, d.Validate(), "quantity 0")
}

func TestOrder_WithStatus(t *testing.T) {
	o, err := NewOrder(1, validDraft(), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	later := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	shipped, err := o.WithStatus(" Shipped ", later)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, shipped.Status)
	assert.Equal(t, later, shipped.UpdatedAt)
	assert.Equal(t, o.CreatedAt, shipped.CreatedAt)
	assert.Equal(t, o.Items, shipped.Items)
	assert.Equal(t, StatusProcessing, o.Status, "receiver untouched")

	_, err = o.WithStatus("", later)
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestNextID(t *testing.T) {
	assert.Equal(t, 1, NextID(nil))
	assert.Equal(t, 8, NextID([]Order{{ID: 3}, {ID: 7}, {ID: 2}}))
}
