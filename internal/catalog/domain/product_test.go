package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/dmehra2102/shopflow/pkg/apperr"
)

func TestProduct_CloneIsDeep(t *testing.T) {
	orig := decimal.NewFromInt(120)
	disc := 25
	p := Product{
		ID:             1,
		Images:         []string{"a.jpg", "b.jpg"},
		Specifications: map[string]string{"Weight": "1kg"},
		OriginalPrice:  &orig,
		Discount:       &disc,
	}

	c := p.Clone()
	c.Images[0] = "changed.jpg"
	c.Specifications["Weight"] = "2kg"
	*c.OriginalPrice = decimal.Zero
	*c.Discount = 0

	assert.Equal(t, "a.jpg", p.Images[0])
	assert.Equal(t, "1kg", p.Specifications["Weight"])
	assert.True(t, p.OriginalPrice.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, 25, *p.Discount)
}

func TestProduct_PrimaryImage(t *testing.T) {
	assert.Equal(t, "", Product{}.PrimaryImage())
	assert.Equal(t, "front.jpg", Product{Images: []string{"front.jpg", "back.jpg"}}.PrimaryImage())
}

func TestProduct_Validate(t *testing.T) {
	ok := Product{ID: 1, Title: "Lamp", Category: "Home", Price: decimal.NewFromInt(10), Rating: 4.2}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.ID = 0
	bad.Rating = 7
	bad.Price = decimal.NewFromInt(-1)
	err := bad.Validate()
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	assert.ErrorContains(t, err, "id must be positive")
	assert.ErrorContains(t, err, "rating")
	assert.ErrorContains(t, err, "price")
}
