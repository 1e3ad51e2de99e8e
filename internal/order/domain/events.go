package domain

import "github.com/shopspring/decimal"

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type OrderPlaced struct {
	OrderID   int             `json:"orderId"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

type OrderStatusChanged struct {
	OrderID int    `json:"orderId"`
	From    Status `json:"from"`
	To      Status `json:"to"`
}
