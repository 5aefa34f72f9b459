package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const EventTypeOrderPlaced = "order.placed"

// OrderPlaced is published once an order has been persisted.
type OrderPlaced struct {
	OrderID        uuid.UUID       `json:"order_id"`
	UserID         string          `json:"user_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	Currency       string          `json:"currency"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	ItemCount      int             `json:"item_count"`
	PlacedAt       time.Time       `json:"placed_at"`
}

func NewOrderPlaced(o *Order) OrderPlaced {
	var count int
	for _, it := range o.Items {
		count += it.Quantity
	}
	return OrderPlaced{
		OrderID:        o.ID,
		UserID:         o.UserID,
		IdempotencyKey: o.IdempotencyKey,
		Currency:       o.Currency,
		GrandTotal:     o.Breakdown.Rounded().GrandTotal,
		ItemCount:      count,
		PlacedAt:       o.CreatedAt,
	}
}
