package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
)

type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodCashOnDelivery PaymentMethod = "cod"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCard || m == PaymentMethodCashOnDelivery
}

type ShippingAddress struct {
	FullName   string `json:"full_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

func (a ShippingAddress) Validate() error {
	required := map[string]string{
		"full_name":   a.FullName,
		"line1":       a.Line1,
		"city":        a.City,
		"postal_code": a.PostalCode,
		"country":     a.Country,
	}
	for _, field := range []string{"full_name", "line1", "city", "postal_code", "country"} {
		if strings.TrimSpace(required[field]) == "" {
			return fmt.Errorf("%w: shipping address %s is required", ErrInvalidOrder, field)
		}
	}
	return nil
}

// OrderItem is the frozen copy of a cart line stored with an order.
type OrderItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	ImageURL    string          `json:"image_url,omitempty"`
	Size        string          `json:"size"`
	Color       string          `json:"color"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

func OrderItemsFromLines(lines []LineItem) []OrderItem {
	items := make([]OrderItem, len(lines))
	for i, l := range lines {
		items[i] = OrderItem{
			ProductID:   l.ProductID,
			ProductName: l.Product.Name,
			ImageURL:    l.Product.ImageURL,
			Size:        l.Size,
			Color:       l.Color,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.LineTotal(),
		}
	}
	return items
}

type Order struct {
	ID              uuid.UUID
	UserID          string
	IdempotencyKey  string
	Status          OrderStatus
	Currency        string
	Items           []OrderItem
	Breakdown       Breakdown
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
	PaymentIntentID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
