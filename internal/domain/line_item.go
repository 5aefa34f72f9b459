package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProductSnapshot is the copy of catalog data taken when an item is added.
// It is never refreshed from the live catalog.
type ProductSnapshot struct {
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LineKey is the merge key of a line item.
type LineKey struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

func (k LineKey) String() string {
	return k.ProductID + "/" + k.Size + "/" + k.Color
}

type LineItem struct {
	ProductID string          `json:"product_id"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Product   ProductSnapshot `json:"product"`
	AddedAt   time.Time       `json:"added_at"`
}

func (i LineItem) Key() LineKey {
	return LineKey{ProductID: i.ProductID, Size: i.Size, Color: i.Color}
}

func (i LineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Validate checks the shape of a candidate line item.
func (i LineItem) Validate() error {
	switch {
	case strings.TrimSpace(i.ProductID) == "":
		return fmt.Errorf("%w: product_id is required", ErrValidation)
	case strings.TrimSpace(i.Size) == "":
		return fmt.Errorf("%w: size is required", ErrValidation)
	case strings.TrimSpace(i.Color) == "":
		return fmt.Errorf("%w: color is required", ErrValidation)
	case i.Quantity < 1:
		return fmt.Errorf("%w: quantity must be at least 1, got %d", ErrValidation, i.Quantity)
	case i.UnitPrice.IsNegative():
		return fmt.Errorf("%w: unit price cannot be negative", ErrValidation)
	}
	return nil
}

// Cart is the stored shape of a shopper's cart. TotalPrice is written by the
// cart aggregator and recomputed from Items whenever the cart is loaded.
type Cart struct {
	UserID     string          `json:"user_id"`
	Items      []LineItem      `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
