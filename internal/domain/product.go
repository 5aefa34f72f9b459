package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Variant struct {
	Size  string `json:"size"`
	Color string `json:"color"`
	Stock int    `json:"stock"`
}

type Product struct {
	ID          string
	Name        string
	Description string
	ImageURL    string
	Price       decimal.Decimal
	Variants    []Variant
	CreatedAt   time.Time
}

// Variant returns the (size, color) variant of the product if it exists.
func (p Product) Variant(size, color string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.Size == size && v.Color == color {
			return v, true
		}
	}
	return Variant{}, false
}

func (p Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		Name:      p.Name,
		ImageURL:  p.ImageURL,
		UnitPrice: p.Price,
	}
}
