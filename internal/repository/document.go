package repository

import (
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// Prices are stored as decimal strings; the driver has no codec for
// decimal.Decimal and a float would lose cents.

type cartDocument struct {
	UserID     string         `bson:"user_id"`
	Items      []itemDocument `bson:"items"`
	TotalPrice string         `bson:"total_price"`
	CreatedAt  time.Time      `bson:"created_at"`
	UpdatedAt  time.Time      `bson:"updated_at"`
}

type itemDocument struct {
	ProductID    string    `bson:"product_id"`
	Size         string    `bson:"size"`
	Color        string    `bson:"color"`
	Quantity     int       `bson:"quantity"`
	UnitPrice    string    `bson:"unit_price"`
	ProductName  string    `bson:"product_name"`
	ImageURL     string    `bson:"image_url,omitempty"`
	SnapshotPrice string    `bson:"snapshot_price"`
	AddedAt      time.Time `bson:"added_at"`
}

func toDocument(c *domain.Cart) cartDocument {
	doc := cartDocument{
		UserID:     c.UserID,
		Items:      make([]itemDocument, 0, len(c.Items)),
		TotalPrice: c.TotalPrice.String(),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
	for _, it := range c.Items {
		doc.Items = append(doc.Items, itemDocument{
			ProductID:    it.ProductID,
			Size:         it.Size,
			Color:        it.Color,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice.String(),
			ProductName:  it.Product.Name,
			ImageURL:     it.Product.ImageURL,
			SnapshotPrice: it.Product.UnitPrice.String(),
			AddedAt:      it.AddedAt,
		})
	}
	return doc
}

func (d cartDocument) toDomain() (*domain.Cart, error) {
	total, err := parseAmount(d.TotalPrice)
	if err != nil {
		return nil, fmt.Errorf("cart %s total: %w", d.UserID, err)
	}

	cart := &domain.Cart{
		UserID:     d.UserID,
		Items:      make([]domain.LineItem, 0, len(d.Items)),
		TotalPrice: total,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	for _, it := range d.Items {
		price, err := parseAmount(it.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("cart %s item %s: %w", d.UserID, it.ProductID, err)
		}
		snapshot, err := parseAmount(it.SnapshotPrice)
		if err != nil {
			return nil, fmt.Errorf("cart %s item %s snapshot: %w", d.UserID, it.ProductID, err)
		}
		cart.Items = append(cart.Items, domain.LineItem{
			ProductID: it.ProductID,
			Size:      it.Size,
			Color:     it.Color,
			Quantity:  it.Quantity,
			UnitPrice: price,
			Product: domain.ProductSnapshot{
				Name:      it.ProductName,
				ImageURL:  it.ImageURL,
				UnitPrice: snapshot,
			},
			AddedAt: it.AddedAt,
		})
	}
	return cart, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
