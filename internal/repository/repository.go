package repository

import (
	"context"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// CartRepository stores whole cart documents. Line merging happens in the
// cart aggregator before a cart is saved, so the store never edits items.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	SaveCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, userID string) error
}
