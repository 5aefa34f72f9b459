// Package cache keeps read copies of carts in front of the cart repository.
package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// CartCache is a best-effort read cache. The repository stays the source of
// truth: callers fill it only after reading the repository under the user's
// lock and delete the entry after every write, so an entry is never newer
// than the stored cart.
type CartCache interface {
	// Get returns ErrCacheMiss when no entry exists. Any other error means
	// the cache could not be read and the caller should fall back.
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	// Set stores a copy of cart with an expiry chosen by the implementation.
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	// Delete drops the entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")
