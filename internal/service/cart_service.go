package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ProductCatalog is the product lookup the cart needs when adding items.
type ProductCatalog interface {
	GetProduct(ctx context.Context, id string) (domain.Product, error)
}

type AddItemInput struct {
	ProductID string
	Size      string
	Color     string
	Quantity  int
}

// CartService loads a cart, applies one aggregator operation and saves it.
// Writes for the same user are serialized; reads go through the cache.
type CartService struct {
	repo    repository.CartRepository
	cache   cache.CartCache
	catalog ProductCatalog
	log     *zap.Logger
	maxQty  int
	locks   *userLocks
	sfg     singleflight.Group
	now     func() time.Time
}

func NewCartService(
	repo repository.CartRepository,
	cache cache.CartCache,
	catalog ProductCatalog,
	log *zap.Logger,
	maxQty int,
) *CartService {
	if maxQty <= 0 {
		maxQty = cart.DefaultMaxQuantity
	}
	return &CartService{
		repo:    repo,
		cache:   cache,
		catalog: catalog,
		log:     log,
		maxQty:  maxQty,
		locks:   newUserLocks(),
		now:     time.Now,
	}
}

func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		c, err := s.cache.Get(ctx, userID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("cache get failed", zap.String("user_id", userID), zap.Error(err))
		}

		// filled under the user lock so a concurrent write cannot be
		// overwritten by the stale copy read here
		unlock := s.locks.Lock(userID)
		defer unlock()

		c, _, err = s.load(ctx, userID)
		if err != nil {
			return nil, err
		}

		setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := s.cache.Set(setCtx, userID, c); err != nil {
			s.log.Warn("cache set failed", zap.String("user_id", userID), zap.Error(err))
		}

		return c, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem looks the product up, snapshots its price and merges the item into
// the cart. The variant must exist and have stock for the resulting quantity.
func (s *CartService) AddItem(ctx context.Context, userID string, in AddItemInput) (*domain.Cart, error) {
	candidate := domain.LineItem{
		ProductID: in.ProductID,
		Size:      in.Size,
		Color:     in.Color,
		Quantity:  in.Quantity,
	}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	product, err := s.catalog.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	variant, ok := product.Variant(in.Size, in.Color)
	if !ok {
		return nil, fmt.Errorf("%w: %s in size %s, color %s", domain.ErrVariantUnavailable, in.ProductID, in.Size, in.Color)
	}

	candidate.UnitPrice = product.Price
	candidate.Product = product.Snapshot()
	candidate.AddedAt = s.now().UTC()

	return s.mutate(ctx, userID, true, func(agg *cart.Aggregator) error {
		want := in.Quantity
		for _, it := range agg.Items() {
			if it.Key() == candidate.Key() {
				want += it.Quantity
				break
			}
		}
		want = min(want, agg.MaxQuantity())
		if variant.Stock < want {
			return fmt.Errorf("%w: only %d left of %s", domain.ErrVariantUnavailable, variant.Stock, candidate.Key())
		}
		return agg.AddItem(candidate)
	})
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID string, key domain.LineKey, quantity int) (*domain.Cart, error) {
	return s.mutate(ctx, userID, false, func(agg *cart.Aggregator) error {
		agg.UpdateQuantity(key, quantity)
		return nil
	})
}

func (s *CartService) RemoveItem(ctx context.Context, userID string, key domain.LineKey) (*domain.Cart, error) {
	return s.mutate(ctx, userID, false, func(agg *cart.Aggregator) error {
		agg.RemoveItem(key)
		return nil
	})
}

// ClearCart deletes the user's cart. Clearing a missing cart is not an error.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	return s.clear(ctx, userID)
}

// ClearCartPlacedBefore clears the cart unless it was modified after placedAt.
// It backs up the clear done by Finalize without wiping items added after the
// order was placed. Both times come from the app clock; the cart store keeps
// milliseconds, so a cart saved in the same millisecond as the order is kept.
func (s *CartService) ClearCartPlacedBefore(ctx context.Context, userID string, placedAt time.Time) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	c, existed, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if !existed {
		return nil
	}
	if !c.UpdatedAt.Before(placedAt.Truncate(time.Millisecond)) {
		s.log.Info("cart changed after order, keeping it",
			zap.String("user_id", userID),
			zap.Time("placed_at", placedAt),
			zap.Time("updated_at", c.UpdatedAt))
		return nil
	}
	return s.clear(ctx, userID)
}

// Finalize runs place against the stored cart while holding the user's lock
// and clears the cart only if place succeeds. A failed clear is logged and
// left to the order-placed consumer.
func (s *CartService) Finalize(ctx context.Context, userID string, place func(ctx context.Context, c *domain.Cart) error) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	c, _, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	if err := place(ctx, c); err != nil {
		return err
	}

	if err := s.clear(ctx, userID); err != nil {
		s.log.Error("clear cart after checkout failed", zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}

func (s *CartService) mutate(ctx context.Context, userID string, createIfMissing bool, op func(*cart.Aggregator) error) (*domain.Cart, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	c, existed, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	agg, err := cart.Load(*c, s.maxQty)
	if err != nil {
		return nil, err
	}
	if err := op(agg); err != nil {
		return nil, err
	}
	agg.Store(c)

	if !existed && !createIfMissing {
		return c, nil
	}

	c.UpdatedAt = s.now().UTC()
	if err := s.repo.SaveCart(ctx, c); err != nil {
		s.log.Error("save cart failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	s.invalidateCache(userID)
	return c, nil
}

// load reads the stored cart and normalizes it through the aggregator so the
// total always matches the items. A missing cart is returned empty. Stored
// lines that no longer validate are dropped so one bad line cannot lock the
// shopper out of the cart; the next save persists the cleaned cart.
func (s *CartService) load(ctx context.Context, userID string) (*domain.Cart, bool, error) {
	c, err := s.repo.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		now := s.now().UTC()
		return &domain.Cart{
			UserID:     userID,
			Items:      []domain.LineItem{},
			TotalPrice: decimal.Zero,
			CreatedAt:  now,
			UpdatedAt:  now,
		}, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	items := make([]domain.LineItem, 0, len(c.Items))
	for _, it := range c.Items {
		if err := it.Validate(); err != nil {
			s.log.Warn("dropping invalid stored line",
				zap.String("user_id", userID),
				zap.String("line", it.Key().String()),
				zap.Error(err))
			continue
		}
		items = append(items, it)
	}
	c.Items = items

	agg, err := cart.Load(*c, s.maxQty)
	if err != nil {
		return nil, false, fmt.Errorf("stored cart for %s: %w", userID, err)
	}
	agg.Store(c)
	return c, true, nil
}

func (s *CartService) clear(ctx context.Context, userID string) error {
	err := s.repo.DeleteCart(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		s.log.Error("delete cart failed", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	s.invalidateCache(userID)
	return nil
}

func (s *CartService) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.log.Warn("cache invalidate failed", zap.String("user_id", userID), zap.Error(err))
	}
}
