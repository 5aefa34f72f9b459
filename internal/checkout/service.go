// Package checkout prices carts and turns them into orders.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/fjod/go_cart/storefront/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CartStore interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	Finalize(ctx context.Context, userID string, place func(ctx context.Context, c *domain.Cart) error) error
}

type PromoValidator interface {
	DiscountRate(ctx context.Context, code string) decimal.Decimal
}

type OrderStore interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
}

type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
}

type Config struct {
	Policy       domain.Policy
	Currency     string
	OrderTimeout time.Duration
}

type Service struct {
	carts    CartStore
	promos   PromoValidator
	payments payment.IntentClient
	orders   OrderStore
	events   EventPublisher
	cfg      Config
	log      *zap.Logger
	newID    func() uuid.UUID
	now      func() time.Time
}

func NewService(
	carts CartStore,
	promos PromoValidator,
	payments payment.IntentClient,
	orders OrderStore,
	events EventPublisher,
	cfg Config,
	log *zap.Logger,
) (*Service, error) {
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	if cfg.OrderTimeout <= 0 {
		cfg.OrderTimeout = 5 * time.Second
	}
	return &Service{
		carts:    carts,
		promos:   promos,
		payments: payments,
		orders:   orders,
		events:   events,
		cfg:      cfg,
		log:      log,
		newID:    uuid.New,
		now:      time.Now,
	}, nil
}

type Quote struct {
	Items        []domain.LineItem
	Breakdown    domain.Breakdown
	Currency     string
	PromoCode    string
	DiscountRate decimal.Decimal
}

// Quote prices the current cart. An empty cart is quoted too; only placing an
// order requires items.
func (s *Service) Quote(ctx context.Context, userID, promoCode string) (Quote, error) {
	c, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return Quote{}, err
	}
	return s.quote(ctx, c, promoCode)
}

func (s *Service) quote(ctx context.Context, c *domain.Cart, promoCode string) (Quote, error) {
	rate := s.promos.DiscountRate(ctx, promoCode)
	breakdown, err := pricing.ComputeBreakdown(c.Items, s.cfg.Policy.WithDiscount(rate))
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Items:        c.Items,
		Breakdown:    breakdown,
		Currency:     s.cfg.Currency,
		PromoCode:    strings.ToUpper(strings.TrimSpace(promoCode)),
		DiscountRate: rate,
	}, nil
}

// CreatePaymentIntent requests an intent for the rounded grand total.
func (s *Service) CreatePaymentIntent(ctx context.Context, userID, promoCode string) (payment.Intent, Quote, error) {
	q, err := s.Quote(ctx, userID, promoCode)
	if err != nil {
		return payment.Intent{}, Quote{}, err
	}
	if len(q.Items) == 0 {
		return payment.Intent{}, Quote{}, domain.ErrEmptyCart
	}

	intent, err := s.payments.CreateIntent(ctx, userID, q.Breakdown.Rounded().GrandTotal, q.Currency)
	if err != nil {
		s.log.Error("create payment intent failed", zap.String("user_id", userID), zap.Error(err))
		return payment.Intent{}, Quote{}, err
	}
	return intent, q, nil
}

type PlaceOrderInput struct {
	UserID          string
	IdempotencyKey  string
	PromoCode       string
	ShippingAddress domain.ShippingAddress
	PaymentMethod   domain.PaymentMethod
	PaymentIntentID string
}

func (in PlaceOrderInput) validate() error {
	if strings.TrimSpace(in.IdempotencyKey) == "" {
		return fmt.Errorf("%w: idempotency_key is required", domain.ErrInvalidOrder)
	}
	if !in.PaymentMethod.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", domain.ErrInvalidOrder, in.PaymentMethod)
	}
	if in.PaymentMethod == domain.PaymentMethodCard && strings.TrimSpace(in.PaymentIntentID) == "" {
		return fmt.Errorf("%w: payment_intent_id is required for card payments", domain.ErrInvalidOrder)
	}
	return in.ShippingAddress.Validate()
}

type PlaceOrderResult struct {
	Order *domain.Order
	// Replayed is set when the idempotency key matched an existing order.
	Replayed bool
}

// PlaceOrder prices the cart, persists the order and then clears the cart.
// If persisting fails the cart is left as it was. A repeated idempotency key
// returns the order created the first time. Card orders must reference an
// intent for the same rounded total and currency; a cart changed after the
// intent was created fails with ErrPaymentMismatch.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (PlaceOrderResult, error) {
	if err := in.validate(); err != nil {
		return PlaceOrderResult{}, err
	}

	if existing, err := s.orders.GetOrderByIdempotencyKey(ctx, in.UserID, in.IdempotencyKey); err == nil {
		return PlaceOrderResult{Order: existing, Replayed: true}, nil
	} else if !errors.Is(err, domain.ErrOrderNotFound) {
		return PlaceOrderResult{}, err
	}

	var intent *payment.Intent
	if in.PaymentMethod == domain.PaymentMethodCard {
		got, err := s.payments.GetIntent(ctx, in.PaymentIntentID)
		if err != nil {
			return PlaceOrderResult{}, err
		}
		intent = &got
	}

	var order *domain.Order
	err := s.carts.Finalize(ctx, in.UserID, func(ctx context.Context, c *domain.Cart) error {
		if len(c.Items) == 0 {
			return domain.ErrEmptyCart
		}

		q, err := s.quote(ctx, c, in.PromoCode)
		if err != nil {
			return err
		}
		if intent != nil {
			if err := matchIntent(*intent, q); err != nil {
				return err
			}
		}

		placedAt := s.now().UTC()
		order = &domain.Order{
			ID:              s.newID(),
			UserID:          in.UserID,
			IdempotencyKey:  in.IdempotencyKey,
			Status:          domain.OrderStatusConfirmed,
			Currency:        q.Currency,
			Items:           domain.OrderItemsFromLines(c.Items),
			Breakdown:       q.Breakdown,
			ShippingAddress: in.ShippingAddress,
			PaymentMethod:   in.PaymentMethod,
			PaymentIntentID: in.PaymentIntentID,
			CreatedAt:       placedAt,
			UpdatedAt:       placedAt,
		}

		orderCtx, cancel := context.WithTimeout(ctx, s.cfg.OrderTimeout)
		defer cancel()
		return s.orders.CreateOrder(orderCtx, order)
	})

	if errors.Is(err, domain.ErrDuplicateOrder) {
		// lost a race with a request carrying the same key
		existing, getErr := s.orders.GetOrderByIdempotencyKey(ctx, in.UserID, in.IdempotencyKey)
		if getErr != nil {
			return PlaceOrderResult{}, getErr
		}
		return PlaceOrderResult{Order: existing, Replayed: true}, nil
	}
	if err != nil {
		s.log.Warn("place order failed", zap.String("user_id", in.UserID), zap.Error(err))
		return PlaceOrderResult{}, err
	}

	s.log.Info("order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", order.UserID),
		zap.String("grand_total", order.Breakdown.Rounded().GrandTotal.StringFixed(domain.CurrencyPlaces)))

	if err := s.events.PublishOrderPlaced(ctx, order); err != nil {
		s.log.Error("publish order placed failed", zap.String("order_id", order.ID.String()), zap.Error(err))
	}

	return PlaceOrderResult{Order: order}, nil
}

// matchIntent checks that the intent charges exactly the rounded grand total
// of the order about to be stored.
func matchIntent(intent payment.Intent, q Quote) error {
	want := q.Breakdown.Rounded().GrandTotal
	if !strings.EqualFold(intent.Currency, q.Currency) || payment.ToMinorUnits(intent.Amount) != payment.ToMinorUnits(want) {
		return fmt.Errorf("%w: intent %s is for %s %s, order total is %s %s",
			domain.ErrPaymentMismatch, intent.ID,
			intent.Amount.StringFixed(domain.CurrencyPlaces), intent.Currency,
			want.StringFixed(domain.CurrencyPlaces), q.Currency)
	}
	return nil
}

// Order returns one of the user's orders. Orders of other users are reported
// as not found.
func (s *Service) Order(ctx context.Context, userID string, id uuid.UUID) (*domain.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *Service) Orders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.orders.ListOrdersByUserID(ctx, userID)
}
