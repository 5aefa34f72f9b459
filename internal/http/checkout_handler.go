package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/payment"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CheckoutService interface {
	Quote(ctx context.Context, userID, promoCode string) (checkout.Quote, error)
	CreatePaymentIntent(ctx context.Context, userID, promoCode string) (payment.Intent, checkout.Quote, error)
	PlaceOrder(ctx context.Context, in checkout.PlaceOrderInput) (checkout.PlaceOrderResult, error)
	Order(ctx context.Context, userID string, id uuid.UUID) (*domain.Order, error)
	Orders(ctx context.Context, userID string) ([]*domain.Order, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
	timeout  time.Duration
	log      *zap.Logger
}

func NewCheckoutHandler(svc CheckoutService, timeout time.Duration, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: svc, timeout: timeout, log: log}
}

// Quote handles POST /api/v1/checkout/quote
func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	req, ok := decodeQuoteRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q, err := h.checkout.Quote(ctx, userID, req.PromoCode)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, toQuoteDTO(q))
}

// CreatePaymentIntent handles POST /api/v1/checkout/payment-intent
func (h *CheckoutHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	req, ok := decodeQuoteRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	intent, q, err := h.checkout.CreatePaymentIntent(ctx, userID, req.PromoCode)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, PaymentIntentResponseDTO{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       money(intent.Amount),
		Currency:     intent.Currency,
		Breakdown:    toBreakdownDTO(q.Breakdown),
	})
}

// PlaceOrder handles POST /api/v1/orders. A replayed idempotency key answers
// 409 with the order created by the first request.
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req PlaceOrderRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.checkout.PlaceOrder(ctx, checkout.PlaceOrderInput{
		UserID:          userID,
		IdempotencyKey:  req.IdempotencyKey,
		PromoCode:       req.PromoCode,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
		PaymentIntentID: req.PaymentIntentID,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusConflict
	}
	respondJSON(w, status, toOrderDTO(res.Order))
}

// GetOrder handles GET /api/v1/orders/{id}
func (h *CheckoutHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a UUID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	o, err := h.checkout.Order(ctx, userID, id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderDTO(o))
}

// ListOrders handles GET /api/v1/orders
func (h *CheckoutHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.checkout.Orders(ctx, userID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	out := make([]OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderDTO(o))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"orders": out,
		"total":  len(out),
	})
}

// decodeQuoteRequest accepts an empty body as "no promo code".
func decodeQuoteRequest(w http.ResponseWriter, r *http.Request) (QuoteRequestDTO, bool) {
	var req QuoteRequestDTO
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return req, false
	}
	if req.PromoCode == "" {
		req.PromoCode = r.URL.Query().Get("promo_code")
	}
	return req, true
}
