package domain

import "errors"

var (
	ErrValidation         = errors.New("invalid line item")
	ErrInvalidPolicy      = errors.New("invalid pricing policy")
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrProductNotFound    = errors.New("product not found")
	ErrVariantUnavailable = errors.New("size/color not available")
	ErrOrderNotFound      = errors.New("order not found")
	ErrDuplicateOrder     = errors.New("order already exists for idempotency key")
	ErrInvalidOrder       = errors.New("invalid order request")
	ErrPaymentMismatch    = errors.New("payment intent does not match order total")
)
