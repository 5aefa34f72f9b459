// Package pricing turns a cart snapshot and a pricing policy into an order
// price breakdown. Everything here is pure.
package pricing

import (
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// ComputeBreakdown prices lines under policy. An empty slice is a valid input
// and yields a zero subtotal; whether such a cart may be checked out is up to
// the caller.
func ComputeBreakdown(lines []domain.LineItem, policy domain.Policy) (domain.Breakdown, error) {
	if err := policy.Validate(); err != nil {
		return domain.Breakdown{}, err
	}

	subtotal := Subtotal(lines)

	shipping := policy.FlatShippingFee
	if subtotal.GreaterThan(policy.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := subtotal.Mul(policy.TaxRate)
	discount := subtotal.Mul(policy.DiscountRate)

	return domain.Breakdown{
		ItemsSubtotal:  subtotal,
		ShippingFee:    shipping,
		TaxAmount:      tax,
		DiscountAmount: discount,
		GrandTotal:     subtotal.Add(shipping).Add(tax).Sub(discount),
	}, nil
}

// Subtotal is the exact sum of unit price times quantity over lines.
func Subtotal(lines []domain.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal())
	}
	return total
}
