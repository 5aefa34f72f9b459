package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the number of decimal places amounts are rounded to for presentation.
const CurrencyPlaces = 2

// MaxTaxRate is the exclusive upper bound for a tax rate.
var MaxTaxRate = decimal.NewFromInt(1)

// Policy holds the pricing parameters of a single checkout.
type Policy struct {
	TaxRate               decimal.Decimal `json:"tax_rate"`
	FreeShippingThreshold decimal.Decimal `json:"free_shipping_threshold"`
	FlatShippingFee       decimal.Decimal `json:"flat_shipping_fee"`
	DiscountRate          decimal.Decimal `json:"discount_rate"`
}

// WithDiscount returns a copy of the policy with the given discount rate.
func (p Policy) WithDiscount(rate decimal.Decimal) Policy {
	p.DiscountRate = rate
	return p
}

func (p Policy) Validate() error {
	one := decimal.NewFromInt(1)
	switch {
	case p.TaxRate.IsNegative():
		return fmt.Errorf("%w: tax rate %s is negative", ErrInvalidPolicy, p.TaxRate)
	case p.TaxRate.GreaterThanOrEqual(MaxTaxRate):
		return fmt.Errorf("%w: tax rate %s must be below %s", ErrInvalidPolicy, p.TaxRate, MaxTaxRate)
	case p.DiscountRate.IsNegative():
		return fmt.Errorf("%w: discount rate %s is negative", ErrInvalidPolicy, p.DiscountRate)
	case p.DiscountRate.GreaterThanOrEqual(one):
		return fmt.Errorf("%w: discount rate %s must be below 1", ErrInvalidPolicy, p.DiscountRate)
	case p.FreeShippingThreshold.IsNegative():
		return fmt.Errorf("%w: free shipping threshold is negative", ErrInvalidPolicy)
	case p.FlatShippingFee.IsNegative():
		return fmt.Errorf("%w: flat shipping fee is negative", ErrInvalidPolicy)
	}
	return nil
}

// Breakdown is the itemized price of an order. Fields hold exact values;
// use Rounded for presentation.
type Breakdown struct {
	ItemsSubtotal  decimal.Decimal `json:"items_subtotal"`
	ShippingFee    decimal.Decimal `json:"shipping_fee"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
}

// Rounded returns the breakdown with every field rounded to currency precision.
// GrandTotal is rounded from the exact total, not summed from rounded parts.
func (b Breakdown) Rounded() Breakdown {
	return Breakdown{
		ItemsSubtotal:  b.ItemsSubtotal.Round(CurrencyPlaces),
		ShippingFee:    b.ShippingFee.Round(CurrencyPlaces),
		TaxAmount:      b.TaxAmount.Round(CurrencyPlaces),
		DiscountAmount: b.DiscountAmount.Round(CurrencyPlaces),
		GrandTotal:     b.GrandTotal.Round(CurrencyPlaces),
	}
}

// Equal reports whether both breakdowns hold numerically equal values.
func (b Breakdown) Equal(o Breakdown) bool {
	return b.ItemsSubtotal.Equal(o.ItemsSubtotal) &&
		b.ShippingFee.Equal(o.ShippingFee) &&
		b.TaxAmount.Equal(o.TaxAmount) &&
		b.DiscountAmount.Equal(o.DiscountAmount) &&
		b.GrandTotal.Equal(o.GrandTotal)
}
