// Package promo resolves promotion codes to discount rates.
package promo

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validator maps upper-cased promo codes to a discount rate in [0, 1).
type Validator struct {
	rates map[string]decimal.Decimal
}

func NewValidator(rates map[string]decimal.Decimal) *Validator {
	v := &Validator{rates: make(map[string]decimal.Decimal, len(rates))}
	for code, rate := range rates {
		v.rates[normalize(code)] = rate
	}
	return v
}

// Parse reads codes in the form "CODE:rate,CODE:rate". Blank entries are
// skipped; a rate outside [0, 1) is an error.
func Parse(raw string) (*Validator, error) {
	rates := make(map[string]decimal.Decimal)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		code, rateStr, ok := strings.Cut(entry, ":")
		if !ok || strings.TrimSpace(code) == "" {
			return nil, fmt.Errorf("promo entry %q: expected CODE:rate", entry)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(rateStr))
		if err != nil {
			return nil, fmt.Errorf("promo entry %q: %w", entry, err)
		}
		if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("promo entry %q: rate must be in [0, 1)", entry)
		}
		rates[normalize(code)] = rate
	}
	return NewValidator(rates), nil
}

// DiscountRate returns the rate for code, or zero for an empty or unknown code.
func (v *Validator) DiscountRate(_ context.Context, code string) decimal.Decimal {
	if rate, ok := v.rates[normalize(code)]; ok {
		return rate
	}
	return decimal.Zero
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
