package cart

import (
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultMaxQuantity is the per-line quantity cap used when none is configured.
const DefaultMaxQuantity = 10

// Aggregator holds the line items of one shopper's cart and keeps the
// derived total in sync with them. It is not safe for concurrent use.
type Aggregator struct {
	items  []domain.LineItem
	total  decimal.Decimal
	maxQty int
}

func New(maxQty int) *Aggregator {
	if maxQty <= 0 {
		maxQty = DefaultMaxQuantity
	}
	return &Aggregator{maxQty: maxQty}
}

// Load rebuilds an aggregator from a stored cart. The stored total is ignored
// and recomputed; duplicate keys are merged.
func Load(c domain.Cart, maxQty int) (*Aggregator, error) {
	a := New(maxQty)
	if err := a.Restore(c.Items); err != nil {
		return nil, err
	}
	return a, nil
}

// Restore replaces the current lines with items, merging duplicates and
// clamping quantities. On error the aggregator is left empty.
func (a *Aggregator) Restore(items []domain.LineItem) error {
	a.Clear()
	for _, item := range items {
		if err := a.AddItem(item); err != nil {
			a.Clear()
			return err
		}
	}
	return nil
}

// Store writes the items and the total into c.
func (a *Aggregator) Store(c *domain.Cart) {
	c.Items = a.Items()
	c.TotalPrice = a.total
}

// AddItem merges item into the line with the same (product, size, color) key
// or appends it as a new line. Quantities are capped at the max quantity.
func (a *Aggregator) AddItem(item domain.LineItem) error {
	if err := item.Validate(); err != nil {
		return err
	}

	if idx := a.indexOf(item.Key()); idx >= 0 {
		a.items[idx].Quantity = a.clamp(a.items[idx].Quantity + item.Quantity)
	} else {
		item.Quantity = a.clamp(item.Quantity)
		a.items = append(a.items, item)
	}

	a.recompute()
	return nil
}

// RemoveItem drops the line with the given key. Missing keys are ignored.
func (a *Aggregator) RemoveItem(key domain.LineKey) {
	idx := a.indexOf(key)
	if idx < 0 {
		return
	}
	a.items = append(a.items[:idx], a.items[idx+1:]...)
	a.recompute()
}

// UpdateQuantity sets the quantity of a line, clamped to [1, max].
// Missing keys are ignored.
func (a *Aggregator) UpdateQuantity(key domain.LineKey, quantity int) {
	idx := a.indexOf(key)
	if idx < 0 {
		return
	}
	a.items[idx].Quantity = a.clamp(quantity)
	a.recompute()
}

func (a *Aggregator) Clear() {
	a.items = nil
	a.total = decimal.Zero
}

// Items returns a copy of the line items in insertion order.
func (a *Aggregator) Items() []domain.LineItem {
	out := make([]domain.LineItem, len(a.items))
	copy(out, a.items)
	return out
}

func (a *Aggregator) TotalPrice() decimal.Decimal {
	return a.total
}

func (a *Aggregator) Len() int {
	return len(a.items)
}

// ItemCount is the number of units across all lines.
func (a *Aggregator) ItemCount() int {
	var n int
	for _, item := range a.items {
		n += item.Quantity
	}
	return n
}

func (a *Aggregator) MaxQuantity() int {
	return a.maxQty
}

func (a *Aggregator) indexOf(key domain.LineKey) int {
	for i := range a.items {
		if a.items[i].Key() == key {
			return i
		}
	}
	return -1
}

func (a *Aggregator) clamp(q int) int {
	if q < 1 {
		return 1
	}
	if q > a.maxQty {
		return a.maxQty
	}
	return q
}

func (a *Aggregator) recompute() {
	total := decimal.Zero
	for _, item := range a.items {
		total = total.Add(item.LineTotal())
	}
	a.total = total
}
