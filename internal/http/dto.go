package http

import (
	"time"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type QuoteRequestDTO struct {
	PromoCode string `json:"promo_code"`
}

type PlaceOrderRequestDTO struct {
	IdempotencyKey  string                 `json:"idempotency_key"`
	PromoCode       string                 `json:"promo_code"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
	PaymentIntentID string                 `json:"payment_intent_id"`
}

type ProductDTO struct {
	Name      string `json:"name"`
	ImageURL  string `json:"image_url,omitempty"`
	UnitPrice string `json:"unit_price"`
}

type LineItemDTO struct {
	ID        string     `json:"id"`
	ProductID string     `json:"product_id"`
	Size      string     `json:"size"`
	Color     string     `json:"color"`
	Quantity  int        `json:"quantity"`
	UnitPrice string     `json:"unit_price"`
	LineTotal string     `json:"line_total"`
	Product   ProductDTO `json:"product"`
	AddedAt   time.Time  `json:"added_at"`
}

type CartResponseDTO struct {
	UserID     string        `json:"user_id"`
	Items      []LineItemDTO `json:"items"`
	ItemCount  int           `json:"item_count"`
	TotalPrice string        `json:"total_price"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

type BreakdownDTO struct {
	ItemsSubtotal  string `json:"items_subtotal"`
	ShippingFee    string `json:"shipping_fee"`
	TaxAmount      string `json:"tax_amount"`
	DiscountAmount string `json:"discount_amount"`
	GrandTotal     string `json:"grand_total"`
}

type QuoteResponseDTO struct {
	Items        []LineItemDTO `json:"items"`
	Breakdown    BreakdownDTO  `json:"breakdown"`
	Currency     string        `json:"currency"`
	PromoCode    string        `json:"promo_code,omitempty"`
	DiscountRate string        `json:"discount_rate"`
}

type PaymentIntentResponseDTO struct {
	IntentID     string       `json:"intent_id"`
	ClientSecret string       `json:"client_secret"`
	Amount       string       `json:"amount"`
	Currency     string       `json:"currency"`
	Breakdown    BreakdownDTO `json:"breakdown"`
}

type OrderItemDTO struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	ImageURL    string `json:"image_url,omitempty"`
	Size        string `json:"size"`
	Color       string `json:"color"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

type OrderResponseDTO struct {
	ID              string                 `json:"id"`
	Status          string                 `json:"status"`
	Currency        string                 `json:"currency"`
	Items           []OrderItemDTO         `json:"items"`
	Breakdown       BreakdownDTO           `json:"breakdown"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
	PaymentIntentID string                 `json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(domain.CurrencyPlaces)
}

func toLineItemDTOs(items []domain.LineItem) []LineItemDTO {
	out := make([]LineItemDTO, 0, len(items))
	for _, it := range items {
		out = append(out, LineItemDTO{
			ID:        it.Key().String(),
			ProductID: it.ProductID,
			Size:      it.Size,
			Color:     it.Color,
			Quantity:  it.Quantity,
			UnitPrice: money(it.UnitPrice),
			LineTotal: money(it.LineTotal()),
			Product: ProductDTO{
				Name:      it.Product.Name,
				ImageURL:  it.Product.ImageURL,
				UnitPrice: money(it.Product.UnitPrice),
			},
			AddedAt: it.AddedAt,
		})
	}
	return out
}

func toCartDTO(c *domain.Cart) CartResponseDTO {
	var count int
	for _, it := range c.Items {
		count += it.Quantity
	}
	return CartResponseDTO{
		UserID:     c.UserID,
		Items:      toLineItemDTOs(c.Items),
		ItemCount:  count,
		TotalPrice: money(c.TotalPrice),
		UpdatedAt:  c.UpdatedAt,
	}
}

func toBreakdownDTO(b domain.Breakdown) BreakdownDTO {
	r := b.Rounded()
	return BreakdownDTO{
		ItemsSubtotal:  money(r.ItemsSubtotal),
		ShippingFee:    money(r.ShippingFee),
		TaxAmount:      money(r.TaxAmount),
		DiscountAmount: money(r.DiscountAmount),
		GrandTotal:     money(r.GrandTotal),
	}
}

func toQuoteDTO(q checkout.Quote) QuoteResponseDTO {
	return QuoteResponseDTO{
		Items:        toLineItemDTOs(q.Items),
		Breakdown:    toBreakdownDTO(q.Breakdown),
		Currency:     q.Currency,
		PromoCode:    q.PromoCode,
		DiscountRate: q.DiscountRate.String(),
	}
}

func toOrderDTO(o *domain.Order) OrderResponseDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			ImageURL:    it.ImageURL,
			Size:        it.Size,
			Color:       it.Color,
			Quantity:    it.Quantity,
			UnitPrice:   money(it.UnitPrice),
			LineTotal:   money(it.LineTotal),
		})
	}
	return OrderResponseDTO{
		ID:              o.ID.String(),
		Status:          string(o.Status),
		Currency:        o.Currency,
		Items:           items,
		Breakdown:       toBreakdownDTO(o.Breakdown),
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   string(o.PaymentMethod),
		PaymentIntentID: o.PaymentIntentID,
		CreatedAt:       o.CreatedAt,
	}
}
