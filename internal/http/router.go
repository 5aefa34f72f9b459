package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

func NewRouter(cfg RouterConfig, carts *CartHandler, checkout *CheckoutHandler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}
	r.Use(middleware.Compress(5))
	r.Use(UserIDMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", carts.GetCart)
			r.Delete("/", carts.ClearCart)
			r.Post("/items", carts.AddItem)
			r.Put("/items/{product_id}/{size}/{color}", carts.UpdateQuantity)
			r.Delete("/items/{product_id}/{size}/{color}", carts.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/quote", checkout.Quote)
			r.Post("/payment-intent", checkout.CreatePaymentIntent)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", checkout.PlaceOrder)
			r.Get("/", checkout.ListOrders)
			r.Get("/{id}", checkout.GetOrder)
		})
	})

	return r
}
