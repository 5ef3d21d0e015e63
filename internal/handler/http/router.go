package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handlers struct {
	Customers *CustomerHandler
	Items     *ItemHandler
	Orders    *OrderHandler
	Health    *HealthHandler
	Realtime  http.Handler
}

func NewRouter(h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID", "X-Tenant-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)

	r.Route("/api", func(r chi.Router) {
		r.Route("/customers", func(r chi.Router) {
			r.Post("/", h.Customers.Create)
			r.Get("/", h.Customers.List)
			r.Get("/{customerID}", h.Customers.Get)
			r.Put("/{customerID}", h.Customers.Update)
			r.Delete("/{customerID}", h.Customers.Delete)
		})

		r.Route("/items", func(r chi.Router) {
			r.Post("/", h.Items.Create)
			r.Get("/", h.Items.List)
			r.Get("/{itemID}", h.Items.Get)
			r.Put("/{itemID}", h.Items.Update)
			r.Delete("/{itemID}", h.Items.Delete)
			r.Patch("/{itemID}/quantity", h.Items.AdjustQuantity)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.Orders.Create)
			r.Get("/", h.Orders.List)
			r.Get("/{orderID}", h.Orders.Get)
			r.Put("/{orderID}", h.Orders.Update)
			r.Post("/{orderID}/cancel", h.Orders.Cancel)
		})
	})

	r.Handle("/ws", h.Realtime)

	return r
}
