package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stridewear/storefront/internal/session"
)

// NewRouter wires the storefront API surface.
func NewRouter(sessions *session.Manager, carts *CartHandler, products *CatalogHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", products.ListProducts)
		r.Get("/products/{id}", products.GetProduct)
		r.Get("/collections", products.ListCollections)
		r.Get("/collections/{slug}", products.GetCollection)
		r.Get("/search", products.Search)

		r.Route("/cart", func(r chi.Router) {
			r.Use(SessionMiddleware(sessions))
			r.Get("/", carts.GetCart)
			r.Delete("/", carts.ClearCart)
			r.Post("/items", carts.AddItem)
			r.Patch("/items/{id}", carts.UpdateQuantity)
			r.Delete("/items/{id}", carts.RemoveItem)
		})
	})

	return r
}
