package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stridewear/storefront/internal/cart"
	"github.com/stridewear/storefront/internal/domain"
	"github.com/stridewear/storefront/internal/session"
)

const maxQuantity = 99

type CartHandler struct {
	sessions *session.Manager
	logger   *zap.Logger
}

func NewCartHandler(sessions *session.Manager, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		logger:   logger,
	}
}

type AddItemRequestDTO struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartItemDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Image     string `json:"image,omitempty"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

type CartViewDTO struct {
	Items     []CartItemDTO `json:"items"`
	Total     string        `json:"total"`
	ItemCount int           `json:"item_count"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	store := h.store(r)
	respondJSON(w, http.StatusOK, toCartViewDTO(store.View(), store.ItemCount()))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must not be empty")
		return
	}
	if req.Price.IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid_price", "price must not be negative")
		return
	}

	store := h.store(r)
	store.AddItem(domain.Item{
		ID:    req.ID,
		Name:  req.Name,
		Price: req.Price,
		Image: req.Image,
	})

	respondJSON(w, http.StatusCreated, toCartViewDTO(store.View(), store.ItemCount()))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must not be empty")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be 99 or less")
		return
	}

	// A quantity of zero or less removes the line; the store enforces
	// that a line never survives with a non-positive quantity.
	store := h.store(r)
	store.UpdateQuantity(id, req.Quantity)

	respondJSON(w, http.StatusOK, toCartViewDTO(store.View(), store.ItemCount()))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must not be empty")
		return
	}

	store := h.store(r)
	store.RemoveItem(id)

	respondJSON(w, http.StatusOK, toCartViewDTO(store.View(), store.ItemCount()))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	store := h.store(r)
	store.ClearCart()

	respondJSON(w, http.StatusOK, toCartViewDTO(store.View(), store.ItemCount()))
}

func (h *CartHandler) store(r *http.Request) *cart.Store {
	return h.sessions.Cart(r.Context(), getSessionID(r.Context()))
}

// toCartViewDTO renders the cart for display. Rounding to two decimals
// happens here and only here; stored prices and totals stay unrounded.
func toCartViewDTO(view cart.View, itemCount int) CartViewDTO {
	items := make([]CartItemDTO, 0, len(view.Items))
	for _, item := range view.Items {
		lineTotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		items = append(items, CartItemDTO{
			ID:        item.ID,
			Name:      item.Name,
			Price:     item.Price.StringFixed(2),
			Image:     item.Image,
			Quantity:  item.Quantity,
			LineTotal: lineTotal.StringFixed(2),
		})
	}
	return CartViewDTO{
		Items:     items,
		Total:     view.Total.StringFixed(2),
		ItemCount: itemCount,
	}
}
