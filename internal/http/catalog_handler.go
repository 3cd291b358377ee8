package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stridewear/storefront/internal/catalog"
	"github.com/stridewear/storefront/internal/domain"
)

// CatalogService is what the handlers need from the catalog layer.
type CatalogService interface {
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListCollections(ctx context.Context) ([]*domain.Collection, error)
	GetCollection(ctx context.Context, slug string) (*domain.Collection, []*domain.Product, error)
	Search(ctx context.Context, query string) ([]*domain.Product, error)
}

type CatalogHandler struct {
	catalog CatalogService
	logger  *zap.Logger
}

func NewCatalogHandler(service CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: service,
		logger:  logger,
	}
}

type ProductDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Image       string `json:"image,omitempty"`
}

type CollectionDTO struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CollectionPageDTO struct {
	Collection CollectionDTO `json:"collection"`
	Products   []ProductDTO  `json:"products"`
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("list products failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, toProductDTOs(products))
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must be a positive integer")
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if errors.Is(err, catalog.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}
	if err != nil {
		h.logger.Error("get product failed", zap.Int64("id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, toProductDTO(product))
}

func (h *CatalogHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.catalog.ListCollections(r.Context())
	if err != nil {
		h.logger.Error("list collections failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	dtos := make([]CollectionDTO, 0, len(collections))
	for _, c := range collections {
		dtos = append(dtos, toCollectionDTO(c))
	}
	respondJSON(w, http.StatusOK, dtos)
}

func (h *CatalogHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	collection, products, err := h.catalog.GetCollection(r.Context(), slug)
	if errors.Is(err, catalog.ErrCollectionNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "collection not found")
		return
	}
	if err != nil {
		h.logger.Error("get collection failed", zap.String("slug", slug), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, CollectionPageDTO{
		Collection: toCollectionDTO(collection),
		Products:   toProductDTOs(products),
	})
}

func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	products, err := h.catalog.Search(r.Context(), query)
	if err != nil {
		h.logger.Error("search failed", zap.String("query", query), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, toProductDTOs(products))
}

func toProductDTO(p *domain.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Image:       p.ImageURL,
	}
}

func toProductDTOs(products []*domain.Product) []ProductDTO {
	dtos := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, toProductDTO(p))
	}
	return dtos
}

func toCollectionDTO(c *domain.Collection) CollectionDTO {
	return CollectionDTO{
		Slug:        c.Slug,
		Name:        c.Name,
		Description: c.Description,
	}
}
