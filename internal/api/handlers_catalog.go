package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/underskin/storefront/internal/catalog"
	"github.com/underskin/storefront/pkg/shopcore"
)

type productList struct {
	Data  []catalog.Product `json:"data"`
	Count int               `json:"count"`
}

// ListProducts handles GET /v1/products?category=&q=.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category, err := catalog.ParseCategory(q.Get("category"))
	if err != nil {
		shopcore.TypedError(w, http.StatusBadRequest, "invalid_category", err.Error())
		return
	}
	products := h.catalog.Search(category, q.Get("q"))
	shopcore.JSON(w, http.StatusOK, productList{Data: products, Count: len(products)})
}

// FeaturedProducts handles GET /v1/products/featured.
func (h *Handler) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.Featured(catalog.FeaturedCount)
	shopcore.JSON(w, http.StatusOK, productList{Data: products, Count: len(products)})
}

// GetProduct handles GET /v1/products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := h.catalog.Get(id)
	if !ok {
		shopcore.TypedError(w, http.StatusNotFound, "product_not_found", "No such product: "+id)
		return
	}
	shopcore.JSON(w, http.StatusOK, p)
}
