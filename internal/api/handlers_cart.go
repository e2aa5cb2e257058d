package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/underskin/storefront/internal/cart"
	"github.com/underskin/storefront/pkg/shopcore"
)

type cartResponse struct {
	Notice *cart.Notice `json:"notice,omitempty"`
	Cart   cart.View    `json:"cart"`
}

func cartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrCheckoutPending):
		shopcore.TypedError(w, http.StatusConflict, "checkout_pending", "A checkout is in progress; the cart cannot change until it completes.")
	case errors.Is(err, cart.ErrEmptyCart):
		shopcore.TypedError(w, http.StatusUnprocessableEntity, "empty_cart", "The cart is empty.")
	default:
		shopcore.Error(w, http.StatusInternalServerError, err.Error())
	}
}

// GetCart handles GET /v1/cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	shopcore.JSON(w, http.StatusOK, cartResponse{Cart: sessionFrom(r.Context()).Cart.View()})
}

// AddItem handles POST /v1/cart/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id"`
	}
	if err := shopcore.DecodeJSON(r, &req); err != nil {
		shopcore.Error(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ProductID == "" {
		shopcore.TypedError(w, http.StatusBadRequest, "invalid_request", "product_id is required")
		return
	}
	p, ok := h.catalog.Get(req.ProductID)
	if !ok {
		shopcore.TypedError(w, http.StatusNotFound, "product_not_found", "No such product: "+req.ProductID)
		return
	}

	m := sessionFrom(r.Context()).Cart
	n, err := m.Add(p)
	if err != nil {
		cartError(w, err)
		return
	}
	shopcore.JSON(w, http.StatusOK, cartResponse{Notice: &n, Cart: m.View()})
}

// UpdateItem handles PATCH /v1/cart/items/{id}. Out-of-range changes are
// ignored and reported with applied=false.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delta int `json:"delta"`
	}
	if err := shopcore.DecodeJSON(r, &req); err != nil {
		shopcore.Error(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	m := sessionFrom(r.Context()).Cart
	applied, err := m.UpdateQuantity(chi.URLParam(r, "id"), req.Delta)
	if err != nil {
		cartError(w, err)
		return
	}
	shopcore.JSON(w, http.StatusOK, map[string]any{
		"applied": applied,
		"cart":    m.View(),
	})
}

// RemoveItem handles DELETE /v1/cart/items/{id}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	m := sessionFrom(r.Context()).Cart
	n, err := m.Remove(chi.URLParam(r, "id"))
	if err != nil {
		cartError(w, err)
		return
	}
	shopcore.JSON(w, http.StatusOK, cartResponse{Notice: &n, Cart: m.View()})
}

// ApplyCoupon handles POST /v1/cart/coupon. An unknown code is not an
// HTTP error: the discount is cleared and an error notice returned.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := shopcore.DecodeJSON(r, &req); err != nil {
		shopcore.Error(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	m := sessionFrom(r.Context()).Cart
	n, err := m.ApplyCoupon(req.Code)
	if err != nil {
		cartError(w, err)
		return
	}
	shopcore.JSON(w, http.StatusOK, cartResponse{Notice: &n, Cart: m.View()})
}

// StartCheckout handles POST /v1/cart/checkout. It returns as soon as
// the checkout is accepted; poll GET /v1/cart/checkout for the outcome.
func (h *Handler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	m := sessionFrom(r.Context()).Cart
	if _, err := m.Checkout(r.Context()); err != nil {
		cartError(w, err)
		return
	}
	shopcore.JSON(w, http.StatusAccepted, map[string]any{
		"status": m.Status(),
		"cart":   m.View(),
	})
}

// CheckoutStatus handles GET /v1/cart/checkout.
func (h *Handler) CheckoutStatus(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	resp := map[string]any{
		"status":         s.Cart.Status(),
		"reward_pending": s.RewardPending(),
	}
	if out, ok := s.Cart.LastOutcome(); ok {
		resp["last_outcome"] = out
	}
	shopcore.JSON(w, http.StatusOK, resp)
}
