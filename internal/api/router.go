// Package api implements the storefront HTTP API.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/underskin/storefront/internal/catalog"
	"github.com/underskin/storefront/internal/session"
	"github.com/underskin/storefront/pkg/shopcore"
)

// Handler holds the API dependencies.
type Handler struct {
	catalog  *catalog.Catalog
	sessions *session.Manager
	mw       *shopcore.Middleware
	logger   *slog.Logger
}

// NewHandler creates an API handler.
func NewHandler(c *catalog.Catalog, sessions *session.Manager, mw *shopcore.Middleware, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{catalog: c, sessions: sessions, mw: mw, logger: logger}
}

// Routes mounts the /v1 API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Use(h.mw.FaultInjection)

		r.Get("/products", h.ListProducts)
		r.Get("/products/featured", h.FeaturedProducts)
		r.Get("/products/{id}", h.GetProduct)

		r.Post("/sessions", h.CreateSession)

		r.Group(func(r chi.Router) {
			r.Use(h.sessionAuth)

			r.Get("/session", h.GetSession)
			r.Get("/session/view", h.GetView)
			r.Put("/session/view", h.SetView)

			r.Get("/cart", h.GetCart)
			r.Post("/cart/items", h.AddItem)
			r.Patch("/cart/items/{id}", h.UpdateItem)
			r.Delete("/cart/items/{id}", h.RemoveItem)
			r.Post("/cart/coupon", h.ApplyCoupon)
			r.Post("/cart/checkout", h.StartCheckout)
			r.Get("/cart/checkout", h.CheckoutStatus)

			r.Post("/rewards/spin", h.Spin)

			r.Get("/chat", h.GetChat)
			r.Post("/chat", h.PostChat)
		})
	})
}

type ctxKey struct{}

func sessionFrom(ctx context.Context) *session.Session {
	s, _ := ctx.Value(ctxKey{}).(*session.Session)
	return s
}

// sessionAuth resolves the Bearer session token.
func (h *Handler) sessionAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			shopcore.TypedError(w, http.StatusUnauthorized, "missing_session",
				"Missing session token. Create one with POST /v1/sessions and send 'Authorization: Bearer <token>'.")
			return
		}

		s, err := h.sessions.Resolve(token)
		if err != nil {
			h.logger.Debug("session rejected", "error", err)
			msg := "Invalid or expired session token."
			if errors.Is(err, session.ErrNotFound) {
				msg = "Session no longer exists."
			}
			shopcore.TypedError(w, http.StatusUnauthorized, "invalid_session", msg)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, s)))
	})
}
