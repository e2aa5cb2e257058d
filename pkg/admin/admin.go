// Package admin provides the /admin/* control plane: state reset and
// inspection, endpoint fault injection, payment decline arming, request
// log access, webhook flushing, and clock control.
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/underskin/storefront/pkg/shopcore"
	"github.com/underskin/storefront/pkg/store"
)

// StateStore exposes the service's volatile state.
type StateStore interface {
	// Snapshot returns the full state as a JSON-serializable value.
	Snapshot() any
	Reset()
}

// Decliner arms payment declines for upcoming checkouts.
type Decliner interface {
	DeclineNext(n int)
	PendingDeclines() int
}

// Flusher delivers queued webhook events.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Handler serves the admin endpoints.
type Handler struct {
	state    StateStore
	mw       *shopcore.Middleware
	clock    *store.Clock
	decliner Decliner
	flusher  Flusher
}

// NewHandler creates an admin handler. clock may be nil.
func NewHandler(state StateStore, mw *shopcore.Middleware, clock *store.Clock) *Handler {
	return &Handler{state: state, mw: mw, clock: clock}
}

// SetDecliner enables /admin/checkout/decline.
func (h *Handler) SetDecliner(d Decliner) { h.decliner = d }

// SetFlusher enables /admin/webhooks/flush.
func (h *Handler) SetFlusher(f Flusher) { h.flusher = f }

// Routes mounts the admin endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Post("/reset", h.handleReset)
		r.Get("/state", h.handleGetState)
		r.Post("/fault/*", h.handleInjectFault)
		r.Delete("/fault/*", h.handleRemoveFault)
		r.Get("/faults", h.handleListFaults)
		r.Get("/checkout/decline", h.handleGetDecline)
		r.Post("/checkout/decline", h.handleArmDecline)
		r.Delete("/checkout/decline", h.handleDisarmDecline)
		r.Get("/requests", h.handleGetRequests)
		r.Post("/webhooks/flush", h.handleFlushWebhooks)
		r.Post("/time/advance", h.handleTimeAdvance)
		r.Get("/time", h.handleGetTime)
		r.Get("/health", h.handleHealth)
	})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.state.Reset()
	h.mw.ReqLog.Clear()
	h.mw.Faults.Reset()
	if h.decliner != nil {
		h.decliner.DeclineNext(0)
	}
	if h.clock != nil {
		h.clock.Reset()
	}
	shopcore.JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	shopcore.JSON(w, http.StatusOK, h.state.Snapshot())
}

func faultPath(r *http.Request) string {
	return "/" + chi.URLParam(r, "*")
}

func (h *Handler) handleInjectFault(w http.ResponseWriter, r *http.Request) {
	endpoint := faultPath(r)

	var fault shopcore.FaultConfig
	if err := shopcore.DecodeJSON(r, &fault); err != nil {
		shopcore.Error(w, http.StatusBadRequest, "invalid fault config: "+err.Error())
		return
	}
	h.mw.Faults.Set(endpoint, fault)
	shopcore.JSON(w, http.StatusOK, map[string]any{
		"status":   "injected",
		"endpoint": endpoint,
		"fault":    fault,
	})
}

func (h *Handler) handleRemoveFault(w http.ResponseWriter, r *http.Request) {
	endpoint := faultPath(r)
	if !h.mw.Faults.Remove(endpoint) {
		shopcore.Error(w, http.StatusNotFound, "no fault registered for "+endpoint)
		return
	}
	shopcore.JSON(w, http.StatusOK, map[string]any{"status": "removed", "endpoint": endpoint})
}

func (h *Handler) handleListFaults(w http.ResponseWriter, r *http.Request) {
	shopcore.JSON(w, http.StatusOK, h.mw.Faults.All())
}

func (h *Handler) handleGetDecline(w http.ResponseWriter, r *http.Request) {
	if h.decliner == nil {
		shopcore.Error(w, http.StatusNotImplemented, "payment processor does not support declines")
		return
	}
	shopcore.JSON(w, http.StatusOK, map[string]int{"pending": h.decliner.PendingDeclines()})
}

func (h *Handler) handleArmDecline(w http.ResponseWriter, r *http.Request) {
	if h.decliner == nil {
		shopcore.Error(w, http.StatusNotImplemented, "payment processor does not support declines")
		return
	}
	req := struct {
		Count int `json:"count"`
	}{Count: 1}
	if err := shopcore.DecodeJSON(r, &req); err != nil {
		shopcore.Error(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Count < 0 {
		shopcore.Error(w, http.StatusBadRequest, "count must not be negative")
		return
	}
	h.decliner.DeclineNext(req.Count)
	shopcore.JSON(w, http.StatusOK, map[string]any{"status": "armed", "pending": h.decliner.PendingDeclines()})
}

func (h *Handler) handleDisarmDecline(w http.ResponseWriter, r *http.Request) {
	if h.decliner == nil {
		shopcore.Error(w, http.StatusNotImplemented, "payment processor does not support declines")
		return
	}
	h.decliner.DeclineNext(0)
	shopcore.JSON(w, http.StatusOK, map[string]any{"status": "disarmed", "pending": 0})
}

func (h *Handler) handleGetRequests(w http.ResponseWriter, r *http.Request) {
	shopcore.JSON(w, http.StatusOK, h.mw.ReqLog.Entries())
}

func (h *Handler) handleFlushWebhooks(w http.ResponseWriter, r *http.Request) {
	if h.flusher == nil {
		shopcore.JSON(w, http.StatusOK, map[string]string{"status": "no webhooks configured"})
		return
	}
	if err := h.flusher.Flush(r.Context()); err != nil {
		shopcore.Error(w, http.StatusBadGateway, "flush failed: "+err.Error())
		return
	}
	shopcore.JSON(w, http.StatusOK, map[string]string{"status": "flushed"})
}

func (h *Handler) handleTimeAdvance(w http.ResponseWriter, r *http.Request) {
	if h.clock == nil {
		shopcore.Error(w, http.StatusBadRequest, "simulated clock not configured")
		return
	}
	var req struct {
		Duration string `json:"duration"` // e.g. "24h", "30m"
	}
	if err := shopcore.DecodeJSON(r, &req); err != nil {
		shopcore.Error(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	d, err := time.ParseDuration(req.Duration)
	if err != nil {
		shopcore.Error(w, http.StatusBadRequest, "invalid duration: "+err.Error())
		return
	}

	h.clock.Advance(d)
	shopcore.JSON(w, http.StatusOK, map[string]any{
		"status":    "advanced",
		"duration":  d.String(),
		"offset":    h.clock.Offset().String(),
		"simulated": h.clock.Now().Format(time.RFC3339),
	})
}

func (h *Handler) handleGetTime(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"real": time.Now().Format(time.RFC3339)}
	if h.clock != nil {
		resp["simulated"] = h.clock.Now().Format(time.RFC3339)
		resp["offset"] = h.clock.Offset().String()
	}
	shopcore.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	shopcore.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
