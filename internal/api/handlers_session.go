package api

import (
	"errors"
	"net/http"

	"github.com/underskin/storefront/internal/session"
	"github.com/underskin/storefront/pkg/shopcore"
)

// CreateSession handles POST /v1/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s, token, err := h.sessions.Create()
	if err != nil {
		h.logger.Error("create session failed", "error", err)
		shopcore.Error(w, http.StatusInternalServerError, "could not create session")
		return
	}
	shopcore.JSON(w, http.StatusCreated, map[string]any{
		"token":   token,
		"session": s.Snapshot(),
	})
}

// GetSession handles GET /v1/session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	shopcore.JSON(w, http.StatusOK, sessionFrom(r.Context()).Snapshot())
}

// GetView handles GET /v1/session/view.
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	shopcore.JSON(w, http.StatusOK, map[string]any{"view": sessionFrom(r.Context()).View()})
}

// SetView handles PUT /v1/session/view.
func (h *Handler) SetView(w http.ResponseWriter, r *http.Request) {
	var req struct {
		View string `json:"view"`
	}
	if err := shopcore.DecodeJSON(r, &req); err != nil {
		shopcore.Error(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	s := sessionFrom(r.Context())
	if err := s.SetView(session.View(req.View)); err != nil {
		if errors.Is(err, session.ErrUnknownView) {
			shopcore.TypedError(w, http.StatusBadRequest, "invalid_view", err.Error())
			return
		}
		shopcore.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	shopcore.JSON(w, http.StatusOK, map[string]any{"view": s.View()})
}

// Spin handles POST /v1/rewards/spin.
func (h *Handler) Spin(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	res := s.Spin()
	shopcore.JSON(w, http.StatusOK, map[string]any{
		"code":           res.Code,
		"notice":         res.Notice,
		"reward_pending": s.RewardPending(),
	})
}
