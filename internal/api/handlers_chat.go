package api

import (
	"errors"
	"net/http"

	"github.com/underskin/storefront/internal/advisor"
	"github.com/underskin/storefront/pkg/shopcore"
)

// GetChat handles GET /v1/chat.
func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	a := sessionFrom(r.Context()).Advisor
	shopcore.JSON(w, http.StatusOK, map[string]any{
		"mode":     a.Mode(),
		"status":   a.Status(),
		"messages": a.History(),
	})
}

// PostChat handles POST /v1/chat. It waits for the assistant's reply.
// If the client goes away first the reply is still recorded.
func (h *Handler) PostChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := shopcore.DecodeJSON(r, &req); err != nil {
		shopcore.Error(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	a := sessionFrom(r.Context()).Advisor
	tk, err := a.Submit(r.Context(), req.Text)
	switch {
	case errors.Is(err, advisor.ErrEmptyInput):
		shopcore.TypedError(w, http.StatusBadRequest, "empty_message", "Message text is required.")
		return
	case errors.Is(err, advisor.ErrPending):
		shopcore.TypedError(w, http.StatusConflict, "advisor_pending", "The advisor is still answering the previous message.")
		return
	case err != nil:
		shopcore.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	reply, err := tk.Wait(r.Context())
	if err != nil {
		return
	}
	shopcore.JSON(w, http.StatusOK, map[string]any{
		"reply":  reply,
		"status": a.Status(),
		"mode":   a.Mode(),
	})
}
