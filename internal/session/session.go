// Package session owns per-visitor storefront state and the signed
// tokens that identify it.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/underskin/storefront/internal/advisor"
	"github.com/underskin/storefront/internal/cart"
	"github.com/underskin/storefront/internal/task"
	"github.com/underskin/storefront/pkg/webhook"
)

var ErrUnknownView = errors.New("unknown view")

// View is the page the visitor is on.
type View string

const (
	ViewHome    View = "home"
	ViewCatalog View = "catalog"
	ViewAdvisor View = "advisor"
)

// ParseView validates s as a View.
func ParseView(s string) (View, error) {
	switch v := View(s); v {
	case ViewHome, ViewCatalog, ViewAdvisor:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// EventSink receives outbound events. *webhook.Dispatcher implements it.
type EventSink interface {
	Enqueue(eventType string, payload map[string]any) webhook.Event
}

// Session is the state of one visitor: cart, checkout, chat, current
// view, and whether a spin-wheel reward is waiting.
type Session struct {
	ID        string
	CreatedAt time.Time
	Cart      *cart.Machine
	Advisor   *advisor.Advisor

	mu            sync.Mutex
	view          View
	rewardPending bool
	lastSeen      time.Time

	events EventSink
}

// View returns the current view.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// SetView switches the current view.
func (s *Session) SetView(v View) error {
	if _, err := ParseView(string(v)); err != nil {
		return err
	}
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
	return nil
}

// RewardPending reports whether a completed checkout has earned a spin.
func (s *Session) RewardPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rewardPending
}

// SpinResult is the outcome of the reward wheel.
type SpinResult struct {
	Code   string      `json:"code"`
	Notice cart.Notice `json:"notice"`
}

// Spin turns the reward wheel. It always lands on the reward coupon and
// clears any pending reward.
func (s *Session) Spin() SpinResult {
	s.mu.Lock()
	s.rewardPending = false
	s.mu.Unlock()

	res := SpinResult{Code: cart.CodeReward, Notice: cart.RewardNotice(cart.CodeReward)}
	if s.events != nil {
		s.events.Enqueue(webhook.EventRewardGranted, map[string]any{
			"session_id": s.ID,
			"code":       res.Code,
		})
	}
	return res
}

func (s *Session) touch(t time.Time) {
	s.mu.Lock()
	s.lastSeen = t
	s.mu.Unlock()
}

// LastSeen returns when the session was last resolved.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// onCheckout runs after every checkout of this session's cart.
func (s *Session) onCheckout(out cart.Outcome) {
	if out.RewardTriggered {
		s.mu.Lock()
		s.rewardPending = true
		s.mu.Unlock()
	}
	if s.events == nil {
		return
	}
	eventType := webhook.EventCheckoutSucceeded
	if out.Status == task.StatusFailed {
		eventType = webhook.EventCheckoutFailed
	}
	payload := map[string]any{
		"session_id":     s.ID,
		"order_id":       out.Order.ID,
		"subtotal":       out.Order.Totals.Subtotal,
		"total":          out.Order.Totals.Total.String(),
		"loyalty_points": out.Order.Totals.LoyaltyPoints,
	}
	if out.Order.Coupon != "" {
		payload["coupon"] = out.Order.Coupon
	}
	if out.Reason != "" {
		payload["reason"] = out.Reason
	}
	s.events.Enqueue(eventType, payload)
}

// ChatState summarizes the advisor for a snapshot.
type ChatState struct {
	Mode     advisor.Mode `json:"mode"`
	Status   task.Status  `json:"status"`
	Messages int          `json:"messages"`
}

// Snapshot is a JSON view of a session for inspection.
type Snapshot struct {
	ID            string    `json:"id"`
	View          View      `json:"view"`
	RewardPending bool      `json:"reward_pending"`
	Cart          cart.View `json:"cart"`
	Chat          ChatState `json:"chat"`
	CreatedAt     time.Time `json:"created_at"`
	LastSeen      time.Time `json:"last_seen"`
}

// Snapshot captures the session's current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	view, reward, seen := s.view, s.rewardPending, s.lastSeen
	s.mu.Unlock()
	return Snapshot{
		ID:            s.ID,
		View:          view,
		RewardPending: reward,
		Cart:          s.Cart.View(),
		Chat: ChatState{
			Mode:     s.Advisor.Mode(),
			Status:   s.Advisor.Status(),
			Messages: len(s.Advisor.History()),
		},
		CreatedAt: s.CreatedAt,
		LastSeen:  seen,
	}
}
