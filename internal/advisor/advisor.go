// Package advisor implements the product advisory chat: an append-only
// conversation whose replies come from either the Gemini API or a set of
// canned demo answers.
package advisor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/underskin/storefront/internal/task"
)

var (
	ErrEmptyInput = errors.New("message is empty")
	ErrPending    = errors.New("advisor is still answering")
)

const (
	WelcomeText = "سلام! من دستیار هوشمند Under the Skin هستم. چطور می‌تونم در مورد مکمل‌ها بهت کمک کنم؟"
	// ErrorText replaces the reply when the strategy fails.
	ErrorText = "خطا در ارتباط با هوش مصنوعی."
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the chat history.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Mode tells the UI which strategy is answering.
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeDemo   Mode = "demo"
)

// Strategy produces the assistant reply for a user message.
type Strategy interface {
	Mode() Mode
	Respond(ctx context.Context, text string) (string, error)
}

// Config configures an Advisor.
type Config struct {
	Strategy Strategy
	// Timeout bounds a single reply. Zero means no bound.
	Timeout time.Duration
	Now     func() time.Time
	Logger  *slog.Logger
}

// Advisor holds one conversation. At most one submission is answered at
// a time and every accepted submission yields exactly one reply.
type Advisor struct {
	mu      sync.Mutex
	history []Message
	gate    task.Gate

	strategy Strategy
	timeout  time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// New returns an advisor whose history holds only the welcome message.
func New(cfg Config) *Advisor {
	if cfg.Strategy == nil {
		cfg.Strategy = NewLocal(0)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	a := &Advisor{
		strategy: cfg.Strategy,
		timeout:  cfg.Timeout,
		now:      cfg.Now,
		logger:   cfg.Logger,
	}
	a.history = []Message{a.message(RoleAssistant, WelcomeText)}
	return a
}

func (a *Advisor) message(role Role, text string) Message {
	return Message{ID: uuid.NewString(), Role: role, Text: text, CreatedAt: a.now()}
}

// Submit appends the user's message and starts answering it. The returned
// task resolves with the assistant reply once it is in the history; it
// never carries an error. Cancelling ctx does not abort the reply.
func (a *Advisor) Submit(ctx context.Context, text string) (*task.Task[Message], error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	a.mu.Lock()
	if !a.gate.Begin() {
		a.mu.Unlock()
		return nil, ErrPending
	}
	a.history = append(a.history, a.message(RoleUser, text))
	a.mu.Unlock()

	t := task.New[Message]()
	go a.answer(context.WithoutCancel(ctx), text, t)
	return t, nil
}

func (a *Advisor) answer(ctx context.Context, text string, t *task.Task[Message]) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	reply, err := a.strategy.Respond(ctx, text)
	ok := err == nil
	if !ok {
		a.logger.Warn("advisor reply failed", "mode", a.strategy.Mode(), "error", err)
		reply = ErrorText
	}

	a.mu.Lock()
	msg := a.message(RoleAssistant, reply)
	a.history = append(a.history, msg)
	a.gate.Finish(ok)
	a.mu.Unlock()

	t.Resolve(msg, nil)
}

// History returns a copy of the conversation in order.
func (a *Advisor) History() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Message, len(a.history))
	copy(out, a.history)
	return out
}

// Status reports whether a reply is pending and how the last one ended.
func (a *Advisor) Status() task.Status {
	return a.gate.Status()
}

// Mode returns the answering strategy's mode.
func (a *Advisor) Mode() Mode {
	return a.strategy.Mode()
}
