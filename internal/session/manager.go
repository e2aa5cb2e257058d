package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/underskin/storefront/internal/advisor"
	"github.com/underskin/storefront/internal/cart"
	"github.com/underskin/storefront/pkg/store"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrNotFound     = errors.New("session not found")
)

// DefaultIssuer is the iss claim of session tokens.
const DefaultIssuer = "underskin-storefront"

// Config configures a Manager.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string

	// Processor is shared by every session's checkout.
	Processor cart.PaymentProcessor
	// Strategy is shared by every session's advisor.
	Strategy       advisor.Strategy
	AdvisorTimeout time.Duration

	Events EventSink
	Clock  *store.Clock
	Logger *slog.Logger
}

// Manager creates, resolves, and expires sessions.
type Manager struct {
	cfg      Config
	sessions *store.Store[*Session]
	clock    *store.Clock
	logger   *slog.Logger
	parser   *jwt.Parser
}

// NewManager returns a manager with no sessions.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("session secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.Clock == nil {
		cfg.Clock = store.NewClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Processor == nil {
		cfg.Processor = cart.NewSimulatedProcessor(0)
	}
	if cfg.Strategy == nil {
		cfg.Strategy = advisor.NewLocal(0)
	}
	return &Manager{
		cfg:      cfg,
		sessions: store.New[*Session](),
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(cfg.Clock.Now),
		),
	}, nil
}

// Create starts a session and returns it with its signed token.
func (m *Manager) Create() (*Session, string, error) {
	now := m.clock.Now()
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		view:      ViewHome,
		lastSeen:  now,
		events:    m.cfg.Events,
	}
	logger := m.logger.With("session_id", s.ID)
	s.Cart = cart.NewMachine(cart.MachineConfig{
		Processor:  m.cfg.Processor,
		OnComplete: s.onCheckout,
		Now:        m.clock.Now,
		Logger:     logger,
	})
	s.Advisor = advisor.New(advisor.Config{
		Strategy: m.cfg.Strategy,
		Timeout:  m.cfg.AdvisorTimeout,
		Now:      m.clock.Now,
		Logger:   logger,
	})

	token, err := m.issue(s.ID, now)
	if err != nil {
		return nil, "", err
	}
	m.sessions.Set(s.ID, s)
	logger.Info("session created")
	return s, token, nil
}

func (m *Manager) issue(id string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    m.cfg.Issuer,
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.TTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Resolve returns the session named by token and marks it as seen.
func (m *Manager) Resolve(token string) (*Session, error) {
	var claims jwt.RegisteredClaims
	_, err := m.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	s, err := m.Get(claims.Subject)
	if err != nil {
		return nil, err
	}
	s.touch(m.clock.Now())
	return s, nil
}

// Get looks up a session by id.
func (m *Manager) Get(id string) (*Session, error) {
	s, ok := m.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	return m.sessions.Count()
}

// Sweep removes sessions idle for longer than the TTL and returns how
// many were removed.
func (m *Manager) Sweep() int {
	cutoff := m.clock.Now().Add(-m.cfg.TTL)
	removed := m.sessions.DeleteFunc(func(_ string, s *Session) bool {
		return s.LastSeen().Before(cutoff)
	})
	if len(removed) > 0 {
		m.logger.Info("expired sessions removed", "count", len(removed))
	}
	return len(removed)
}

// Run sweeps expired sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Snapshot returns every session's state for the admin plane.
func (m *Manager) Snapshot() any {
	list := m.sessions.List()
	out := make([]Snapshot, 0, len(list))
	for _, s := range list {
		out = append(out, s.Snapshot())
	}
	return map[string]any{
		"count":    len(out),
		"sessions": out,
	}
}

// Reset drops every session.
func (m *Manager) Reset() {
	m.sessions.Reset()
	m.logger.Info("sessions reset")
}
