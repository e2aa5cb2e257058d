// Package webhook queues storefront events and delivers them to a
// configured URL with retry and HMAC signing.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the storefront.
const (
	EventCheckoutSucceeded = "checkout.succeeded"
	EventCheckoutFailed    = "checkout.failed"
	EventRewardGranted     = "reward.granted"
)

// Signer returns the headers that authenticate a payload.
type Signer interface {
	Sign(payload []byte, secret string) map[string]string
}

// Event is a webhook event to be dispatched.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

// Delivery records one delivery attempt.
type Delivery struct {
	EventID    string    `json:"event_id"`
	URL        string    `json:"url"`
	StatusCode int       `json:"status_code"`
	Error      string    `json:"error,omitempty"`
	Attempt    int       `json:"attempt"`
	Timestamp  time.Time `json:"timestamp"`
}

// Config configures a Dispatcher.
type Config struct {
	URL         string
	Secret      string
	Signer      Signer
	Logger      *slog.Logger
	MaxRetries  int
	RetryDelay  time.Duration
	AutoDeliver bool // deliver each event in the background when queued
	HTTPClient  *http.Client
	Now         func() time.Time
}

// Dispatcher manages outbound webhook delivery.
type Dispatcher struct {
	mu         sync.RWMutex
	url        string
	secret     string
	signer     Signer
	logger     *slog.Logger
	queue      []Event
	deliveries []Delivery
	maxRetries int
	retryDelay time.Duration
	client     *http.Client
	now        func() time.Time
	auto       bool
	inflight   sync.WaitGroup
}

// NewDispatcher creates a dispatcher. Without a URL events are queued
// but never sent.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Signer == nil {
		cfg.Signer = NewHMACSigner()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Dispatcher{
		url:        cfg.URL,
		secret:     cfg.Secret,
		signer:     cfg.Signer,
		logger:     cfg.Logger,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		client:     cfg.HTTPClient,
		now:        cfg.Now,
		auto:       cfg.AutoDeliver,
	}
}

// Enqueue records an event. With AutoDeliver it is also sent in the
// background and removed from the queue once delivery finishes.
func (d *Dispatcher) Enqueue(eventType string, payload map[string]any) Event {
	evt := Event{
		ID:        "evt_" + uuid.NewString(),
		Type:      eventType,
		Payload:   payload,
		CreatedAt: d.now(),
	}
	d.mu.Lock()
	d.queue = append(d.queue, evt)
	auto := d.auto
	d.mu.Unlock()

	d.logger.Debug("webhook event queued", "event_id", evt.ID, "type", evt.Type)

	if auto {
		d.inflight.Add(1)
		go func() {
			defer d.inflight.Done()
			if err := d.deliver(context.Background(), evt); err != nil {
				d.logger.Warn("webhook delivery failed", "event_id", evt.ID, "error", err)
			}
			d.dequeue(evt.ID)
		}()
	}
	return evt
}

func (d *Dispatcher) dequeue(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, e := range d.queue {
		if e.ID == id {
			d.queue = append(d.queue[:i], d.queue[i+1:]...)
			return
		}
	}
}

// Flush synchronously delivers every queued event and empties the queue.
// It returns the last delivery error, if any.
func (d *Dispatcher) Flush(ctx context.Context) error {
	d.mu.Lock()
	events := d.queue
	d.queue = nil
	d.mu.Unlock()

	var lastErr error
	for _, evt := range events {
		if err := d.deliver(ctx, evt); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Wait blocks until background deliveries started by Enqueue finish.
func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, evt Event) error {
	d.mu.RLock()
	url, secret, signer := d.url, d.secret, d.signer
	d.mu.RUnlock()

	if url == "" {
		d.logger.Debug("no webhook URL configured, skipping delivery", "event_id", evt.ID)
		return nil
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if signer != nil && secret != "" {
			for k, v := range signer.Sign(payload, secret) {
				req.Header.Set(k, v)
			}
		}

		delivery := Delivery{EventID: evt.ID, URL: url, Attempt: attempt, Timestamp: d.now()}
		resp, err := d.client.Do(req)
		if err != nil {
			delivery.Error = err.Error()
			lastErr = err
		} else {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			delivery.StatusCode = resp.StatusCode
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				d.record(delivery)
				return nil
			}
			lastErr = fmt.Errorf("webhook delivery failed: status %d", resp.StatusCode)
			delivery.Error = lastErr.Error()
		}
		d.record(delivery)

		if attempt < d.maxRetries {
			select {
			case <-time.After(d.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

func (d *Dispatcher) record(del Delivery) {
	d.mu.Lock()
	d.deliveries = append(d.deliveries, del)
	d.mu.Unlock()
}

// Deliveries returns all delivery attempts.
func (d *Dispatcher) Deliveries() []Delivery {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Delivery, len(d.deliveries))
	copy(out, d.deliveries)
	return out
}

// QueuedEvents returns events not yet delivered.
func (d *Dispatcher) QueuedEvents() []Event {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Event, len(d.queue))
	copy(out, d.queue)
	return out
}

// Reset drops queued events and delivery records.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = nil
	d.deliveries = nil
}
