package cart

import (
	"context"
	"sync/atomic"
	"time"
)

// PaymentProcessor authorizes an order. A non-nil error declines it.
type PaymentProcessor interface {
	Authorize(ctx context.Context, order Order) error
}

// SimulatedProcessor approves every order after a fixed delay unless a
// decline has been armed with DeclineNext.
type SimulatedProcessor struct {
	Delay    time.Duration
	declines atomic.Int64
}

// NewSimulatedProcessor returns a processor with the given latency.
func NewSimulatedProcessor(delay time.Duration) *SimulatedProcessor {
	return &SimulatedProcessor{Delay: delay}
}

// Authorize waits for the configured delay and approves the order, or
// returns ErrPaymentDeclined when a decline is armed.
func (p *SimulatedProcessor) Authorize(ctx context.Context, order Order) error {
	if p.Delay > 0 {
		timer := time.NewTimer(p.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for {
		n := p.declines.Load()
		if n <= 0 {
			return nil
		}
		if p.declines.CompareAndSwap(n, n-1) {
			return ErrPaymentDeclined
		}
	}
}

// DeclineNext makes the next n authorizations fail. n <= 0 disarms.
func (p *SimulatedProcessor) DeclineNext(n int) {
	if n < 0 {
		n = 0
	}
	p.declines.Store(int64(n))
}

// PendingDeclines returns how many declines are still armed.
func (p *SimulatedProcessor) PendingDeclines() int {
	return int(p.declines.Load())
}
