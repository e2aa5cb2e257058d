package cart

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/underskin/storefront/internal/catalog"
	"github.com/underskin/storefront/internal/task"
)

var (
	ErrCheckoutPending = errors.New("checkout already in progress")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrPaymentDeclined = errors.New("payment declined")
)

var tracer = otel.Tracer("github.com/underskin/storefront/internal/cart")

// Order is the frozen cart submitted at checkout.
type Order struct {
	ID       string    `json:"id"`
	Items    []Item    `json:"items"`
	Totals   Totals    `json:"totals"`
	Coupon   string    `json:"coupon,omitempty"`
	PlacedAt time.Time `json:"placed_at"`
}

// Outcome is the result of one checkout.
type Outcome struct {
	Order           Order       `json:"order"`
	Status          task.Status `json:"status"`
	Notice          Notice      `json:"notice"`
	RewardTriggered bool        `json:"reward_triggered"`
	Reason          string      `json:"reason,omitempty"`
	Err             error       `json:"-"`
}

// View is a consistent snapshot of the cart for rendering.
type View struct {
	Items    []Item      `json:"items"`
	Totals   Totals      `json:"totals"`
	Discount Discount    `json:"discount"`
	Checkout task.Status `json:"checkout_status"`
}

// MachineConfig configures a Machine.
type MachineConfig struct {
	Processor PaymentProcessor
	// OnComplete runs after every checkout, before waiters are released.
	OnComplete func(Outcome)
	Now        func() time.Time
	Logger     *slog.Logger
}

// Machine owns a cart and drives it through checkout. While a checkout
// is pending the cart is frozen and further submissions are rejected.
type Machine struct {
	mu       sync.Mutex
	cart     Cart
	discount Discount
	gate     task.Gate
	last     *Outcome

	processor  PaymentProcessor
	onComplete func(Outcome)
	now        func() time.Time
	logger     *slog.Logger
}

// NewMachine creates a machine with an empty cart.
func NewMachine(cfg MachineConfig) *Machine {
	if cfg.Processor == nil {
		cfg.Processor = NewSimulatedProcessor(0)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Machine{
		processor:  cfg.Processor,
		onComplete: cfg.OnComplete,
		now:        cfg.Now,
		logger:     cfg.Logger,
	}
}

// Add puts one unit of p in the cart.
func (m *Machine) Add(p catalog.Product) (Notice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate.Pending() {
		return Notice{}, ErrCheckoutPending
	}
	return m.cart.Add(p), nil
}

// UpdateQuantity changes a line's quantity by delta within [1, stock].
func (m *Machine) UpdateQuantity(productID string, delta int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate.Pending() {
		return false, ErrCheckoutPending
	}
	return m.cart.UpdateQuantity(productID, delta), nil
}

// Remove drops a line from the cart.
func (m *Machine) Remove(productID string) (Notice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate.Pending() {
		return Notice{}, ErrCheckoutPending
	}
	return m.cart.Remove(productID), nil
}

// ApplyCoupon replaces the discount with the one granted by code.
func (m *Machine) ApplyCoupon(code string) (Notice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate.Pending() {
		return Notice{}, ErrCheckoutPending
	}
	return m.discount.Apply(code), nil
}

// View returns the current cart, totals, and checkout status.
func (m *Machine) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.cart.Items()
	return View{
		Items:    items,
		Totals:   ComputeTotals(items, m.discount.Percent),
		Discount: m.discount,
		Checkout: m.gate.Status(),
	}
}

// Status returns the checkout status.
func (m *Machine) Status() task.Status {
	return m.gate.Status()
}

// LastOutcome returns the result of the most recent completed checkout.
func (m *Machine) LastOutcome() (Outcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return Outcome{}, false
	}
	return *m.last, true
}

// Checkout freezes the cart and submits it to the payment processor in
// the background. The returned task resolves with the outcome; its error
// is the processor's decline reason, if any. Cancelling ctx does not
// abort the checkout.
func (m *Machine) Checkout(ctx context.Context) (*task.Task[Outcome], error) {
	m.mu.Lock()
	if m.cart.Len() == 0 {
		m.mu.Unlock()
		return nil, ErrEmptyCart
	}
	if !m.gate.Begin() {
		m.mu.Unlock()
		return nil, ErrCheckoutPending
	}
	items := m.cart.Items()
	order := Order{
		ID:       "ord_" + uuid.NewString(),
		Items:    items,
		Totals:   ComputeTotals(items, m.discount.Percent),
		Coupon:   m.discount.Code,
		PlacedAt: m.now(),
	}
	m.mu.Unlock()

	t := task.New[Outcome]()
	go m.run(context.WithoutCancel(ctx), order, t)
	return t, nil
}

func (m *Machine) run(ctx context.Context, order Order, t *task.Task[Outcome]) {
	ctx, span := tracer.Start(ctx, "cart.checkout", trace.WithAttributes(
		attribute.String("order.id", order.ID),
		attribute.Int64("order.subtotal", order.Totals.Subtotal),
		attribute.Int("order.lines", len(order.Items)),
	))
	defer span.End()

	err := m.processor.Authorize(ctx, order)

	out := Outcome{Order: order}
	m.mu.Lock()
	if err != nil {
		out.Status = task.StatusFailed
		out.Notice = failure(msgCheckoutFailed)
		out.Reason = err.Error()
		out.Err = err
		m.gate.Finish(false)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		m.cart.Clear()
		m.discount = Discount{}
		out.Status = task.StatusSucceeded
		out.Notice = success(msgCheckoutSucceeded)
		out.RewardTriggered = true
		m.gate.Finish(true)
	}
	m.last = &out
	m.mu.Unlock()

	m.logger.Info("checkout completed",
		"order_id", order.ID,
		"status", out.Status,
		"subtotal", order.Totals.Subtotal,
		"reason", out.Reason,
	)

	if m.onComplete != nil {
		m.onComplete(out)
	}
	t.Resolve(out, out.Err)
}
