// Package paperexec implements the paper-trading capability contract:
// place_order/poll_fill, simulated rather than sent to a real venue. It
// is deliberately the only package allowed to fabricate a fill price; the
// Executor treats it as an opaque capability and never branches on
// whether a fill was simulated deterministically or not.
package paperexec

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hlcopy/pkg/types"
)

// MarkPriceSource supplies the reference price an order's limit bounds are
// computed from. In production this would read the latest position
// snapshot's mark price; tests can stub it directly.
type MarkPriceSource interface {
	MarkPrice(ctx context.Context, token string) (decimal.Decimal, error)
}

// Fill is the outcome of a simulated order once it reaches a terminal
// state.
type Fill struct {
	Status    types.OrderStatus
	FillPrice decimal.Decimal
	FillSize  decimal.Decimal
}

// simOrder is the internal bookkeeping for one in-flight paper order.
type simOrder struct {
	side      types.Side
	token     string
	limitLow  decimal.Decimal
	limitHigh decimal.Decimal
	notional  decimal.Decimal
	status    types.OrderStatus
	fillPrice decimal.Decimal
	fillSize  decimal.Decimal
	attempts  int
}

// Engine simulates fills at the midpoint of an order's bounded limit
// range, with a configurable failure rate for exercising the Executor's
// Failed/Cancelled handling. Safe for concurrent use.
type Engine struct {
	mu      sync.Mutex
	orders  map[string]*simOrder
	logger  *slog.Logger
	failPct float64 // [0,1], probability an order fails instead of fills
	rng     *rand.Rand
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithFailureRate sets the probability that PollFill resolves an order to
// Failed instead of Filled, for exercising retry/abandon paths in tests.
func WithFailureRate(pct float64) Option {
	return func(e *Engine) { e.failPct = pct }
}

// New creates a paper-trading engine. seed fixes the engine's randomness
// so scenario tests are reproducible; production wiring passes
// time.Now().UnixNano().
func New(logger *slog.Logger, seed int64, opts ...Option) *Engine {
	e := &Engine{
		orders: make(map[string]*simOrder),
		logger: logger.With("component", "paperexec"),
		rng:    rand.New(rand.NewSource(seed)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PlaceOrder accepts a side, token, acceptable limit price band, and a
// target notional, returning an order ID. The order fills immediately on
// the first PollFill call; there is no venue round-trip to delay it.
func (e *Engine) PlaceOrder(ctx context.Context, side types.Side, token string, limitLow, limitHigh, targetNotional decimal.Decimal) (string, error) {
	if limitLow.GreaterThan(limitHigh) {
		return "", fmt.Errorf("paperexec: limit_low %s exceeds limit_high %s", limitLow, limitHigh)
	}

	id := uuid.NewString()
	e.mu.Lock()
	e.orders[id] = &simOrder{
		side:      side,
		token:     token,
		limitLow:  limitLow,
		limitHigh: limitHigh,
		notional:  targetNotional,
		status:    types.OrderPending,
	}
	e.mu.Unlock()

	e.logger.Debug("order placed",
		"order_id", id, "token", token, "side", side,
		"limit_low", limitLow, "limit_high", limitHigh, "notional", targetNotional,
	)
	return id, nil
}

// PollFill advances the order's simulated state and reports it. Once an
// order reaches a terminal state, subsequent polls return the same
// result; polling a filled order is a no-op, not an error.
func (e *Engine) PollFill(ctx context.Context, orderID string) (Fill, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.orders[orderID]
	if !ok {
		return Fill{}, fmt.Errorf("paperexec: unknown order %s", orderID)
	}
	if o.status.Terminal() {
		return Fill{Status: o.status, FillPrice: o.fillPrice, FillSize: o.fillSize}, nil
	}

	o.attempts++

	if e.failPct > 0 && e.rng.Float64() < e.failPct {
		o.status = types.OrderFailed
		return Fill{Status: o.status}, nil
	}

	mid := o.limitLow.Add(o.limitHigh).Div(decimal.NewFromInt(2))
	size := decimal.Zero
	if mid.GreaterThan(decimal.Zero) {
		size = o.notional.Div(mid)
	}

	o.status = types.OrderFilled
	o.fillPrice = mid
	o.fillSize = size

	return Fill{Status: o.status, FillPrice: mid, FillSize: size}, nil
}

// CancelOrder marks a non-terminal order Cancelled. Cancelling an
// already-terminal order is a no-op.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.orders[orderID]
	if !ok {
		return fmt.Errorf("paperexec: unknown order %s", orderID)
	}
	if !o.status.Terminal() {
		o.status = types.OrderCancelled
	}
	return nil
}

// BoundsFromSlippage computes the limit_low/limit_high pair: mark ±
// slippage_bps.
func BoundsFromSlippage(mark decimal.Decimal, slippageBps int) (low, high decimal.Decimal) {
	frac := decimal.NewFromInt(int64(slippageBps)).Div(decimal.NewFromInt(10000))
	delta := mark.Mul(frac)
	return mark.Sub(delta), mark.Add(delta)
}

// clockNow exists so tests can observe execution timing deterministically
// without monkeypatching time.Now directly in business logic.
var clockNow = time.Now
