// Package monitor implements per-tick stop-loss, trailing-stop, and
// time-stop enforcement over the engine's open positions. It reads under
// a shared acquisition of internal/rebalancelock and never mutates state
// under that read acquisition: trailing-peak ratchets are applied in
// their own brief exclusive acquisitions, and a triggered close is handed
// back to the Executor, which re-acquires the lock exclusively to perform
// the close itself.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"hlcopy/internal/rebalancelock"
	"hlcopy/pkg/types"
)

// StopReason names why a position's close was triggered.
type StopReason string

const (
	ReasonStopLoss     StopReason = "stop_loss"
	ReasonTrailingStop StopReason = "trailing_stop"
	ReasonTimeStop     StopReason = "time_stop"
)

// defaultTrailingBps is the trailing-stop distance below (above, for shorts) the
// running peak mark. Mirrors the Executor's initial trailing_stop_price
// calculation at position open.
const defaultTrailingBps = 300

// Trigger is one position that crossed a stop condition this tick.
type Trigger struct {
	Position types.OpenPosition
	Reason   StopReason
}

// MarkPriceSource supplies the current mark for a token.
type MarkPriceSource interface {
	MarkPrice(ctx context.Context, token string) (decimal.Decimal, error)
}

// Repository is the read/write surface the Monitor needs from
// internal/store: read the book in iteration order, and ratchet a
// trailing stop (the only mutation the Monitor performs itself, since it
// changes neither position size nor realized PnL).
type Repository interface {
	OpenPositions() ([]types.OpenPosition, error)
	SaveOpenPosition(p types.OpenPosition) error
}

// Closer hands a triggered stop back to the Executor, which performs the
// actual close under an exclusive lock acquisition.
type Closer interface {
	ExecuteDiff(ctx context.Context, actions []types.RebalanceAction)
}

// Monitor enforces stop-loss, trailing-stop, and time-stop rules on a tick.
type Monitor struct {
	repo        Repository
	marks       MarkPriceSource
	lock        *rebalancelock.Lock
	closer      Closer
	logger      *slog.Logger
	trailingBps int

	closing map[uint]bool // in-flight close requests, guards duplicate triggers within a tick
}

// Option configures a Monitor at construction time.
type Option func(*Monitor)

// WithTrailingBps overrides the default trailing-stop distance.
func WithTrailingBps(bps int) Option {
	return func(m *Monitor) {
		if bps > 0 {
			m.trailingBps = bps
		}
	}
}

// New wires a Monitor. lock must be the same *rebalancelock.Lock the
// Executor uses.
func New(repo Repository, marks MarkPriceSource, lock *rebalancelock.Lock, closer Closer, logger *slog.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		repo:        repo,
		marks:       marks,
		lock:        lock,
		closer:      closer,
		logger:      logger.With("component", "monitor"),
		trailingBps: defaultTrailingBps,
		closing:     make(map[uint]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunOnce performs one monitor tick: read every open position and its
// mark under a shared lock acquisition (no mutation), ratchet any
// trailing peaks that advanced (each its own brief exclusive
// acquisition), then hand any stop triggers to the Executor.
func (m *Monitor) RunOnce(ctx context.Context) error {
	var positions []types.OpenPosition
	var marks map[uint]decimal.Decimal

	m.lock.WithReadLock(func() {
		var err error
		positions, err = m.repo.OpenPositions()
		if err != nil {
			m.logger.Error("list open positions failed", "error", err)
			return
		}
		marks = make(map[uint]decimal.Decimal, len(positions))
		for _, pos := range positions {
			mark, err := m.marks.MarkPrice(ctx, pos.Token)
			if err != nil {
				m.logger.Error("mark price failed", "token", pos.Token, "error", err)
				continue
			}
			marks[pos.ID] = mark
		}
	})

	var triggers []Trigger
	for _, pos := range positions {
		mark, ok := marks[pos.ID]
		if !ok {
			continue
		}

		if ratcheted, changed := ratchetTrailingPeak(pos, mark, m.trailingBps); changed {
			m.lock.WithWriteLock(func() {
				if err := m.repo.SaveOpenPosition(ratcheted); err != nil {
					m.logger.Error("ratchet trailing peak failed", "token", pos.Token, "error", err)
				}
			})
			pos = ratcheted
		}

		if m.closing[pos.ID] {
			continue // already requested this tick; idempotent
		}
		if reason, hit := evaluateStops(pos, mark); hit {
			triggers = append(triggers, Trigger{Position: pos, Reason: reason})
			m.closing[pos.ID] = true
		}
	}

	if len(triggers) == 0 {
		return nil
	}

	actions := make([]types.RebalanceAction, len(triggers))
	for i, t := range triggers {
		m.logger.Info("stop triggered", "token", t.Position.Token, "reason", t.Reason, "position_id", t.Position.ID)
		actions[i] = types.RebalanceAction{
			Kind:            types.ActionKindClose,
			Token:           t.Position.Token,
			Side:            t.Position.Side,
			CurrentNotional: t.Position.Notional,
			DeltaNotional:   t.Position.Notional.Neg(),
		}
	}
	m.closer.ExecuteDiff(ctx, actions)

	for _, t := range triggers {
		delete(m.closing, t.Position.ID)
	}
	return nil
}

// ratchetTrailingPeak advances a position's trailing peak/stop if the
// mark has moved favorably: Long trailing_peak = max(peak, mark);
// trailing_stop = peak * (1 - trailing_bps). Mirrored for Short.
func ratchetTrailingPeak(pos types.OpenPosition, mark decimal.Decimal, bps int) (types.OpenPosition, bool) {
	frac := decimal.NewFromInt(int64(bps)).Div(decimal.NewFromInt(10000))

	if pos.Side == types.Long {
		if mark.LessThanOrEqual(pos.TrailingPeak) {
			return pos, false
		}
		pos.TrailingPeak = mark
		pos.TrailingStopPrice = mark.Mul(decimal.NewFromInt(1).Sub(frac))
		return pos, true
	}

	if mark.GreaterThanOrEqual(pos.TrailingPeak) {
		return pos, false
	}
	pos.TrailingPeak = mark
	pos.TrailingStopPrice = mark.Mul(decimal.NewFromInt(1).Add(frac))
	return pos, true
}

// evaluateStops checks the three stop conditions in order: stop-loss,
// trailing stop, then time stop.
func evaluateStops(pos types.OpenPosition, mark decimal.Decimal) (StopReason, bool) {
	if pos.Side == types.Long {
		if mark.LessThanOrEqual(pos.StopLossPrice) {
			return ReasonStopLoss, true
		}
		if mark.LessThanOrEqual(pos.TrailingStopPrice) {
			return ReasonTrailingStop, true
		}
	} else {
		if mark.GreaterThanOrEqual(pos.StopLossPrice) {
			return ReasonStopLoss, true
		}
		if mark.GreaterThanOrEqual(pos.TrailingStopPrice) {
			return ReasonTrailingStop, true
		}
	}
	if !pos.TimeStopAt.IsZero() && !time.Now().Before(pos.TimeStopAt) {
		return ReasonTimeStop, true
	}
	return "", false
}
