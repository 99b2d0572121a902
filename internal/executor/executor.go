// Package executor turns a PortfolioEngine rebalance diff into orders
// against the paper-trading capability, and commits the resulting fills
// to the engine's own book. Every OpenPosition mutation here is
// all-or-nothing: a fill either commits entry price, size, and stop
// fields together, or nothing is written at all.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"hlcopy/internal/hlerr"
	"hlcopy/internal/paperexec"
	"hlcopy/internal/rebalancelock"
	"hlcopy/pkg/types"
)

// MarkPriceSource supplies the reference price an action is priced
// against.
type MarkPriceSource interface {
	MarkPrice(ctx context.Context, token string) (decimal.Decimal, error)
}

// OrderPlacer is the paper-trading capability contract: place_order/
// poll_fill, with cancellation for abandoning a stalled order.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, side types.Side, token string, limitLow, limitHigh, targetNotional decimal.Decimal) (string, error)
	PollFill(ctx context.Context, orderID string) (paperexec.Fill, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// Repository is the slice of internal/store the Executor needs: reading
// and writing OpenPosition/Order rows. Declared locally so the package
// doesn't import internal/store directly, matching the scorer's
// BlacklistChecker decoupling.
type Repository interface {
	OpenPositionByToken(token string) (*types.OpenPosition, error)
	CreateOpenPosition(p types.OpenPosition) (*types.OpenPosition, error)
	SaveOpenPosition(p types.OpenPosition) error
	CreateOrder(o types.Order) (*types.Order, error)
	SaveOrder(o types.Order) error
}

// Config parameterizes slippage bounds, fill polling, and the stop fields
// stamped onto a newly-opened position.
type Config struct {
	SlippageBps     int
	StopLossBps     int
	TrailingBps     int
	MaxHoldDuration time.Duration
	PollAttempts    int
	PollInterval    time.Duration
	MinTradeSize    decimal.Decimal
}

// Executor turns rebalance diffs into orders and fills. It is safe for
// concurrent use only insofar as callers serialize access through lock;
// the Executor itself does not spawn goroutines.
type Executor struct {
	repo   Repository
	marks  MarkPriceSource
	orders OrderPlacer
	lock   *rebalancelock.Lock
	cfg    Config
	logger *slog.Logger
}

// New wires an Executor. lock is shared with the Monitor (internal/
// rebalancelock) so the two never race on OpenPosition.
func New(repo Repository, marks MarkPriceSource, orders OrderPlacer, lock *rebalancelock.Lock, cfg Config, logger *slog.Logger) *Executor {
	return &Executor{
		repo:   repo,
		marks:  marks,
		orders: orders,
		lock:   lock,
		cfg:    cfg,
		logger: logger.With("component", "executor"),
	}
}

// ExecuteDiff runs every action of a rebalance diff in order (the caller
// must have already sorted CLOSE, ADJUST, OPEN). A single action's
// failure is logged and does not abort the remaining actions: a failed
// action is not retried within the cycle, but the rest of the batch still
// runs.
func (x *Executor) ExecuteDiff(ctx context.Context, actions []types.RebalanceAction) {
	for _, action := range actions {
		if action.Kind == types.ActionKindNoop {
			continue
		}
		if err := x.executeOne(ctx, action); err != nil {
			x.logger.Error("action failed",
				"kind", action.Kind, "token", action.Token, "side", action.Side, "error", err,
			)
		}
	}
}

func (x *Executor) executeOne(ctx context.Context, action types.RebalanceAction) error {
	var err error
	x.lock.WithWriteLock(func() {
		err = x.dispatch(ctx, action)
	})
	return err
}

func (x *Executor) dispatch(ctx context.Context, action types.RebalanceAction) error {
	mark, err := x.marks.MarkPrice(ctx, action.Token)
	if err != nil {
		return hlerr.Wrap(hlerr.TransientNetwork, "mark price", err)
	}

	low, high := paperexec.BoundsFromSlippage(mark, x.cfg.SlippageBps)
	notional := action.DeltaNotional.Abs()
	if notional.LessThan(x.cfg.MinTradeSize) {
		return nil // below tradeable size, nothing to do
	}

	orderID, err := x.orders.PlaceOrder(ctx, action.Side, action.Token, low, high, notional)
	if err != nil {
		return fmt.Errorf("place order: %w", err)
	}

	order, err := x.repo.CreateOrder(types.Order{
		Side:           action.Side,
		Token:          action.Token,
		LimitLow:       low,
		LimitHigh:      high,
		TargetNotional: notional,
		Status:         types.OrderPending,
		ActionKind:     action.Kind,
		ExternalID:     orderID,
		CreatedAt:      now(),
		UpdatedAt:      now(),
	})
	if err != nil {
		return fmt.Errorf("persist order: %w", err)
	}

	fill, err := x.pollUntilTerminal(ctx, orderID)
	if err != nil {
		return err
	}

	order.Status = fill.Status
	order.FillPrice = fill.FillPrice
	order.FillSize = fill.FillSize
	order.UpdatedAt = now()
	if fill.Status.Terminal() && fill.Status == types.OrderFilled {
		t := now()
		order.FillTime = &t
	}
	if err := x.repo.SaveOrder(*order); err != nil {
		return fmt.Errorf("persist order transition: %w", err)
	}

	if fill.Status != types.OrderFilled {
		x.logger.Warn("order did not fill", "order_id", orderID, "status", fill.Status, "action", action.Kind)
		return nil
	}

	return x.commitFill(action, fill)
}

// pollUntilTerminal polls up to PollAttempts times, sleeping PollInterval
// between attempts, returning the terminal fill.
func (x *Executor) pollUntilTerminal(ctx context.Context, orderID string) (paperexec.Fill, error) {
	var last paperexec.Fill
	for attempt := 0; attempt < x.cfg.PollAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		fill, err := x.orders.PollFill(ctx, orderID)
		if err != nil {
			return last, fmt.Errorf("poll fill: %w", err)
		}
		last = fill
		if fill.Status.Terminal() {
			return fill, nil
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(x.cfg.PollInterval):
		}
	}
	if err := x.orders.CancelOrder(ctx, orderID); err != nil {
		x.logger.Error("cancel stalled order failed", "order_id", orderID, "error", err)
	}
	last.Status = types.OrderCancelled
	return last, nil
}

// commitFill performs the atomic OpenPosition mutation for a fill. Every
// branch either writes the full set of fields a fill requires or returns
// an error before touching the store, so there are no partial writes.
func (x *Executor) commitFill(action types.RebalanceAction, fill paperexec.Fill) error {
	switch action.Kind {
	case types.ActionKindOpen:
		return x.commitOpen(action, fill)
	case types.ActionKindAdjust:
		return x.commitAdjust(action, fill)
	case types.ActionKindClose:
		return x.commitClose(action, fill)
	default:
		return fmt.Errorf("commitFill: unexpected action kind %s", action.Kind)
	}
}

func (x *Executor) commitOpen(action types.RebalanceAction, fill paperexec.Fill) error {
	stopLoss := stopLossPrice(action.Side, fill.FillPrice, x.cfg.StopLossBps)
	pos := types.OpenPosition{
		Token:             action.Token,
		Side:              action.Side,
		EntryPrice:        fill.FillPrice,
		Size:              fill.FillSize,
		Notional:          action.TargetNotional,
		OpenedAt:          now(),
		StopLossPrice:     stopLoss,
		TrailingPeak:      fill.FillPrice,
		TrailingStopPrice: trailingStopPrice(action.Side, fill.FillPrice, x.cfg.TrailingBps),
		TimeStopAt:        now().Add(x.cfg.MaxHoldDuration),
	}
	if _, err := x.repo.CreateOpenPosition(pos); err != nil {
		return fmt.Errorf("commit open %s: %w", action.Token, err)
	}
	return nil
}

func (x *Executor) commitAdjust(action types.RebalanceAction, fill paperexec.Fill) error {
	existing, err := x.repo.OpenPositionByToken(action.Token)
	if err != nil {
		return fmt.Errorf("lookup position for adjust %s: %w", action.Token, err)
	}
	if existing == nil {
		return fmt.Errorf("adjust on %s with no existing open position", action.Token)
	}

	existing.Size = existing.Size.Add(signedSize(action.Side, fill.FillSize))
	existing.Notional = action.TargetNotional
	if err := x.repo.SaveOpenPosition(*existing); err != nil {
		return fmt.Errorf("commit adjust %s: %w", action.Token, err)
	}
	return nil
}

func (x *Executor) commitClose(action types.RebalanceAction, fill paperexec.Fill) error {
	existing, err := x.repo.OpenPositionByToken(action.Token)
	if err != nil {
		return fmt.Errorf("lookup position for close %s: %w", action.Token, err)
	}
	if existing == nil {
		return nil // already closed, duplicate close request is a no-op
	}

	existing.RealizedPnL = realizedPnL(existing.Side, existing.EntryPrice, fill.FillPrice, existing.Size)
	t := now()
	existing.ClosedAt = &t
	if err := x.repo.SaveOpenPosition(*existing); err != nil {
		return fmt.Errorf("commit close %s: %w", action.Token, err)
	}
	return nil
}

func stopLossPrice(side types.Side, entry decimal.Decimal, bps int) decimal.Decimal {
	frac := decimal.NewFromInt(int64(bps)).Div(decimal.NewFromInt(10000))
	delta := entry.Mul(frac)
	if side == types.Short {
		return entry.Add(delta)
	}
	return entry.Sub(delta)
}

func trailingStopPrice(side types.Side, peak decimal.Decimal, bps int) decimal.Decimal {
	frac := decimal.NewFromInt(int64(bps)).Div(decimal.NewFromInt(10000))
	if side == types.Short {
		return peak.Mul(decimal.NewFromInt(1).Add(frac))
	}
	return peak.Mul(decimal.NewFromInt(1).Sub(frac))
}

func signedSize(side types.Side, size decimal.Decimal) decimal.Decimal {
	if side == types.Short {
		return size.Neg()
	}
	return size
}

func realizedPnL(side types.Side, entry, exit, size decimal.Decimal) decimal.Decimal {
	diff := exit.Sub(entry)
	if side == types.Short {
		diff = diff.Neg()
	}
	return diff.Mul(size.Abs())
}

var now = time.Now
