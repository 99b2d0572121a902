package paperexec

import (
	"context"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"hlcopy/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, nil))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestPlaceOrderRejectsInvertedBounds(t *testing.T) {
	t.Parallel()

	e := New(testLogger(), 1)
	_, err := e.PlaceOrder(context.Background(), types.Long, "BTC", decimal.NewFromInt(100), decimal.NewFromInt(90), decimal.NewFromInt(1000))
	if err == nil {
		t.Fatal("expected error for limit_low > limit_high")
	}
}

func TestPollFillFillsAtMidpoint(t *testing.T) {
	t.Parallel()

	e := New(testLogger(), 1)
	id, err := e.PlaceOrder(context.Background(), types.Long, "BTC", decimal.NewFromInt(95), decimal.NewFromInt(105), decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}

	fill, err := e.PollFill(context.Background(), id)
	if err != nil {
		t.Fatalf("PollFill() error = %v", err)
	}
	if fill.Status != types.OrderFilled {
		t.Fatalf("Status = %v, want Filled", fill.Status)
	}
	if !fill.FillPrice.Equal(decimal.NewFromInt(100)) {
		t.Errorf("FillPrice = %v, want 100 (midpoint)", fill.FillPrice)
	}
	wantSize := decimal.NewFromInt(1000).Div(decimal.NewFromInt(100))
	if !fill.FillSize.Equal(wantSize) {
		t.Errorf("FillSize = %v, want %v", fill.FillSize, wantSize)
	}
}

func TestPollFillIsIdempotentOnceTerminal(t *testing.T) {
	t.Parallel()

	e := New(testLogger(), 1)
	id, _ := e.PlaceOrder(context.Background(), types.Short, "ETH", decimal.NewFromInt(10), decimal.NewFromInt(20), decimal.NewFromInt(100))

	first, _ := e.PollFill(context.Background(), id)
	second, _ := e.PollFill(context.Background(), id)

	if first != second {
		t.Errorf("repeated polls of a terminal order diverged: %+v vs %+v", first, second)
	}
}

func TestPollFillAlwaysFailsWithFullFailureRate(t *testing.T) {
	t.Parallel()

	e := New(testLogger(), 1, WithFailureRate(1.0))
	id, _ := e.PlaceOrder(context.Background(), types.Long, "BTC", decimal.NewFromInt(95), decimal.NewFromInt(105), decimal.NewFromInt(1000))

	fill, err := e.PollFill(context.Background(), id)
	if err != nil {
		t.Fatalf("PollFill() error = %v", err)
	}
	if fill.Status != types.OrderFailed {
		t.Errorf("Status = %v, want Failed with failPct=1.0", fill.Status)
	}
}

func TestCancelOrderOnNonTerminalOrder(t *testing.T) {
	t.Parallel()

	e := New(testLogger(), 1, WithFailureRate(1.0)) // force non-fill so we can race a cancel before polling
	id, _ := e.PlaceOrder(context.Background(), types.Long, "BTC", decimal.NewFromInt(95), decimal.NewFromInt(105), decimal.NewFromInt(1000))

	if err := e.CancelOrder(context.Background(), id); err != nil {
		t.Fatalf("CancelOrder() error = %v", err)
	}

	fill, err := e.PollFill(context.Background(), id)
	if err != nil {
		t.Fatalf("PollFill() error = %v", err)
	}
	if fill.Status != types.OrderCancelled {
		t.Errorf("Status = %v, want Cancelled after CancelOrder", fill.Status)
	}
}

func TestBoundsFromSlippage(t *testing.T) {
	t.Parallel()

	low, high := BoundsFromSlippage(decimal.NewFromInt(100), 50) // 0.5%
	if !low.Equal(decimal.NewFromFloat(99.5)) {
		t.Errorf("low = %v, want 99.5", low)
	}
	if !high.Equal(decimal.NewFromFloat(100.5)) {
		t.Errorf("high = %v, want 100.5", high)
	}
}
