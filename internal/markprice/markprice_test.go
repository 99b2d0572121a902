package markprice

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSetThenMarkPriceRoundTrips(t *testing.T) {
	t.Parallel()

	c := New()
	c.Set("BTC", decimal.NewFromInt(65000))

	got, err := c.MarkPrice(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("MarkPrice() error = %v", err)
	}
	if !got.Equal(decimal.NewFromInt(65000)) {
		t.Errorf("MarkPrice() = %v, want 65000", got)
	}
}

func TestMarkPriceErrorsOnUnknownToken(t *testing.T) {
	t.Parallel()

	c := New()
	if _, err := c.MarkPrice(context.Background(), "DOGE"); err == nil {
		t.Error("expected error for unobserved token")
	}
}
