package marketclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hlcopy/internal/ratelimit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testLimits(t *testing.T) *ratelimit.Group {
	t.Helper()
	return ratelimit.NewGroup(ratelimit.Config{
		LeaderboardPerSecond: 100, LeaderboardPerMinute: 0,
		PositionPerSecond: 100, PositionPerMinute: 0,
		TradePerSecond: 100, TradePerMinute: 0,
	})
}

func TestFetchLeaderboardParsesEntries(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/leaderboard" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(leaderboardResponseDTO{
			Entries: []leaderboardEntryDTO{
				{Address: "0xAbC0000000000000000000000000000000000001", Label: "Alpha", AccountValue: "125000.50"},
				{Address: "not-an-address", Label: "Bad", AccountValue: "1"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", testLimits(t), testLogger())
	entries, err := c.FetchLeaderboard(context.Background())
	if err != nil {
		t.Fatalf("FetchLeaderboard() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 valid entry (malformed address skipped), got %d", len(entries))
	}
	if entries[0].AccountValue != 125000.50 {
		t.Errorf("AccountValue = %v, want 125000.50", entries[0].AccountValue)
	}
	if entries[0].Label != "Alpha" {
		t.Errorf("Label = %q, want Alpha", entries[0].Label)
	}
}

func TestFetchAddressTradesPaginates(t *testing.T) {
	t.Parallel()

	pages := []tradeHistoryResponseDTO{
		{
			Trades: []tradeDTO{
				{Token: "BTC", Side: "B", Size: "1.5", Price: "60000", Dir: "Open Long", TxHash: "0xaaa", TimestampMs: 1000},
			},
			Cursor: "page2",
		},
		{
			Trades: []tradeDTO{
				{Token: "ETH", Side: "A", Size: "-2", Price: "3000", Dir: "Open Short", TxHash: "0xbbb", TimestampMs: 2000},
			},
			Cursor: "",
		},
	}
	call := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if call >= len(pages) {
			t.Fatalf("unexpected extra request")
		}
		json.NewEncoder(w).Encode(pages[call])
		call++
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", testLimits(t), testLogger())
	trades, err := c.FetchAddressTrades(context.Background(), "0xAbC0000000000000000000000000000000000001", time.Unix(0, 0))
	if err != nil {
		t.Fatalf("FetchAddressTrades() error = %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades across pages, got %d", len(trades))
	}
	if trades[0].Token != "BTC" || trades[1].Token != "ETH" {
		t.Errorf("unexpected trade order: %+v", trades)
	}
	if call != 2 {
		t.Errorf("expected 2 paginated requests, got %d", call)
	}
}

func TestFetchAddressTradesCapsAtMaxPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		trades := make([]tradeDTO, 10)
		for i := range trades {
			trades[i] = tradeDTO{Token: "BTC", Side: "B", Size: "1", Price: "100", Dir: "Open Long", TxHash: fmt.Sprintf("0x%d", i), TimestampMs: 1000}
		}
		json.NewEncoder(w).Encode(tradeHistoryResponseDTO{Trades: trades, Cursor: "more"})
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", testLimits(t), testLogger(), WithMaxPageRecords(15))
	trades, err := c.FetchAddressTrades(context.Background(), "0xAbC0000000000000000000000000000000000001", time.Unix(0, 0))
	if err != nil {
		t.Fatalf("FetchAddressTrades() error = %v", err)
	}
	if len(trades) != 15 {
		t.Errorf("expected pagination cap of 15, got %d", len(trades))
	}
}

func TestFetchAddressPositionsParsesBook(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(positionsResponseDTO{
			AccountValue: "50000",
			Positions: []assetPositionDTO{
				{Token: "BTC", Size: "1.2", EntryPrice: "58000", MarkPrice: "60000", Leverage: "5", LeverageType: "cross", LiquidationPrice: "40000", UnrealizedPnL: "2400", MarginUsed: "14000"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", testLimits(t), testLogger())
	result, err := c.FetchAddressPositions(context.Background(), "0xAbC0000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("FetchAddressPositions() error = %v", err)
	}
	if result.AccountValue != 50000 {
		t.Errorf("AccountValue = %v, want 50000", result.AccountValue)
	}
	if len(result.Positions) != 1 || result.Positions[0].Token != "BTC" {
		t.Fatalf("unexpected positions: %+v", result.Positions)
	}
	if result.Positions[0].Side != "LONG" {
		t.Errorf("Side = %v, want LONG", result.Positions[0].Side)
	}
}

func TestFetchLeaderboardSurfacesApiError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad request"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", testLimits(t), testLogger())
	_, err := c.FetchLeaderboard(context.Background())
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
}
