package daemon

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hlcopy/internal/config"
	"hlcopy/pkg/types"
)

const testTraderAddress = "0xAbC0000000000000000000000000000000000001"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig builds a minimal Config pointed at baseURL with every rate
// limit wide open and a fresh on-disk sqlite file per test, so refreshJob
// and ingestJob can run end to end against a fake upstream.
func testConfig(t *testing.T, baseURL string) config.Config {
	t.Helper()
	return config.Config{
		AccountValue: decimal.NewFromInt(100000),
		API:          config.APIConfig{BaseURL: baseURL},
		RateLimit: config.RateLimitConfig{
			LeaderboardPerSecond: 100,
			PositionPerSecond:    100,
			TradePerSecond:       100,
		},
		Scoring: config.ScoringConfig{
			WindowDays:      30,
			MinSnapshots:    1,
			MaxAvgLeverage:  50,
			MinAccountValue: 0,
			TopN:            10,
		},
		Portfolio: config.PortfolioConfig{
			Temperature:     1,
			AdjustThreshold: 0.1,
			MinTradeSize:    decimal.NewFromInt(10),
		},
		Risk: config.RiskConfig{
			MaxTraders:           10,
			PerTraderCap:         1,
			PerTokenCap:          1,
			MaxLongFraction:      1,
			MaxShortFraction:     1,
			MaxAggregateLeverage: 10,
		},
		Execution: config.ExecutionConfig{
			SlippageBps:  10,
			StopLossBps:  100,
			PollAttempts: 1,
		},
		Monitor:  config.MonitorConfig{TrailingBps: 50},
		Schedule: config.ScheduleConfig{
			RefreshInterval:   time.Hour,
			RebalanceInterval: time.Hour,
			MonitorInterval:   time.Hour,
			IngestInterval:    time.Minute,
		},
		Store: config.StoreConfig{DBPath: filepath.Join(t.TempDir(), "daemon_test.db")},
	}
}

// fakeUpstream serves the leaderboard, trade-history, and position-snapshot
// endpoints and counts how many times each was hit, so tests can assert on
// which cadence job reaches which endpoint.
type fakeUpstream struct {
	srv              *httptest.Server
	leaderboardCalls int
	tradeCalls       int
	positionCalls    int
}

func newFakeUpstream(t *testing.T, trader string) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{}

	mux := http.NewServeMux()
	mux.HandleFunc("/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		f.leaderboardCalls++
		json.NewEncoder(w).Encode(map[string]any{
			"leaderboard": []map[string]string{
				{"address": trader, "label": "Alpha", "accountValue": "100000"},
			},
		})
	})
	mux.HandleFunc("/address/trades", func(w http.ResponseWriter, r *http.Request) {
		f.tradeCalls++
		json.NewEncoder(w).Encode(map[string]any{"fills": []any{}, "cursor": ""})
	})
	mux.HandleFunc("/address/positions", func(w http.ResponseWriter, r *http.Request) {
		f.positionCalls++
		json.NewEncoder(w).Encode(map[string]any{"accountValue": "100000", "assetPositions": []any{}})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

// TestRefreshJobFetchesLeaderboardAndUpsertsTraders verifies the Refresh
// cadence, not the Ingest cadence, is the one that discovers new traders
// from the upstream leaderboard.
func TestRefreshJobFetchesLeaderboardAndUpsertsTraders(t *testing.T) {
	up := newFakeUpstream(t, testTraderAddress)

	d, err := New(testConfig(t, up.srv.URL), testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { d.store.Close() })

	if err := d.refreshJob(context.Background()); err != nil {
		t.Fatalf("refreshJob() error = %v", err)
	}

	if up.leaderboardCalls != 1 {
		t.Errorf("leaderboard calls = %d, want 1", up.leaderboardCalls)
	}
	if up.tradeCalls != 0 || up.positionCalls != 0 {
		t.Errorf("refreshJob must not fetch trades/positions, got trades=%d positions=%d", up.tradeCalls, up.positionCalls)
	}

	traders, err := d.store.ListTraders()
	if err != nil {
		t.Fatalf("ListTraders() error = %v", err)
	}
	if len(traders) != 1 {
		t.Fatalf("expected 1 upserted trader, got %d", len(traders))
	}
	if traders[0].Label != "Alpha" {
		t.Errorf("Label = %q, want Alpha", traders[0].Label)
	}
}

// TestIngestJobSkipsLeaderboardForTrackedTraders verifies the Ingest
// cadence only pulls trades/positions for already-tracked traders and
// never discovers new ones from the leaderboard.
func TestIngestJobSkipsLeaderboardForTrackedTraders(t *testing.T) {
	up := newFakeUpstream(t, testTraderAddress)

	d, err := New(testConfig(t, up.srv.URL), testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { d.store.Close() })

	if err := d.store.UpsertTrader(types.Trader{
		Address:      testTraderAddress,
		Label:        "Alpha",
		AccountValue: decimal.NewFromInt(100000),
	}); err != nil {
		t.Fatalf("UpsertTrader() error = %v", err)
	}

	if err := d.ingestJob(context.Background()); err != nil {
		t.Fatalf("ingestJob() error = %v", err)
	}

	if up.leaderboardCalls != 0 {
		t.Errorf("ingestJob must not fetch the leaderboard, got %d calls", up.leaderboardCalls)
	}
	if up.tradeCalls != 1 {
		t.Errorf("trade calls = %d, want 1", up.tradeCalls)
	}
	if up.positionCalls != 1 {
		t.Errorf("position calls = %d, want 1", up.positionCalls)
	}
}
