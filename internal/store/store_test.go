package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hlcopy/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertTraderInsertsThenUpdates(t *testing.T) {
	s := openTestStore(t)

	trader := types.Trader{Address: "0xabc", AccountValue: decimal.NewFromInt(1000), LastActive: time.Now()}
	if err := s.UpsertTrader(trader); err != nil {
		t.Fatalf("UpsertTrader() insert error = %v", err)
	}

	trader.AccountValue = decimal.NewFromInt(2000)
	if err := s.UpsertTrader(trader); err != nil {
		t.Fatalf("UpsertTrader() update error = %v", err)
	}

	got, err := s.GetTrader("0xabc")
	if err != nil {
		t.Fatalf("GetTrader() error = %v", err)
	}
	if !got.AccountValue.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("AccountValue = %v, want 2000", got.AccountValue)
	}
}

func TestInsertTradesIsIdempotentOnTxHash(t *testing.T) {
	s := openTestStore(t)

	trade := types.Trade{Trader: "0xabc", Token: "BTC", TxHash: "0xdead", Timestamp: time.Now()}
	n, err := s.InsertTrades([]types.Trade{trade})
	if err != nil {
		t.Fatalf("InsertTrades() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row inserted, got %d", n)
	}

	n2, err := s.InsertTrades([]types.Trade{trade})
	if err != nil {
		t.Fatalf("InsertTrades() re-insert error = %v", err)
	}
	if n2 != 0 {
		t.Errorf("expected re-insert of duplicate tx_hash to affect 0 rows, got %d", n2)
	}
}

func TestSnapshotsSinceOrdersAscendingAndPreloadsPositions(t *testing.T) {
	s := openTestStore(t)

	older := types.PositionSnapshot{Trader: "0xabc", CapturedAt: time.Now().Add(-2 * time.Hour),
		Positions: []types.AssetPosition{{Token: "BTC", Size: 1}}}
	newer := types.PositionSnapshot{Trader: "0xabc", CapturedAt: time.Now().Add(-time.Hour),
		Positions: []types.AssetPosition{{Token: "ETH", Size: 2}}}

	if err := s.SaveSnapshot(older); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	if err := s.SaveSnapshot(newer); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	snaps, err := s.SnapshotsSince("0xabc", time.Now().Add(-3*time.Hour))
	if err != nil {
		t.Fatalf("SnapshotsSince() error = %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].Positions[0].Token != "BTC" || snaps[1].Positions[0].Token != "ETH" {
		t.Errorf("snapshots not in ascending order: %+v", snaps)
	}
}

func TestOpenPositionsOrderingAndLookup(t *testing.T) {
	s := openTestStore(t)

	a := types.OpenPosition{Token: "ETH", OpenedAt: time.Now().Add(-time.Hour)}
	b := types.OpenPosition{Token: "BTC", OpenedAt: time.Now().Add(-2 * time.Hour)}
	if _, err := s.CreateOpenPosition(a); err != nil {
		t.Fatalf("CreateOpenPosition() error = %v", err)
	}
	if _, err := s.CreateOpenPosition(b); err != nil {
		t.Fatalf("CreateOpenPosition() error = %v", err)
	}

	positions, err := s.OpenPositions()
	if err != nil {
		t.Fatalf("OpenPositions() error = %v", err)
	}
	if len(positions) != 2 || positions[0].Token != "BTC" {
		t.Errorf("expected BTC (opened earlier) first, got %+v", positions)
	}

	found, err := s.OpenPositionByToken("ETH")
	if err != nil {
		t.Fatalf("OpenPositionByToken() error = %v", err)
	}
	if found == nil || found.Token != "ETH" {
		t.Errorf("expected to find ETH position, got %+v", found)
	}
}

func TestOpenPositionByTokenReturnsNilNilWhenAbsent(t *testing.T) {
	s := openTestStore(t)

	found, err := s.OpenPositionByToken("SOL")
	if err != nil {
		t.Fatalf("OpenPositionByToken() error = %v, want nil", err)
	}
	if found != nil {
		t.Errorf("OpenPositionByToken() = %+v, want nil for no open position", found)
	}
}

func TestIsBlacklistedMissingEntryThenPermanentEntry(t *testing.T) {
	s := openTestStore(t)

	blacklisted, err := s.IsBlacklisted("0xnotthere")
	if err != nil {
		t.Fatalf("IsBlacklisted() error = %v", err)
	}
	if blacklisted {
		t.Error("address with no entry should not be blacklisted")
	}

	if err := s.Blacklist(types.BlacklistEntry{Address: "0xbad", Reason: "wash trading"}); err != nil {
		t.Fatalf("Blacklist() error = %v", err)
	}
	blacklisted, err = s.IsBlacklisted("0xbad")
	if err != nil {
		t.Fatalf("IsBlacklisted() error = %v", err)
	}
	if !blacklisted {
		t.Error("expected permanent blacklist entry to be active")
	}
}

func TestSchedulerStateCreatedOnFirstGet(t *testing.T) {
	s := openTestStore(t)

	state, err := s.GetSchedulerState()
	if err != nil {
		t.Fatalf("GetSchedulerState() error = %v", err)
	}
	if state.ID == 0 {
		t.Error("expected scheduler state row to be created with an ID")
	}

	state.LastRebalanceAt = time.Now()
	if err := s.SaveSchedulerState(*state); err != nil {
		t.Fatalf("SaveSchedulerState() error = %v", err)
	}

	reloaded, err := s.GetSchedulerState()
	if err != nil {
		t.Fatalf("GetSchedulerState() reload error = %v", err)
	}
	if reloaded.LastRebalanceAt.IsZero() {
		t.Error("expected LastRebalanceAt to persist")
	}
}
