package ratelimit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// snapshot is the on-disk shape of a Group's recent usage, restored at
// startup so a process restart doesn't reset the sliding windows and let a
// burst through that the upstream would have throttled.
type snapshot struct {
	SavedAt              time.Time `json:"saved_at"`
	LeaderboardTokens    float64   `json:"leaderboard_tokens"`
	LeaderboardMinTokens float64   `json:"leaderboard_min_tokens"`
	PositionTokens       float64   `json:"position_tokens"`
	PositionMinTokens    float64   `json:"position_min_tokens"`
	TradeTokens          float64   `json:"trade_tokens"`
	TradeMinTokens       float64   `json:"trade_min_tokens"`
	TradeLastAdmitted    time.Time `json:"trade_last_admitted"`
}

// Save writes the current token levels to the configured persist path using
// write-temp-then-rename, so a crash mid-write never leaves a corrupt file.
func (g *Group) Save() error {
	if g.persistPath == "" {
		return nil
	}

	g.Leaderboard.window.mu.Lock()
	lbTokens := g.Leaderboard.window.secTokens
	lbMinTokens := g.Leaderboard.window.minTokens
	g.Leaderboard.window.mu.Unlock()

	g.Position.window.mu.Lock()
	posTokens := g.Position.window.secTokens
	posMinTokens := g.Position.window.minTokens
	g.Position.window.mu.Unlock()

	g.Trade.window.mu.Lock()
	tradeTokens := g.Trade.window.secTokens
	tradeMinTokens := g.Trade.window.minTokens
	g.Trade.window.mu.Unlock()

	var tradeLastAdmitted time.Time
	if g.Trade.interval != nil {
		tradeLastAdmitted = g.Trade.interval.LastAdmitted()
	}

	snap := snapshot{
		SavedAt:              time.Now(),
		LeaderboardTokens:    lbTokens,
		LeaderboardMinTokens: lbMinTokens,
		PositionTokens:       posTokens,
		PositionMinTokens:    posMinTokens,
		TradeTokens:          tradeTokens,
		TradeMinTokens:       tradeMinTokens,
		TradeLastAdmitted:    tradeLastAdmitted,
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal ratelimit snapshot: %w", err)
	}

	if dir := filepath.Dir(g.persistPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ratelimit persist dir: %w", err)
		}
	}

	tmp := g.persistPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write ratelimit snapshot: %w", err)
	}
	return os.Rename(tmp, g.persistPath)
}

// Load restores token levels from the persist path, if present. A missing
// file is not an error: the Group simply starts full, same as a fresh
// process would.
func (g *Group) Load() error {
	if g.persistPath == "" {
		return nil
	}

	data, err := os.ReadFile(g.persistPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read ratelimit snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("unmarshal ratelimit snapshot: %w", err)
	}

	// Tokens refill continuously from whatever level was saved, so seeding
	// secTokens/minTokens and setting lastTime to the snapshot's SavedAt is
	// sufficient: the next Wait refills for the elapsed downtime, and a
	// snapshot older than a full window restores full buckets.
	refillFrom := time.Now()
	if !snap.SavedAt.IsZero() && snap.SavedAt.Before(refillFrom) {
		refillFrom = snap.SavedAt
	}

	g.Leaderboard.window.mu.Lock()
	g.Leaderboard.window.secTokens = clamp(snap.LeaderboardTokens, 0, g.Leaderboard.window.secCap)
	g.Leaderboard.window.minTokens = clamp(snap.LeaderboardMinTokens, 0, g.Leaderboard.window.minCap)
	g.Leaderboard.window.lastTime = refillFrom
	g.Leaderboard.window.mu.Unlock()

	g.Position.window.mu.Lock()
	g.Position.window.secTokens = clamp(snap.PositionTokens, 0, g.Position.window.secCap)
	g.Position.window.minTokens = clamp(snap.PositionMinTokens, 0, g.Position.window.minCap)
	g.Position.window.lastTime = refillFrom
	g.Position.window.mu.Unlock()

	g.Trade.window.mu.Lock()
	g.Trade.window.secTokens = clamp(snap.TradeTokens, 0, g.Trade.window.secCap)
	g.Trade.window.minTokens = clamp(snap.TradeMinTokens, 0, g.Trade.window.minCap)
	g.Trade.window.lastTime = refillFrom
	g.Trade.window.mu.Unlock()

	if g.Trade.interval != nil {
		g.Trade.interval.RestoreLastAdmitted(snap.TradeLastAdmitted)
	}

	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}
