package ratelimit

import "time"

// Group composes the three named limiters the MarketClient calls before
// each request category.
type Group struct {
	Leaderboard *Named
	Position    *Named
	Trade       *Named

	persistPath string
}

// Config configures the per-category ceilings. TradeMinInterval is the
// Trade limiter's floor spacing, typically tighter than its per-second
// ceiling alone would enforce.
type Config struct {
	LeaderboardPerSecond, LeaderboardPerMinute int
	PositionPerSecond, PositionPerMinute       int
	TradePerSecond, TradePerMinute             int
	TradeMinInterval                           time.Duration
	PersistPath                                string
}

// NewGroup builds a Group from Config. If cfg.PersistPath is non-empty and
// a snapshot exists there, recent usage is restored so a restart doesn't
// reset the window and burst past the upstream's true ceiling.
func NewGroup(cfg Config) *Group {
	g := &Group{
		Leaderboard: &Named{name: "leaderboard", window: NewSlidingWindow(cfg.LeaderboardPerSecond, cfg.LeaderboardPerMinute)},
		Position:    &Named{name: "position", window: NewSlidingWindow(cfg.PositionPerSecond, cfg.PositionPerMinute)},
		Trade: &Named{
			name:   "trade",
			window: NewSlidingWindow(cfg.TradePerSecond, cfg.TradePerMinute),
		},
		persistPath: cfg.PersistPath,
	}
	if cfg.TradeMinInterval > 0 {
		g.Trade.interval = NewMinInterval(cfg.TradeMinInterval)
	}
	return g
}
