// Package scheduler runs four cadences in a single cooperative loop with
// strict priority and missed-tick coalescing, persisting each cadence's
// last-run timestamp so a restart resumes on schedule rather than firing
// every job immediately. One goroutine drives one ticker, selecting over
// done/trigger channels each tick.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"hlcopy/pkg/types"
)

// Cadence identifies one of the four scheduled jobs, in priority order
// (index 0 is highest priority).
type Cadence int

const (
	CadenceRefresh Cadence = iota
	CadenceRebalance
	CadenceMonitor
	CadenceIngest
	cadenceCount
)

func (c Cadence) String() string {
	switch c {
	case CadenceRefresh:
		return "refresh"
	case CadenceRebalance:
		return "rebalance"
	case CadenceMonitor:
		return "monitor"
	case CadenceIngest:
		return "ingest"
	default:
		return "unknown"
	}
}

// Job is one cadence's unit of work. A job that returns an error is
// logged but never retried before its next scheduled tick.
type Job func(ctx context.Context) error

// StateRepository is the scheduler's own persistence surface: reading
// SchedulerState at startup, writing it after each successful cadence.
type StateRepository interface {
	GetSchedulerState() (*types.SchedulerState, error)
	SaveSchedulerState(state types.SchedulerState) error
}

// Config sets the four cadence intervals and scheduling thresholds.
type Config struct {
	RefreshInterval     time.Duration
	RebalanceInterval   time.Duration
	MonitorInterval     time.Duration
	IngestInterval      time.Duration
	TickInterval        time.Duration
	MissedTickThreshold time.Duration
	ShutdownGrace       time.Duration
}

// Scheduler drives the four cadences from a single ticker loop.
type Scheduler struct {
	repo   StateRepository
	jobs   [cadenceCount]Job
	cfg    Config
	logger *slog.Logger

	// startup is true only for the very first tick, when a missed-tick
	// catch-up window is allowed so a cold start after downtime doesn't
	// wait out a full fresh interval before resuming. Cleared after that
	// first tick so steady-state ticks use the exact interval.
	startup bool
}

// New wires a Scheduler. jobs must be indexed by Cadence and all four
// must be non-nil.
func New(repo StateRepository, jobs [4]Job, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &Scheduler{
		repo:    repo,
		jobs:    jobs,
		cfg:     cfg,
		logger:  logger.With("component", "scheduler"),
		startup: true,
	}
}

func (c Cadence) interval(cfg Config) time.Duration {
	switch c {
	case CadenceRefresh:
		return cfg.RefreshInterval
	case CadenceRebalance:
		return cfg.RebalanceInterval
	case CadenceMonitor:
		return cfg.MonitorInterval
	case CadenceIngest:
		return cfg.IngestInterval
	default:
		return 0
	}
}

func lastRun(state types.SchedulerState, c Cadence) time.Time {
	switch c {
	case CadenceRefresh:
		return state.LastRefreshAt
	case CadenceRebalance:
		return state.LastRebalanceAt
	case CadenceMonitor:
		return state.LastMonitorAt
	case CadenceIngest:
		return state.LastIngestAt
	default:
		return time.Time{}
	}
}

func withLastRun(state types.SchedulerState, c Cadence, at time.Time) types.SchedulerState {
	switch c {
	case CadenceRefresh:
		state.LastRefreshAt = at
	case CadenceRebalance:
		state.LastRebalanceAt = at
	case CadenceMonitor:
		state.LastMonitorAt = at
	case CadenceIngest:
		state.LastIngestAt = at
	}
	return state
}

// Run executes the scheduler's loop until ctx is cancelled. On entry it
// ticks once immediately: that tick reads SchedulerState and runs the
// highest-priority cadence that is due (or within the missed-tick
// threshold of due), coalescing multiple missed ticks into one run, so
// a cold start after downtime doesn't fire every cadence at once.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "tick_interval", s.cfg.TickInterval)

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick checks all four cadences for due-ness and runs at most one job:
// the single highest-priority cadence that is due. Lower-priority due
// cadences are deferred to the next tick.
func (s *Scheduler) tick(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}

	state, err := s.repo.GetSchedulerState()
	if err != nil {
		s.logger.Error("read scheduler state failed", "error", err)
		return
	}

	startup := s.startup
	s.startup = false

	now := timeNow()
	for c := Cadence(0); c < cadenceCount; c++ {
		due := isDue(*state, c, s.cfg, now, startup)
		if !due {
			continue
		}
		s.runCadence(ctx, c, *state)
		return // highest-priority due cadence wins; rest wait for next tick
	}
}

// isDue reports whether cadence c should run now. In steady state it
// requires the full interval to have elapsed. On the process's first tick
// only, a cadence that is within MissedTickThreshold of becoming due is
// also treated as due, coalescing a tick missed during prior downtime into
// one immediate catch-up run rather than waiting out a fresh interval.
func isDue(state types.SchedulerState, c Cadence, cfg Config, now time.Time, startup bool) bool {
	interval := c.interval(cfg)
	if interval <= 0 {
		return false
	}
	last := lastRun(state, c)
	if last.IsZero() {
		return true // never run
	}
	elapsed := now.Sub(last)
	if elapsed >= interval {
		return true
	}
	return startup && elapsed >= interval-cfg.MissedTickThreshold
}

func (s *Scheduler) runCadence(ctx context.Context, c Cadence, state types.SchedulerState) {
	job := s.jobs[c]
	if job == nil {
		return
	}

	start := timeNow()
	s.logger.Info("cadence starting", "cadence", c)

	if err := job(ctx); err != nil {
		s.logger.Error("cadence failed", "cadence", c, "error", err, "elapsed", timeNow().Sub(start))
		return
	}

	updated := withLastRun(state, c, start)
	if err := s.repo.SaveSchedulerState(updated); err != nil {
		s.logger.Error("persist scheduler state failed", "cadence", c, "error", err)
		return
	}

	s.logger.Info("cadence completed", "cadence", c, "elapsed", timeNow().Sub(start))
}

func (s *Scheduler) shutdown() {
	s.logger.Info("scheduler stopping", "grace_period", s.cfg.ShutdownGrace)
}

var timeNow = time.Now
