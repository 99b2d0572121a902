// Package daemon wires every component of the copytrading core together:
// the DataStore, the MarketClient, the Scorer, the PortfolioEngine, the
// Executor, the Monitor, and the Scheduler. cmd/hlcopy/main.go constructs
// one Daemon and calls Start/Stop around the process's signal-handling
// loop.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"hlcopy/internal/config"
	"hlcopy/internal/executor"
	"hlcopy/internal/health"
	"hlcopy/internal/hlerr"
	"hlcopy/internal/marketclient"
	"hlcopy/internal/markprice"
	"hlcopy/internal/mlscore"
	"hlcopy/internal/monitor"
	"hlcopy/internal/paperexec"
	"hlcopy/internal/portfolio"
	"hlcopy/internal/ratelimit"
	"hlcopy/internal/rebalancelock"
	"hlcopy/internal/scheduler"
	"hlcopy/internal/scorer"
	"hlcopy/internal/store"
	"hlcopy/pkg/types"
)

// Daemon owns every long-lived component and the four cadence jobs that
// drive them.
type Daemon struct {
	cfg    config.Config
	logger *slog.Logger

	store     *store.Store
	limits    *ratelimit.Group
	client    *marketclient.Client
	marks     *markprice.Cache
	predictor mlscore.Predictor

	exec   *executor.Executor
	mon    *monitor.Monitor
	sched  *scheduler.Scheduler
	health *health.Server
}

// New constructs every component and wires the scheduler's four cadence
// jobs, but starts nothing; call Start to run.
func New(cfg config.Config, logger *slog.Logger) (*Daemon, error) {
	st, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	limits := ratelimit.NewGroup(ratelimit.Config{
		LeaderboardPerSecond: cfg.RateLimit.LeaderboardPerSecond,
		LeaderboardPerMinute: cfg.RateLimit.LeaderboardPerMinute,
		PositionPerSecond:    cfg.RateLimit.PositionPerSecond,
		PositionPerMinute:    cfg.RateLimit.PositionPerMinute,
		TradePerSecond:       cfg.RateLimit.TradePerSecond,
		TradePerMinute:       cfg.RateLimit.TradePerMinute,
		TradeMinInterval:     cfg.RateLimit.TradeMinInterval,
		PersistPath:          cfg.RateLimit.PersistPath,
	})
	if cfg.RateLimit.PersistPath != "" {
		if err := limits.Load(); err != nil {
			logger.Warn("rate limiter state not restored", "error", err)
		}
	}

	client := marketclient.New(cfg.API.BaseURL, cfg.API.ApiKey, limits, logger)
	marks := markprice.New()
	lock := rebalancelock.New()
	paper := paperexec.New(logger, time.Now().UnixNano())

	exec := executor.New(st, marks, paper, lock, executor.Config{
		SlippageBps:     cfg.Execution.SlippageBps,
		StopLossBps:     cfg.Execution.StopLossBps,
		TrailingBps:     int(cfg.Monitor.TrailingBps),
		MaxHoldDuration: cfg.Execution.MaxHoldDuration,
		PollAttempts:    cfg.Execution.PollAttempts,
		PollInterval:    cfg.Execution.PollInterval,
		MinTradeSize:    cfg.Portfolio.MinTradeSize,
	}, logger)

	mon := monitor.New(st, marks, lock, exec, logger, monitor.WithTrailingBps(int(cfg.Monitor.TrailingBps)))

	d := &Daemon{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		limits:    limits,
		client:    client,
		marks:     marks,
		predictor: mlscore.NoOp{},
		exec:      exec,
		mon:       mon,
	}

	jobs := [4]scheduler.Job{
		scheduler.CadenceRefresh:   d.withHealthRecording(d.refreshJob),
		scheduler.CadenceRebalance: d.withHealthRecording(d.rebalanceJob),
		scheduler.CadenceMonitor:   d.withHealthRecording(d.monitorJob),
		scheduler.CadenceIngest:    d.withHealthRecording(d.ingestJob),
	}
	d.sched = scheduler.New(st, jobs, scheduler.Config{
		RefreshInterval:     cfg.Schedule.RefreshInterval,
		RebalanceInterval:   cfg.Schedule.RebalanceInterval,
		MonitorInterval:     cfg.Schedule.MonitorInterval,
		IngestInterval:      cfg.Schedule.IngestInterval,
		TickInterval:        cfg.Schedule.TickInterval,
		MissedTickThreshold: cfg.Schedule.MissedTickThreshold,
		ShutdownGrace:       cfg.Schedule.ShutdownGracePeriod,
	}, logger)

	if cfg.Health.Enabled {
		d.health = health.New(st, cfg.Health.Port, logger)
	}

	return d, nil
}

// Start runs the scheduler loop and, if enabled, the health server. It
// blocks until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) {
	if d.health != nil {
		go func() {
			if err := d.health.Start(); err != nil {
				d.logger.Error("health server failed", "error", err)
			}
		}()
	}
	d.sched.Run(ctx)
}

// Stop gracefully shuts down the health server and closes the store. The
// scheduler itself stops when Start's ctx is cancelled.
func (d *Daemon) Stop() error {
	if d.health != nil {
		if err := d.health.Stop(); err != nil {
			d.logger.Error("health server stop failed", "error", err)
		}
	}
	if err := d.limits.Save(); err != nil {
		d.logger.Warn("rate limiter state not persisted", "error", err)
	}
	return d.store.Close()
}

// withHealthRecording wraps a cadence job so a failure's error kind
// surfaces on the health server's /status endpoint, even though the
// scheduler itself only logs and moves on.
func (d *Daemon) withHealthRecording(job scheduler.Job) scheduler.Job {
	return func(ctx context.Context) error {
		err := job(ctx)
		if err != nil && d.health != nil {
			d.health.RecordError(hlerr.KindOf(err), time.Now())
		}
		return err
	}
}

func decimalFromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// refreshJob fetches the upstream leaderboard, updates the Trader table
// with any newly discovered addresses, then recomputes scores and target
// weights from already-ingested snapshots. This is the Refresh cadence's
// job body.
func (d *Daemon) refreshJob(ctx context.Context) error {
	board, err := d.client.FetchLeaderboard(ctx)
	if err != nil {
		return fmt.Errorf("refresh: fetch leaderboard: %w", err)
	}

	now := time.Now()
	for _, entry := range board {
		if err := d.store.UpsertTrader(types.Trader{
			Address:      entry.Address,
			Label:        entry.Label,
			AccountValue: decimalFromFloat(entry.AccountValue),
			LastActive:   now,
		}); err != nil {
			d.logger.Error("refresh: upsert trader failed", "trader", entry.Address, "error", err)
		}
	}

	traders, err := d.store.ListTraders()
	if err != nil {
		return fmt.Errorf("refresh: list traders: %w", err)
	}

	window := now.AddDate(0, 0, -d.cfg.Scoring.WindowDays)

	accountValues := make(scorer.RankedAccountValues, len(traders))
	candidates := make([]scorer.Candidate, 0, len(traders))
	for _, t := range traders {
		snaps, err := d.store.SnapshotsSince(t.Address, window)
		if err != nil {
			d.logger.Error("refresh: snapshots since failed", "trader", t.Address, "error", err)
			continue
		}
		accountValues[t.Address] = t.AccountValue
		candidates = append(candidates, scorer.Candidate{
			Address:   t.Address,
			Label:     t.Label,
			Snapshots: snaps,
		})
	}

	scores, err := scorer.ScoreAll(candidates, d.store, scorer.Config{
		MinSnapshots:    d.cfg.Scoring.MinSnapshots,
		MaxAvgLeverage:  d.cfg.Scoring.MaxAvgLeverage,
		MinAccountValue: d.cfg.Scoring.MinAccountValue,
	}, now)
	if err != nil {
		return fmt.Errorf("refresh: score all: %w", err)
	}
	if err := d.store.SaveScores(scores); err != nil {
		return fmt.Errorf("refresh: save scores: %w", err)
	}

	for i := range scores {
		if !scores[i].Eligible {
			continue
		}
		pred, err := d.predictor.Predict(ctx, scores[i].Trader)
		if err != nil {
			d.logger.Warn("ml predict failed", "trader", scores[i].Trader, "error", err)
			continue
		}
		mlscore.LogPrediction(d.logger, scores[i].Trader, scores[i].FinalComposite, pred)
		if d.cfg.Scoring.MLOverride && pred.ModelVersion != "noop" {
			scores[i].FinalComposite = pred.Score
		}
	}

	top := scorer.SelectTopN(scores, accountValues, d.cfg.Scoring.TopN)
	weights := portfolio.ComputeTargetWeights(top, d.cfg.Portfolio.Temperature)

	allocs := make([]types.Allocation, len(weights))
	for i, w := range weights {
		allocs[i] = types.Allocation{Trader: w.Trader, Weight: w.Weight, ComputedAt: now}
	}
	if err := d.store.SaveAllocations(allocs); err != nil {
		return fmt.Errorf("refresh: save allocations: %w", err)
	}

	d.logger.Info("refresh complete", "candidates", len(candidates), "eligible", len(top))
	return nil
}

// rebalanceJob expands the latest allocations into a target book via the
// risk overlay, diffs it against the current book, and hands the result
// to the Executor. This is the Rebalance cadence's job body.
func (d *Daemon) rebalanceJob(ctx context.Context) error {
	allocs, err := d.store.LatestAllocations()
	if err != nil {
		return fmt.Errorf("rebalance: latest allocations: %w", err)
	}
	if len(allocs) == 0 {
		d.logger.Info("rebalance: no allocations yet, skipping")
		return nil
	}

	weights := make([]portfolio.TraderWeight, len(allocs))
	holdings := make(map[string][]portfolio.TraderHolding, len(allocs))
	for i, a := range allocs {
		weights[i] = portfolio.TraderWeight{Trader: a.Trader, Weight: a.Weight}

		snap, err := d.store.LatestSnapshot(a.Trader)
		if err != nil {
			d.logger.Error("rebalance: latest snapshot failed", "trader", a.Trader, "error", err)
			continue
		}
		if snap == nil {
			continue
		}
		hs := make([]portfolio.TraderHolding, 0, len(snap.Positions))
		for _, p := range snap.Positions {
			hs = append(hs, portfolio.TraderHolding{
				Trader:   a.Trader,
				Token:    p.Token,
				Side:     string(p.Side),
				Notional: p.Size * p.MarkPrice,
			})
		}
		holdings[a.Trader] = hs
	}

	accountValue := d.cfg.AccountValue.InexactFloat64()
	target := portfolio.ApplyRiskOverlay(weights, holdings, accountValue, portfolio.RiskConfig{
		MaxTraders:           d.cfg.Risk.MaxTraders,
		PerTraderCap:         d.cfg.Risk.PerTraderCap,
		PerTokenCap:          d.cfg.Risk.PerTokenCap,
		MaxLongFraction:      d.cfg.Risk.MaxLongFraction,
		MaxShortFraction:     d.cfg.Risk.MaxShortFraction,
		MaxAggregateLeverage: d.cfg.Risk.MaxAggregateLeverage,
		MinTradeSize:         d.cfg.Portfolio.MinTradeSize,
	})

	open, err := d.store.OpenPositions()
	if err != nil {
		return fmt.Errorf("rebalance: open positions: %w", err)
	}
	current := make([]portfolio.TargetPosition, len(open))
	for i, p := range open {
		current[i] = portfolio.TargetPosition{Token: p.Token, Side: string(p.Side), Notional: p.Notional}
	}

	actions := portfolio.ComputeRebalanceDiffWithThreshold(current, target, d.cfg.Portfolio.AdjustThreshold)
	d.exec.ExecuteDiff(ctx, actions)

	d.logger.Info("rebalance complete", "actions", len(actions))
	return nil
}

// monitorJob runs one Monitor tick. This is the Monitor cadence's job body.
func (d *Daemon) monitorJob(ctx context.Context) error {
	return d.mon.RunOnce(ctx)
}

// ingestJob pulls fresh trade history and position snapshots for every
// already-tracked trader and updates the mark-price cache from observed
// positions. It never discovers new traders; that is the Refresh
// cadence's job. This is the Ingest cadence's job body.
func (d *Daemon) ingestJob(ctx context.Context) error {
	traders, err := d.store.ListTraders()
	if err != nil {
		return fmt.Errorf("ingest: list traders: %w", err)
	}

	now := time.Now()
	for _, t := range traders {
		since, err := d.store.LatestTradeTimestamp(t.Address)
		if err != nil {
			d.logger.Error("ingest: latest trade timestamp failed", "trader", t.Address, "error", err)
			continue
		}
		trades, err := d.client.FetchAddressTrades(ctx, t.Address, since)
		if err != nil {
			d.logger.Error("ingest: fetch trades failed", "trader", t.Address, "error", err)
		} else if _, err := d.store.InsertTrades(trades); err != nil {
			d.logger.Error("ingest: insert trades failed", "trader", t.Address, "error", err)
		}

		positions, err := d.client.FetchAddressPositions(ctx, t.Address)
		if err != nil {
			d.logger.Error("ingest: fetch positions failed", "trader", t.Address, "error", err)
			continue
		}
		snap := types.PositionSnapshot{
			Trader:        t.Address,
			SnapshotBatch: now.Format(time.RFC3339),
			AccountValue:  positions.AccountValue,
			CapturedAt:    now,
			Positions:     positions.Positions,
		}
		if err := d.store.SaveSnapshot(snap); err != nil {
			d.logger.Error("ingest: save snapshot failed", "trader", t.Address, "error", err)
			continue
		}
		for _, p := range positions.Positions {
			d.marks.Set(p.Token, decimalFromFloat(p.MarkPrice))
		}
	}

	d.logger.Info("ingest complete", "traders", len(traders))
	return nil
}
