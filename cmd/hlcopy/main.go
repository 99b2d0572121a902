// Hyperliquid copytrading core: a single-process daemon that scores
// Hyperliquid perpetual-futures traders from their public position
// history, allocates a paper-trading account across the top performers,
// and mirrors their books under a risk overlay and a stop-loss/
// trailing-stop/time-stop monitor.
//
// Architecture:
//
//	main.go                entry point: loads config, starts the daemon, waits for SIGINT/SIGTERM
//	internal/daemon        orchestrator: wires every component, exposes the four cadence jobs
//	internal/scorer        stage A-E scoring pipeline over a trader's position-snapshot history
//	internal/portfolio     softmax weighting, six-stage risk overlay, rebalance diffing
//	internal/executor      turns a rebalance diff into paper-trading orders and book mutations
//	internal/monitor       stop-loss/trailing-stop/time-stop enforcement over the open book
//	internal/scheduler     tick-based cooperative scheduler across the four cadences
//	internal/marketclient  REST client against the upstream leaderboard/trades/positions API
//	internal/store         gorm/sqlite persistence for every table of the data model
//	internal/health        /health and /status HTTP endpoints
//
// Exit codes: 0 clean shutdown, 1 runtime failure, 2 configuration error.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"hlcopy/internal/config"
	"hlcopy/internal/daemon"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("HL_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		return 2
	}

	logger := slog.New(newHandler(cfg.Logging.Format, cfg.Logging.Level))

	d, err := daemon.New(*cfg, logger)
	if err != nil {
		logger.Error("failed to build daemon", "error", err)
		return 1
	}

	logger.Info("hlcopy starting",
		"paper_trade", cfg.PaperTrade,
		"account_value", cfg.AccountValue.String(),
		"top_n", cfg.Scoring.TopN,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Start(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	cancel()
	<-done

	if err := d.Stop(); err != nil {
		logger.Error("shutdown error", "error", err)
		return 1
	}
	return 0
}

func newHandler(format, level string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if format == "json" {
		return slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.NewTextHandler(os.Stdout, opts)
}

func parseLevel(level string) slog.Level {
	switch config.ParseLogLevel(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
