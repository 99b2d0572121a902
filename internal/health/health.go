// Package health implements the daemon's health surface: a small
// net/http server exposing /health and /status (http.NewServeMux, an
// http.Server with explicit timeouts) reporting scheduler cadence
// freshness and the most recent cadence error as plain JSON.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"hlcopy/internal/hlerr"
	"hlcopy/pkg/types"
)

// StateRepository is the read surface used to populate /status: the
// scheduler's last-run timestamps and the current open-position count.
type StateRepository interface {
	GetSchedulerState() (*types.SchedulerState, error)
	OpenPositions() ([]types.OpenPosition, error)
}

// LastError is the most recent error kind+timestamp observed by any
// cadence, updated by the caller (the daemon's wrapper around each
// cadence job) via RecordError.
type LastError struct {
	Kind hlerr.Kind `json:"kind"`
	At   time.Time  `json:"at"`
}

// Server is the daemon's health endpoint.
type Server struct {
	repo       StateRepository
	server     *http.Server
	logger     *slog.Logger
	mu         sync.Mutex
	lastError  LastError
	setLastErr chan LastError
}

// statusResponse is the JSON body of GET /status.
type statusResponse struct {
	LastRefreshAt    time.Time  `json:"last_refresh_at"`
	LastRebalanceAt  time.Time  `json:"last_rebalance_at"`
	LastMonitorAt    time.Time  `json:"last_monitor_at"`
	LastIngestAt     time.Time  `json:"last_ingest_at"`
	OpenPositions    int        `json:"open_positions"`
	LastError        *LastError `json:"last_error,omitempty"`
}

// New wires a health server listening on port.
func New(repo StateRepository, port int, logger *slog.Logger) *Server {
	s := &Server{
		repo:       repo,
		logger:     logger.With("component", "health"),
		setLastErr: make(chan LastError, 16),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until Stop is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info("health server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down within a bounded timeout.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// RecordError records the most recent error kind+timestamp for /status to
// report. Safe to call from any goroutine.
func (s *Server) RecordError(kind hlerr.Kind, at time.Time) {
	select {
	case s.setLastErr <- LastError{Kind: kind, At: at}:
	default:
		// channel full; drop, the next successful record will catch up
	}
	s.mu.Lock()
	s.drainLastError()
	s.mu.Unlock()
}

func (s *Server) drainLastError() {
	for {
		select {
		case v := <-s.setLastErr:
			s.lastError = v
		default:
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state, err := s.repo.GetSchedulerState()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	positions, err := s.repo.OpenPositions()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := statusResponse{
		LastRefreshAt:   state.LastRefreshAt,
		LastRebalanceAt: state.LastRebalanceAt,
		LastMonitorAt:   state.LastMonitorAt,
		LastIngestAt:    state.LastIngestAt,
		OpenPositions:   len(positions),
	}
	s.mu.Lock()
	lastErr := s.lastError
	s.mu.Unlock()
	if !lastErr.At.IsZero() {
		resp.LastError = &lastErr
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("encode status response failed", "error", err)
	}
}
