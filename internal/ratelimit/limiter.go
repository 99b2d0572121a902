// Package ratelimit implements the three named limiters of the
// MarketClient: Leaderboard, Position, and Trade. Each limiter enforces a
// per-second and per-minute ceiling with continuous refill to avoid
// bursty behavior at window edges, plus an optional minimum inter-request
// interval built on golang.org/x/time/rate for the Trade limiter, which
// also has a floor spacing requirement.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SlidingWindow enforces independent per-second and per-minute ceilings
// using two continuously-refilling token buckets, so a caller can never
// exceed either window even if it arrives in a burst.
type SlidingWindow struct {
	mu sync.Mutex

	secTokens, secCap, secRate float64
	minTokens, minCap, minRate float64
	lastTime                   time.Time
}

// NewSlidingWindow creates a limiter with the given per-second and
// per-minute ceilings. A ceiling of 0 disables that window's check.
func NewSlidingWindow(perSecond, perMinute int) *SlidingWindow {
	return &SlidingWindow{
		secTokens: float64(perSecond),
		secCap:    float64(perSecond),
		secRate:   float64(perSecond),
		minTokens: float64(perMinute),
		minCap:    float64(perMinute),
		minRate:   float64(perMinute) / 60.0,
		lastTime:  time.Now(),
	}
}

// Wait blocks until both windows have a token available, or ctx is done.
func (w *SlidingWindow) Wait(ctx context.Context) error {
	for {
		w.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(w.lastTime).Seconds()
		w.lastTime = now

		if w.secCap > 0 {
			w.secTokens = minF(w.secTokens+elapsed*w.secRate, w.secCap)
		}
		if w.minCap > 0 {
			w.minTokens = minF(w.minTokens+elapsed*w.minRate, w.minCap)
		}

		secOK := w.secCap <= 0 || w.secTokens >= 1
		minOK := w.minCap <= 0 || w.minTokens >= 1

		if secOK && minOK {
			if w.secCap > 0 {
				w.secTokens--
			}
			if w.minCap > 0 {
				w.minTokens--
			}
			w.mu.Unlock()
			return nil
		}

		wait := w.nextWaitLocked()
		w.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (w *SlidingWindow) nextWaitLocked() time.Duration {
	var waits []time.Duration
	if w.secCap > 0 && w.secTokens < 1 && w.secRate > 0 {
		waits = append(waits, time.Duration((1-w.secTokens)/w.secRate*float64(time.Second)))
	}
	if w.minCap > 0 && w.minTokens < 1 && w.minRate > 0 {
		waits = append(waits, time.Duration((1-w.minTokens)/w.minRate*float64(time.Second)))
	}
	longest := 10 * time.Millisecond
	for _, d := range waits {
		if d > longest {
			longest = d
		}
	}
	return longest
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// MinInterval enforces a floor spacing between requests using
// golang.org/x/time/rate, which models exactly "at most one event every d"
// when burst is 1.
type MinInterval struct {
	mu           sync.Mutex
	limiter      *rate.Limiter
	lastAdmitted time.Time
}

// NewMinInterval creates a limiter that admits at most one request every d.
func NewMinInterval(d time.Duration) *MinInterval {
	return &MinInterval{limiter: rate.NewLimiter(rate.Every(d), 1)}
}

// Wait blocks until the minimum interval has elapsed since the last
// admitted request, or ctx is done.
func (m *MinInterval) Wait(ctx context.Context) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	m.lastAdmitted = time.Now()
	m.mu.Unlock()
	return nil
}

// LastAdmitted returns the time of the most recently admitted request, or
// the zero time if none has been admitted yet, so a Group can persist it.
func (m *MinInterval) LastAdmitted() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAdmitted
}

// RestoreLastAdmitted replays a persisted last-admitted time into the
// underlying limiter so a restart doesn't refill the floor-spacing token
// that a live process would still be waiting on.
func (m *MinInterval) RestoreLastAdmitted(t time.Time) {
	if t.IsZero() {
		return
	}
	m.limiter.AllowN(t, 1)
	m.mu.Lock()
	m.lastAdmitted = t
	m.mu.Unlock()
}

// Named is a single category limiter combining a sliding window with an
// optional minimum interval floor.
type Named struct {
	name     string
	window   *SlidingWindow
	interval *MinInterval
}

// Wait blocks until both the sliding window and (if set) the minimum
// interval admit the request.
func (n *Named) Wait(ctx context.Context) error {
	if err := n.window.Wait(ctx); err != nil {
		return fmt.Errorf("ratelimit %s: %w", n.name, err)
	}
	if n.interval != nil {
		if err := n.interval.Wait(ctx); err != nil {
			return fmt.Errorf("ratelimit %s: %w", n.name, err)
		}
	}
	return nil
}
