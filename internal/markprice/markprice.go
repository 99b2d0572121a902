// Package markprice is a small concurrency-safe mark-price cache, the
// single source both the Executor and Monitor consult for a token's
// reference price. An RWMutex-guarded map is updated from inbound
// position data and read by the execution and monitoring layers; it
// holds one observed mark per token rather than a full bid/ask book,
// since this system mirrors trader positions rather than quoting its
// own.
package markprice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Cache holds the most recently observed mark price per token, updated by
// the Ingest cadence from upstream position data.
type Cache struct {
	mu      sync.RWMutex
	prices  map[string]decimal.Decimal
	updated map[string]time.Time
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{
		prices:  make(map[string]decimal.Decimal),
		updated: make(map[string]time.Time),
	}
}

// Set records the latest observed mark for token.
func (c *Cache) Set(token string, mark decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[token] = mark
	c.updated[token] = time.Now()
}

// MarkPrice implements executor.MarkPriceSource and monitor.MarkPriceSource.
func (c *Cache) MarkPrice(ctx context.Context, token string) (decimal.Decimal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	mark, ok := c.prices[token]
	if !ok {
		return decimal.Zero, fmt.Errorf("markprice: no observed mark for %s", token)
	}
	return mark, nil
}
