package store

import (
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"hlcopy/pkg/types"
)

// InsertTrades inserts new trades, silently ignoring any whose
// (Trader, TxHash) unique key already exists (re-ingestion of an
// overlapping history window is expected and must be idempotent).
func (s *Store) InsertTrades(trades []types.Trade) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}
	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&trades)
	if result.Error != nil {
		return 0, fmt.Errorf("insert trades: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}

// TradesSince returns a trader's trades at or after since, oldest first.
func (s *Store) TradesSince(trader string, since time.Time) ([]types.Trade, error) {
	var trades []types.Trade
	err := s.db.Where("trader = ? AND timestamp >= ?", trader, since).
		Order("timestamp ASC").
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("trades since for %s: %w", trader, err)
	}
	return trades, nil
}

// LatestTradeTimestamp returns the most recent trade timestamp recorded for
// trader, or the zero time if none exist, so ingest can resume incrementally.
func (s *Store) LatestTradeTimestamp(trader string) (time.Time, error) {
	var t types.Trade
	err := s.db.Where("trader = ?", trader).Order("timestamp DESC").First(&t).Error
	if err != nil {
		return time.Time{}, nil
	}
	return t.Timestamp, nil
}
