package store

import (
	"fmt"
	"time"

	"hlcopy/pkg/types"
)

// SaveTradeMetrics inserts a new TradeMetrics row for a scoring cycle.
func (s *Store) SaveTradeMetrics(m types.TradeMetrics) error {
	if err := s.db.Create(&m).Error; err != nil {
		return fmt.Errorf("save trade metrics for %s: %w", m.Trader, err)
	}
	return nil
}

// SaveScores inserts a batch of Score rows for one scoring cycle.
func (s *Store) SaveScores(scores []types.Score) error {
	if len(scores) == 0 {
		return nil
	}
	if err := s.db.Create(&scores).Error; err != nil {
		return fmt.Errorf("save scores: %w", err)
	}
	return nil
}

// LatestScores returns the most recent Score row for every trader that has
// one, used to select the current top_n eligible set.
func (s *Store) LatestScores() ([]types.Score, error) {
	var scores []types.Score
	err := s.db.Raw(`
		SELECT s.* FROM scores s
		INNER JOIN (
			SELECT trader, MAX(computed_at) AS max_computed_at
			FROM scores GROUP BY trader
		) latest ON s.trader = latest.trader AND s.computed_at = latest.max_computed_at
	`).Scan(&scores).Error
	if err != nil {
		return nil, fmt.Errorf("latest scores: %w", err)
	}
	return scores, nil
}

// SaveAllocations inserts the target weights computed for one rebalance
// cycle.
func (s *Store) SaveAllocations(allocs []types.Allocation) error {
	if len(allocs) == 0 {
		return nil
	}
	if err := s.db.Create(&allocs).Error; err != nil {
		return fmt.Errorf("save allocations: %w", err)
	}
	return nil
}

// LatestAllocations returns the allocation rows from the most recent
// computed_at batch.
func (s *Store) LatestAllocations() ([]types.Allocation, error) {
	var latest time.Time
	err := s.db.Model(&types.Allocation{}).Select("MAX(computed_at)").Scan(&latest).Error
	if err != nil {
		return nil, fmt.Errorf("find latest allocation batch: %w", err)
	}
	if latest.IsZero() {
		return nil, nil
	}

	var allocs []types.Allocation
	if err := s.db.Where("computed_at = ?", latest).Find(&allocs).Error; err != nil {
		return nil, fmt.Errorf("latest allocations: %w", err)
	}
	return allocs, nil
}
