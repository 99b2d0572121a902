package store

import (
	"fmt"
	"time"

	"hlcopy/pkg/types"
)

// SaveSnapshot persists a position snapshot and its nested positions in one
// transaction.
func (s *Store) SaveSnapshot(snap types.PositionSnapshot) error {
	if err := s.db.Create(&snap).Error; err != nil {
		return fmt.Errorf("save snapshot for %s: %w", snap.Trader, err)
	}
	return nil
}

// SnapshotsSince returns a trader's snapshots at or after since, ordered
// by capture time ascending, with positions preloaded: the series the
// scorer walks to detect deposits/withdrawals and derive metrics.
func (s *Store) SnapshotsSince(trader string, since time.Time) ([]types.PositionSnapshot, error) {
	var snaps []types.PositionSnapshot
	err := s.db.Preload("Positions").
		Where("trader = ? AND captured_at >= ?", trader, since).
		Order("captured_at ASC").
		Find(&snaps).Error
	if err != nil {
		return nil, fmt.Errorf("snapshots since for %s: %w", trader, err)
	}
	return snaps, nil
}

// LatestSnapshot returns a trader's most recent snapshot, or nil if none
// exist.
func (s *Store) LatestSnapshot(trader string) (*types.PositionSnapshot, error) {
	var snap types.PositionSnapshot
	err := s.db.Preload("Positions").
		Where("trader = ?", trader).
		Order("captured_at DESC").
		First(&snap).Error
	if err != nil {
		return nil, nil
	}
	return &snap, nil
}

// PruneSnapshotsBefore deletes snapshots older than cutoff, first deleting
// their asset positions by snapshot_id, keeping the table bounded to the
// scoring window.
func (s *Store) PruneSnapshotsBefore(cutoff time.Time) (int64, error) {
	var olds []types.PositionSnapshot
	if err := s.db.Where("captured_at < ?", cutoff).Find(&olds).Error; err != nil {
		return 0, fmt.Errorf("find snapshots to prune: %w", err)
	}
	if len(olds) == 0 {
		return 0, nil
	}

	ids := make([]uint, len(olds))
	for i, o := range olds {
		ids[i] = o.ID
	}

	if err := s.db.Where("snapshot_id IN ?", ids).Delete(&types.AssetPosition{}).Error; err != nil {
		return 0, fmt.Errorf("prune asset positions: %w", err)
	}
	result := s.db.Where("id IN ?", ids).Delete(&types.PositionSnapshot{})
	if result.Error != nil {
		return 0, fmt.Errorf("prune snapshots: %w", result.Error)
	}
	return result.RowsAffected, nil
}
