// Package store persists every table of the copytrading core's data
// model using gorm. This daemon runs as a single process against a local
// file, so the sqlite driver stands in for a network database driver
// while keeping gorm's AutoMigrate / Create / Where / Order query style
// throughout.
package store

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hlcopy/pkg/types"
)

// Store is the DataStore for the copytrading core: one gorm.DB connection
// and repository-style methods grouped by entity family across the
// remaining files in this package.
type Store struct {
	db *gorm.DB
}

// Open connects to (creating if absent) the sqlite database at path,
// enables WAL mode for concurrent-safe reads while the scheduler's
// cadences write, and auto-migrates every table in the data model.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if err := db.Exec("PRAGMA busy_timeout=5000;").Error; err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := db.AutoMigrate(
		&types.Trader{},
		&types.Trade{},
		&types.PositionSnapshot{},
		&types.AssetPosition{},
		&types.TradeMetrics{},
		&types.Score{},
		&types.Allocation{},
		&types.OpenPosition{},
		&types.Order{},
		&types.BlacklistEntry{},
		&types.SchedulerState{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying sqlite connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get underlying db: %w", err)
	}
	return sqlDB.Close()
}
