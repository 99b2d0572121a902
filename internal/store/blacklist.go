package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"hlcopy/pkg/types"
)

// IsBlacklisted reports whether address currently has an active blacklist
// entry. Eligibility fails closed: any error is treated as blacklisted.
func (s *Store) IsBlacklisted(address string) (bool, error) {
	var entry types.BlacklistEntry
	err := s.db.First(&entry, "address = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return true, fmt.Errorf("blacklist lookup %s: %w", address, err)
	}
	return entry.Active(time.Now()), nil
}

// Blacklist adds or replaces a blacklist entry for address.
func (s *Store) Blacklist(entry types.BlacklistEntry) error {
	if err := s.db.Save(&entry).Error; err != nil {
		return fmt.Errorf("blacklist %s: %w", entry.Address, err)
	}
	return nil
}

// GetSchedulerState returns the single scheduler-state row, creating a zero
// row if one doesn't exist yet (first-ever process start).
func (s *Store) GetSchedulerState() (*types.SchedulerState, error) {
	var state types.SchedulerState
	err := s.db.First(&state).Error
	if err != nil {
		state = types.SchedulerState{}
		if createErr := s.db.Create(&state).Error; createErr != nil {
			return nil, fmt.Errorf("create scheduler state: %w", createErr)
		}
	}
	return &state, nil
}

// SaveSchedulerState persists the scheduler-state row after a successful
// cadence run.
func (s *Store) SaveSchedulerState(state types.SchedulerState) error {
	if err := s.db.Save(&state).Error; err != nil {
		return fmt.Errorf("save scheduler state: %w", err)
	}
	return nil
}
