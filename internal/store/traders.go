package store

import (
	"fmt"
	"time"

	"hlcopy/pkg/types"
)

// UpsertTrader inserts a trader or updates its account value and
// last-active timestamp if it already exists.
func (s *Store) UpsertTrader(t types.Trader) error {
	var existing types.Trader
	err := s.db.First(&existing, "address = ?", t.Address).Error
	if err != nil {
		if t.FirstSeen.IsZero() {
			t.FirstSeen = time.Now()
		}
		if t.LastActive.IsZero() {
			t.LastActive = t.FirstSeen
		}
		if createErr := s.db.Create(&t).Error; createErr != nil {
			return fmt.Errorf("create trader %s: %w", t.Address, createErr)
		}
		return nil
	}

	existing.AccountValue = t.AccountValue
	existing.LastActive = t.LastActive
	if t.Label != "" {
		existing.Label = t.Label
	}
	if err := s.db.Save(&existing).Error; err != nil {
		return fmt.Errorf("update trader %s: %w", t.Address, err)
	}
	return nil
}

// ListTraders returns every known trader.
func (s *Store) ListTraders() ([]types.Trader, error) {
	var traders []types.Trader
	if err := s.db.Find(&traders).Error; err != nil {
		return nil, fmt.Errorf("list traders: %w", err)
	}
	return traders, nil
}

// GetTrader looks up one trader by address.
func (s *Store) GetTrader(address string) (*types.Trader, error) {
	var t types.Trader
	err := s.db.First(&t, "address = ?", address).Error
	if err != nil {
		return nil, fmt.Errorf("get trader %s: %w", address, err)
	}
	return &t, nil
}
