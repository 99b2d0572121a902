package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"hlcopy/pkg/types"
)

// OpenPositions returns every position not yet closed, ordered the way the
// Monitor must iterate them: opened_at ascending, then token, for
// deterministic stop-check ordering.
func (s *Store) OpenPositions() ([]types.OpenPosition, error) {
	var positions []types.OpenPosition
	err := s.db.Where("closed_at IS NULL").
		Order("opened_at ASC, token ASC").
		Find(&positions).Error
	if err != nil {
		return nil, fmt.Errorf("open positions: %w", err)
	}
	return positions, nil
}

// OpenPositionByToken returns the open position for token, or nil if the
// book has none (at most one open position per token is an invariant the
// Executor maintains).
func (s *Store) OpenPositionByToken(token string) (*types.OpenPosition, error) {
	var p types.OpenPosition
	err := s.db.Where("token = ? AND closed_at IS NULL", token).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open position by token %s: %w", token, err)
	}
	return &p, nil
}

// CreateOpenPosition inserts a new book entry, called by the Executor on an
// OPEN fill.
func (s *Store) CreateOpenPosition(p types.OpenPosition) (*types.OpenPosition, error) {
	if err := s.db.Create(&p).Error; err != nil {
		return nil, fmt.Errorf("create open position %s: %w", p.Token, err)
	}
	return &p, nil
}

// SaveOpenPosition persists updates to an existing book entry (ADJUST fills,
// trailing-stop ratchets, or a CLOSE setting ClosedAt/RealizedPnL).
func (s *Store) SaveOpenPosition(p types.OpenPosition) error {
	if err := s.db.Save(&p).Error; err != nil {
		return fmt.Errorf("save open position %s: %w", p.Token, err)
	}
	return nil
}

// CreateOrder inserts a new order row, called by the Executor before
// submitting to the execution capability.
func (s *Store) CreateOrder(o types.Order) (*types.Order, error) {
	if err := s.db.Create(&o).Error; err != nil {
		return nil, fmt.Errorf("create order for %s: %w", o.Token, err)
	}
	return &o, nil
}

// SaveOrder persists an order's status/fill transition.
func (s *Store) SaveOrder(o types.Order) error {
	if err := s.db.Save(&o).Error; err != nil {
		return fmt.Errorf("save order %d: %w", o.ID, err)
	}
	return nil
}

// PendingOrders returns orders not yet in a terminal state, for fill
// polling to resume across a restart.
func (s *Store) PendingOrders() ([]types.Order, error) {
	var orders []types.Order
	err := s.db.Where("status IN ?", []types.OrderStatus{types.OrderPending, types.OrderPartiallyFilled}).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("pending orders: %w", err)
	}
	return orders, nil
}
