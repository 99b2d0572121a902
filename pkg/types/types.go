// Package types defines the shared data structures used across all
// packages of the copytrading core: traders, trades, position snapshots,
// scores, allocations, the engine's own book (open positions and
// orders), and the blacklist. It has no dependencies on internal
// packages, so it can be imported by any layer.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Side is Long or Short, derived from the sign of a trade or position size:
// negative size is Short, positive (or zero) is Long.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// SideFromSize derives Side from the sign of a signed size.
func SideFromSize(size float64) Side {
	if size < 0 {
		return Short
	}
	return Long
}

// TradeAction classifies what a trade did to the trader's position.
type TradeAction string

const (
	ActionOpen   TradeAction = "OPEN"
	ActionClose  TradeAction = "CLOSE"
	ActionAdd    TradeAction = "ADD"
	ActionReduce TradeAction = "REDUCE"
)

// LeverageType distinguishes cross-margined from isolated-margined positions.
type LeverageType string

const (
	LeverageCross    LeverageType = "cross"
	LeverageIsolated LeverageType = "isolated"
)

// OrderStatus is the Executor's order state machine. Transitions are
// monotonic: Pending -> (PartiallyFilled|Filled|Cancelled|Failed),
// PartiallyFilled -> (Filled|Cancelled). Filled, Cancelled, and Failed are
// absorbing (terminal) states.
type OrderStatus string

const (
	OrderPending         OrderStatus = "PENDING"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderFilled          OrderStatus = "FILLED"
	OrderCancelled       OrderStatus = "CANCELLED"
	OrderFailed          OrderStatus = "FAILED"
)

// Terminal reports whether status is an absorbing state.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderFilled, OrderCancelled, OrderFailed:
		return true
	default:
		return false
	}
}

// RebalanceActionKind is the kind of book-changing action the portfolio
// engine's diff emits for a single (token, side) pair.
type RebalanceActionKind string

const (
	ActionKindOpen   RebalanceActionKind = "OPEN"
	ActionKindClose  RebalanceActionKind = "CLOSE"
	ActionKindAdjust RebalanceActionKind = "ADJUST"
	ActionKindNoop   RebalanceActionKind = "NOOP"
)

// ————————————————————————————————————————————————————————————————————————
// Trader / Trade / PositionSnapshot — raw ingested data
// ————————————————————————————————————————————————————————————————————————

// Trader is a Hyperliquid address observed on the leaderboard. Never
// deleted; retention is enforced on the derived tables (trades, snapshots),
// not on this row.
type Trader struct {
	Address      string `gorm:"primaryKey;size:42"` // 42-char lowercase hex address
	Label        string // optional upstream label, e.g. "Smart Money", "Fund XYZ"
	AccountValue decimal.Decimal
	FirstSeen    time.Time
	LastActive   time.Time
}

// Trade is an immutable record of a single fill pulled from the address
// trade-history endpoint. Unique key is (Trader, TxHash).
type Trade struct {
	ID        uint   `gorm:"primaryKey"`
	Trader    string `gorm:"size:42;index;uniqueIndex:idx_trader_txhash"`
	Token     string
	Side      Side
	Action    TradeAction
	Size      float64 // signed; negative = short
	Price     float64
	ValueUSD  float64
	ClosedPnL float64
	FeeUSD    float64
	Timestamp time.Time
	TxHash    string `gorm:"size:80;uniqueIndex:idx_trader_txhash"`
}

// AssetPosition is one token's position within a PositionSnapshot.
type AssetPosition struct {
	ID               uint `gorm:"primaryKey"`
	SnapshotID       uint `gorm:"index"`
	Token            string
	Side             Side
	Size             float64
	EntryPrice       float64
	MarkPrice        float64
	LeverageValue    float64
	LeverageType     LeverageType
	LiquidationPrice float64
	UnrealizedPnL    float64
	MarginUsed       float64
}

// PositionSnapshot captures a trader's full book at one instant. Snapshots
// belonging to the same sweep share a SnapshotBatch tag; the scorer's
// series is read per trader by captured_at, not by batch.
type PositionSnapshot struct {
	ID            uint   `gorm:"primaryKey"`
	Trader        string `gorm:"size:42;index"`
	SnapshotBatch string `gorm:"index"`
	AccountValue  float64
	CapturedAt    time.Time       `gorm:"index"`
	Positions     []AssetPosition `gorm:"foreignKey:SnapshotID"`
}

// SumUnrealizedPnL returns the sum of unrealized PnL across all positions
// in the snapshot, used by deposit/withdrawal detection.
func (s PositionSnapshot) SumUnrealizedPnL() float64 {
	var total float64
	for _, p := range s.Positions {
		total += p.UnrealizedPnL
	}
	return total
}

// SumPositionValue returns the sum of |size * mark_price| across positions,
// the numerator of the leverage ratio and the total that HHI shares are
// taken of.
func (s PositionSnapshot) SumPositionValue() float64 {
	var total float64
	for _, p := range s.Positions {
		total += positionValue(p)
	}
	return total
}

func positionValue(p AssetPosition) float64 {
	v := p.Size * p.MarkPrice
	if v < 0 {
		return -v
	}
	return v
}

// ————————————————————————————————————————————————————————————————————————
// TradeMetrics — window-scoped aggregate, recomputed each scoring cycle
// ————————————————————————————————————————————————————————————————————————

type TradeMetrics struct {
	ID                   uint   `gorm:"primaryKey"`
	Trader               string `gorm:"size:42;index"`
	WindowDays           int
	TotalTrades          int
	WinningTrades        int
	LosingTrades         int
	WinRate              float64
	GrossProfit          float64
	GrossLoss            float64
	ProfitFactor         float64
	AvgReturn            float64
	StdReturn            float64
	PseudoSharpe         float64
	TotalPnL             float64
	ROIProxy             float64
	MaxDrawdownProxy     float64
	MaxLeverage          float64
	LeverageStd          float64
	LargestTradePnLRatio float64
	PnLTrendSlope        float64
	ComputedAt           time.Time
}

// ————————————————————————————————————————————————————————————————————————
// Score — composite scoring output, rewritten each scoring cycle
// ————————————————————————————————————————————————————————————————————————

type Score struct {
	ID               uint   `gorm:"primaryKey"`
	Trader           string `gorm:"size:42;index"`
	Tier1Pass        bool
	ConsistencyPass  bool
	AntiLuckPass     bool
	GrowthScore      float64
	DrawdownScore    float64
	LeverageScore    float64
	LiqDistanceScore float64
	DiversityScore   float64
	ConsistencyScore float64
	SmartMoneyMult   float64
	RecencyDecay     float64
	RawComposite     float64
	FinalComposite   float64
	Eligible         bool
	RejectionReason  string
	ComputedAt       time.Time
}

// ————————————————————————————————————————————————————————————————————————
// Allocation, OpenPosition, Order, BlacklistEntry, SchedulerState
// ————————————————————————————————————————————————————————————————————————

// Allocation is a trader's target weight at a computed_at instant. Weights
// of eligible selected traders sum to 1.0 subject to the risk overlay caps.
type Allocation struct {
	ID         uint   `gorm:"primaryKey"`
	Trader     string `gorm:"size:42;index"`
	Weight     float64
	ComputedAt time.Time `gorm:"index"`
}

// OpenPosition is the engine's own book entry, exclusively mutated by the
// Executor and read by the Monitor under the shared rebalance lock.
type OpenPosition struct {
	ID                uint `gorm:"primaryKey"`
	Token             string `gorm:"index"`
	Side              Side
	EntryPrice        decimal.Decimal
	Size              decimal.Decimal
	Notional          decimal.Decimal
	OpenedAt          time.Time
	StopLossPrice     decimal.Decimal
	TrailingPeak      decimal.Decimal
	TrailingStopPrice decimal.Decimal
	TimeStopAt        time.Time
	ClosedAt          *time.Time
	RealizedPnL       decimal.Decimal
}

// IsOpen reports whether the position has not yet been closed.
func (p OpenPosition) IsOpen() bool {
	return p.ClosedAt == nil
}

// Order tracks one order placed by the Executor against the paper-trading
// capability. State transitions are monotonic; see OrderStatus.
type Order struct {
	ID             uint `gorm:"primaryKey"`
	ExternalID     string `gorm:"index"`
	Side           Side
	Token          string
	TargetPrice    decimal.Decimal
	LimitLow       decimal.Decimal
	LimitHigh      decimal.Decimal
	TargetNotional decimal.Decimal
	Status         OrderStatus
	Attempt        int
	FillPrice      decimal.Decimal
	FillSize       decimal.Decimal
	FillTime       *time.Time
	ActionKind     RebalanceActionKind
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BlacklistEntry excludes an address from scoring/eligibility. Lookups must
// be O(1); eligibility fails closed on a hit.
type BlacklistEntry struct {
	Address   string `gorm:"primaryKey;size:42"`
	Reason    string
	ExpiresAt *time.Time
}

// Active reports whether the blacklist entry currently applies.
func (b BlacklistEntry) Active(now time.Time) bool {
	return b.ExpiresAt == nil || now.Before(*b.ExpiresAt)
}

// SchedulerState is the single process-wide row recording the last
// successful run of each cadence. Read once at startup, written after each
// successful cadence run.
type SchedulerState struct {
	ID               uint `gorm:"primaryKey"`
	LastRefreshAt    time.Time
	LastRebalanceAt  time.Time
	LastIngestAt     time.Time
	LastMonitorAt    time.Time
	LastMLSnapshotAt time.Time
}

// ————————————————————————————————————————————————————————————————————————
// Rebalance actions (portfolio engine output, consumed by Executor)
// ————————————————————————————————————————————————————————————————————————

// RebalanceAction is one line of the ordered diff the portfolio engine
// produces: what to do to a single (token, side) pair to move the book from
// current to target.
type RebalanceAction struct {
	Kind            RebalanceActionKind
	Token           string
	Side            Side
	CurrentNotional decimal.Decimal
	TargetNotional  decimal.Decimal
	DeltaNotional   decimal.Decimal
}
