package scorer

import (
	"testing"
	"time"

	"hlcopy/pkg/types"
)

// TestDetectDepositWithdrawalsFlagsCleanDepositJump verifies a clean
// +$50k jump with zero PnL delta is flagged exactly at that index.
func TestDetectDepositWithdrawalsFlagsCleanDepositJump(t *testing.T) {
	t.Parallel()

	values := []float64{100000, 100000, 100000, 100000, 100000, 150000, 150000, 150000, 150000, 150000}
	snapshots := make([]types.PositionSnapshot, len(values))
	base := time.Now()
	for i, v := range values {
		snapshots[i] = types.PositionSnapshot{
			AccountValue: v,
			CapturedAt:   base.Add(time.Duration(i) * time.Hour),
		}
	}

	flags := DetectDepositWithdrawals(snapshots)

	for i, f := range flags {
		want := i == 5
		if f != want {
			t.Errorf("flags[%d] = %v, want %v", i, f, want)
		}
	}
}

func TestAccountGrowthExcludesFlaggedInterval(t *testing.T) {
	t.Parallel()

	values := []float64{100000, 100000, 100000, 100000, 100000, 150000, 150000, 150000, 150000, 150000}
	snapshots := make([]types.PositionSnapshot, len(values))
	base := time.Now()
	for i, v := range values {
		snapshots[i] = types.PositionSnapshot{AccountValue: v, CapturedAt: base.Add(time.Duration(i) * time.Hour)}
	}

	flags := DetectDepositWithdrawals(snapshots)
	metrics := DeriveMetrics(snapshots, flags, 0)

	if metrics.AccountGrowth != 0 {
		t.Errorf("AccountGrowth = %v, want 0 (deposit excluded)", metrics.AccountGrowth)
	}
}

func TestDetectDepositWithdrawalsIgnoresOrdinaryPnLSwings(t *testing.T) {
	t.Parallel()

	base := time.Now()
	snapshots := []types.PositionSnapshot{
		{AccountValue: 100000, CapturedAt: base, Positions: []types.AssetPosition{{UnrealizedPnL: 0}}},
		{AccountValue: 100500, CapturedAt: base.Add(time.Hour), Positions: []types.AssetPosition{{UnrealizedPnL: 500}}},
	}

	flags := DetectDepositWithdrawals(snapshots)
	if flags[1] {
		t.Error("ordinary trading PnL swing should not be flagged as a deposit/withdrawal")
	}
}
