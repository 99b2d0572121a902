// Package scorer implements two scoring pipeline variants: the
// position-based pipeline the scheduler's Refresh cadence runs over every
// candidate trader, and the trade-based ten-strategy variant used only by
// the on-demand assessment path. Both are pure functions over
// already-fetched data: no I/O, no side effects, fully deterministic
// given identical inputs.
package scorer

import "hlcopy/pkg/types"

const (
	depositAbsThreshold  = 1000.0
	depositRelThreshold  = 0.10
	depositPnLDivergence = 1000.0
)

// DetectDepositWithdrawals returns a same-length boolean slice; flags[i]
// is true when the interval (i-1, i) looks like an external cash movement
// rather than trading activity. flags[0] is always false, since there is
// no prior snapshot to compare against.
func DetectDepositWithdrawals(snapshots []types.PositionSnapshot) []bool {
	flags := make([]bool, len(snapshots))
	for i := 1; i < len(snapshots); i++ {
		prev, cur := snapshots[i-1], snapshots[i]

		deltaAccount := cur.AccountValue - prev.AccountValue
		deltaUPnL := cur.SumUnrealizedPnL() - prev.SumUnrealizedPnL()

		if absF(deltaAccount) > depositAbsThreshold &&
			absF(deltaAccount) > depositRelThreshold*prev.AccountValue &&
			absF(deltaAccount-deltaUPnL) > depositPnLDivergence {
			flags[i] = true
		}
	}
	return flags
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
