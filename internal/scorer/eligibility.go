package scorer

import "fmt"

// GateResult is Stage D's verdict: either eligible, or ineligible with a
// human-readable reason suitable for the Score row's rejection_reason.
type GateResult struct {
	Eligible bool
	Reason   string
}

// CheckEligibility runs Stage D's gates in a fixed order so the rejection
// reason reported is always the first failing gate.
func CheckEligibility(m DerivedMetrics, blacklisted bool, minSnapshots int, maxAvgLeverage, minAccountValue float64) GateResult {
	if blacklisted {
		return GateResult{Eligible: false, Reason: "blacklisted"}
	}
	if m.SnapshotCount < minSnapshots {
		return GateResult{Eligible: false, Reason: fmt.Sprintf("Insufficient snapshots: %d < %d", m.SnapshotCount, minSnapshots)}
	}
	if m.AccountGrowth <= 0 {
		return GateResult{Eligible: false, Reason: fmt.Sprintf("Non-positive growth: %.4f", m.AccountGrowth)}
	}
	if m.AvgLeverage > maxAvgLeverage {
		return GateResult{Eligible: false, Reason: fmt.Sprintf("Average leverage too high: %.2f > %.2f", m.AvgLeverage, maxAvgLeverage)}
	}
	if m.LatestAccountValue <= minAccountValue {
		return GateResult{Eligible: false, Reason: fmt.Sprintf("Account value too low: %.2f <= %.2f", m.LatestAccountValue, minAccountValue)}
	}
	return GateResult{Eligible: true}
}
