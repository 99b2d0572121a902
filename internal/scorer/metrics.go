package scorer

import (
	"math"

	"hlcopy/pkg/types"
)

// DerivedMetrics is the Stage B output: raw, unnormalized figures computed
// over a trader's 30-day position-snapshot window, excluding the
// deposit/withdrawal intervals Stage A flagged for growth and drawdown
// calculations.
type DerivedMetrics struct {
	SnapshotCount          int
	AccountGrowth          float64
	MaxDrawdown            float64
	AvgLeverage            float64
	LeverageStd            float64
	AvgLiquidationDistance float64
	AvgHHI                 float64
	Consistency            float64
	LatestAccountValue     float64
	HoursSinceLastSnapshot float64
}

// DeriveMetrics computes Stage B's raw metrics from a snapshot series and
// the deposit/withdrawal flags Stage A produced for the same series.
// snapshots must be ordered ascending by CapturedAt.
func DeriveMetrics(snapshots []types.PositionSnapshot, flags []bool, asOf float64) DerivedMetrics {
	m := DerivedMetrics{SnapshotCount: len(snapshots)}
	if len(snapshots) == 0 {
		return m
	}

	m.LatestAccountValue = snapshots[len(snapshots)-1].AccountValue
	m.HoursSinceLastSnapshot = asOf

	m.AccountGrowth = accountGrowth(snapshots, flags)
	m.MaxDrawdown = maxDrawdownExcluding(snapshots, flags)
	m.AvgLeverage, m.LeverageStd = leverageStats(snapshots)
	m.AvgLiquidationDistance = avgLiquidationDistance(snapshots)
	m.AvgHHI = avgHHI(snapshots)
	m.Consistency = consistencyRatio(snapshots, flags)

	return m
}

func accountGrowth(snapshots []types.PositionSnapshot, flags []bool) float64 {
	start := snapshots[0].AccountValue
	if start == 0 {
		return 0
	}
	end := snapshots[len(snapshots)-1].AccountValue

	var excluded float64
	for i := 1; i < len(snapshots); i++ {
		if flags[i] {
			excluded += snapshots[i].AccountValue - snapshots[i-1].AccountValue
		}
	}

	return (end - start - excluded) / start
}

// maxDrawdownExcluding builds the account-value series skipping flagged
// points, then returns the largest peak-to-trough fractional decline.
func maxDrawdownExcluding(snapshots []types.PositionSnapshot, flags []bool) float64 {
	var series []float64
	for i, s := range snapshots {
		if flags[i] {
			continue
		}
		series = append(series, s.AccountValue)
	}
	if len(series) == 0 {
		return 0
	}

	peak := series[0]
	var maxDD float64
	for _, v := range series {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

func leverageStats(snapshots []types.PositionSnapshot) (avg, std float64) {
	ratios := make([]float64, 0, len(snapshots))
	for _, s := range snapshots {
		if s.AccountValue <= 0 {
			continue
		}
		ratios = append(ratios, s.SumPositionValue()/s.AccountValue)
	}
	if len(ratios) == 0 {
		return 0, 0
	}

	var sum float64
	for _, r := range ratios {
		sum += r
	}
	avg = sum / float64(len(ratios))

	var variance float64
	for _, r := range ratios {
		variance += (r - avg) * (r - avg)
	}
	std = math.Sqrt(variance / float64(len(ratios)))
	return avg, std
}

// avgLiquidationDistance is a position-value-weighted mean of
// |entry-liquidation|/entry across every position in every snapshot; 1.0
// when no position carries a measurable liquidation price.
func avgLiquidationDistance(snapshots []types.PositionSnapshot) float64 {
	var weightedSum, totalWeight float64
	for _, s := range snapshots {
		for _, p := range s.Positions {
			if p.EntryPrice == 0 || p.LiquidationPrice == 0 {
				continue
			}
			weight := absF(p.Size * p.MarkPrice)
			dist := absF(p.EntryPrice-p.LiquidationPrice) / p.EntryPrice
			weightedSum += dist * weight
			totalWeight += weight
		}
	}
	if totalWeight == 0 {
		return 1.0
	}
	return weightedSum / totalWeight
}

// avgHHI is the mean, across snapshots, of the Herfindahl-Hirschman Index
// over each snapshot's position values; 1.0 for an empty or single-position
// snapshot.
func avgHHI(snapshots []types.PositionSnapshot) float64 {
	if len(snapshots) == 0 {
		return 1.0
	}

	var sum float64
	for _, s := range snapshots {
		sum += hhi(s)
	}
	return sum / float64(len(snapshots))
}

func hhi(s types.PositionSnapshot) float64 {
	total := s.SumPositionValue()
	if total == 0 {
		return 1.0
	}
	var sumSquares float64
	for _, p := range s.Positions {
		share := absF(p.Size*p.MarkPrice) / total
		sumSquares += share * share
	}
	return sumSquares
}

// consistencyRatio is mean(Δ)/std(Δ) of per-interval relative account-value
// changes, excluding flagged intervals.
func consistencyRatio(snapshots []types.PositionSnapshot, flags []bool) float64 {
	var deltas []float64
	for i := 1; i < len(snapshots); i++ {
		if flags[i] {
			continue
		}
		prev := snapshots[i-1].AccountValue
		if prev == 0 {
			continue
		}
		deltas = append(deltas, (snapshots[i].AccountValue-prev)/prev)
	}
	if len(deltas) == 0 {
		return 0
	}

	var sum float64
	for _, d := range deltas {
		sum += d
	}
	mean := sum / float64(len(deltas))

	var variance float64
	for _, d := range deltas {
		variance += (d - mean) * (d - mean)
	}
	std := math.Sqrt(variance / float64(len(deltas)))

	if std == 0 {
		if mean <= 0 {
			return 0
		}
		return 1
	}
	return mean / std
}
