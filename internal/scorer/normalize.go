package scorer

// NormalizedComponents are Stage C's six [0,1] component scores.
type NormalizedComponents struct {
	Growth      float64
	Drawdown    float64
	Leverage    float64
	LiqDistance float64
	Diversity   float64
	Consistency float64
}

// Normalize applies Stage C's per-component mapping to Stage B's raw
// metrics.
func Normalize(m DerivedMetrics) NormalizedComponents {
	return NormalizedComponents{
		Growth:      clip(m.AccountGrowth/0.10, 0, 1),
		Drawdown:    clip(1-m.MaxDrawdown/0.50, 0, 1),
		Leverage:    normalizeLeverage(m.AvgLeverage, m.LeverageStd),
		LiqDistance: normalizeLiqDistance(m.AvgLiquidationDistance),
		Diversity:   normalizeDiversity(m.AvgHHI),
		Consistency: clip(m.Consistency, 0, 1),
	}
}

func normalizeLeverage(avgLeverage, leverageStd float64) float64 {
	base := clip(1-avgLeverage/20, 0, 1)
	penalty := minF(0.2, leverageStd/25)
	v := base - penalty
	return clip(v, 0, 1)
}

func normalizeLiqDistance(dist float64) float64 {
	switch {
	case dist >= 0.30:
		return 1
	case dist <= 0.05:
		return 0
	default:
		return (dist - 0.05) / (0.30 - 0.05)
	}
}

func normalizeDiversity(hhi float64) float64 {
	if hhi <= 0.25 {
		return 1
	}
	v := 1 - (hhi-0.25)/0.75*0.8
	if v < 0.2 {
		return 0.2
	}
	return v
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
