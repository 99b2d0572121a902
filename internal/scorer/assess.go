package scorer

import "hlcopy/pkg/types"

// Tier is the confidence bucket produced by Assess.
type Tier string

const (
	TierElite            Tier = "Elite"
	TierStrong           Tier = "Strong"
	TierModerate         Tier = "Moderate"
	TierWeak             Tier = "Weak"
	TierAvoid            Tier = "Avoid"
	TierInsufficientData Tier = "Insufficient Data"
)

// Assessment is the on-demand assess path's output.
type Assessment struct {
	Results   []StrategyResult
	PassCount int
	Tier      Tier
}

// Assess runs every registered strategy against a trader's trade metrics
// and current positions. If the trader has no trades at all, every
// strategy is skipped and the tier is Insufficient Data.
func Assess(m types.TradeMetrics, positions []types.AssetPosition) Assessment {
	if m.TotalTrades == 0 {
		results := make([]StrategyResult, len(Strategies))
		for i := range results {
			results[i] = StrategyResult{Score: 0, Passed: false}
		}
		return Assessment{Results: results, PassCount: 0, Tier: TierInsufficientData}
	}

	results := make([]StrategyResult, len(Strategies))
	passCount := 0
	for i, strat := range Strategies {
		r := strat(m, positions)
		results[i] = r
		if r.Passed {
			passCount++
		}
	}

	return Assessment{
		Results:   results,
		PassCount: passCount,
		Tier:      tierFromPassCount(passCount),
	}
}

func tierFromPassCount(n int) Tier {
	switch {
	case n >= 9:
		return TierElite
	case n >= 7:
		return TierStrong
	case n >= 5:
		return TierModerate
	case n >= 3:
		return TierWeak
	default:
		return TierAvoid
	}
}
