package scorer

import (
	"testing"

	"hlcopy/pkg/types"
)

func TestAssessInsufficientDataWhenNoTrades(t *testing.T) {
	t.Parallel()

	a := Assess(types.TradeMetrics{TotalTrades: 0}, nil)
	if a.Tier != TierInsufficientData {
		t.Errorf("Tier = %v, want Insufficient Data", a.Tier)
	}
	if a.PassCount != 0 {
		t.Errorf("PassCount = %d, want 0", a.PassCount)
	}
}

func TestAssessEliteTrader(t *testing.T) {
	t.Parallel()

	m := types.TradeMetrics{
		TotalTrades:          50,
		WinRate:              0.55,
		ROIProxy:             0.15,
		PseudoSharpe:         3.5,
		ProfitFactor:         3.5,
		TotalPnL:             10000,
		MaxDrawdownProxy:     0.05,
		MaxLeverage:          5,
		LargestTradePnLRatio: 0.1,
		PnLTrendSlope:        0.8,
		WindowDays:           30,
	}

	a := Assess(m, nil)
	if a.Tier != TierElite {
		t.Errorf("Tier = %v, want Elite (pass_count=%d)", a.Tier, a.PassCount)
	}
}

func TestAssessAvoidTrader(t *testing.T) {
	t.Parallel()

	m := types.TradeMetrics{
		TotalTrades:          5,
		WinRate:              0.10,
		ROIProxy:             -0.20,
		PseudoSharpe:         -1.0,
		ProfitFactor:         0.5,
		TotalPnL:             -5000,
		MaxDrawdownProxy:     0.60,
		MaxLeverage:          45,
		LargestTradePnLRatio: 0.80,
		PnLTrendSlope:        -0.9,
		WindowDays:           7,
	}

	a := Assess(m, nil)
	if a.Tier != TierAvoid {
		t.Errorf("Tier = %v, want Avoid (pass_count=%d)", a.Tier, a.PassCount)
	}
}

func TestTierFromPassCountBoundaries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		n    int
		want Tier
	}{
		{10, TierElite}, {9, TierElite},
		{8, TierStrong}, {7, TierStrong},
		{6, TierModerate}, {5, TierModerate},
		{4, TierWeak}, {3, TierWeak},
		{2, TierAvoid}, {0, TierAvoid},
	}
	for _, c := range cases {
		if got := tierFromPassCount(c.n); got != c.want {
			t.Errorf("tierFromPassCount(%d) = %v, want %v", c.n, got, c.want)
		}
	}
}
