package scorer

import (
	"fmt"

	"hlcopy/pkg/types"
)

// StrategyResult is the per-strategy verdict produced by the trade-based
// assessment pipeline.
type StrategyResult struct {
	Name        string
	Category    string
	Score       float64 // 0-100
	Passed      bool
	Explanation string
}

// Strategy evaluates a trader's trade metrics and current positions.
type Strategy func(m types.TradeMetrics, positions []types.AssetPosition) StrategyResult

// Strategies is the fixed, ordered set of ten independent strategies the
// assessment path runs.
var Strategies = []Strategy{
	roiStrategy,
	riskAdjustedStrategy,
	profitFactorStrategy,
	winRateQualityStrategy,
	antiLuckStrategy,
	consistencyStrategy,
	drawdownResilienceStrategy,
	leverageDisciplineStrategy,
	positionSizingStrategy,
	profitabilityTrendStrategy,
}

func roiStrategy(m types.TradeMetrics, _ []types.AssetPosition) StrategyResult {
	score := clip(m.ROIProxy/0.10, 0, 1) * 100
	return StrategyResult{
		Name: "ROI", Category: "returns",
		Score: score, Passed: m.ROIProxy >= 0,
		Explanation: fmt.Sprintf("roi_proxy=%.4f", m.ROIProxy),
	}
}

func riskAdjustedStrategy(m types.TradeMetrics, _ []types.AssetPosition) StrategyResult {
	score := clip((m.PseudoSharpe-0.5)/(3.0-0.5), 0, 1) * 100
	return StrategyResult{
		Name: "Risk-Adjusted", Category: "returns",
		Score: score, Passed: m.PseudoSharpe >= 0.5,
		Explanation: fmt.Sprintf("pseudo_sharpe=%.4f", m.PseudoSharpe),
	}
}

func profitFactorStrategy(m types.TradeMetrics, _ []types.AssetPosition) StrategyResult {
	score := clip((m.ProfitFactor-1.0)/(3.0-1.0), 0, 1) * 100
	return StrategyResult{
		Name: "Profit Factor", Category: "returns",
		Score: score, Passed: m.ProfitFactor >= 1.1,
		Explanation: fmt.Sprintf("profit_factor=%.4f", m.ProfitFactor),
	}
}

func winRateQualityStrategy(m types.TradeMetrics, _ []types.AssetPosition) StrategyResult {
	const optimal = 0.55
	passed := m.WinRate >= 0.30 && m.WinRate <= 0.85
	distance := absF(m.WinRate - optimal)
	score := clip(1-distance/optimal, 0, 1) * 100
	return StrategyResult{
		Name: "Win Rate Quality", Category: "consistency",
		Score: score, Passed: passed,
		Explanation: fmt.Sprintf("win_rate=%.4f", m.WinRate),
	}
}

func antiLuckStrategy(m types.TradeMetrics, _ []types.AssetPosition) StrategyResult {
	score := 100.0
	var failures []string
	if m.TotalTrades < 10 {
		score -= 33
		failures = append(failures, "total_trades<10")
	}
	if m.TotalPnL < 500 {
		score -= 33
		failures = append(failures, "total_pnl<500")
	}
	if m.WinRate < 0.25 || m.WinRate > 0.90 {
		score -= 33
		failures = append(failures, "win_rate_out_of_range")
	}
	if score < 0 {
		score = 0
	}
	return StrategyResult{
		Name: "Anti-Luck", Category: "consistency",
		Score: score, Passed: len(failures) == 0,
		Explanation: explainFailures(failures),
	}
}

func consistencyStrategy(m types.TradeMetrics, _ []types.AssetPosition) StrategyResult {
	profitable7d := m.TotalPnL > 0 && m.WindowDays >= 7
	profitable30d := m.TotalPnL > 0 && m.WindowDays >= 30
	windowsAvailable := 0
	windowsProfitable := 0
	if m.WindowDays >= 7 {
		windowsAvailable++
		if profitable7d {
			windowsProfitable++
		}
	}
	if m.WindowDays >= 30 {
		windowsAvailable++
		if profitable30d {
			windowsProfitable++
		}
	}

	passed := windowsProfitable >= 2 || (windowsAvailable == 1 && windowsProfitable == 1)
	var score float64
	if windowsAvailable > 0 {
		score = float64(windowsProfitable) / float64(windowsAvailable) * 100
	}
	return StrategyResult{
		Name: "Consistency", Category: "consistency",
		Score: score, Passed: passed,
		Explanation: fmt.Sprintf("profitable_windows=%d/%d", windowsProfitable, windowsAvailable),
	}
}

func drawdownResilienceStrategy(m types.TradeMetrics, _ []types.AssetPosition) StrategyResult {
	passed := m.MaxDrawdownProxy < 0.30
	score := clip(1-m.MaxDrawdownProxy/0.30, 0, 1) * 100
	return StrategyResult{
		Name: "Drawdown Resilience", Category: "risk",
		Score: score, Passed: passed,
		Explanation: fmt.Sprintf("max_drawdown=%.4f", m.MaxDrawdownProxy),
	}
}

func leverageDisciplineStrategy(m types.TradeMetrics, _ []types.AssetPosition) StrategyResult {
	// MaxLeverage here is the window's maximum observed trade leverage, so
	// a single ≤20x check also covers "no trade > 50x" for any trader that
	// passes the tighter bound.
	passed := m.MaxLeverage <= 20
	score := clip(1-m.MaxLeverage/50, 0, 1) * 100
	return StrategyResult{
		Name: "Leverage Discipline", Category: "risk",
		Score: score, Passed: passed,
		Explanation: fmt.Sprintf("max_leverage=%.2f", m.MaxLeverage),
	}
}

func positionSizingStrategy(m types.TradeMetrics, _ []types.AssetPosition) StrategyResult {
	passed := m.LargestTradePnLRatio <= 0.40
	score := clip(1-m.LargestTradePnLRatio, 0, 1) * 100
	return StrategyResult{
		Name: "Position Sizing", Category: "risk",
		Score: score, Passed: passed,
		Explanation: fmt.Sprintf("largest_trade_pnl_ratio=%.4f", m.LargestTradePnLRatio),
	}
}

func profitabilityTrendStrategy(m types.TradeMetrics, _ []types.AssetPosition) StrategyResult {
	passed := m.PnLTrendSlope >= -0.5
	score := clip((m.PnLTrendSlope+1)/2, 0, 1) * 100
	return StrategyResult{
		Name: "Profitability Trend", Category: "returns",
		Score: score, Passed: passed,
		Explanation: fmt.Sprintf("pnl_trend_slope=%.4f", m.PnLTrendSlope),
	}
}

func explainFailures(failures []string) string {
	if len(failures) == 0 {
		return "all checks passed"
	}
	s := "failed: "
	for i, f := range failures {
		if i > 0 {
			s += ", "
		}
		s += f
	}
	return s
}
