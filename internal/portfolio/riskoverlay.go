package portfolio

import "github.com/shopspring/decimal"

// TraderHolding is one of a trader's current positions, sourced from their
// latest position snapshot.
type TraderHolding struct {
	Trader   string
	Token    string
	Side     string // "LONG" or "SHORT", mirrors pkg/types.Side
	Notional float64
}

// TargetPosition is one (token, side) line of the aggregated target book,
// after expanding every trader's weighted budget across their own
// holdings. Same-(token,side) contributions from different traders are
// summed; opposite sides on the same token are kept separate (no
// netting).
type TargetPosition struct {
	Token    string
	Side     string
	Notional decimal.Decimal
}

// RiskConfig is the six-stage overlay's configuration, sourced from the
// process configuration's Risk section.
type RiskConfig struct {
	MaxTraders           int
	PerTraderCap         float64
	PerTokenCap          float64
	MaxLongFraction      float64
	MaxShortFraction     float64
	MaxAggregateLeverage float64
	MinTradeSize         decimal.Decimal
}

// ApplyRiskOverlay runs the full six-stage overlay: (1) max traders is
// enforced by the caller trimming `weights` to top_n before this call;
// (2) per-trader cap; (3) per-token cap; (4) directional cap; (5)
// aggregate leverage cap; (6) min trade size floor.
func ApplyRiskOverlay(weights []TraderWeight, holdings map[string][]TraderHolding, accountValue float64, cfg RiskConfig) []TargetPosition {
	capped := capPerTrader(weights, cfg.PerTraderCap)
	positions := expandToTargetPositions(capped, holdings, accountValue)
	positions = capPerToken(positions, cfg.PerTokenCap, accountValue)
	positions = capDirectional(positions, cfg.MaxLongFraction, cfg.MaxShortFraction, accountValue)
	positions = capAggregateLeverage(positions, cfg.MaxAggregateLeverage, accountValue)
	positions = applyMinTradeFloor(positions, cfg.MinTradeSize)
	return positions
}

// capPerTrader trims any trader above cap and redistributes the excess
// proportionally among traders still below cap, iterating until stable
// (a redistribution round can itself push another trader over the cap).
func capPerTrader(weights []TraderWeight, cap float64) []TraderWeight {
	if cap <= 0 {
		return weights
	}
	out := make([]TraderWeight, len(weights))
	copy(out, weights)

	for iterations := 0; iterations < len(out)+1; iterations++ {
		var excess float64
		var belowCapTotal float64
		anyCapped := false
		for i := range out {
			if out[i].Weight > cap {
				excess += out[i].Weight - cap
				out[i].Weight = cap
				anyCapped = true
			} else if out[i].Weight < cap {
				belowCapTotal += out[i].Weight
			}
		}
		if !anyCapped || excess <= 0 {
			break
		}
		if belowCapTotal <= 0 {
			break // nothing left to redistribute into; excess becomes cash
		}
		for i := range out {
			if out[i].Weight < cap {
				out[i].Weight += excess * (out[i].Weight / belowCapTotal)
			}
		}
	}
	return out
}

// expandToTargetPositions allocates each trader a budget of weight *
// account_value, then distributes that budget across the trader's own
// holdings in proportion to each holding's share of the trader's total
// position value, mirroring the trader's own book shape rather than our
// account's, clamped to the trader's weighted budget.
func expandToTargetPositions(weights []TraderWeight, holdings map[string][]TraderHolding, accountValue float64) []TargetPosition {
	agg := make(map[string]float64) // key: token|side

	for _, w := range weights {
		budget := w.Weight * accountValue
		traderHoldings := holdings[w.Trader]
		if len(traderHoldings) == 0 || budget <= 0 {
			continue
		}

		var totalValue float64
		for _, h := range traderHoldings {
			totalValue += absF(h.Notional)
		}
		if totalValue <= 0 {
			continue
		}

		for _, h := range traderHoldings {
			share := absF(h.Notional) / totalValue
			key := h.Token + "|" + h.Side
			agg[key] += budget * share
		}
	}

	positions := make([]TargetPosition, 0, len(agg))
	for key, notional := range agg {
		token, side := splitKey(key)
		positions = append(positions, TargetPosition{
			Token:    token,
			Side:     side,
			Notional: decimal.NewFromFloat(notional),
		})
	}
	return positions
}

// capPerToken trims a token's gross exposure (both sides summed) down to
// cap * account_value, scaling each side's notional down proportionally.
func capPerToken(positions []TargetPosition, cap, accountValue float64) []TargetPosition {
	if cap <= 0 {
		return positions
	}

	grossByToken := make(map[string]float64)
	for _, p := range positions {
		grossByToken[p.Token] += absF(p.Notional.InexactFloat64())
	}

	limit := cap * accountValue
	out := make([]TargetPosition, len(positions))
	copy(out, positions)
	for i, p := range out {
		gross := grossByToken[p.Token]
		if gross <= limit || gross <= 0 {
			continue
		}
		scale := limit / gross
		out[i].Notional = out[i].Notional.Mul(decimal.NewFromFloat(scale))
	}
	return out
}

// capDirectional trims the aggregate long (or short) book down to its
// fraction cap of account_value, scaling every position on the offending
// side down proportionally.
func capDirectional(positions []TargetPosition, maxLongFrac, maxShortFrac, accountValue float64) []TargetPosition {
	out := make([]TargetPosition, len(positions))
	copy(out, positions)

	out = capSide(out, "LONG", maxLongFrac, accountValue)
	out = capSide(out, "SHORT", maxShortFrac, accountValue)
	return out
}

func capSide(positions []TargetPosition, side string, maxFrac, accountValue float64) []TargetPosition {
	if maxFrac <= 0 {
		return positions
	}
	var total float64
	for _, p := range positions {
		if p.Side == side {
			total += absF(p.Notional.InexactFloat64())
		}
	}
	limit := maxFrac * accountValue
	if total <= limit || total <= 0 {
		return positions
	}
	scale := limit / total
	for i := range positions {
		if positions[i].Side == side {
			positions[i].Notional = positions[i].Notional.Mul(decimal.NewFromFloat(scale))
		}
	}
	return positions
}

// capAggregateLeverage trims the whole book down to maxLeverage *
// account_value gross notional, scaling every position proportionally.
func capAggregateLeverage(positions []TargetPosition, maxLeverage, accountValue float64) []TargetPosition {
	if maxLeverage <= 0 {
		return positions
	}
	var total float64
	for _, p := range positions {
		total += absF(p.Notional.InexactFloat64())
	}
	limit := maxLeverage * accountValue
	if total <= limit || total <= 0 {
		return positions
	}
	scale := limit / total
	out := make([]TargetPosition, len(positions))
	for i, p := range positions {
		out[i] = p
		out[i].Notional = p.Notional.Mul(decimal.NewFromFloat(scale))
	}
	return out
}

// applyMinTradeFloor drops any position whose notional would be below the
// minimum tradeable size; the dropped mass becomes cash and is never
// redistributed, since this is the final stage of the overlay.
func applyMinTradeFloor(positions []TargetPosition, floor decimal.Decimal) []TargetPosition {
	out := make([]TargetPosition, 0, len(positions))
	for _, p := range positions {
		if p.Notional.Abs().GreaterThanOrEqual(floor) {
			out = append(out, p)
		}
	}
	return out
}

func splitKey(key string) (token, side string) {
	for i := 0; i < len(key); i++ {
		if key[i] == '|' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
