package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"hlcopy/pkg/types"
)

// defaultAdjustThreshold is the minimum relative change in notional (as a
// fraction of current notional) below which a position already at the
// right (token, side) is left alone rather than emitting a no-op ADJUST.
// 10% matches the trade-cost assumptions used elsewhere in the execution
// layer.
const defaultAdjustThreshold = 0.10

// ComputeRebalanceDiff compares the engine's current book against the
// target book produced by ApplyRiskOverlay and returns an ordered list of
// actions: all CLOSEs first, then ADJUSTs, then OPENs, alphabetical by
// token within each group (ties broken by side). This ordering frees up
// margin and reduces net exposure before opening anything new.
func ComputeRebalanceDiff(current, target []TargetPosition) []types.RebalanceAction {
	return ComputeRebalanceDiffWithThreshold(current, target, defaultAdjustThreshold)
}

// ComputeRebalanceDiffWithThreshold is ComputeRebalanceDiff with an
// explicit adjust threshold, exposed for callers (and tests) that need a
// non-default value.
func ComputeRebalanceDiffWithThreshold(current, target []TargetPosition, adjustThreshold float64) []types.RebalanceAction {
	currentByKey := indexPositions(current)
	targetByKey := indexPositions(target)

	keys := make(map[string]struct{}, len(currentByKey)+len(targetByKey))
	for k := range currentByKey {
		keys[k] = struct{}{}
	}
	for k := range targetByKey {
		keys[k] = struct{}{}
	}

	var closes, adjusts, opens []types.RebalanceAction
	for key := range keys {
		token, side := splitKey(key)
		cur, hasCurrent := currentByKey[key]
		tgt, hasTarget := targetByKey[key]

		curNotional := decimal.Zero
		if hasCurrent {
			curNotional = cur.Notional
		}
		tgtNotional := decimal.Zero
		if hasTarget {
			tgtNotional = tgt.Notional
		}

		action := types.RebalanceAction{
			Token:           token,
			Side:            types.Side(side),
			CurrentNotional: curNotional,
			TargetNotional:  tgtNotional,
			DeltaNotional:   tgtNotional.Sub(curNotional),
		}

		switch {
		case hasCurrent && !hasTarget:
			action.Kind = types.ActionKindClose
			closes = append(closes, action)
		case !hasCurrent && hasTarget:
			action.Kind = types.ActionKindOpen
			opens = append(opens, action)
		case hasCurrent && hasTarget:
			if relativeChange(curNotional, tgtNotional) <= adjustThreshold {
				action.Kind = types.ActionKindNoop
			} else {
				action.Kind = types.ActionKindAdjust
				adjusts = append(adjusts, action)
			}
		default:
			continue // neither current nor target: unreachable, key wouldn't exist
		}
	}

	sortActions(closes)
	sortActions(adjusts)
	sortActions(opens)

	out := make([]types.RebalanceAction, 0, len(closes)+len(adjusts)+len(opens))
	out = append(out, closes...)
	out = append(out, adjusts...)
	out = append(out, opens...)
	return out
}

func indexPositions(positions []TargetPosition) map[string]TargetPosition {
	m := make(map[string]TargetPosition, len(positions))
	for _, p := range positions {
		m[p.Token+"|"+p.Side] = p
	}
	return m
}

func relativeChange(current, target decimal.Decimal) float64 {
	if current.IsZero() {
		if target.IsZero() {
			return 0
		}
		return 1 // opening from nothing is always a full change
	}
	delta := target.Sub(current).Abs()
	return delta.Div(current.Abs()).InexactFloat64()
}

func sortActions(actions []types.RebalanceAction) {
	sort.Slice(actions, func(i, j int) bool {
		if actions[i].Token != actions[j].Token {
			return actions[i].Token < actions[j].Token
		}
		return actions[i].Side < actions[j].Side
	})
}
