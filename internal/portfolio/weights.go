// Package portfolio implements the PortfolioEngine: turning selected
// traders' scores into softmax target weights, applying a six-stage risk
// overlay, and diffing the resulting target book against the engine's
// current book into an ordered list of rebalance actions. Like the
// scorer it consumes, every function here is a pure transformation over
// its inputs: no I/O, no clock reads beyond what callers pass in.
package portfolio

import (
	"math"

	"hlcopy/pkg/types"
)

// TraderWeight pairs a trader address with its softmax target weight.
type TraderWeight struct {
	Trader string
	Weight float64
}

// ComputeTargetWeights assigns softmax(final/tau) weights to every score in
// ranked. It does no selection itself: the caller passes the top_n eligible
// scores, already ranked by the scorer's tie-break rule.
func ComputeTargetWeights(ranked []types.Score, tau float64) []TraderWeight {
	if len(ranked) == 0 {
		return nil
	}
	if tau <= 0 {
		tau = 1.0
	}

	exps := make([]float64, len(ranked))
	var sum float64
	for i, s := range ranked {
		e := math.Exp(s.FinalComposite / tau)
		exps[i] = e
		sum += e
	}

	weights := make([]TraderWeight, len(ranked))
	for i, s := range ranked {
		w := 0.0
		if sum > 0 {
			w = exps[i] / sum
		}
		weights[i] = TraderWeight{Trader: s.Trader, Weight: w}
	}
	return weights
}
