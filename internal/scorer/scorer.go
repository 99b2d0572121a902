package scorer

import (
	"math"
	"sort"
	"time"

	"hlcopy/pkg/types"
)

// BlacklistChecker is the minimal capability the Scorer needs from the
// DataStore; defined here rather than importing the store package, so
// this pipeline stays a pure function of its inputs plus one lookup.
type BlacklistChecker interface {
	IsBlacklisted(address string) (bool, error)
}

// Config holds Stage D's thresholds, sourced from the Scoring section of
// the process configuration.
type Config struct {
	MinSnapshots    int
	MaxAvgLeverage  float64
	MinAccountValue float64
}

// Candidate is one trader's input to the position-based pipeline.
type Candidate struct {
	Address   string
	Label     string
	Snapshots []types.PositionSnapshot // ascending by CapturedAt, 30-day window
}

// ScoreCandidate runs the full position-based pipeline (stages A-E) for a
// single candidate, returning a types.Score row. now is passed in rather
// than read from the clock so the pipeline stays deterministic for tests.
func ScoreCandidate(c Candidate, blacklist BlacklistChecker, cfg Config, now time.Time) (types.Score, error) {
	blacklisted, err := blacklist.IsBlacklisted(c.Address)
	if err != nil {
		return types.Score{}, err
	}

	score := types.Score{
		Trader:     c.Address,
		ComputedAt: now,
	}

	var hoursSinceLast float64
	if len(c.Snapshots) > 0 {
		hoursSinceLast = now.Sub(c.Snapshots[len(c.Snapshots)-1].CapturedAt).Hours()
	} else {
		hoursSinceLast = math.Inf(1)
	}

	flags := DetectDepositWithdrawals(c.Snapshots)
	metrics := DeriveMetrics(c.Snapshots, flags, hoursSinceLast)

	gate := CheckEligibility(metrics, blacklisted, cfg.MinSnapshots, cfg.MaxAvgLeverage, cfg.MinAccountValue)
	score.Tier1Pass = gate.Eligible
	score.ConsistencyPass = metrics.Consistency > 0
	score.AntiLuckPass = metrics.SnapshotCount >= cfg.MinSnapshots

	if !gate.Eligible {
		score.Eligible = false
		score.RejectionReason = gate.Reason
		score.FinalComposite = 0
		return score, nil
	}

	normalized := Normalize(metrics)
	score.GrowthScore = normalized.Growth
	score.DrawdownScore = normalized.Drawdown
	score.LeverageScore = normalized.Leverage
	score.LiqDistanceScore = normalized.LiqDistance
	score.DiversityScore = normalized.Diversity
	score.ConsistencyScore = normalized.Consistency

	raw := RawComposite(normalized)
	smartMoney := SmartMoneyMultiplier(c.Label)
	decay := RecencyDecay(hoursSinceLast)
	final := FinalComposite(raw, smartMoney, decay)

	score.RawComposite = raw
	score.SmartMoneyMult = smartMoney
	score.RecencyDecay = decay
	score.FinalComposite = final
	score.Eligible = true

	return score, nil
}

// ScoreAll runs ScoreCandidate over every candidate, returning one Score
// row per candidate, including ineligible candidates.
func ScoreAll(candidates []Candidate, blacklist BlacklistChecker, cfg Config, now time.Time) ([]types.Score, error) {
	scores := make([]types.Score, 0, len(candidates))
	for _, c := range candidates {
		s, err := ScoreCandidate(c, blacklist, cfg, now)
		if err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, nil
}

// RankedAccountValues is the minimal data SelectTopN needs alongside a
// Score to break ties deterministically (final desc, account_value desc,
// address asc).
type RankedAccountValues map[string]float64

// SelectTopN returns the topN eligible scores ranked by the tie-break
// rule: final desc, then account_value desc, then address asc.
func SelectTopN(scores []types.Score, accountValues RankedAccountValues, topN int) []types.Score {
	eligible := make([]types.Score, 0, len(scores))
	for _, s := range scores {
		if s.Eligible {
			eligible = append(eligible, s)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.FinalComposite != b.FinalComposite {
			return a.FinalComposite > b.FinalComposite
		}
		av, bv := accountValues[a.Trader], accountValues[b.Trader]
		if av != bv {
			return av > bv
		}
		return a.Trader < b.Trader
	})

	if len(eligible) > topN {
		eligible = eligible[:topN]
	}
	return eligible
}
