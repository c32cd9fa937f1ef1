package rank

import (
	"sort"
	"time"

	"github.com/helios-trading/helios/internal/market"
)

// ageEpsilonHours floors the age term so brand-new pools do not divide by
// zero and dominate unboundedly.
const ageEpsilonHours = 0.01

// Score is the opportunity score: momentum-weighted liquidity decayed by
// age and scaled by safety. Higher is better.
func Score(c market.Candidate) float64 {
	return scoreAt(c, time.Now())
}

// scoreAt evaluates the score against a fixed reference time so equal
// candidates compare equal within one ranking pass.
func scoreAt(c market.Candidate, now time.Time) float64 {
	age := now.Sub(c.CreatedAt).Hours()
	if age < ageEpsilonHours {
		age = ageEpsilonHours
	}
	liquidity, _ := c.LiquiditySOL.Float64()
	return liquidity * float64(c.Buys24h) / age * c.Risk.SafetyScore
}

// Rank returns the candidates ordered by descending score. Ties keep the
// catalog discovery order. The input slice is not mutated; ranking the
// same input twice yields the same order.
func Rank(candidates []market.Candidate) []market.Candidate {
	// Scores are computed once, against a single clock reading, before the
	// sort: a comparator that re-reads the clock would never see two equal
	// candidates as tied.
	now := time.Now()
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = scoreAt(c, now)
	}

	idx := make([]int, len(candidates))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return scores[idx[i]] > scores[idx[j]]
	})

	ranked := make([]market.Candidate, len(candidates))
	for i, j := range idx {
		ranked[i] = candidates[j]
	}
	return ranked
}
