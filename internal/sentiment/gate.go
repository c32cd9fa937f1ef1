package sentiment

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/helios-trading/helios/internal/market"
)

// Signal is the trade direction implied by sentiment.
type Signal string

const (
	SignalBuy  Signal = "buy"
	SignalSell Signal = "sell"
	SignalHold Signal = "hold"
)

// Gate converts a sentiment score into a trade signal and decides whether
// the top candidate is eligible to act on at all.
type Gate struct {
	provider      Provider
	threshold     float64 // band half-width around neutral
	maxVolatility float64
	minSafety     float64
}

// NewGate creates a gate. threshold is the neutral band half-width,
// maxVolatility the eligibility ceiling, minSafety the safety floor the
// top candidate must clear.
func NewGate(provider Provider, threshold, maxVolatility, minSafety float64) *Gate {
	return &Gate{
		provider:      provider,
		threshold:     threshold,
		maxVolatility: maxVolatility,
		minSafety:     minSafety,
	}
}

// Decide queries the provider and maps the score onto a signal. Scores
// inside the neutral band hold; a provider error holds too, with the score
// reported as 0.
func (g *Gate) Decide(ctx context.Context) (Signal, float64) {
	score, err := g.provider.Score(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("sentiment: provider unavailable, holding")
		return SignalHold, 0
	}

	switch {
	case score > g.threshold:
		return SignalBuy, score
	case score < -g.threshold:
		return SignalSell, score
	default:
		return SignalHold, score
	}
}

// Eligible reports whether the top candidate may be traded: volatility must
// sit under the ceiling and the candidate's safety at or above the floor.
func (g *Gate) Eligible(top market.Candidate, volatility float64) bool {
	if volatility >= g.maxVolatility {
		return false
	}
	return top.Risk.SafetyScore >= g.minSafety
}
