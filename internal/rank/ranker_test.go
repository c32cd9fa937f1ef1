package rank

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/helios-trading/helios/internal/market"
)

func newRankCandidate(symbol string, liquidity int64, buys int, ageHours float64, safety float64, order int) market.Candidate {
	return market.Candidate{
		Symbol:         symbol,
		LiquiditySOL:   decimal.NewFromInt(liquidity),
		CreatedAt:      time.Now().Add(-time.Duration(ageHours * float64(time.Hour))),
		Buys24h:        buys,
		Risk:           market.RiskFacts{SafetyScore: safety},
		DiscoveryOrder: order,
	}
}

func TestRankDescendingByScore(t *testing.T) {
	// Same liquidity and safety; more buys and less age score higher.
	a := newRankCandidate("OLD", 500, 600, 24, 90, 0)
	b := newRankCandidate("HOT", 500, 1200, 1, 90, 1)
	c := newRankCandidate("MID", 500, 600, 4, 90, 2)

	ranked := Rank([]market.Candidate{a, b, c})

	assert.Equal(t, "HOT", ranked[0].Symbol)
	assert.Equal(t, "MID", ranked[1].Symbol)
	assert.Equal(t, "OLD", ranked[2].Symbol)
}

func TestRankTiesKeepDiscoveryOrder(t *testing.T) {
	created := time.Now().Add(-2 * time.Hour)
	a := newRankCandidate("FIRST", 500, 600, 2, 90, 0)
	b := newRankCandidate("SECOND", 500, 600, 2, 90, 1)
	c := newRankCandidate("THIRD", 500, 600, 2, 90, 2)
	a.CreatedAt, b.CreatedAt, c.CreatedAt = created, created, created

	ranked := Rank([]market.Candidate{a, b, c})

	assert.Equal(t, "FIRST", ranked[0].Symbol)
	assert.Equal(t, "SECOND", ranked[1].Symbol)
	assert.Equal(t, "THIRD", ranked[2].Symbol)
}

func TestRankEqualCandidatesNeverReorder(t *testing.T) {
	// Byte-identical candidates must tie exactly and keep discovery order,
	// however often they are re-ranked.
	created := time.Now().Add(-3 * time.Hour)
	input := make([]market.Candidate, 5)
	symbols := []string{"A", "B", "C", "D", "E"}
	for i := range input {
		input[i] = newRankCandidate(symbols[i], 500, 600, 0, 90, i)
		input[i].CreatedAt = created
	}

	for round := 0; round < 200; round++ {
		ranked := Rank(input)
		for i := range ranked {
			assert.Equal(t, symbols[i], ranked[i].Symbol, "round %d", round)
		}
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	a := newRankCandidate("LOW", 100, 600, 2, 90, 0)
	b := newRankCandidate("HIGH", 900, 600, 2, 90, 1)
	input := []market.Candidate{a, b}

	ranked := Rank(input)

	assert.Equal(t, "LOW", input[0].Symbol)
	assert.Equal(t, "HIGH", ranked[0].Symbol)
}

func TestRankIdempotent(t *testing.T) {
	input := []market.Candidate{
		newRankCandidate("A", 300, 700, 1, 85, 0),
		newRankCandidate("B", 800, 500, 6, 95, 1),
		newRankCandidate("C", 250, 900, 12, 80, 2),
	}

	once := Rank(input)
	twice := Rank(once)

	for i := range once {
		assert.Equal(t, once[i].Symbol, twice[i].Symbol)
	}
}

func TestScoreAgeFloor(t *testing.T) {
	fresh := newRankCandidate("FRESH", 500, 600, 0, 90, 0)
	// Age effectively zero: the epsilon floor keeps the score finite.
	score := Score(fresh)
	assert.Less(t, score, 1e13)
	assert.Greater(t, score, 0.0)
}
