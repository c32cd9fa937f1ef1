package sentiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helios-trading/helios/internal/market"
)

func newTestGate(provider Provider) *Gate {
	return NewGate(provider, 0.3, 0.05, 80)
}

func TestGateDecide(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  Signal
	}{
		{"just above buy threshold", 0.31, SignalBuy},
		{"just below buy threshold", 0.29, SignalHold},
		{"exactly at threshold", 0.3, SignalHold},
		{"just below sell threshold", -0.31, SignalSell},
		{"just above sell threshold", -0.29, SignalHold},
		{"neutral", 0, SignalHold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGate(NewStubProvider(tt.score))
			signal, score := g.Decide(context.Background())
			assert.Equal(t, tt.want, signal)
			assert.Equal(t, tt.score, score)
		})
	}
}

func TestGateDecideProviderError(t *testing.T) {
	provider := NewStubProvider(0.9)
	provider.SetFailNext()
	g := newTestGate(provider)

	signal, score := g.Decide(context.Background())
	assert.Equal(t, SignalHold, signal)
	assert.Equal(t, 0.0, score)
}

func TestGateEligible(t *testing.T) {
	g := newTestGate(NewStubProvider(0.5))
	top := market.Candidate{Risk: market.RiskFacts{SafetyScore: 90}}

	assert.True(t, g.Eligible(top, 0.01))
	assert.False(t, g.Eligible(top, 0.05), "ceiling is exclusive")
	assert.False(t, g.Eligible(top, 0.2))

	weak := market.Candidate{Risk: market.RiskFacts{SafetyScore: 79}}
	assert.False(t, g.Eligible(weak, 0.01))

	floor := market.Candidate{Risk: market.RiskFacts{SafetyScore: 80}}
	assert.True(t, g.Eligible(floor, 0.01), "safety floor is inclusive")
}

func TestLexiconProviderScores(t *testing.T) {
	bullish := NewLexiconProvider(StaticFeed{
		"this gem is going to moon, very bullish",
		"lfg pump it",
	})
	score, err := bullish.Score(context.Background())
	assert.NoError(t, err)
	assert.Greater(t, score, 0.3)

	bearish := NewLexiconProvider(StaticFeed{
		"total rug, scam token",
		"dump it before the crash",
	})
	score, err = bearish.Score(context.Background())
	assert.NoError(t, err)
	assert.Less(t, score, -0.3)
}

func TestLexiconProviderEmptyFeedIsNeutral(t *testing.T) {
	p := NewLexiconProvider(StaticFeed{})
	score, err := p.Score(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestLexiconNegation(t *testing.T) {
	p := NewLexiconProvider(StaticFeed{"not bullish at all"})
	score, err := p.Score(context.Background())
	assert.NoError(t, err)
	assert.Less(t, score, 0.0)
}
