package sentiment

import (
	"context"
	"fmt"
	"sync"
)

// Provider produces an aggregate market sentiment score in [-1, 1].
// Positive means bullish chatter, negative bearish.
type Provider interface {
	Score(ctx context.Context) (float64, error)
}

// ---------------------------------------------------------------------------
// Stub provider (for testing and development)
// ---------------------------------------------------------------------------

// StubProvider returns a fixed score, optionally failing on demand.
type StubProvider struct {
	mu       sync.Mutex
	score    float64
	failNext bool
}

// NewStubProvider creates a stub provider with the given score.
func NewStubProvider(score float64) *StubProvider {
	return &StubProvider{score: score}
}

// SetScore changes the score returned by subsequent calls.
func (s *StubProvider) SetScore(score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.score = score
}

// SetFailNext makes the next Score call fail.
func (s *StubProvider) SetFailNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = true
}

func (s *StubProvider) Score(_ context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return 0, fmt.Errorf("stub: simulated sentiment failure")
	}
	return s.score, nil
}
