package features

import (
	"math"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/helios-trading/helios/internal/solana"
)

// volState holds per-mint volatility state.
type volState struct {
	prices []float64 // circular buffer of observed prices
	head   int       // next write position
	count  int       // number of valid entries (up to capacity)
}

// Volatility estimates price volatility from the candidate prices observed
// on catalog refreshes.
//
// Method:
//  1. Maintain a rolling window of the last N prices per mint.
//  2. Compute log-returns: r_i = ln(price_i / price_{i-1})
//  3. vol = std(returns)
//
// The estimate is not annualized: the trade gate's ceiling is expressed on
// the raw standard deviation of refresh-to-refresh returns.
//
// Cold start: returns 0 until at least 2 prices are in the buffer.
type Volatility struct {
	capacity int
	mu       sync.RWMutex
	states   map[solana.Pubkey]*volState
}

// NewVolatility creates a Volatility estimator.
// capacity is the number of prices to keep in the rolling window.
func NewVolatility(capacity int) *Volatility {
	if capacity < 2 {
		capacity = 2
	}
	return &Volatility{
		capacity: capacity,
		states:   make(map[solana.Pubkey]*volState),
	}
}

// Observe records a price for a mint. Non-positive prices are skipped.
func (v *Volatility) Observe(mint solana.Pubkey, price decimal.Decimal) {
	p := price.InexactFloat64()
	if p <= 0 {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	s := v.getOrCreate(mint)
	s.prices[s.head] = p
	s.head = (s.head + 1) % v.capacity
	if s.count < v.capacity {
		s.count++
	}
}

// Value returns the volatility estimate for a mint.
// Returns 0 if fewer than 2 prices are available.
func (v *Volatility) Value(mint solana.Pubkey) float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()

	s, ok := v.states[mint]
	if !ok || s.count < 2 {
		return 0
	}

	return v.compute(s)
}

// Ready reports whether the estimate has warmed up for a mint.
func (v *Volatility) Ready(mint solana.Pubkey) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	s, ok := v.states[mint]
	return ok && s.count >= 2
}

// Reset drops the state for a mint.
func (v *Volatility) Reset(mint solana.Pubkey) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.states, mint)
}

func (v *Volatility) getOrCreate(mint solana.Pubkey) *volState {
	s, ok := v.states[mint]
	if !ok {
		s = &volState{
			prices: make([]float64, v.capacity),
		}
		v.states[mint] = s
	}
	return s
}

// compute calculates volatility from the price buffer.
// Caller must hold at least a read lock, and s.count must be >= 2.
func (v *Volatility) compute(s *volState) float64 {
	n := s.count

	// Iterate through the circular buffer in chronological order.
	// The oldest entry is at (head - count + capacity) % capacity.
	startIdx := (s.head - n + v.capacity) % v.capacity

	sumReturns := 0.0
	returns := make([]float64, 0, n-1)

	prevPrice := s.prices[startIdx]
	for i := 1; i < n; i++ {
		idx := (startIdx + i) % v.capacity
		curPrice := s.prices[idx]

		if prevPrice <= 0 || curPrice <= 0 {
			prevPrice = curPrice
			continue
		}

		r := math.Log(curPrice / prevPrice)
		returns = append(returns, r)
		sumReturns += r
		prevPrice = curPrice
	}

	if len(returns) < 1 {
		return 0
	}

	mean := sumReturns / float64(len(returns))

	sumSqDev := 0.0
	for _, r := range returns {
		d := r - mean
		sumSqDev += d * d
	}

	var variance float64
	if len(returns) > 1 {
		variance = sumSqDev / float64(len(returns)-1) // Bessel's correction
	} else {
		variance = sumSqDev
	}

	return math.Sqrt(variance)
}
