package solana

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Chain connector interface
// ---------------------------------------------------------------------------

// Connector is the interface to the Solana chain.
// Implementations: LiveConnector (real RPC + swap aggregator), StubConnector
// (testing).
type Connector interface {
	// GetBalance returns the SOL balance of an address.
	GetBalance(ctx context.Context, addr Pubkey) (decimal.Decimal, error)

	// GetTokenHoldings returns the ui amount of mint held by addr.
	GetTokenHoldings(ctx context.Context, addr Pubkey, mint Pubkey) (decimal.Decimal, error)

	// SubmitSwap builds, signs and submits a swap transaction.
	SubmitSwap(ctx context.Context, order SwapOrder, signer Signer) (Signature, error)

	// LatestBlockhash returns a recent blockhash.
	LatestBlockhash(ctx context.Context) (Blockhash, error)

	// Health returns the RPC endpoint health.
	Health(ctx context.Context) error
}

// ---------------------------------------------------------------------------
// Stub connector (for testing and development)
// ---------------------------------------------------------------------------

// StubConnector is a mock chain connector for testing.
type StubConnector struct {
	mu          sync.RWMutex
	balances    map[Pubkey]decimal.Decimal
	holdings    map[Pubkey]map[Pubkey]decimal.Decimal // addr -> mint -> amount
	submissions []SwapOrder
	failNext    bool
}

// NewStubConnector creates a stub connector for testing.
func NewStubConnector() *StubConnector {
	return &StubConnector{
		balances: make(map[Pubkey]decimal.Decimal),
		holdings: make(map[Pubkey]map[Pubkey]decimal.Decimal),
	}
}

// SetBalance registers a SOL balance for an address.
func (s *StubConnector) SetBalance(addr Pubkey, sol decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[addr] = sol
}

// SetHoldings registers token holdings for an address.
func (s *StubConnector) SetHoldings(addr, mint Pubkey, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.holdings[addr] == nil {
		s.holdings[addr] = make(map[Pubkey]decimal.Decimal)
	}
	s.holdings[addr][mint] = amount
}

// SetFailNext makes the next call fail.
func (s *StubConnector) SetFailNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = true
}

// Submissions returns a copy of the swap orders submitted so far.
func (s *StubConnector) Submissions() []SwapOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SwapOrder, len(s.submissions))
	copy(out, s.submissions)
	return out
}

func (s *StubConnector) shouldFail() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return true
	}
	return false
}

// --- Interface implementation ---

func (s *StubConnector) GetBalance(_ context.Context, addr Pubkey) (decimal.Decimal, error) {
	if s.shouldFail() {
		return decimal.Zero, fmt.Errorf("stub: simulated RPC failure")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[addr], nil
}

func (s *StubConnector) GetTokenHoldings(_ context.Context, addr Pubkey, mint Pubkey) (decimal.Decimal, error) {
	if s.shouldFail() {
		return decimal.Zero, fmt.Errorf("stub: simulated RPC failure")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.holdings[addr][mint], nil
}

func (s *StubConnector) SubmitSwap(_ context.Context, order SwapOrder, _ Signer) (Signature, error) {
	if s.shouldFail() {
		return "", fmt.Errorf("stub: simulated RPC failure")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append(s.submissions, order)
	return Signature(fmt.Sprintf("stub-sig-%d", time.Now().UnixNano())), nil
}

func (s *StubConnector) LatestBlockhash(_ context.Context) (Blockhash, error) {
	if s.shouldFail() {
		return "", fmt.Errorf("stub: simulated RPC failure")
	}
	return Blockhash("StubB1ockhash11111111111111111111111111111111"), nil
}

func (s *StubConnector) Health(_ context.Context) error {
	if s.shouldFail() {
		return fmt.Errorf("stub: simulated RPC failure")
	}
	return nil
}
