package trade

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/helios-trading/helios/internal/market"
	"github.com/helios-trading/helios/internal/solana"
)

// Archiver mirrors ledger entries to durable storage.
type Archiver interface {
	Archive(ctx context.Context, result TradeResult) error
}

// SimulatorConfig configures the paper simulator.
type SimulatorConfig struct {
	TradeSizeSOL decimal.Decimal
	SellCap      decimal.Decimal
	FailureRate  float64 // injected failure probability
	Seed         int64   // 0 = time-seeded
}

// paperEntry wraps a ledger entry with the bookkeeping the simulator needs
// for holdings and cost basis.
type paperEntry struct {
	TradeResult
	qty      decimal.Decimal // token quantity bought or sold
	resolved bool            // buy already matched to a sell
}

// Simulator records hypothetical trades instead of touching the chain. The
// ledger is append-only for the process lifetime; entries never mutate and
// the running total is recomputed on read.
type Simulator struct {
	cfg      SimulatorConfig
	archiver Archiver

	mu      sync.Mutex
	rng     *rand.Rand
	entries []paperEntry
}

// NewSimulator creates a paper trade simulator. archiver may be nil.
func NewSimulator(cfg SimulatorConfig, archiver Archiver) *Simulator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		cfg:      cfg,
		archiver: archiver,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Simulate records one hypothetical trade. Every call appends exactly one
// entry, successful or not.
func (s *Simulator) Simulate(action Action, c market.Candidate, walletIndex int) TradeResult {
	s.mu.Lock()

	entry := paperEntry{
		TradeResult: TradeResult{
			ID:          uuid.NewString(),
			Mint:        c.TokenMint,
			Symbol:      c.Symbol,
			Action:      action,
			WalletIndex: walletIndex,
			Timestamp:   time.Now(),
			Price:       c.PriceSOL,
			PnLSOL:      decimal.Zero,
		},
	}

	switch {
	case s.rng.Float64() < s.cfg.FailureRate:
		entry.Reason = "simulated execution failure"

	case !c.PriceSOL.IsPositive():
		entry.Reason = "no price"

	case action == ActionBuy:
		entry.Success = true
		entry.Amount = s.cfg.TradeSizeSOL
		entry.qty = s.cfg.TradeSizeSOL.Div(c.PriceSOL)
		// Cost recognized up front; recovered when the position is sold.
		entry.PnLSOL = s.cfg.TradeSizeSOL.Neg()

	case action == ActionSell:
		holdings := s.holdingsLocked(walletIndex, c.TokenMint)
		if !holdings.IsPositive() {
			entry.Reason = "no holdings"
			break
		}
		amount := decimal.Min(s.cfg.SellCap, holdings)
		basis := s.resolveBasisLocked(walletIndex, c.TokenMint)
		entry.Success = true
		entry.Amount = amount
		entry.qty = amount
		entry.PnLSOL = amount.Mul(c.PriceSOL).Sub(amount.Mul(basis))

	default:
		entry.Reason = "unknown action"
	}

	s.entries = append(s.entries, entry)
	// Logging and archiving work on the local copy; holding the mutex
	// through a slow archive would stall every ledger read.
	s.mu.Unlock()

	log.Info().
		Str("action", string(action)).
		Str("symbol", c.Symbol).
		Int("wallet", walletIndex).
		Bool("success", entry.Success).
		Str("pnl_sol", entry.PnLSOL.String()).
		Msg("paper: simulated")

	if s.archiver != nil {
		if err := s.archiver.Archive(context.Background(), entry.TradeResult); err != nil {
			log.Warn().Err(err).Str("id", entry.ID).Msg("paper: archive failed")
		}
	}

	return entry.TradeResult
}

// holdingsLocked sums the wallet's simulated position in a mint.
func (s *Simulator) holdingsLocked(walletIndex int, mint solana.Pubkey) decimal.Decimal {
	total := decimal.Zero
	for _, e := range s.entries {
		if !e.Success || e.WalletIndex != walletIndex || e.Mint != mint {
			continue
		}
		switch e.Action {
		case ActionBuy:
			total = total.Add(e.qty)
		case ActionSell:
			total = total.Sub(e.qty)
		}
	}
	return total
}

// resolveBasisLocked finds the most recent unresolved successful buy of the
// mint for the wallet, marks it resolved and returns its price. No
// unresolved buy means a zero basis.
func (s *Simulator) resolveBasisLocked(walletIndex int, mint solana.Pubkey) decimal.Decimal {
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := &s.entries[i]
		if e.Success && !e.resolved && e.Action == ActionBuy && e.WalletIndex == walletIndex && e.Mint == mint {
			e.resolved = true
			return e.Price
		}
	}
	return decimal.Zero
}

// Holdings reports the wallet's simulated position in a mint.
func (s *Simulator) Holdings(walletIndex int, mint solana.Pubkey) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holdingsLocked(walletIndex, mint)
}

// Entries returns a copy of the ledger in append order.
func (s *Simulator) Entries() []TradeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TradeResult, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.TradeResult
	}
	return out
}

// TotalPnL recomputes the running total over the ledger.
func (s *Simulator) TotalPnL() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, e := range s.entries {
		total = total.Add(e.PnLSOL)
	}
	return total
}
