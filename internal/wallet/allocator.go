package wallet

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/helios-trading/helios/internal/solana"
)

// Balance is one wallet's funds as seen in a single query round.
type Balance struct {
	Index   int             `json:"index"`
	Address solana.Pubkey   `json:"address"`
	SOL     decimal.Decimal `json:"sol"`
	Token   decimal.Decimal `json:"token"`
}

// Allocator picks the wallet for a trade. No reservation state is kept
// between cycles: every decision re-queries live balances, and the
// cycle-scoped exclude set stops one wallet being picked twice within a
// cycle.
type Allocator struct {
	set       *Set
	connector solana.Connector
}

// NewAllocator creates an allocator over the wallet pool.
func NewAllocator(set *Set, connector solana.Connector) *Allocator {
	return &Allocator{set: set, connector: connector}
}

// Balances queries SOL and token balances for every wallet concurrently.
// A failed query leaves that wallet's balances at zero, so it is never
// selected on bad data. Results are in wallet order.
func (a *Allocator) Balances(ctx context.Context, mint solana.Pubkey) []Balance {
	out := make([]Balance, a.set.Len())

	var wg sync.WaitGroup
	for i := 0; i < a.set.Len(); i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			w := a.set.At(idx)
			out[idx] = Balance{Index: idx, Address: w.PublicKey()}

			sol, err := a.connector.GetBalance(ctx, w.PublicKey())
			if err != nil {
				log.Warn().Err(err).Int("wallet", idx).Msg("wallet: balance query failed")
				return
			}
			out[idx].SOL = sol

			if mint == "" {
				return
			}
			token, err := a.connector.GetTokenHoldings(ctx, w.PublicKey(), mint)
			if err != nil {
				log.Warn().Err(err).Int("wallet", idx).Msg("wallet: holdings query failed")
				out[idx].SOL = decimal.Zero
				return
			}
			out[idx].Token = token
		}(i)
	}
	wg.Wait()

	return out
}

// PickForBuy returns the first wallet, in pool order, whose SOL balance
// covers the trade size. exclude holds indices already used this cycle.
func (a *Allocator) PickForBuy(ctx context.Context, tradeSize decimal.Decimal, exclude map[int]bool) (Balance, bool) {
	for _, b := range a.Balances(ctx, "") {
		if exclude[b.Index] {
			continue
		}
		if b.SOL.GreaterThanOrEqual(tradeSize) {
			return b, true
		}
	}
	return Balance{}, false
}

// PickForSell returns the first wallet, in pool order, holding any amount
// of the target mint.
func (a *Allocator) PickForSell(ctx context.Context, mint solana.Pubkey, exclude map[int]bool) (Balance, bool) {
	for _, b := range a.Balances(ctx, mint) {
		if exclude[b.Index] {
			continue
		}
		if b.Token.IsPositive() {
			return b, true
		}
	}
	return Balance{}, false
}

// Signer returns the signer for a wallet index.
func (a *Allocator) Signer(index int) solana.Signer {
	return a.set.At(index)
}
