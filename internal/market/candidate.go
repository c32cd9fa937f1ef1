package market

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/helios-trading/helios/internal/solana"
)

// RiskFacts are the already-fetched safety facts for a token.
// SafetyScore is the composite score: min(external safety, external risk).
type RiskFacts struct {
	SafetyScore        float64 `json:"safety_score"` // 0-100
	Honeypot           bool    `json:"honeypot"`
	MintAuthority      bool    `json:"mint_authority"`   // true = authority still present
	FreezeAuthority    bool    `json:"freeze_authority"` // true = authority still present
	TopHolderPct       float64 `json:"top_holder_pct"`   // % of supply held by top holder
	OwnershipRenounced bool    `json:"ownership_renounced"`
}

// Candidate is a discovered token/pool pair. Candidates are recomputed
// fresh on every catalog refresh; one that fails a risk predicate is never
// surfaced downstream or retained.
type Candidate struct {
	TokenMint   solana.Pubkey `json:"token_mint"`
	PoolAddress solana.Pubkey `json:"pool_address"`
	Symbol      string        `json:"symbol"`

	// Market facts, denominated in SOL (the base asset).
	LiquiditySOL decimal.Decimal `json:"liquidity_sol"`
	MarketCapSOL decimal.Decimal `json:"market_cap_sol"`
	PriceSOL     decimal.Decimal `json:"price_sol"` // SOL per token
	CreatedAt    time.Time       `json:"created_at"`
	Buys24h      int             `json:"buys_24h"`
	Sells24h     int             `json:"sells_24h"`

	Risk RiskFacts `json:"risk"`

	// DiscoveryOrder is the position in the catalog response, used as the
	// stable tiebreak when ranking.
	DiscoveryOrder int `json:"-"`
}

// Age returns the time since pool creation.
func (c Candidate) Age() time.Duration {
	return time.Since(c.CreatedAt)
}

// AgeHours returns the age in fractional hours.
func (c Candidate) AgeHours() float64 {
	return c.Age().Hours()
}
