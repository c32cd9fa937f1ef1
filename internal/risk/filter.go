package risk

import (
	"github.com/shopspring/decimal"

	"github.com/helios-trading/helios/internal/market"
)

// Limits are the filter thresholds. Boundary values are inclusive: a
// candidate sitting exactly on a limit passes.
type Limits struct {
	MinSafetyScore  float64
	MaxTopHolderPct float64
	MinLiquiditySOL decimal.Decimal
	MaxMarketCapSOL decimal.Decimal
	MaxAgeHours     float64
	MinBuys24h      int
	MinSells24h     int
}

// DefaultLimits returns the production thresholds.
func DefaultLimits() Limits {
	return Limits{
		MinSafetyScore:  80,
		MaxTopHolderPct: 50,
		MinLiquiditySOL: decimal.NewFromInt(250),
		MaxMarketCapSOL: decimal.NewFromInt(6250),
		MaxAgeHours:     48,
		MinBuys24h:      500,
		MinSells24h:     250,
	}
}

// Filter applies the risk predicates to a candidate. Pure: it does no I/O
// and reads only the facts already attached to the candidate.
type Filter struct {
	limits Limits
}

// NewFilter creates a filter with the given limits.
func NewFilter(limits Limits) *Filter {
	return &Filter{limits: limits}
}

// IsSafe returns true only when every predicate holds.
func (f *Filter) IsSafe(c market.Candidate) bool {
	return len(f.Explain(c)) == 0
}

// Explain returns the names of the predicates the candidate fails, in a
// fixed order. Empty means safe.
func (f *Filter) Explain(c market.Candidate) []string {
	var failed []string

	if c.Risk.SafetyScore < f.limits.MinSafetyScore {
		failed = append(failed, "safety_score")
	}
	if c.Risk.Honeypot {
		failed = append(failed, "honeypot")
	}
	if c.Risk.MintAuthority {
		failed = append(failed, "mint_authority")
	}
	if c.Risk.FreezeAuthority {
		failed = append(failed, "freeze_authority")
	}
	if c.Risk.TopHolderPct > f.limits.MaxTopHolderPct {
		failed = append(failed, "top_holder")
	}
	if !c.Risk.OwnershipRenounced {
		failed = append(failed, "ownership")
	}
	if c.LiquiditySOL.LessThan(f.limits.MinLiquiditySOL) {
		failed = append(failed, "liquidity")
	}
	if c.MarketCapSOL.GreaterThan(f.limits.MaxMarketCapSOL) {
		failed = append(failed, "market_cap")
	}
	if c.AgeHours() > f.limits.MaxAgeHours {
		failed = append(failed, "age")
	}
	if c.Buys24h < f.limits.MinBuys24h {
		failed = append(failed, "buys_24h")
	}
	if c.Sells24h < f.limits.MinSells24h {
		failed = append(failed, "sells_24h")
	}

	return failed
}
