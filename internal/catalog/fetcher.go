package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/helios-trading/helios/internal/features"
	"github.com/helios-trading/helios/internal/market"
	"github.com/helios-trading/helios/internal/rank"
	"github.com/helios-trading/helios/internal/ratelimit"
	"github.com/helios-trading/helios/internal/risk"
	"github.com/helios-trading/helios/internal/solana"
)

// FetcherConfig configures the catalog fetcher.
type FetcherConfig struct {
	Query       string
	CacheTTL    time.Duration
	AcquireWait time.Duration // max wait for a rate token before deferring
	Workers     int           // fact-resolution fan-out bound
}

// Fetcher discovers candidates: it pulls raw pool records from the catalog,
// resolves volume and risk facts per pool, filters, ranks and caches the
// survivors. Refresh never returns an error: on any upstream failure the
// previous list stands.
type Fetcher struct {
	cfg     FetcherConfig
	client  Client
	volume  VolumeService
	scoring risk.ScoringService
	filter  *risk.Filter
	vol     *features.Volatility
	limiter *ratelimit.Limiter

	mu          sync.Mutex
	cached      []market.Candidate
	refreshedAt time.Time

	refreshes atomic.Int64
	deferred  atomic.Int64
	softFails atomic.Int64
}

// NewFetcher creates a catalog fetcher.
func NewFetcher(cfg FetcherConfig, client Client, volume VolumeService, scoring risk.ScoringService, filter *risk.Filter, vol *features.Volatility, limiter *ratelimit.Limiter) *Fetcher {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 60 * time.Second
	}
	if cfg.Workers < 1 {
		cfg.Workers = 8
	}
	return &Fetcher{
		cfg:     cfg,
		client:  client,
		volume:  volume,
		scoring: scoring,
		filter:  filter,
		vol:     vol,
		limiter: limiter,
	}
}

// Refresh returns the current candidate list, refetching when the cache is
// older than the TTL. A refresh younger than the TTL returns the cached
// slice itself; callers must not mutate it.
func (f *Fetcher) Refresh(ctx context.Context) []market.Candidate {
	f.mu.Lock()
	if !f.refreshedAt.IsZero() && time.Since(f.refreshedAt) < f.cfg.CacheTTL {
		cached := f.cached
		f.mu.Unlock()
		return cached
	}
	f.mu.Unlock()

	if f.limiter != nil && !f.limiter.AcquireWithin(f.cfg.AcquireWait) {
		f.deferred.Add(1)
		log.Debug().Msg("catalog: rate limited, refresh deferred")
		return f.snapshot()
	}

	pairs, err := f.client.Search(ctx, f.cfg.Query)
	if err != nil {
		f.softFails.Add(1)
		log.Warn().Err(err).Msg("catalog: refresh failed, keeping previous list")
		return f.snapshot()
	}

	raw := make([]market.Candidate, 0, len(pairs))
	for _, p := range pairs {
		if c, ok := resolvePair(p, len(raw)); ok {
			raw = append(raw, c)
		}
	}

	f.resolveFacts(ctx, raw)

	for _, c := range raw {
		f.vol.Observe(c.TokenMint, c.PriceSOL)
	}

	safe := raw[:0:0]
	for _, c := range raw {
		if f.filter.IsSafe(c) {
			safe = append(safe, c)
		} else {
			log.Debug().
				Str("symbol", c.Symbol).
				Strs("failed", f.filter.Explain(c)).
				Msg("catalog: candidate rejected")
		}
	}

	ranked := rank.Rank(safe)

	f.mu.Lock()
	f.cached = ranked
	f.refreshedAt = time.Now()
	f.mu.Unlock()

	f.refreshes.Add(1)
	log.Info().
		Int("pairs", len(pairs)).
		Int("resolved", len(raw)).
		Int("candidates", len(ranked)).
		Msg("catalog: refreshed")

	return ranked
}

// ExpireCache forces the next Refresh to refetch. Used by the pair stream
// when a new pool appears.
func (f *Fetcher) ExpireCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshedAt = time.Time{}
}

func (f *Fetcher) snapshot() []market.Candidate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cached
}

// resolveFacts fills volume counts and risk facts for every candidate with
// a bounded worker fan-out. Per-signal failures degrade to the rejecting
// value: zero counts, worst-case risk facts.
func (f *Fetcher) resolveFacts(ctx context.Context, candidates []market.Candidate) {
	sem := make(chan struct{}, f.cfg.Workers)
	var wg sync.WaitGroup

	for i := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(c *market.Candidate) {
			defer wg.Done()
			defer func() { <-sem }()

			// The volume and scoring calls share the catalog limiter so a
			// large refresh cannot burst past the configured rate.
			if f.limiter != nil {
				if err := f.limiter.Acquire(ctx); err != nil {
					return
				}
			}

			buys, sells, err := f.volume.Counts24h(ctx, c.PoolAddress)
			if err != nil {
				log.Debug().Err(err).Str("pool", string(c.PoolAddress)).Msg("catalog: volume unavailable")
				buys, sells = 0, 0
			}
			c.Buys24h = buys
			c.Sells24h = sells

			c.Risk = risk.Resolve(ctx, f.scoring, c.TokenMint)
		}(&candidates[i])
	}

	wg.Wait()
}

// resolvePair converts a raw pool record into a candidate. The SOL side of
// the pair is the quote asset; records where SOL is listed as base are
// flipped. Pairs without a SOL side are skipped.
func resolvePair(p Pair, order int) (market.Candidate, bool) {
	if p.ChainID != solanaChainID {
		return market.Candidate{}, false
	}
	if p.BaseToken.Address == "" || p.QuoteToken.Address == "" {
		return market.Candidate{}, false
	}

	priceNative, err := decimal.NewFromString(p.PriceNative)
	if err != nil || !priceNative.IsPositive() {
		return market.Candidate{}, false
	}

	var (
		token        Token
		liquiditySOL decimal.Decimal
		priceSOL     decimal.Decimal
	)
	switch {
	case solana.Pubkey(p.QuoteToken.Address) == solana.SOLMint:
		token = p.BaseToken
		liquiditySOL = decimal.NewFromFloat(p.Liquidity.Quote)
		priceSOL = priceNative
	case solana.Pubkey(p.BaseToken.Address) == solana.SOLMint:
		// SOL listed as base: the tradeable token is the quote side and
		// priceNative is SOL priced in tokens.
		token = p.QuoteToken
		liquiditySOL = decimal.NewFromFloat(p.Liquidity.Base)
		priceSOL = decimal.NewFromInt(1).Div(priceNative)
	default:
		return market.Candidate{}, false
	}

	marketCap := decimal.NewFromFloat(p.Fdv)
	if !marketCap.IsPositive() {
		marketCap = liquiditySOL.Mul(decimal.NewFromInt(2))
	}

	return market.Candidate{
		TokenMint:      solana.Pubkey(token.Address),
		PoolAddress:    solana.Pubkey(p.PairAddress),
		Symbol:         token.Symbol,
		LiquiditySOL:   liquiditySOL,
		MarketCapSOL:   marketCap,
		PriceSOL:       priceSOL,
		CreatedAt:      p.CreatedAt(),
		DiscoveryOrder: order,
	}, true
}

// FetcherStats are counters exposed on the stats endpoint.
type FetcherStats struct {
	Refreshes   int64     `json:"refreshes"`
	Deferred    int64     `json:"deferred"`
	SoftFails   int64     `json:"soft_fails"`
	Candidates  int       `json:"candidates"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

func (f *Fetcher) Stats() FetcherStats {
	f.mu.Lock()
	candidates := len(f.cached)
	refreshedAt := f.refreshedAt
	f.mu.Unlock()

	return FetcherStats{
		Refreshes:   f.refreshes.Load(),
		Deferred:    f.deferred.Load(),
		SoftFails:   f.softFails.Load(),
		Candidates:  candidates,
		RefreshedAt: refreshedAt,
	}
}
