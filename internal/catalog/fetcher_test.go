package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helios-trading/helios/internal/features"
	"github.com/helios-trading/helios/internal/market"
	"github.com/helios-trading/helios/internal/ratelimit"
	"github.com/helios-trading/helios/internal/risk"
	"github.com/helios-trading/helios/internal/solana"
)

const (
	testMint = "TESTMint111111111111111111111111111111111111"
	testPool = "TESTPoo1111111111111111111111111111111111111"
)

func newTestPair() Pair {
	return Pair{
		ChainID:       solanaChainID,
		DexID:         "raydium",
		PairAddress:   testPool,
		BaseToken:     Token{Address: testMint, Symbol: "TEST"},
		QuoteToken:    Token{Address: string(solana.SOLMint), Symbol: "SOL"},
		PriceNative:   "0.0001",
		Liquidity:     Liquidity{Quote: 500, Base: 5_000_000},
		Fdv:           3000,
		PairCreatedAt: time.Now().Add(-2 * time.Hour).UnixMilli(),
	}
}

type testFetcher struct {
	fetcher *Fetcher
	client  *StubClient
	volume  *StubVolume
	scoring *risk.StubScoring
}

func newTestFetcher(t *testing.T, ttl time.Duration) *testFetcher {
	t.Helper()

	client := NewStubClient()
	client.SetPairs([]Pair{newTestPair()})

	volume := NewStubVolume()
	volume.SetCounts(testPool, 900, 400)

	scoring := risk.NewStubScoring()

	f := NewFetcher(
		FetcherConfig{Query: "SOL", CacheTTL: ttl, Workers: 2},
		client, volume, scoring,
		risk.NewFilter(risk.DefaultLimits()),
		features.NewVolatility(16),
		nil, // no rate limit in tests
	)

	return &testFetcher{fetcher: f, client: client, volume: volume, scoring: scoring}
}

func TestRefreshDiscoversCandidate(t *testing.T) {
	tf := newTestFetcher(t, time.Minute)

	candidates := tf.fetcher.Refresh(context.Background())
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, solana.Pubkey(testMint), c.TokenMint)
	assert.Equal(t, solana.Pubkey(testPool), c.PoolAddress)
	assert.Equal(t, "TEST", c.Symbol)
	assert.Equal(t, "500", c.LiquiditySOL.String())
	assert.Equal(t, "3000", c.MarketCapSOL.String())
	assert.Equal(t, 900, c.Buys24h)
	assert.Equal(t, 400, c.Sells24h)
	assert.Equal(t, 100.0, c.Risk.SafetyScore)
}

func TestRefreshWithinTTLReturnsCachedList(t *testing.T) {
	tf := newTestFetcher(t, time.Minute)

	first := tf.fetcher.Refresh(context.Background())
	second := tf.fetcher.Refresh(context.Background())

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.True(t, &first[0] == &second[0], "cached refresh must return the same list")
	assert.Equal(t, 1, tf.client.Calls())
}

func TestRefreshAfterTTLRefetches(t *testing.T) {
	tf := newTestFetcher(t, 10*time.Millisecond)

	tf.fetcher.Refresh(context.Background())
	time.Sleep(20 * time.Millisecond)
	tf.fetcher.Refresh(context.Background())

	assert.Equal(t, 2, tf.client.Calls())
}

func TestRefreshSoftFailKeepsPreviousList(t *testing.T) {
	tf := newTestFetcher(t, 10*time.Millisecond)

	first := tf.fetcher.Refresh(context.Background())
	require.Len(t, first, 1)

	time.Sleep(20 * time.Millisecond)
	tf.client.SetFailNext()
	second := tf.fetcher.Refresh(context.Background())

	require.Len(t, second, 1)
	assert.Equal(t, first[0].TokenMint, second[0].TokenMint)
	assert.Equal(t, int64(1), tf.fetcher.Stats().SoftFails)
}

func TestExpireCacheForcesRefetch(t *testing.T) {
	tf := newTestFetcher(t, time.Hour)

	tf.fetcher.Refresh(context.Background())
	tf.fetcher.ExpireCache()
	tf.fetcher.Refresh(context.Background())

	assert.Equal(t, 2, tf.client.Calls())
}

func TestRefreshRejectsUnsafeCandidate(t *testing.T) {
	tf := newTestFetcher(t, time.Minute)
	tf.scoring.AddFacts(testMint, market.RiskFacts{
		SafetyScore:        79, // below the floor
		OwnershipRenounced: true,
	})

	candidates := tf.fetcher.Refresh(context.Background())
	assert.Empty(t, candidates)
}

func TestRefreshVolumeErrorRejects(t *testing.T) {
	tf := newTestFetcher(t, time.Minute)
	tf.volume.SetFailNext()

	// Zero counts fall below the buy/sell floors.
	candidates := tf.fetcher.Refresh(context.Background())
	assert.Empty(t, candidates)
}

func TestRefreshBoundaryCandidatePasses(t *testing.T) {
	tf := newTestFetcher(t, time.Minute)

	pair := newTestPair()
	pair.Liquidity.Quote = 250
	pair.Fdv = 6250
	pair.PairCreatedAt = time.Now().Add(-47 * time.Hour).UnixMilli()
	tf.client.SetPairs([]Pair{pair})
	tf.volume.SetCounts(testPool, 500, 250)
	tf.scoring.AddFacts(testMint, market.RiskFacts{
		SafetyScore:        80,
		TopHolderPct:       50,
		OwnershipRenounced: true,
	})

	candidates := tf.fetcher.Refresh(context.Background())
	require.Len(t, candidates, 1)
}

func TestResolvePairFlipsSOLBase(t *testing.T) {
	pair := newTestPair()
	pair.BaseToken = Token{Address: string(solana.SOLMint), Symbol: "SOL"}
	pair.QuoteToken = Token{Address: testMint, Symbol: "TEST"}
	pair.PriceNative = "10000" // SOL priced in tokens
	pair.Liquidity = Liquidity{Base: 500, Quote: 5_000_000}

	c, ok := resolvePair(pair, 0)
	require.True(t, ok)
	assert.Equal(t, solana.Pubkey(testMint), c.TokenMint)
	assert.Equal(t, "500", c.LiquiditySOL.String())
	assert.Equal(t, "0.0001", c.PriceSOL.String())
}

func TestRefreshFactResolutionUsesLimiter(t *testing.T) {
	// Search plus one token per candidate; a fast refill keeps the test
	// quick while still draining the bucket through every call site.
	limiter := ratelimit.New(1000, 1)
	defer limiter.Close()

	secondMint := "TESTMint211111111111111111111111111111111111"
	secondPool := "TESTPoo2111111111111111111111111111111111111"
	second := newTestPair()
	second.PairAddress = secondPool
	second.BaseToken = Token{Address: secondMint, Symbol: "TWO"}

	client := NewStubClient()
	client.SetPairs([]Pair{newTestPair(), second})
	volume := NewStubVolume()
	volume.SetCounts(testPool, 900, 400)
	volume.SetCounts(solana.Pubkey(secondPool), 900, 400)

	f := NewFetcher(
		FetcherConfig{Query: "SOL", CacheTTL: time.Minute, AcquireWait: time.Second, Workers: 2},
		client, volume, risk.NewStubScoring(),
		risk.NewFilter(risk.DefaultLimits()),
		features.NewVolatility(16),
		limiter,
	)

	candidates := f.Refresh(context.Background())
	require.Len(t, candidates, 2)
}

func TestResolvePairSkipsNonSOLPairs(t *testing.T) {
	pair := newTestPair()
	pair.QuoteToken = Token{Address: string(solana.USDCMint), Symbol: "USDC"}

	_, ok := resolvePair(pair, 0)
	assert.False(t, ok)
}
