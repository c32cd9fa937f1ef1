package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helios-trading/helios/internal/catalog"
	"github.com/helios-trading/helios/internal/features"
	"github.com/helios-trading/helios/internal/risk"
	"github.com/helios-trading/helios/internal/sentiment"
	"github.com/helios-trading/helios/internal/solana"
	"github.com/helios-trading/helios/internal/trade"
	"github.com/helios-trading/helios/internal/wallet"
)

const (
	testMint = "TESTMint111111111111111111111111111111111111"
	testPool = "TESTPoo1111111111111111111111111111111111111"
)

type testStack struct {
	orch      *Orchestrator
	client    *catalog.StubClient
	volume    *catalog.StubVolume
	scoring   *risk.StubScoring
	provider  *sentiment.StubProvider
	connector *solana.StubConnector
	vol       *features.Volatility
	simulator *trade.Simulator
	set       *wallet.Set
}

func newTestPair() catalog.Pair {
	return catalog.Pair{
		ChainID:       "solana",
		PairAddress:   testPool,
		BaseToken:     catalog.Token{Address: testMint, Symbol: "TEST"},
		QuoteToken:    catalog.Token{Address: string(solana.SOLMint), Symbol: "SOL"},
		PriceNative:   "0.0001",
		Liquidity:     catalog.Liquidity{Quote: 500},
		Fdv:           3000,
		PairCreatedAt: time.Now().Add(-2 * time.Hour).UnixMilli(),
	}
}

func newTestStack(t *testing.T, dryRun bool) *testStack {
	t.Helper()

	client := catalog.NewStubClient()
	client.SetPairs([]catalog.Pair{newTestPair()})
	volume := catalog.NewStubVolume()
	volume.SetCounts(testPool, 900, 400)
	scoring := risk.NewStubScoring()
	vol := features.NewVolatility(16)

	fetcher := catalog.NewFetcher(
		catalog.FetcherConfig{Query: "SOL", CacheTTL: time.Hour, Workers: 2},
		client, volume, scoring,
		risk.NewFilter(risk.DefaultLimits()),
		vol, nil,
	)

	provider := sentiment.NewStubProvider(0.5)
	gate := sentiment.NewGate(provider, 0.3, 0.05, 80)

	wallets := []*wallet.Wallet{wallet.NewRandomWallet(0), wallet.NewRandomWallet(1)}
	set := wallet.NewSetFromWallets(wallets...)
	connector := solana.NewStubConnector()
	allocator := wallet.NewAllocator(set, connector)

	tradeSize := decimal.NewFromFloat(0.01)
	executor := trade.NewExecutor(trade.ExecutorConfig{
		TradeSizeSOL: tradeSize,
		SlippageBps:  100,
		SellCap:      decimal.NewFromInt(1000),
	}, connector)
	simulator := trade.NewSimulator(trade.SimulatorConfig{
		TradeSizeSOL: tradeSize,
		SellCap:      decimal.NewFromInt(1000),
		FailureRate:  0,
		Seed:         1,
	}, nil)

	orch := New(
		Config{DryRun: dryRun, TradeSizeSOL: tradeSize, WalletCount: set.Len()},
		fetcher, gate, vol, allocator, executor, simulator,
	)

	return &testStack{
		orch:      orch,
		client:    client,
		volume:    volume,
		scoring:   scoring,
		provider:  provider,
		connector: connector,
		vol:       vol,
		simulator: simulator,
		set:       set,
	}
}

func (ts *testStack) fund(index int, sol float64) {
	ts.connector.SetBalance(ts.set.At(index).PublicKey(), decimal.NewFromFloat(sol))
}

func TestCycleExecutesBuy(t *testing.T) {
	ts := newTestStack(t, false)
	ts.fund(0, 1.0)

	outcome := ts.orch.RunCycle(context.Background())

	assert.Equal(t, StageExecute, outcome.Stage)
	assert.Equal(t, trade.ActionBuy, outcome.Action)
	assert.Equal(t, "TEST", outcome.Symbol)
	assert.Equal(t, 0, outcome.WalletIndex)
	require.NotNil(t, outcome.Result)
	assert.True(t, outcome.Result.Success)
	assert.Len(t, ts.connector.Submissions(), 1)
}

func TestCycleHoldsOnNeutralSentiment(t *testing.T) {
	ts := newTestStack(t, false)
	ts.fund(0, 1.0)
	ts.provider.SetScore(0.1)

	outcome := ts.orch.RunCycle(context.Background())

	assert.Equal(t, StageNoTrade, outcome.Stage)
	assert.Contains(t, outcome.Reason, "hold")
	assert.Empty(t, ts.connector.Submissions())
}

func TestCycleHoldsOnSentimentError(t *testing.T) {
	ts := newTestStack(t, false)
	ts.fund(0, 1.0)
	ts.provider.SetFailNext()

	outcome := ts.orch.RunCycle(context.Background())
	assert.Equal(t, StageNoTrade, outcome.Stage)
}

func TestCycleNoCandidates(t *testing.T) {
	ts := newTestStack(t, false)
	ts.fund(0, 1.0)
	ts.client.SetPairs(nil)

	outcome := ts.orch.RunCycle(context.Background())

	assert.Equal(t, StageNoTrade, outcome.Stage)
	assert.Contains(t, outcome.Reason, "no candidates")
}

func TestCycleSkipsWhenNoWalletFunded(t *testing.T) {
	ts := newTestStack(t, false)
	ts.fund(0, 0.001)
	ts.fund(1, 0.002)

	outcome := ts.orch.RunCycle(context.Background())

	assert.Equal(t, StageSkipped, outcome.Stage)
	assert.Contains(t, outcome.Reason, "no wallet")
	assert.Empty(t, ts.connector.Submissions())
}

func TestCycleBlockedByVolatility(t *testing.T) {
	ts := newTestStack(t, false)
	ts.fund(0, 1.0)

	// Wild swings push the estimate over the 0.05 ceiling.
	for _, p := range []float64{0.0001, 0.0002, 0.00005, 0.0003} {
		ts.vol.Observe(testMint, decimal.NewFromFloat(p))
	}

	outcome := ts.orch.RunCycle(context.Background())

	assert.Equal(t, StageNoTrade, outcome.Stage)
	assert.Contains(t, outcome.Reason, "ineligible")
}

func TestCycleDryRunSimulates(t *testing.T) {
	ts := newTestStack(t, true)

	outcome := ts.orch.RunCycle(context.Background())

	assert.Equal(t, StageSimulate, outcome.Stage)
	require.NotNil(t, outcome.Result)
	assert.True(t, outcome.Result.Success)
	assert.Empty(t, ts.connector.Submissions(), "paper mode never touches the chain")

	entries, total := ts.orch.PaperLedger()
	assert.Len(t, entries, 1)
	assert.Equal(t, "-0.01", total.String())
}

func TestCycleDryRunSellUsesPaperHoldings(t *testing.T) {
	ts := newTestStack(t, true)

	// First cycle buys on wallet 0.
	first := ts.orch.RunCycle(context.Background())
	require.Equal(t, StageSimulate, first.Stage)
	require.Equal(t, trade.ActionBuy, first.Action)

	ts.provider.SetScore(-0.5)
	second := ts.orch.RunCycle(context.Background())

	assert.Equal(t, StageSimulate, second.Stage)
	assert.Equal(t, trade.ActionSell, second.Action)
	assert.Equal(t, 0, second.WalletIndex)
	require.NotNil(t, second.Result)
	assert.True(t, second.Result.Success)
}

func TestCycleSellAllocatesByHoldings(t *testing.T) {
	ts := newTestStack(t, false)
	ts.fund(0, 1.0)
	ts.fund(1, 1.0)
	ts.connector.SetHoldings(ts.set.At(1).PublicKey(), testMint, decimal.NewFromInt(200))
	ts.provider.SetScore(-0.5)

	outcome := ts.orch.RunCycle(context.Background())

	assert.Equal(t, StageExecute, outcome.Stage)
	assert.Equal(t, trade.ActionSell, outcome.Action)
	assert.Equal(t, 1, outcome.WalletIndex)

	subs := ts.connector.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "200", subs[0].AmountIn.String())
}

func TestTradeUnknownSymbol(t *testing.T) {
	ts := newTestStack(t, false)

	_, err := ts.orch.Trade(context.Background(), trade.ActionBuy, "NOPE")
	assert.ErrorIs(t, err, trade.ErrNotFound)
}

func TestTradeInsufficientResource(t *testing.T) {
	ts := newTestStack(t, false)

	_, err := ts.orch.Trade(context.Background(), trade.ActionBuy, "TEST")
	assert.ErrorIs(t, err, trade.ErrInsufficientResource)
}

func TestPaperTradeBySymbol(t *testing.T) {
	ts := newTestStack(t, true)

	result, err := ts.orch.PaperTrade(context.Background(), trade.ActionBuy, "test")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "TEST", result.Symbol)
}

func TestBalancesBoundary(t *testing.T) {
	ts := newTestStack(t, false)
	ts.fund(0, 1.5)
	ts.connector.SetHoldings(ts.set.At(0).PublicKey(), testMint, decimal.NewFromInt(42))

	balances := ts.orch.Balances(context.Background())
	require.Len(t, balances, 2)
	assert.Equal(t, "1.5", balances[0].SOL.String())
	assert.Equal(t, "42", balances[0].Token.String())
}

func TestStatsCount(t *testing.T) {
	ts := newTestStack(t, true)

	ts.orch.RunCycle(context.Background())
	ts.provider.SetScore(0.0)
	ts.orch.RunCycle(context.Background())

	stats := ts.orch.Stats()
	assert.Equal(t, int64(2), stats.CyclesRun)
	assert.Equal(t, int64(1), stats.Simulated)
}
