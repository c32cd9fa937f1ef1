package trade

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helios-trading/helios/internal/market"
	"github.com/helios-trading/helios/internal/solana"
)

type testSigner struct{}

func (testSigner) PublicKey() solana.Pubkey      { return "TESTWa11et1111111111111111111111111111111111" }
func (testSigner) Sign(_ []byte) ([]byte, error) { return make([]byte, 64), nil }

func newTradeCandidate() market.Candidate {
	return market.Candidate{
		TokenMint:   "TESTMint111111111111111111111111111111111111",
		PoolAddress: "TESTPoo1111111111111111111111111111111111111",
		Symbol:      "TEST",
		PriceSOL:    decimal.NewFromFloat(0.0001),
		CreatedAt:   time.Now().Add(-time.Hour),
	}
}

func newTestExecutor(conn solana.Connector) *Executor {
	return NewExecutor(ExecutorConfig{
		TradeSizeSOL: decimal.NewFromFloat(0.01),
		SlippageBps:  100,
		SellCap:      decimal.NewFromInt(1000),
	}, conn)
}

func TestExecuteBuyOrder(t *testing.T) {
	conn := solana.NewStubConnector()
	e := newTestExecutor(conn)

	result, err := e.Execute(context.Background(), Intent{Action: ActionBuy, Candidate: newTradeCandidate()}, testSigner{}, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.Signature)

	subs := conn.Submissions()
	require.Len(t, subs, 1)
	order := subs[0]

	assert.Equal(t, solana.SOLMint, order.InputMint)
	assert.Equal(t, newTradeCandidate().TokenMint, order.OutputMint)
	assert.Equal(t, "0.01", order.AmountIn.String())
	assert.True(t, order.SkipPreflight)

	// expected out = 0.01 / 0.0001 = 100 tokens; floor = 100 * 0.99 = 99.
	assert.Equal(t, "99", order.MinAmountOut.String())
}

func TestExecuteSellCapsAmount(t *testing.T) {
	conn := solana.NewStubConnector()
	e := newTestExecutor(conn)

	_, err := e.Execute(context.Background(), Intent{Action: ActionSell, Candidate: newTradeCandidate()}, testSigner{}, decimal.NewFromInt(5000))
	require.NoError(t, err)

	subs := conn.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "1000", subs[0].AmountIn.String(), "sell amount capped")

	// Holdings below the cap sell in full.
	_, err = e.Execute(context.Background(), Intent{Action: ActionSell, Candidate: newTradeCandidate()}, testSigner{}, decimal.NewFromInt(300))
	require.NoError(t, err)
	assert.Equal(t, "300", conn.Submissions()[1].AmountIn.String())
}

func TestExecuteSellNothingHeld(t *testing.T) {
	e := newTestExecutor(solana.NewStubConnector())

	_, err := e.Execute(context.Background(), Intent{Action: ActionSell, Candidate: newTradeCandidate()}, testSigner{}, decimal.Zero)
	assert.ErrorIs(t, err, ErrInsufficientResource)
}

func TestExecuteConnectorErrorNoRetry(t *testing.T) {
	conn := solana.NewStubConnector()
	conn.SetFailNext()
	e := newTestExecutor(conn)

	_, err := e.Execute(context.Background(), Intent{Action: ActionBuy, Candidate: newTradeCandidate()}, testSigner{}, decimal.Zero)
	require.Error(t, err)
	assert.Empty(t, conn.Submissions(), "a failed submit is not retried")
}

func TestExecuteMissingPool(t *testing.T) {
	e := newTestExecutor(solana.NewStubConnector())
	c := newTradeCandidate()
	c.PoolAddress = ""

	_, err := e.Execute(context.Background(), Intent{Action: ActionBuy, Candidate: c}, testSigner{}, decimal.Zero)
	assert.ErrorIs(t, err, ErrNotFound)
}
