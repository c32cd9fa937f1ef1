package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/helios-trading/helios/internal/solana"
)

// ExecutorConfig configures live execution.
type ExecutorConfig struct {
	TradeSizeSOL decimal.Decimal
	SlippageBps  int
	SellCap      decimal.Decimal // max token amount per sell
}

// Executor submits real swaps through the chain connector. One transaction
// per successful call; there is no retry and calls are not idempotent.
type Executor struct {
	cfg       ExecutorConfig
	connector solana.Connector
}

// NewExecutor creates a live trade executor.
func NewExecutor(cfg ExecutorConfig, connector solana.Connector) *Executor {
	return &Executor{cfg: cfg, connector: connector}
}

// Execute builds and submits the swap for an intent. holdings is the
// wallet's current balance of the candidate mint, used to size sells.
func (e *Executor) Execute(ctx context.Context, intent Intent, signer solana.Signer, holdings decimal.Decimal) (TradeResult, error) {
	c := intent.Candidate
	if c.PoolAddress == "" {
		return TradeResult{}, fmt.Errorf("%w: candidate %s has no pool", ErrNotFound, c.Symbol)
	}
	if !c.PriceSOL.IsPositive() {
		return TradeResult{}, fmt.Errorf("%w: candidate %s has no price", ErrNotFound, c.Symbol)
	}

	var order solana.SwapOrder
	var amount decimal.Decimal

	switch intent.Action {
	case ActionBuy:
		amount = e.cfg.TradeSizeSOL
		expectedOut := amount.Div(c.PriceSOL)
		order = solana.SwapOrder{
			InputMint:     solana.SOLMint,
			OutputMint:    c.TokenMint,
			AmountIn:      amount,
			MinAmountOut:  applySlippageFloor(expectedOut, e.cfg.SlippageBps),
			SlippageBps:   e.cfg.SlippageBps,
			SkipPreflight: true,
		}
	case ActionSell:
		if !holdings.IsPositive() {
			return TradeResult{}, fmt.Errorf("%w: nothing to sell for %s", ErrInsufficientResource, c.Symbol)
		}
		amount = decimal.Min(e.cfg.SellCap, holdings)
		expectedOut := amount.Mul(c.PriceSOL)
		order = solana.SwapOrder{
			InputMint:     c.TokenMint,
			OutputMint:    solana.SOLMint,
			AmountIn:      amount,
			MinAmountOut:  applySlippageFloor(expectedOut, e.cfg.SlippageBps),
			SlippageBps:   e.cfg.SlippageBps,
			SkipPreflight: true,
		}
	default:
		return TradeResult{}, fmt.Errorf("%w: unknown action %q", ErrNotFound, intent.Action)
	}

	sig, err := e.connector.SubmitSwap(ctx, order, signer)
	if err != nil {
		return TradeResult{}, fmt.Errorf("execute %s %s: %w", intent.Action, c.Symbol, err)
	}

	result := TradeResult{
		ID:          uuid.NewString(),
		Mint:        c.TokenMint,
		Symbol:      c.Symbol,
		Action:      intent.Action,
		WalletIndex: intent.WalletIndex,
		Timestamp:   time.Now(),
		Price:       c.PriceSOL,
		Amount:      amount,
		Success:     true,
		Signature:   sig,
	}

	log.Info().
		Str("action", string(intent.Action)).
		Str("symbol", c.Symbol).
		Int("wallet", intent.WalletIndex).
		Str("amount", amount.String()).
		Str("signature", string(sig)).
		Msg("trade: executed")

	return result, nil
}

// applySlippageFloor returns expected reduced by the slippage tolerance.
func applySlippageFloor(expected decimal.Decimal, slippageBps int) decimal.Decimal {
	factor := decimal.NewFromInt(10000 - int64(slippageBps)).Div(decimal.NewFromInt(10000))
	return expected.Mul(factor)
}
