package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	bin "github.com/gagliardetto/binary"
	sdk "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/helios-trading/helios/internal/ratelimit"
)

// ---------------------------------------------------------------------------
// Live connector — real Solana RPC plus an aggregator swap API
// ---------------------------------------------------------------------------

const lamportsPerSOL = 1_000_000_000

// LiveConfig configures the live chain connector.
type LiveConfig struct {
	RPCEndpoint  string
	SwapAPIURL   string // aggregator base URL exposing /quote and /swap
	Timeout      time.Duration
	RateLimitRPS float64
}

// LiveConnector talks to a real Solana RPC endpoint. Swap transactions are
// built by the aggregator, re-anchored to a fresh blockhash, signed by the
// caller's Signer and submitted with preflight skipped.
type LiveConnector struct {
	cfg        LiveConfig
	client     *rpc.Client
	httpClient *http.Client
	limiter    *ratelimit.Limiter
}

// NewLiveConnector creates a live chain connector.
func NewLiveConnector(cfg LiveConfig) *LiveConnector {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 10
	}
	return &LiveConnector{
		cfg:        cfg,
		client:     rpc.New(cfg.RPCEndpoint),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    ratelimit.New(cfg.RateLimitRPS, int(cfg.RateLimitRPS)),
	}
}

// Close stops the connector's rate limiter.
func (c *LiveConnector) Close() {
	c.limiter.Close()
}

func (c *LiveConnector) acquire(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	return callCtx, cancel, nil
}

// GetBalance returns the SOL balance of an address.
func (c *LiveConnector) GetBalance(ctx context.Context, addr Pubkey) (decimal.Decimal, error) {
	callCtx, cancel, err := c.acquire(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	defer cancel()

	pub, err := sdk.PublicKeyFromBase58(string(addr))
	if err != nil {
		return decimal.Zero, fmt.Errorf("rpc: bad address %s: %w", addr, err)
	}

	out, err := c.client.GetBalance(callCtx, pub, rpc.CommitmentConfirmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rpc: getBalance %s: %w", addr, err)
	}

	return decimal.NewFromInt(int64(out.Value)).Div(decimal.NewFromInt(lamportsPerSOL)), nil
}

// GetTokenHoldings returns the ui amount of mint held by addr, summed over
// the owner's token accounts for that mint. No account means zero.
func (c *LiveConnector) GetTokenHoldings(ctx context.Context, addr Pubkey, mint Pubkey) (decimal.Decimal, error) {
	callCtx, cancel, err := c.acquire(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	defer cancel()

	owner, err := sdk.PublicKeyFromBase58(string(addr))
	if err != nil {
		return decimal.Zero, fmt.Errorf("rpc: bad address %s: %w", addr, err)
	}
	mintPub, err := sdk.PublicKeyFromBase58(string(mint))
	if err != nil {
		return decimal.Zero, fmt.Errorf("rpc: bad mint %s: %w", mint, err)
	}

	accounts, err := c.client.GetTokenAccountsByOwner(callCtx, owner,
		&rpc.GetTokenAccountsConfig{Mint: &mintPub},
		&rpc.GetTokenAccountsOpts{Commitment: rpc.CommitmentConfirmed},
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rpc: getTokenAccountsByOwner %s: %w", addr, err)
	}

	total := decimal.Zero
	for _, acc := range accounts.Value {
		bal, err := c.client.GetTokenAccountBalance(callCtx, acc.Pubkey, rpc.CommitmentConfirmed)
		if err != nil {
			return decimal.Zero, fmt.Errorf("rpc: getTokenAccountBalance %s: %w", acc.Pubkey, err)
		}
		amount, err := decimal.NewFromString(bal.Value.UiAmountString)
		if err != nil {
			continue
		}
		total = total.Add(amount)
	}

	return total, nil
}

// LatestBlockhash returns a recent blockhash.
func (c *LiveConnector) LatestBlockhash(ctx context.Context) (Blockhash, error) {
	callCtx, cancel, err := c.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	out, err := c.client.GetLatestBlockhash(callCtx, rpc.CommitmentConfirmed)
	if err != nil {
		return "", fmt.Errorf("rpc: getLatestBlockhash: %w", err)
	}
	return Blockhash(out.Value.Blockhash.String()), nil
}

// Health checks the RPC endpoint health.
func (c *LiveConnector) Health(ctx context.Context) error {
	callCtx, cancel, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	res, err := c.client.GetHealth(callCtx)
	if err != nil {
		return fmt.Errorf("rpc: getHealth: %w", err)
	}
	if res != rpc.HealthOk {
		return fmt.Errorf("rpc: endpoint unhealthy: %s", res)
	}
	return nil
}

// --- Aggregator swap flow ---

type quoteResponse = json.RawMessage

type swapRequest struct {
	QuoteResponse    quoteResponse `json:"quoteResponse"`
	UserPublicKey    string        `json:"userPublicKey"`
	WrapAndUnwrapSol bool          `json:"wrapAndUnwrapSol"`
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"` // base64
}

// SubmitSwap quotes the order, fetches an aggregator-built transaction,
// re-anchors it to a fresh blockhash, signs it and submits it. One
// transaction per call; there is no retry and no idempotency.
func (c *LiveConnector) SubmitSwap(ctx context.Context, order SwapOrder, signer Signer) (Signature, error) {
	rawAmount, err := c.rawAmountIn(ctx, order)
	if err != nil {
		return "", err
	}

	quote, err := c.fetchQuote(ctx, order, rawAmount)
	if err != nil {
		return "", err
	}

	txBytes, err := c.fetchSwapTransaction(ctx, quote, signer.PublicKey())
	if err != nil {
		return "", err
	}

	tx, err := sdk.TransactionFromDecoder(bin.NewBinDecoder(txBytes))
	if err != nil {
		return "", fmt.Errorf("swap: decode transaction: %w", err)
	}

	blockhash, err := c.LatestBlockhash(ctx)
	if err != nil {
		return "", err
	}
	hash, err := sdk.HashFromBase58(string(blockhash))
	if err != nil {
		return "", fmt.Errorf("swap: bad blockhash: %w", err)
	}
	tx.Message.RecentBlockhash = hash

	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("swap: marshal message: %w", err)
	}
	sigBytes, err := signer.Sign(msg)
	if err != nil {
		return "", fmt.Errorf("swap: sign: %w", err)
	}
	tx.Signatures = []sdk.Signature{sdk.SignatureFromBytes(sigBytes)}

	callCtx, cancel, err := c.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	sig, err := c.client.SendTransactionWithOpts(callCtx, tx, rpc.TransactionOpts{
		SkipPreflight:       order.SkipPreflight,
		PreflightCommitment: rpc.CommitmentProcessed,
	})
	if err != nil {
		return "", fmt.Errorf("swap: send transaction: %w", err)
	}

	log.Info().
		Str("signature", sig.String()).
		Str("input", string(order.InputMint)).
		Str("output", string(order.OutputMint)).
		Str("amount_in", order.AmountIn.String()).
		Msg("swap: submitted")

	return Signature(sig.String()), nil
}

// rawAmountIn converts the order's ui amount to the mint's raw units.
func (c *LiveConnector) rawAmountIn(ctx context.Context, order SwapOrder) (uint64, error) {
	if order.InputMint == SOLMint {
		raw := order.AmountIn.Mul(decimal.NewFromInt(lamportsPerSOL))
		return uint64(raw.IntPart()), nil
	}

	callCtx, cancel, err := c.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	mintPub, err := sdk.PublicKeyFromBase58(string(order.InputMint))
	if err != nil {
		return 0, fmt.Errorf("swap: bad input mint %s: %w", order.InputMint, err)
	}
	supply, err := c.client.GetTokenSupply(callCtx, mintPub, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("swap: getTokenSupply %s: %w", order.InputMint, err)
	}

	factor := decimal.New(1, int32(supply.Value.Decimals))
	raw := order.AmountIn.Mul(factor)
	return uint64(raw.IntPart()), nil
}

func (c *LiveConnector) fetchQuote(ctx context.Context, order SwapOrder, rawAmount uint64) (quoteResponse, error) {
	q := url.Values{}
	q.Set("inputMint", string(order.InputMint))
	q.Set("outputMint", string(order.OutputMint))
	q.Set("amount", fmt.Sprintf("%d", rawAmount))
	q.Set("slippageBps", fmt.Sprintf("%d", order.SlippageBps))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.SwapAPIURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("swap: create quote request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("swap: quote: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("swap: read quote: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("swap: quote HTTP %d: %s", resp.StatusCode, string(body))
	}

	return quoteResponse(body), nil
}

func (c *LiveConnector) fetchSwapTransaction(ctx context.Context, quote quoteResponse, user Pubkey) ([]byte, error) {
	payload, err := json.Marshal(swapRequest{
		QuoteResponse:    quote,
		UserPublicKey:    string(user),
		WrapAndUnwrapSol: true,
	})
	if err != nil {
		return nil, fmt.Errorf("swap: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.SwapAPIURL+"/swap", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("swap: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("swap: build transaction: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("swap: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("swap: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var sr swapResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("swap: decode response: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(sr.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("swap: decode transaction base64: %w", err)
	}
	return raw, nil
}
