package solana

import (
	"github.com/shopspring/decimal"
)

// Pubkey is a Solana public key (base58 string).
type Pubkey string

// Signature is a Solana transaction signature.
type Signature string

// Blockhash is a recent blockhash used to anchor a transaction.
type Blockhash string

// Well-known mints.
const (
	SOLMint  Pubkey = "So11111111111111111111111111111111111111112"
	USDCMint Pubkey = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

// Signer signs transaction messages for a single wallet. The private key
// never leaves the implementation.
type Signer interface {
	PublicKey() Pubkey
	Sign(message []byte) ([]byte, error)
}

// SwapOrder describes one swap to submit through an aggregator.
// MinAmountOut is the slippage floor: the swap reverts on-chain if the
// output would land below it.
type SwapOrder struct {
	InputMint    Pubkey          `json:"input_mint"`
	OutputMint   Pubkey          `json:"output_mint"`
	AmountIn     decimal.Decimal `json:"amount_in"`
	MinAmountOut decimal.Decimal `json:"min_amount_out"`
	SlippageBps  int             `json:"slippage_bps"`
	// SkipPreflight trades simulation safety for submit latency.
	SkipPreflight bool `json:"skip_preflight"`
}

// WalletBalance is a wallet's SOL balance plus SPL token holdings.
type WalletBalance struct {
	SOL    decimal.Decimal            `json:"sol"`
	Tokens map[Pubkey]decimal.Decimal `json:"tokens"` // mint -> ui amount
}
