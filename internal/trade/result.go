package trade

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/helios-trading/helios/internal/market"
	"github.com/helios-trading/helios/internal/solana"
)

// Action is the trade direction.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// Intent is a trade decision handed to an executor. Transient: it is not
// persisted anywhere.
type Intent struct {
	Action      Action
	Candidate   market.Candidate
	WalletIndex int
}

// TradeResult is one immutable ledger entry. Amount is denominated in the
// action's input unit: SOL for buys, tokens for sells.
type TradeResult struct {
	ID          string           `json:"id"`
	Mint        solana.Pubkey    `json:"mint"`
	Symbol      string           `json:"symbol"`
	Action      Action           `json:"action"`
	WalletIndex int              `json:"wallet_index"`
	Timestamp   time.Time        `json:"timestamp"`
	Price       decimal.Decimal  `json:"price"`
	Amount      decimal.Decimal  `json:"amount"`
	PnLSOL      decimal.Decimal  `json:"pnl_sol"`
	Success     bool             `json:"success"`
	Reason      string           `json:"reason,omitempty"`
	Signature   solana.Signature `json:"signature,omitempty"` // live trades only
}
