package wallet

import (
	"fmt"

	sdk "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/helios-trading/helios/internal/solana"
)

// Wallet is one keypair in the pool. It implements solana.Signer; the
// private key never leaves this package.
type Wallet struct {
	index int
	priv  sdk.PrivateKey
	pub   solana.Pubkey
}

// newWallet parses a base58 private key.
func newWallet(index int, key string) (*Wallet, error) {
	raw, err := base58.Decode(key)
	if err != nil {
		return nil, fmt.Errorf("wallet %d: key is not valid base58: %w", index, err)
	}
	if len(raw) != 64 {
		return nil, fmt.Errorf("wallet %d: key must decode to 64 bytes, got %d", index, len(raw))
	}

	priv, err := sdk.PrivateKeyFromBase58(key)
	if err != nil {
		return nil, fmt.Errorf("wallet %d: parse key: %w", index, err)
	}

	return &Wallet{
		index: index,
		priv:  priv,
		pub:   solana.Pubkey(priv.PublicKey().String()),
	}, nil
}

// Index is the wallet's fixed position in the pool.
func (w *Wallet) Index() int { return w.index }

// PublicKey returns the wallet's address.
func (w *Wallet) PublicKey() solana.Pubkey { return w.pub }

// Sign signs a transaction message.
func (w *Wallet) Sign(message []byte) ([]byte, error) {
	sig, err := w.priv.Sign(message)
	if err != nil {
		return nil, fmt.Errorf("wallet %d: sign: %w", w.index, err)
	}
	return sig[:], nil
}

// Set is the fixed, ordered wallet pool. Its size is set at process start
// and never changes during a run.
type Set struct {
	wallets []*Wallet
}

// NewSet parses the configured keys into a wallet pool, preserving order.
func NewSet(keys []string) (*Set, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("wallet: no keys configured")
	}

	wallets := make([]*Wallet, len(keys))
	for i, key := range keys {
		w, err := newWallet(i, key)
		if err != nil {
			return nil, err
		}
		wallets[i] = w
	}
	return &Set{wallets: wallets}, nil
}

// NewSetFromWallets builds a pool from pre-built wallets, for tests.
func NewSetFromWallets(wallets ...*Wallet) *Set {
	return &Set{wallets: wallets}
}

// NewRandomWallet generates an ephemeral wallet, for tests and development.
func NewRandomWallet(index int) *Wallet {
	priv := sdk.NewWallet().PrivateKey
	return &Wallet{
		index: index,
		priv:  priv,
		pub:   solana.Pubkey(priv.PublicKey().String()),
	}
}

// Len returns the pool size.
func (s *Set) Len() int { return len(s.wallets) }

// At returns the wallet at index i.
func (s *Set) At(i int) *Wallet { return s.wallets[i] }

// Addresses returns the pool's addresses in order.
func (s *Set) Addresses() []solana.Pubkey {
	out := make([]solana.Pubkey, len(s.wallets))
	for i, w := range s.wallets {
		out[i] = w.pub
	}
	return out
}
