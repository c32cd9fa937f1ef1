package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/helios-trading/helios/internal/trade"
)

const schema = `
CREATE TABLE IF NOT EXISTS paper_trades (
	id           TEXT PRIMARY KEY,
	mint         TEXT NOT NULL,
	symbol       TEXT NOT NULL,
	action       TEXT NOT NULL,
	wallet_index INT NOT NULL,
	ts           TIMESTAMPTZ NOT NULL,
	price        NUMERIC NOT NULL,
	amount       NUMERIC NOT NULL,
	pnl_sol      NUMERIC NOT NULL,
	success      BOOLEAN NOT NULL,
	reason       TEXT NOT NULL DEFAULT ''
);`

// PaperArchive mirrors the in-memory paper ledger to Postgres. The archive
// is write-only from the process's point of view: the in-memory ledger
// stays the source of truth and archive failures never affect trading.
type PaperArchive struct {
	pool *pgxpool.Pool
}

// NewPaperArchive connects and ensures the schema exists.
func NewPaperArchive(ctx context.Context, dsn string) (*PaperArchive, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ensure schema: %w", err)
	}

	log.Info().Msg("store: paper trade archive ready")
	return &PaperArchive{pool: pool}, nil
}

// Archive inserts one ledger entry.
func (a *PaperArchive) Archive(ctx context.Context, r trade.TradeResult) error {
	_, err := a.pool.Exec(ctx,
		`INSERT INTO paper_trades
		 (id, mint, symbol, action, wallet_index, ts, price, amount, pnl_sol, success, reason)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 ON CONFLICT (id) DO NOTHING`,
		r.ID, string(r.Mint), r.Symbol, string(r.Action), r.WalletIndex,
		r.Timestamp, r.Price, r.Amount, r.PnLSOL, r.Success, r.Reason,
	)
	if err != nil {
		return fmt.Errorf("store: insert %s: %w", r.ID, err)
	}
	return nil
}

// Close releases the connection pool.
func (a *PaperArchive) Close() {
	a.pool.Close()
}
