package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/helios-trading/helios/internal/catalog"
	"github.com/helios-trading/helios/internal/features"
	"github.com/helios-trading/helios/internal/market"
	"github.com/helios-trading/helios/internal/sentiment"
	"github.com/helios-trading/helios/internal/solana"
	"github.com/helios-trading/helios/internal/trade"
	"github.com/helios-trading/helios/internal/wallet"
)

// Stage is where a cycle ended.
type Stage string

const (
	StageExecute  Stage = "EXECUTE"
	StageSimulate Stage = "SIMULATE"
	StageNoTrade  Stage = "NO_TRADE"
	StageSkipped  Stage = "SKIPPED"
)

// CycleOutcome is the structured record of one decide-and-act cycle.
type CycleOutcome struct {
	CycleID     string             `json:"cycle_id"`
	Stage       Stage              `json:"stage"`
	Action      trade.Action       `json:"action,omitempty"`
	Symbol      string             `json:"symbol,omitempty"`
	WalletIndex int                `json:"wallet_index"`
	Reason      string             `json:"reason,omitempty"`
	Result      *trade.TradeResult `json:"result,omitempty"`
}

// Config configures the orchestrator.
type Config struct {
	DryRun       bool // route trades to the paper simulator
	TradeSizeSOL decimal.Decimal
	WalletCount  int
}

// Orchestrator composes discovery, gating, allocation and execution into
// the decide-and-act cycle, and exposes the boundary operations the HTTP
// layer calls.
type Orchestrator struct {
	cfg       Config
	fetcher   *catalog.Fetcher
	gate      *sentiment.Gate
	vol       *features.Volatility
	allocator *wallet.Allocator
	executor  *trade.Executor
	simulator *trade.Simulator

	// cycleMu serializes cycles so two triggers cannot allocate the same
	// wallet or interleave ledger writes.
	cycleMu sync.Mutex

	cyclesRun atomic.Int64
	executed  atomic.Int64
	simulated atomic.Int64
	skipped   atomic.Int64
}

// New creates an orchestrator.
func New(cfg Config, fetcher *catalog.Fetcher, gate *sentiment.Gate, vol *features.Volatility, allocator *wallet.Allocator, executor *trade.Executor, simulator *trade.Simulator) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		fetcher:   fetcher,
		gate:      gate,
		vol:       vol,
		allocator: allocator,
		executor:  executor,
		simulator: simulator,
	}
}

// RunCycle runs one FETCH → FILTER_RANK → GATE → ALLOCATE → act cycle.
// It never returns an error: every failure mode collapses into an outcome
// with a reason.
func (o *Orchestrator) RunCycle(ctx context.Context) CycleOutcome {
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()

	o.cyclesRun.Add(1)
	outcome := CycleOutcome{CycleID: uuid.NewString(), WalletIndex: -1}

	// Discovery, sentiment and balance queries fan out together; the gate
	// is only evaluated once all three have resolved.
	var (
		candidates []market.Candidate
		signal     sentiment.Signal
		score      float64
		balances   []wallet.Balance
		wg         sync.WaitGroup
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		candidates = o.fetcher.Refresh(ctx)
	}()
	go func() {
		defer wg.Done()
		signal, score = o.gate.Decide(ctx)
	}()
	go func() {
		defer wg.Done()
		balances = o.allocator.Balances(ctx, "")
	}()
	wg.Wait()

	if len(candidates) == 0 {
		outcome.Stage = StageNoTrade
		outcome.Reason = "no candidates passed the risk filter"
		return o.finish(outcome, score)
	}

	top := candidates[0]
	outcome.Symbol = top.Symbol

	volatility := o.vol.Value(top.TokenMint)
	if !o.gate.Eligible(top, volatility) {
		outcome.Stage = StageNoTrade
		outcome.Reason = fmt.Sprintf("gate ineligible: volatility %.4f, safety %.1f", volatility, top.Risk.SafetyScore)
		return o.finish(outcome, score)
	}

	if signal == sentiment.SignalHold {
		outcome.Stage = StageNoTrade
		outcome.Reason = fmt.Sprintf("sentiment hold (score %.3f)", score)
		return o.finish(outcome, score)
	}

	action := trade.ActionBuy
	if signal == sentiment.SignalSell {
		action = trade.ActionSell
	}
	outcome.Action = action

	used := make(map[int]bool)
	idx, holdings, ok := o.allocate(ctx, action, top, balances, used)
	if !ok {
		outcome.Stage = StageSkipped
		outcome.Reason = fmt.Sprintf("no wallet qualifies for %s", action)
		return o.finish(outcome, score)
	}
	outcome.WalletIndex = idx

	if o.cfg.DryRun {
		result := o.simulator.Simulate(action, top, idx)
		outcome.Stage = StageSimulate
		outcome.Result = &result
		if !result.Success {
			outcome.Reason = result.Reason
		}
		return o.finish(outcome, score)
	}

	result, err := o.executor.Execute(ctx, trade.Intent{Action: action, Candidate: top, WalletIndex: idx}, o.allocator.Signer(idx), holdings)
	if err != nil {
		outcome.Stage = StageSkipped
		outcome.Reason = fmt.Sprintf("execution failed: %v", err)
		return o.finish(outcome, score)
	}
	outcome.Stage = StageExecute
	outcome.Result = &result
	return o.finish(outcome, score)
}

// allocate picks the wallet for the action. Buys scan the prefetched
// balances in wallet order; live sells re-query holdings of the target
// mint; paper sells consult the simulator's ledger instead of the chain.
func (o *Orchestrator) allocate(ctx context.Context, action trade.Action, top market.Candidate, balances []wallet.Balance, used map[int]bool) (int, decimal.Decimal, bool) {
	if action == trade.ActionBuy {
		for _, b := range balances {
			if used[b.Index] {
				continue
			}
			if o.cfg.DryRun || b.SOL.GreaterThanOrEqual(o.cfg.TradeSizeSOL) {
				used[b.Index] = true
				return b.Index, decimal.Zero, true
			}
		}
		return -1, decimal.Zero, false
	}

	if o.cfg.DryRun {
		for i := 0; i < o.cfg.WalletCount; i++ {
			if used[i] {
				continue
			}
			if o.simulator.Holdings(i, top.TokenMint).IsPositive() {
				used[i] = true
				return i, decimal.Zero, true
			}
		}
		return -1, decimal.Zero, false
	}

	b, ok := o.allocator.PickForSell(ctx, top.TokenMint, used)
	if !ok {
		return -1, decimal.Zero, false
	}
	used[b.Index] = true
	return b.Index, b.Token, true
}

func (o *Orchestrator) finish(outcome CycleOutcome, score float64) CycleOutcome {
	switch outcome.Stage {
	case StageExecute:
		o.executed.Add(1)
	case StageSimulate:
		o.simulated.Add(1)
	case StageSkipped:
		o.skipped.Add(1)
	}

	log.Info().
		Str("cycle", outcome.CycleID).
		Str("stage", string(outcome.Stage)).
		Str("symbol", outcome.Symbol).
		Str("reason", outcome.Reason).
		Float64("sentiment", score).
		Msg("orchestrator: cycle complete")

	return outcome
}

// ---------------------------------------------------------------------------
// Boundary operations
// ---------------------------------------------------------------------------

// ListCandidates returns the current ranked candidate list.
func (o *Orchestrator) ListCandidates(ctx context.Context) []market.Candidate {
	return o.fetcher.Refresh(ctx)
}

// Sentiment returns the current gate decision and score.
func (o *Orchestrator) Sentiment(ctx context.Context) (sentiment.Signal, float64) {
	return o.gate.Decide(ctx)
}

// Balances returns per-wallet balances. Token holdings are reported for
// the top candidate's mint when one exists.
func (o *Orchestrator) Balances(ctx context.Context) []wallet.Balance {
	candidates := o.fetcher.Refresh(ctx)
	var mint solana.Pubkey
	if len(candidates) > 0 {
		mint = candidates[0].TokenMint
	}
	return o.allocator.Balances(ctx, mint)
}

// Trade executes a real trade against a candidate selected by symbol.
func (o *Orchestrator) Trade(ctx context.Context, action trade.Action, symbol string) (trade.TradeResult, error) {
	c, err := o.findCandidate(ctx, symbol)
	if err != nil {
		return trade.TradeResult{}, err
	}

	used := make(map[int]bool)
	var (
		idx      int
		holdings decimal.Decimal
		ok       bool
	)
	if action == trade.ActionBuy {
		b, found := o.allocator.PickForBuy(ctx, o.cfg.TradeSizeSOL, used)
		idx, ok = b.Index, found
	} else {
		b, found := o.allocator.PickForSell(ctx, c.TokenMint, used)
		idx, holdings, ok = b.Index, b.Token, found
	}
	if !ok {
		return trade.TradeResult{}, fmt.Errorf("%w: no wallet qualifies for %s %s", trade.ErrInsufficientResource, action, symbol)
	}

	return o.executor.Execute(ctx, trade.Intent{Action: action, Candidate: c, WalletIndex: idx}, o.allocator.Signer(idx), holdings)
}

// PaperTrade simulates a trade against a candidate selected by symbol.
func (o *Orchestrator) PaperTrade(ctx context.Context, action trade.Action, symbol string) (trade.TradeResult, error) {
	c, err := o.findCandidate(ctx, symbol)
	if err != nil {
		return trade.TradeResult{}, err
	}

	idx := 0
	if action == trade.ActionSell {
		idx = -1
		for i := 0; i < o.cfg.WalletCount; i++ {
			if o.simulator.Holdings(i, c.TokenMint).IsPositive() {
				idx = i
				break
			}
		}
		if idx < 0 {
			// Let the simulator record the failed attempt on wallet 0.
			idx = 0
		}
	}

	return o.simulator.Simulate(action, c, idx), nil
}

// PaperLedger returns the paper ledger and its recomputed running total.
func (o *Orchestrator) PaperLedger() ([]trade.TradeResult, decimal.Decimal) {
	return o.simulator.Entries(), o.simulator.TotalPnL()
}

func (o *Orchestrator) findCandidate(ctx context.Context, symbol string) (market.Candidate, error) {
	for _, c := range o.fetcher.Refresh(ctx) {
		if strings.EqualFold(c.Symbol, symbol) {
			return c, nil
		}
	}
	return market.Candidate{}, fmt.Errorf("%w: candidate %q", trade.ErrNotFound, symbol)
}

// Stats are counters exposed on the stats endpoint.
type Stats struct {
	CyclesRun int64 `json:"cycles_run"`
	Executed  int64 `json:"executed"`
	Simulated int64 `json:"simulated"`
	Skipped   int64 `json:"skipped"`
}

func (o *Orchestrator) Stats() Stats {
	return Stats{
		CyclesRun: o.cyclesRun.Load(),
		Executed:  o.executed.Load(),
		Simulated: o.simulated.Load(),
		Skipped:   o.skipped.Load(),
	}
}
