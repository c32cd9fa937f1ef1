package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/helios-trading/helios/internal/market"
	"github.com/helios-trading/helios/internal/solana"
)

// ---------------------------------------------------------------------------
// Scoring service — external token safety signals
// ---------------------------------------------------------------------------

// ContractFeatures are the on-chain contract facts for a mint.
type ContractFeatures struct {
	MintAuthority      bool    `json:"mint_authority"`   // true = authority still present
	FreezeAuthority    bool    `json:"freeze_authority"` // true = authority still present
	TopHolderPct       float64 `json:"top_holder_pct"`
	OwnershipRenounced bool    `json:"ownership_renounced"`
}

// ScoringService provides external safety signals for a mint. Scores are
// on a 0-100 scale where higher is safer.
type ScoringService interface {
	SafetyScore(ctx context.Context, mint solana.Pubkey) (float64, error)
	RiskScore(ctx context.Context, mint solana.Pubkey) (float64, error)
	HoneypotFlag(ctx context.Context, mint solana.Pubkey) (bool, error)
	ContractFeatures(ctx context.Context, mint solana.Pubkey) (ContractFeatures, error)
}

// Resolve queries every scoring signal for a mint and folds the answers into
// RiskFacts. A failed call takes the worst value for its signal: zero
// safety, honeypot flagged, authorities present, full concentration, not
// renounced. Bad data is never allowed to look safe.
func Resolve(ctx context.Context, svc ScoringService, mint solana.Pubkey) market.RiskFacts {
	facts := market.RiskFacts{}

	safety, err := svc.SafetyScore(ctx, mint)
	if err != nil {
		log.Debug().Err(err).Str("mint", string(mint)).Msg("risk: safety score unavailable")
		safety = 0
	}
	riskScore, err := svc.RiskScore(ctx, mint)
	if err != nil {
		log.Debug().Err(err).Str("mint", string(mint)).Msg("risk: risk score unavailable")
		riskScore = 0
	}
	facts.SafetyScore = math.Min(safety, riskScore)

	honeypot, err := svc.HoneypotFlag(ctx, mint)
	if err != nil {
		log.Debug().Err(err).Str("mint", string(mint)).Msg("risk: honeypot flag unavailable")
		honeypot = true
	}
	facts.Honeypot = honeypot

	features, err := svc.ContractFeatures(ctx, mint)
	if err != nil {
		log.Debug().Err(err).Str("mint", string(mint)).Msg("risk: contract features unavailable")
		features = ContractFeatures{
			MintAuthority:      true,
			FreezeAuthority:    true,
			TopHolderPct:       100,
			OwnershipRenounced: false,
		}
	}
	facts.MintAuthority = features.MintAuthority
	facts.FreezeAuthority = features.FreezeAuthority
	facts.TopHolderPct = features.TopHolderPct
	facts.OwnershipRenounced = features.OwnershipRenounced

	return facts
}

// ---------------------------------------------------------------------------
// HTTP scoring client
// ---------------------------------------------------------------------------

// HTTPScoringClient queries a token scoring API. Endpoints follow the
// common scanner shape: GET {base}/score/{mint} returns every signal in one
// document.
type HTTPScoringClient struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.Mutex
	cache map[solana.Pubkey]scoreDoc
}

type scoreDoc struct {
	SafetyScore float64 `json:"safety_score"`
	RiskScore   float64 `json:"risk_score"`
	Honeypot    bool    `json:"honeypot"`
	Contract    ContractFeatures
	fetchedAt   time.Time
}

type scoreDocWire struct {
	SafetyScore        float64 `json:"safety_score"`
	RiskScore          float64 `json:"risk_score"`
	Honeypot           bool    `json:"honeypot"`
	MintAuthority      bool    `json:"mint_authority"`
	FreezeAuthority    bool    `json:"freeze_authority"`
	TopHolderPct       float64 `json:"top_holder_pct"`
	OwnershipRenounced bool    `json:"ownership_renounced"`
}

const scoreCacheTTL = 30 * time.Second

// NewHTTPScoringClient creates a scoring client against baseURL.
func NewHTTPScoringClient(baseURL string, timeout time.Duration) *HTTPScoringClient {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HTTPScoringClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      make(map[solana.Pubkey]scoreDoc),
	}
}

// fetch returns the score document for a mint, cached briefly so the four
// signal accessors share one round trip per refresh.
func (c *HTTPScoringClient) fetch(ctx context.Context, mint solana.Pubkey) (scoreDoc, error) {
	c.mu.Lock()
	if doc, ok := c.cache[mint]; ok && time.Since(doc.fetchedAt) < scoreCacheTTL {
		c.mu.Unlock()
		return doc, nil
	}
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/score/%s", c.baseURL, mint), nil)
	if err != nil {
		return scoreDoc{}, fmt.Errorf("scoring: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return scoreDoc{}, fmt.Errorf("scoring: %s: %w", mint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return scoreDoc{}, fmt.Errorf("scoring: %s: HTTP %d", mint, resp.StatusCode)
	}

	var wire scoreDocWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return scoreDoc{}, fmt.Errorf("scoring: decode %s: %w", mint, err)
	}

	doc := scoreDoc{
		SafetyScore: wire.SafetyScore,
		RiskScore:   wire.RiskScore,
		Honeypot:    wire.Honeypot,
		Contract: ContractFeatures{
			MintAuthority:      wire.MintAuthority,
			FreezeAuthority:    wire.FreezeAuthority,
			TopHolderPct:       wire.TopHolderPct,
			OwnershipRenounced: wire.OwnershipRenounced,
		},
		fetchedAt: time.Now(),
	}

	c.mu.Lock()
	c.cache[mint] = doc
	c.mu.Unlock()

	return doc, nil
}

func (c *HTTPScoringClient) SafetyScore(ctx context.Context, mint solana.Pubkey) (float64, error) {
	doc, err := c.fetch(ctx, mint)
	return doc.SafetyScore, err
}

func (c *HTTPScoringClient) RiskScore(ctx context.Context, mint solana.Pubkey) (float64, error) {
	doc, err := c.fetch(ctx, mint)
	return doc.RiskScore, err
}

func (c *HTTPScoringClient) HoneypotFlag(ctx context.Context, mint solana.Pubkey) (bool, error) {
	doc, err := c.fetch(ctx, mint)
	return doc.Honeypot, err
}

func (c *HTTPScoringClient) ContractFeatures(ctx context.Context, mint solana.Pubkey) (ContractFeatures, error) {
	doc, err := c.fetch(ctx, mint)
	return doc.Contract, err
}

// ---------------------------------------------------------------------------
// Stub scoring service (for testing and development)
// ---------------------------------------------------------------------------

// StubScoring is a scoring service backed by registered fixtures.
type StubScoring struct {
	mu       sync.Mutex
	facts    map[solana.Pubkey]market.RiskFacts
	failNext bool
}

// NewStubScoring creates a stub scoring service.
func NewStubScoring() *StubScoring {
	return &StubScoring{facts: make(map[solana.Pubkey]market.RiskFacts)}
}

// AddFacts registers the facts returned for a mint. Unregistered mints get
// a clean default (score 100, nothing flagged, renounced).
func (s *StubScoring) AddFacts(mint solana.Pubkey, facts market.RiskFacts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts[mint] = facts
}

// SetFailNext makes the next signal call fail.
func (s *StubScoring) SetFailNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = true
}

func (s *StubScoring) lookup(mint solana.Pubkey) (market.RiskFacts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return market.RiskFacts{}, fmt.Errorf("stub: simulated scoring failure")
	}
	if facts, ok := s.facts[mint]; ok {
		return facts, nil
	}
	return market.RiskFacts{SafetyScore: 100, OwnershipRenounced: true}, nil
}

func (s *StubScoring) SafetyScore(_ context.Context, mint solana.Pubkey) (float64, error) {
	facts, err := s.lookup(mint)
	return facts.SafetyScore, err
}

func (s *StubScoring) RiskScore(_ context.Context, mint solana.Pubkey) (float64, error) {
	facts, err := s.lookup(mint)
	return facts.SafetyScore, err
}

func (s *StubScoring) HoneypotFlag(_ context.Context, mint solana.Pubkey) (bool, error) {
	facts, err := s.lookup(mint)
	return facts.Honeypot, err
}

func (s *StubScoring) ContractFeatures(_ context.Context, mint solana.Pubkey) (ContractFeatures, error) {
	facts, err := s.lookup(mint)
	return ContractFeatures{
		MintAuthority:      facts.MintAuthority,
		FreezeAuthority:    facts.FreezeAuthority,
		TopHolderPct:       facts.TopHolderPct,
		OwnershipRenounced: facts.OwnershipRenounced,
	}, err
}
