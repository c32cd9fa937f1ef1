package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/helios-trading/helios/internal/solana"
)

// VolumeService provides 24h transaction counts per pool, independent of
// the search snapshot so stale search records do not drive trade decisions.
type VolumeService interface {
	Counts24h(ctx context.Context, pool solana.Pubkey) (buys, sells int, err error)
}

// HTTPVolume queries a pair-detail endpoint for fresh counts.
type HTTPVolume struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPVolume creates a volume service. baseURL is the pair-detail API
// root, e.g. https://api.dexscreener.com/latest/dex/pairs.
func NewHTTPVolume(baseURL string, timeout time.Duration) *HTTPVolume {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPVolume{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (v *HTTPVolume) Counts24h(ctx context.Context, pool solana.Pubkey) (int, int, error) {
	u := fmt.Sprintf("%s/%s/%s", v.baseURL, solanaChainID, pool)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("volume: create request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("volume: fetch %s: %w", pool, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("volume: %s: HTTP %d", pool, resp.StatusCode)
	}

	var detail struct {
		Pairs []Pair `json:"pairs"`
		Pair  *Pair  `json:"pair"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return 0, 0, fmt.Errorf("volume: decode %s: %w", pool, err)
	}

	switch {
	case detail.Pair != nil:
		return detail.Pair.Txns.H24.Buys, detail.Pair.Txns.H24.Sells, nil
	case len(detail.Pairs) > 0:
		return detail.Pairs[0].Txns.H24.Buys, detail.Pairs[0].Txns.H24.Sells, nil
	default:
		return 0, 0, fmt.Errorf("volume: %s: no pair in response", pool)
	}
}

// StubVolume returns registered counts.
type StubVolume struct {
	mu       sync.Mutex
	counts   map[solana.Pubkey]BuysSells
	failNext bool
}

// NewStubVolume creates a stub volume service.
func NewStubVolume() *StubVolume {
	return &StubVolume{counts: make(map[solana.Pubkey]BuysSells)}
}

// SetCounts registers the 24h counts for a pool.
func (s *StubVolume) SetCounts(pool solana.Pubkey, buys, sells int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[pool] = BuysSells{Buys: buys, Sells: sells}
}

// SetFailNext makes the next Counts24h call fail.
func (s *StubVolume) SetFailNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = true
}

func (s *StubVolume) Counts24h(_ context.Context, pool solana.Pubkey) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return 0, 0, fmt.Errorf("stub: simulated volume failure")
	}
	c, ok := s.counts[pool]
	if !ok {
		return 0, 0, fmt.Errorf("stub: pool %s not found", pool)
	}
	return c.Buys, c.Sells, nil
}
