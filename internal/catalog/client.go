package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const solanaChainID = "solana"

// ---------------------------------------------------------------------------
// Catalog API response structures (DexScreener search shape)
// ---------------------------------------------------------------------------

type searchResponse struct {
	SchemaVersion string `json:"schemaVersion"`
	Pairs         []Pair `json:"pairs"`
}

// Pair is one raw pool record from the catalog.
type Pair struct {
	ChainID       string       `json:"chainId"`
	DexID         string       `json:"dexId"`
	PairAddress   string       `json:"pairAddress"`
	BaseToken     Token        `json:"baseToken"`
	QuoteToken    Token        `json:"quoteToken"`
	PriceNative   string       `json:"priceNative"` // price of base in quote units
	Txns          Transactions `json:"txns"`
	Liquidity     Liquidity    `json:"liquidity"`
	Fdv           float64      `json:"fdv"`
	PairCreatedAt int64        `json:"pairCreatedAt"` // unix millis
}

type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type Transactions struct {
	M5  BuysSells `json:"m5"`
	H1  BuysSells `json:"h1"`
	H6  BuysSells `json:"h6"`
	H24 BuysSells `json:"h24"`
}

type BuysSells struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

type Liquidity struct {
	Usd   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// CreatedAt converts the record's millisecond timestamp.
func (p Pair) CreatedAt() time.Time {
	return time.UnixMilli(p.PairCreatedAt)
}

// ---------------------------------------------------------------------------
// Client interface
// ---------------------------------------------------------------------------

// Client lists raw pool records from an external catalog.
type Client interface {
	Search(ctx context.Context, query string) ([]Pair, error)
}

// HTTPClient queries a DexScreener-style search API.
type HTTPClient struct {
	apiURL     string
	httpClient *http.Client
}

// NewHTTPClient creates a catalog client against apiURL.
func NewHTTPClient(apiURL string, timeout time.Duration) *HTTPClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Search fetches pool records matching the query on the Solana chain.
func (c *HTTPClient) Search(ctx context.Context, query string) ([]Pair, error) {
	u := fmt.Sprintf("%s?q=%s", c.apiURL, url.QueryEscape(query+" "+solanaChainID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("catalog: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: HTTP %d: %s", resp.StatusCode, string(body))
	}
	if len(body) == 0 {
		return []Pair{}, nil
	}

	var apiResp searchResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		// Some deployments return the array directly.
		var direct []Pair
		if errDirect := json.Unmarshal(body, &direct); errDirect == nil {
			log.Debug().Msg("catalog: decoded response as direct array")
			return direct, nil
		}
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}

	if apiResp.Pairs == nil {
		return []Pair{}, nil
	}
	return apiResp.Pairs, nil
}

// ---------------------------------------------------------------------------
// Stub client (for testing and development)
// ---------------------------------------------------------------------------

// StubClient returns registered pairs.
type StubClient struct {
	mu       sync.Mutex
	pairs    []Pair
	failNext bool
	calls    int
}

// NewStubClient creates a stub catalog client.
func NewStubClient() *StubClient {
	return &StubClient{}
}

// SetPairs replaces the pairs returned by Search.
func (s *StubClient) SetPairs(pairs []Pair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs = pairs
}

// SetFailNext makes the next Search call fail.
func (s *StubClient) SetFailNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = true
}

// Calls returns how many times Search has been invoked.
func (s *StubClient) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *StubClient) Search(_ context.Context, _ string) ([]Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failNext {
		s.failNext = false
		return nil, fmt.Errorf("stub: simulated catalog failure")
	}
	out := make([]Pair, len(s.pairs))
	copy(out, s.pairs)
	return out, nil
}
