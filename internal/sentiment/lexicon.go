package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"
)

// Feed supplies the recent posts the analyzer scores.
type Feed interface {
	Posts(ctx context.Context) ([]string, error)
}

// StaticFeed returns a fixed list of posts.
type StaticFeed []string

func (f StaticFeed) Posts(_ context.Context) ([]string, error) {
	return f, nil
}

// HTTPFeed fetches posts from an endpoint returning a JSON string array.
type HTTPFeed struct {
	url        string
	httpClient *http.Client
}

// NewHTTPFeed creates a feed against url.
func NewHTTPFeed(url string, timeout time.Duration) *HTTPFeed {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HTTPFeed{url: url, httpClient: &http.Client{Timeout: timeout}}
}

func (f *HTTPFeed) Posts(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("sentiment: create feed request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sentiment: fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sentiment: feed HTTP %d", resp.StatusCode)
	}

	var posts []string
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, fmt.Errorf("sentiment: decode feed: %w", err)
	}
	return posts, nil
}

// lexicon maps lowercased tokens to a valence in [-1, 1].
var lexicon = map[string]float64{
	"moon":     0.8,
	"bullish":  0.7,
	"pump":     0.6,
	"gem":      0.6,
	"lfg":      0.6,
	"ape":      0.4,
	"buy":      0.4,
	"good":     0.4,
	"up":       0.3,
	"hold":     0.1,
	"down":     -0.3,
	"bad":      -0.4,
	"sell":     -0.4,
	"dump":     -0.6,
	"bearish":  -0.7,
	"rug":      -0.9,
	"scam":     -0.9,
	"honeypot": -0.9,
	"rekt":     -0.7,
	"crash":    -0.7,
}

// negations flip the valence of the following token.
var negations = map[string]bool{
	"not":   true,
	"no":    true,
	"never": true,
	"dont":  true,
	"don't": true,
}

// LexiconProvider averages a compound polarity score over a feed of recent
// posts. A lightweight stand-in for a full valence analyzer: per post, the
// token valences are summed and squashed into [-1, 1], then posts are
// averaged.
type LexiconProvider struct {
	feed Feed
}

// NewLexiconProvider creates a provider over the given feed.
func NewLexiconProvider(feed Feed) *LexiconProvider {
	return &LexiconProvider{feed: feed}
}

// Score returns the mean compound score over the feed's posts.
// An empty feed is neutral.
func (p *LexiconProvider) Score(ctx context.Context) (float64, error) {
	posts, err := p.feed.Posts(ctx)
	if err != nil {
		return 0, err
	}
	if len(posts) == 0 {
		return 0, nil
	}

	total := 0.0
	for _, post := range posts {
		total += compound(post)
	}
	return total / float64(len(posts)), nil
}

// compound scores a single post into [-1, 1].
func compound(post string) float64 {
	words := strings.Fields(strings.ToLower(post))

	sum := 0.0
	negate := false
	for _, w := range words {
		w = strings.Trim(w, ".,!?:;\"'()")
		if negations[w] {
			negate = true
			continue
		}
		if v, ok := lexicon[w]; ok {
			if negate {
				v = -v
			}
			sum += v
		}
		negate = false
	}

	// Squash the raw sum into [-1, 1], alpha=1 normalization.
	return sum / math.Sqrt(sum*sum+1)
}
