package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Helios.
type Config struct {
	General   GeneralConfig   `yaml:"general"`
	Solana    SolanaConfig    `yaml:"solana"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Filter    FilterConfig    `yaml:"filter"`
	Sentiment SentimentConfig `yaml:"sentiment"`
	Trading   TradingConfig   `yaml:"trading"`
	Sim       SimConfig       `yaml:"sim"`
	Ledger    LedgerConfig    `yaml:"ledger"`
}

type GeneralConfig struct {
	InstanceID  string `yaml:"instance_id"`
	Environment string `yaml:"environment"` // production|staging|development
	DryRun      bool   `yaml:"dry_run"`     // paper mode: route trades to the simulator
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"` // json|text
	ListenAddr  string `yaml:"listen_addr"`
}

type SolanaConfig struct {
	RPCEndpoint  string        `yaml:"rpc_endpoint"`
	WSEndpoint   string        `yaml:"ws_endpoint"`
	SwapAPIURL   string        `yaml:"swap_api_url"` // aggregator quote+swap API
	Timeout      time.Duration `yaml:"timeout"`
	RateLimitRPS float64       `yaml:"rate_limit_rps"`
	WalletKeys   []string      `yaml:"wallet_keys"` // base58 private keys, order fixed for the run
}

type CatalogConfig struct {
	APIURL       string        `yaml:"api_url"`
	Query        string        `yaml:"query"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	RateLimitRPS float64       `yaml:"rate_limit_rps"`
	AcquireWait  time.Duration `yaml:"acquire_wait"` // max wait for a rate token before deferring
	Workers      int           `yaml:"workers"`      // fact-resolution fan-out bound
}

type FilterConfig struct {
	MinSafetyScore  float64 `yaml:"min_safety_score"`
	MaxTopHolderPct float64 `yaml:"max_top_holder_pct"`
	MinLiquiditySOL float64 `yaml:"min_liquidity_sol"`
	MaxMarketCapSOL float64 `yaml:"max_market_cap_sol"`
	MaxAgeHours     float64 `yaml:"max_age_hours"`
	MinBuys24h      int     `yaml:"min_buys_24h"`
	MinSells24h     int     `yaml:"min_sells_24h"`
	ScoringAPIURL   string  `yaml:"scoring_api_url"`
}

type SentimentConfig struct {
	Threshold     float64 `yaml:"threshold"`      // signal band half-width
	MaxVolatility float64 `yaml:"max_volatility"` // eligibility ceiling
	FeedURL       string  `yaml:"feed_url"`
}

type TradingConfig struct {
	TradeSizeSOL float64 `yaml:"trade_size_sol"`
	SlippageBps  int     `yaml:"slippage_bps"`
	SellCap      float64 `yaml:"sell_cap"` // max token amount per sell
}

type SimConfig struct {
	FailureRate float64 `yaml:"failure_rate"`
	Seed        int64   `yaml:"seed"` // 0 = time-seeded
}

type LedgerConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"` // empty = in-memory only
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.General.InstanceID == "" {
		cfg.General.InstanceID = "helios-1"
	}
	if cfg.General.Environment == "" {
		cfg.General.Environment = "development"
	}
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.General.LogFormat == "" {
		cfg.General.LogFormat = "json"
	}
	if cfg.General.ListenAddr == "" {
		cfg.General.ListenAddr = ":8080"
	}
	if cfg.Solana.RPCEndpoint == "" {
		cfg.Solana.RPCEndpoint = "https://api.mainnet-beta.solana.com"
	}
	if cfg.Solana.Timeout == 0 {
		cfg.Solana.Timeout = 10 * time.Second
	}
	if cfg.Solana.RateLimitRPS == 0 {
		cfg.Solana.RateLimitRPS = 10
	}
	if cfg.Catalog.APIURL == "" {
		cfg.Catalog.APIURL = "https://api.dexscreener.com/latest/dex/search"
	}
	if cfg.Catalog.Query == "" {
		cfg.Catalog.Query = "SOL"
	}
	if cfg.Catalog.CacheTTL == 0 {
		cfg.Catalog.CacheTTL = 60 * time.Second
	}
	if cfg.Catalog.RateLimitRPS == 0 {
		cfg.Catalog.RateLimitRPS = 1
	}
	if cfg.Catalog.AcquireWait == 0 {
		cfg.Catalog.AcquireWait = 2 * time.Second
	}
	if cfg.Catalog.Workers == 0 {
		cfg.Catalog.Workers = 8
	}
	if cfg.Filter.MinSafetyScore == 0 {
		cfg.Filter.MinSafetyScore = 80
	}
	if cfg.Filter.MaxTopHolderPct == 0 {
		cfg.Filter.MaxTopHolderPct = 50
	}
	if cfg.Filter.MinLiquiditySOL == 0 {
		cfg.Filter.MinLiquiditySOL = 250
	}
	if cfg.Filter.MaxMarketCapSOL == 0 {
		cfg.Filter.MaxMarketCapSOL = 6250
	}
	if cfg.Filter.MaxAgeHours == 0 {
		cfg.Filter.MaxAgeHours = 48
	}
	if cfg.Filter.MinBuys24h == 0 {
		cfg.Filter.MinBuys24h = 500
	}
	if cfg.Filter.MinSells24h == 0 {
		cfg.Filter.MinSells24h = 250
	}
	if cfg.Sentiment.Threshold == 0 {
		cfg.Sentiment.Threshold = 0.3
	}
	if cfg.Sentiment.MaxVolatility == 0 {
		cfg.Sentiment.MaxVolatility = 0.05
	}
	if cfg.Trading.TradeSizeSOL == 0 {
		cfg.Trading.TradeSizeSOL = 0.01
	}
	if cfg.Trading.SlippageBps == 0 {
		cfg.Trading.SlippageBps = 100
	}
	if cfg.Trading.SellCap == 0 {
		cfg.Trading.SellCap = 1000
	}
	if cfg.Sim.FailureRate == 0 {
		cfg.Sim.FailureRate = 0.05
	}
}

// Validate rejects configurations that would misbehave silently.
func (c *Config) Validate() error {
	if c.Sentiment.Threshold <= 0 || c.Sentiment.Threshold >= 1 {
		return fmt.Errorf("config: sentiment.threshold must be in (0,1), got %v", c.Sentiment.Threshold)
	}
	if c.Sentiment.MaxVolatility <= 0 {
		return fmt.Errorf("config: sentiment.max_volatility must be positive, got %v", c.Sentiment.MaxVolatility)
	}
	if c.Trading.TradeSizeSOL <= 0 {
		return fmt.Errorf("config: trading.trade_size_sol must be positive, got %v", c.Trading.TradeSizeSOL)
	}
	if c.Trading.SlippageBps < 0 || c.Trading.SlippageBps >= 10000 {
		return fmt.Errorf("config: trading.slippage_bps must be in [0,10000), got %d", c.Trading.SlippageBps)
	}
	if c.Sim.FailureRate < 0 || c.Sim.FailureRate > 1 {
		return fmt.Errorf("config: sim.failure_rate must be in [0,1], got %v", c.Sim.FailureRate)
	}
	if c.Filter.MinSafetyScore < 0 || c.Filter.MinSafetyScore > 100 {
		return fmt.Errorf("config: filter.min_safety_score must be in [0,100], got %v", c.Filter.MinSafetyScore)
	}
	if c.Catalog.Workers < 1 {
		return fmt.Errorf("config: catalog.workers must be at least 1, got %d", c.Catalog.Workers)
	}
	return nil
}
