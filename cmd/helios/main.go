package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/helios-trading/helios/internal/catalog"
	"github.com/helios-trading/helios/internal/config"
	"github.com/helios-trading/helios/internal/features"
	"github.com/helios-trading/helios/internal/orchestrator"
	"github.com/helios-trading/helios/internal/ratelimit"
	"github.com/helios-trading/helios/internal/risk"
	"github.com/helios-trading/helios/internal/sentiment"
	"github.com/helios-trading/helios/internal/solana"
	"github.com/helios-trading/helios/internal/store"
	"github.com/helios-trading/helios/internal/trade"
	"github.com/helios-trading/helios/internal/wallet"
)

// pairsAPIURL serves per-pool transaction counts; the search API in the
// config covers discovery only.
const pairsAPIURL = "https://api.dexscreener.com/latest/dex/pairs"

func main() {
	// 1. Parse flags. A .env file can supply the variables the config
	// expands.
	_ = godotenv.Load()

	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	stubMode := flag.Bool("stub", false, "Use stub connector and providers (no external calls)")
	flag.Parse()

	// 2. Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config from %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	// 3. Setup logging.
	setupLogging(cfg.General)

	log.Info().
		Str("instance_id", cfg.General.InstanceID).
		Bool("dry_run", cfg.General.DryRun).
		Bool("stub_mode", *stubMode).
		Str("query", cfg.Catalog.Query).
		Float64("trade_size_sol", cfg.Trading.TradeSizeSOL).
		Int("slippage_bps", cfg.Trading.SlippageBps).
		Float64("min_safety", cfg.Filter.MinSafetyScore).
		Msg("Helios starting")

	// 4. Chain connector.
	var connector solana.Connector
	var liveConnector *solana.LiveConnector
	if *stubMode {
		connector = solana.NewStubConnector()
		log.Info().Msg("Solana connector: STUB mode")
	} else {
		liveConnector = solana.NewLiveConnector(solana.LiveConfig{
			RPCEndpoint:  cfg.Solana.RPCEndpoint,
			SwapAPIURL:   cfg.Solana.SwapAPIURL,
			Timeout:      cfg.Solana.Timeout,
			RateLimitRPS: cfg.Solana.RateLimitRPS,
		})
		connector = liveConnector
		defer liveConnector.Close()

		healthCtx, healthCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := connector.Health(healthCtx); err != nil {
			log.Warn().Err(err).Str("endpoint", cfg.Solana.RPCEndpoint).
				Msg("Solana RPC health check failed (continuing, may be rate-limited)")
		} else {
			log.Info().Str("endpoint", cfg.Solana.RPCEndpoint).Msg("Solana connector: LIVE")
		}
		healthCancel()
	}

	// 5. Catalog pipeline: client, volume, scoring, filter, volatility.
	var client catalog.Client
	var volume catalog.VolumeService
	if *stubMode {
		client = catalog.NewStubClient()
		volume = catalog.NewStubVolume()
	} else {
		client = catalog.NewHTTPClient(cfg.Catalog.APIURL, cfg.Solana.Timeout)
		volume = catalog.NewHTTPVolume(pairsAPIURL, cfg.Solana.Timeout)
	}

	var scoring risk.ScoringService
	if *stubMode || cfg.Filter.ScoringAPIURL == "" {
		scoring = risk.NewStubScoring()
		log.Info().Msg("Scoring service: STUB mode")
	} else {
		scoring = risk.NewHTTPScoringClient(cfg.Filter.ScoringAPIURL, 0)
	}

	filter := risk.NewFilter(risk.Limits{
		MinSafetyScore:  cfg.Filter.MinSafetyScore,
		MaxTopHolderPct: cfg.Filter.MaxTopHolderPct,
		MinLiquiditySOL: decimal.NewFromFloat(cfg.Filter.MinLiquiditySOL),
		MaxMarketCapSOL: decimal.NewFromFloat(cfg.Filter.MaxMarketCapSOL),
		MaxAgeHours:     cfg.Filter.MaxAgeHours,
		MinBuys24h:      cfg.Filter.MinBuys24h,
		MinSells24h:     cfg.Filter.MinSells24h,
	})

	vol := features.NewVolatility(32)
	limiter := ratelimit.New(cfg.Catalog.RateLimitRPS, 1)
	defer limiter.Close()

	fetcher := catalog.NewFetcher(catalog.FetcherConfig{
		Query:       cfg.Catalog.Query,
		CacheTTL:    cfg.Catalog.CacheTTL,
		AcquireWait: cfg.Catalog.AcquireWait,
		Workers:     cfg.Catalog.Workers,
	}, client, volume, scoring, filter, vol, limiter)

	// 6. Sentiment gate.
	var provider sentiment.Provider
	switch {
	case *stubMode:
		provider = sentiment.NewStubProvider(0)
		log.Info().Msg("Sentiment provider: STUB mode")
	case cfg.Sentiment.FeedURL != "":
		provider = sentiment.NewLexiconProvider(sentiment.NewHTTPFeed(cfg.Sentiment.FeedURL, 0))
	default:
		// No feed configured: the empty feed scores neutral, so the gate
		// holds until one is wired in.
		provider = sentiment.NewLexiconProvider(sentiment.StaticFeed(nil))
		log.Warn().Msg("No sentiment feed configured, gate will always hold")
	}
	gate := sentiment.NewGate(provider, cfg.Sentiment.Threshold, cfg.Sentiment.MaxVolatility, cfg.Filter.MinSafetyScore)

	// 7. Wallet set and allocator.
	var set *wallet.Set
	if len(cfg.Solana.WalletKeys) == 0 {
		if !cfg.General.DryRun && !*stubMode {
			log.Fatal().Msg("No wallet keys configured and not in dry-run mode")
		}
		set = wallet.NewSetFromWallets(
			wallet.NewRandomWallet(0),
			wallet.NewRandomWallet(1),
			wallet.NewRandomWallet(2),
		)
		log.Info().Int("wallets", set.Len()).Msg("No keys configured, using ephemeral wallets")
	} else {
		set, err = wallet.NewSet(cfg.Solana.WalletKeys)
		if err != nil {
			log.Fatal().Err(err).Msg("Wallet set initialization failed")
		}
		log.Info().Int("wallets", set.Len()).Msg("Wallet set loaded")
	}
	allocator := wallet.NewAllocator(set, connector)

	// 8. Execution and paper simulation.
	tradeSize := decimal.NewFromFloat(cfg.Trading.TradeSizeSOL)
	sellCap := decimal.NewFromFloat(cfg.Trading.SellCap)

	executor := trade.NewExecutor(trade.ExecutorConfig{
		TradeSizeSOL: tradeSize,
		SlippageBps:  cfg.Trading.SlippageBps,
		SellCap:      sellCap,
	}, connector)

	var archiver trade.Archiver
	if cfg.Ledger.PostgresDSN != "" {
		archiveCtx, archiveCancel := context.WithTimeout(context.Background(), 10*time.Second)
		archive, err := store.NewPaperArchive(archiveCtx, cfg.Ledger.PostgresDSN)
		archiveCancel()
		if err != nil {
			log.Warn().Err(err).Msg("Paper trade archive unavailable (continuing in-memory only)")
		} else {
			archiver = archive
			defer archive.Close()
		}
	}

	simulator := trade.NewSimulator(trade.SimulatorConfig{
		TradeSizeSOL: tradeSize,
		SellCap:      sellCap,
		FailureRate:  cfg.Sim.FailureRate,
		Seed:         cfg.Sim.Seed,
	}, archiver)

	// 9. Orchestrator.
	orch := orchestrator.New(orchestrator.Config{
		DryRun:       cfg.General.DryRun,
		TradeSizeSOL: tradeSize,
		WalletCount:  set.Len(),
	}, fetcher, gate, vol, allocator, executor, simulator)

	// 10. Setup context and signal handling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	var wg sync.WaitGroup

	// 11. Optional pair stream expires the catalog cache on new listings.
	if cfg.Solana.WSEndpoint != "" && !*stubMode {
		stream := catalog.NewPairStream(catalog.StreamConfig{
			WSEndpoint: cfg.Solana.WSEndpoint,
		}, fetcher)
		wg.Add(1)
		go func() {
			defer wg.Done()
			stream.Run(ctx)
		}()
		log.Info().Str("endpoint", cfg.Solana.WSEndpoint).Msg("Pair stream started")
	}

	// 12. Trading loop: one cycle per catalog TTL.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(cfg.Catalog.CacheTTL)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				orch.RunCycle(ctx)
			}
		}
	}()

	// 13. HTTP boundary.
	wg.Add(1)
	go func() {
		defer wg.Done()
		serveHTTP(ctx, cfg.General.ListenAddr, cfg.General.DryRun, orch, fetcher)
	}()

	log.Info().Msg("Helios running")

	// 14. Block until shutdown.
	<-ctx.Done()
	wg.Wait()

	stats := orch.Stats()
	log.Info().
		Int64("cycles", stats.CyclesRun).
		Int64("executed", stats.Executed).
		Int64("simulated", stats.Simulated).
		Int64("skipped", stats.Skipped).
		Msg("Helios shutdown complete")
}

func serveHTTP(ctx context.Context, addr string, dryRun bool, orch *orchestrator.Orchestrator, fetcher *catalog.Fetcher) {
	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"dry_run": dryRun,
		})
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"orchestrator": orch.Stats(),
			"catalog":      fetcher.Stats(),
			"dry_run":      dryRun,
		})
	})

	mux.HandleFunc("/candidates", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, orch.ListCandidates(r.Context()))
	})

	mux.HandleFunc("/sentiment", func(w http.ResponseWriter, r *http.Request) {
		sig, score := orch.Sentiment(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{
			"signal": sig,
			"score":  score,
		})
	})

	mux.HandleFunc("/balances", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, orch.Balances(r.Context()))
	})

	// tradeHandler adapts a boundary trade operation to HTTP.
	tradeHandler := func(run func(ctx context.Context, action trade.Action, symbol string) (trade.TradeResult, error)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "POST only", http.StatusMethodNotAllowed)
				return
			}
			action := trade.Action(strings.ToLower(r.URL.Query().Get("action")))
			symbol := r.URL.Query().Get("symbol")
			if (action != trade.ActionBuy && action != trade.ActionSell) || symbol == "" {
				http.Error(w, "action=buy|sell and symbol required", http.StatusBadRequest)
				return
			}

			result, err := run(r.Context(), action, symbol)
			switch {
			case errors.Is(err, trade.ErrNotFound):
				http.Error(w, err.Error(), http.StatusNotFound)
			case errors.Is(err, trade.ErrInsufficientResource):
				http.Error(w, err.Error(), http.StatusConflict)
			case err != nil:
				http.Error(w, err.Error(), http.StatusBadGateway)
			default:
				writeJSON(w, http.StatusOK, result)
			}
		}
	}

	mux.HandleFunc("/trade", tradeHandler(orch.Trade))
	mux.HandleFunc("/paper-trade", tradeHandler(orch.PaperTrade))

	mux.HandleFunc("/paper-trades", func(w http.ResponseWriter, _ *http.Request) {
		entries, total := orch.PaperLedger()
		writeJSON(w, http.StatusOK, map[string]any{
			"trades":        entries,
			"total_pnl_sol": total,
		})
	})

	mux.HandleFunc("/auto-trade", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, orch.RunCycle(r.Context()))
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("HTTP server started")

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("HTTP server error")
	}
}

func setupLogging(general config.GeneralConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro
	level, err := zerolog.ParseLevel(general.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if general.LogFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Str("service", "helios").
			Str("instance", general.InstanceID).Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).
			With().Timestamp().Str("service", "helios").
			Str("instance", general.InstanceID).Logger()
	}
}
