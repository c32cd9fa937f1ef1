package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, yaml string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "helios-config-*.yaml")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	_, err = tmpFile.WriteString(yaml)
	require.NoError(t, err)
	tmpFile.Close()
	return tmpFile.Name()
}

func TestLoadConfig(t *testing.T) {
	yaml := `
general:
  instance_id: "test-node"
  environment: "development"
  dry_run: true
  log_level: "debug"

solana:
  rpc_endpoint: "https://rpc.test.local"
  wallet_keys:
    - "key-one"
    - "key-two"

catalog:
  cache_ttl: 30s

filter:
  min_liquidity_sol: 100

trading:
  trade_size_sol: 0.5
`
	cfg, err := Load(writeTempConfig(t, yaml))
	require.NoError(t, err)

	assert.Equal(t, "test-node", cfg.General.InstanceID)
	assert.True(t, cfg.General.DryRun)
	assert.Equal(t, "https://rpc.test.local", cfg.Solana.RPCEndpoint)
	assert.Equal(t, []string{"key-one", "key-two"}, cfg.Solana.WalletKeys)
	assert.Equal(t, 30*time.Second, cfg.Catalog.CacheTTL)
	assert.Equal(t, 100.0, cfg.Filter.MinLiquiditySOL)
	assert.Equal(t, 0.5, cfg.Trading.TradeSizeSOL)
}

func TestLoadConfigDefaults(t *testing.T) {
	yaml := `
general:
  dry_run: true
`
	cfg, err := Load(writeTempConfig(t, yaml))
	require.NoError(t, err)

	assert.Equal(t, "helios-1", cfg.General.InstanceID)
	assert.Equal(t, "info", cfg.General.LogLevel)
	assert.Equal(t, 60*time.Second, cfg.Catalog.CacheTTL)
	assert.Equal(t, 80.0, cfg.Filter.MinSafetyScore)
	assert.Equal(t, 50.0, cfg.Filter.MaxTopHolderPct)
	assert.Equal(t, 250.0, cfg.Filter.MinLiquiditySOL)
	assert.Equal(t, 6250.0, cfg.Filter.MaxMarketCapSOL)
	assert.Equal(t, 48.0, cfg.Filter.MaxAgeHours)
	assert.Equal(t, 500, cfg.Filter.MinBuys24h)
	assert.Equal(t, 250, cfg.Filter.MinSells24h)
	assert.Equal(t, 0.3, cfg.Sentiment.Threshold)
	assert.Equal(t, 0.05, cfg.Sentiment.MaxVolatility)
	assert.Equal(t, 100, cfg.Trading.SlippageBps)
	assert.Equal(t, 1000.0, cfg.Trading.SellCap)
	assert.Equal(t, 0.05, cfg.Sim.FailureRate)
}

func TestLoadConfigEnvExpansion(t *testing.T) {
	os.Setenv("TEST_HELIOS_RPC", "https://rpc.env.local")
	defer os.Unsetenv("TEST_HELIOS_RPC")

	yaml := `
solana:
  rpc_endpoint: "${TEST_HELIOS_RPC}"
`
	cfg, err := Load(writeTempConfig(t, yaml))
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.env.local", cfg.Solana.RPCEndpoint)
}

func TestLoadConfigValidation(t *testing.T) {
	yaml := `
sentiment:
  threshold: 1.5
`
	_, err := Load(writeTempConfig(t, yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sentiment.threshold")
}
