package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/instrument"
)

func TestLoad_DefaultsWithNoFileOrEnv(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, defaults().ListenAddr, cfg.ListenAddr)
	assert.Equal(t, defaults().Pairs, cfg.Pairs)
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	t.Setenv("FENRIR_LISTEN_ADDR", ":9999")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.ListenAddr)
}

func TestLoad_FileOverridesDefault(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "fenrir-*.yaml")
	require.NoError(t, err)
	_, err = f.WriteString("listen_addr: \":1234\"\nworker_pool_size: 4\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	cfg, err := Load(f.Name())
	require.NoError(t, err)
	assert.Equal(t, ":1234", cfg.ListenAddr)
	assert.Equal(t, 4, cfg.WorkerPoolSize)
}

func TestSupportedPairs_ValidatesAgainstWhitelist(t *testing.T) {
	cfg := Config{Pairs: []string{"BTC-USD", "ETH-USD"}}
	pairs, err := cfg.SupportedPairs()
	require.NoError(t, err)
	assert.Equal(t, []instrument.Pair{instrument.BTCUSD, instrument.ETHUSD}, pairs)
}

func TestSupportedPairs_RejectsUnknownPair(t *testing.T) {
	cfg := Config{Pairs: []string{"DOGE-USD"}}
	_, err := cfg.SupportedPairs()
	assert.Error(t, err)
}
