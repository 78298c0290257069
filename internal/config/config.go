// Package config loads process configuration from a YAML file with
// environment variable overrides, via github.com/spf13/viper — grounded
// on 0xtitan6-polymarket-mm's use of viper for exchange-facing service
// configuration, the only config library present anywhere in the
// retrieved pack.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"fenrir/internal/instrument"
)

// Config is everything the bootstrap in cmd/server needs to wire up a
// running process.
type Config struct {
	// ListenAddr is the TCP address the binary order-entry transport
	// listens on.
	ListenAddr string `mapstructure:"listen_addr"`
	// StreamAddr is the HTTP address the websocket streaming gateway
	// listens on.
	StreamAddr string `mapstructure:"stream_addr"`
	// StoreDir is the on-disk directory for the durable trade log.
	StoreDir string `mapstructure:"store_dir"`
	// Pairs is the whitelist of canonical pair strings ("BTC-USD") this
	// process accepts orders for. Must be a subset of instrument.Supported.
	Pairs []string `mapstructure:"pairs"`
	// WorkerPoolSize bounds how many order-entry connections are served
	// concurrently.
	WorkerPoolSize int `mapstructure:"worker_pool_size"`
	// TradesBufferCapacity is the trades topic's ring buffer size.
	TradesBufferCapacity int `mapstructure:"trades_buffer_capacity"`
	// BookUpdatesBufferCapacity is the book-updates topic's ring buffer size.
	BookUpdatesBufferCapacity int `mapstructure:"book_updates_buffer_capacity"`
}

func defaults() Config {
	return Config{
		ListenAddr:                ":7330",
		StreamAddr:                ":7331",
		StoreDir:                  "./data/trades",
		Pairs:                     []string{"BTC-USD", "ETH-USD"},
		WorkerPoolSize:            16,
		TradesBufferCapacity:      1024,
		BookUpdatesBufferCapacity: 16,
	}
}

// Load reads configuration from path (a YAML file; "" skips the file
// and uses defaults + environment only) with FENRIR_-prefixed
// environment variables overriding any key, e.g. FENRIR_LISTEN_ADDR.
func Load(path string) (Config, error) {
	d := defaults()

	v := viper.New()
	v.SetEnvPrefix("fenrir")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("stream_addr", d.StreamAddr)
	v.SetDefault("store_dir", d.StoreDir)
	v.SetDefault("pairs", d.Pairs)
	v.SetDefault("worker_pool_size", d.WorkerPoolSize)
	v.SetDefault("trades_buffer_capacity", d.TradesBufferCapacity)
	v.SetDefault("book_updates_buffer_capacity", d.BookUpdatesBufferCapacity)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// SupportedPairs parses and validates c.Pairs against the whitelist.
func (c Config) SupportedPairs() ([]instrument.Pair, error) {
	pairs := make([]instrument.Pair, 0, len(c.Pairs))
	for _, s := range c.Pairs {
		p, err := instrument.ParsePair(s)
		if err != nil {
			return nil, fmt.Errorf("config: pairs: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}
