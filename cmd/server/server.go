// Command server bootstraps one exchange process: the durable trade
// store, the event bus, the submission coordinator, the binary
// order-entry transport, and the websocket streaming gateway, all
// wired from a single config.Config and torn down together on
// SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"fenrir/internal/config"
	"fenrir/internal/engine"
	"fenrir/internal/eventbus"
	"fenrir/internal/store"
	"fenrir/internal/transport"
	"fenrir/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional; env and defaults still apply)")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed loading configuration")
	}

	pairs, err := cfg.SupportedPairs()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configured pairs")
	}

	st, err := store.Open(cfg.StoreDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.StoreDir).Msg("failed opening trade store")
	}
	defer st.Close()

	bus := eventbus.New(cfg.TradesBufferCapacity, cfg.BookUpdatesBufferCapacity)
	coord := engine.New(pairs, st, bus)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	t, ctx := tomb.WithContext(ctx)

	orderEntry := transport.New(cfg.ListenAddr, coord, cfg.WorkerPoolSize)
	t.Go(func() error {
		return orderEntry.Run(ctx)
	})

	gateway := ws.NewGateway(coord)
	t.Go(func() error {
		return gateway.Run(ctx, cfg.StreamAddr)
	})

	log.Info().
		Str("listen_addr", cfg.ListenAddr).
		Str("stream_addr", cfg.StreamAddr).
		Str("store_dir", cfg.StoreDir).
		Interface("pairs", cfg.Pairs).
		Msg("fenrir exchange started")

	<-ctx.Done()
	log.Info().Msg("shutdown signal received, waiting for subsystems to stop")

	if err := t.Wait(); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("subsystem exited with error")
		os.Exit(1)
	}
}
