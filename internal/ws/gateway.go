// Package ws is the live streaming transport: it upgrades an HTTP
// request to a websocket and serializes one stream.Session's frame
// sequence to JSON for the lifetime of the connection.
//
// Grounded on 0xtitan6-polymarket-mm (requires gorilla/websocket
// directly) and the retrieved pack's recurring use of gorilla/websocket
// as the live-market-data transport. The core stream session (internal/stream)
// is transport-agnostic by contract; this is the one concrete wire
// encoding chosen for it.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"fenrir/internal/instrument"
	"fenrir/internal/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const shutdownTimeout = 5 * time.Second

// Gateway serves one HTTP endpoint, /stream?pair=BASE-QUOTE, that
// upgrades to a websocket and drives a stream.Session against it.
type Gateway struct {
	source stream.Source
}

// NewGateway creates a streaming gateway over source.
func NewGateway(source stream.Source) *Gateway {
	return &Gateway{source: source}
}

// Run serves the gateway on addr until ctx is cancelled.
func (g *Gateway) Run(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/stream", g.handleStream)
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (g *Gateway) handleStream(w http.ResponseWriter, r *http.Request) {
	pair, err := instrument.ParsePair(r.URL.Query().Get("pair"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// A websocket connection has no half-close signal of its own; the
	// only way to notice the client went away is to keep reading (and
	// discarding) whatever it sends, including control frames.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	session := stream.New(g.source, pair)
	go func() {
		if err := session.Run(ctx); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Str("pair", pair.Canonical()).Msg("stream session ended with error")
		}
	}()

	for frame := range session.Frames() {
		if err := conn.WriteJSON(toWireFrame(frame)); err != nil {
			cancel()
			return
		}
	}
}
