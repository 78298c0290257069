// Package stream drives one subscriber end-to-end for one instrument:
// an initial snapshot frame followed by a live sequence of trade and
// book-update frames, honoring the ordering contract that every trade
// from a submission is delivered before the book-update it caused.
//
// Grounded on the teacher's internal/net/server.go sessionHandler loop
// shape — a long-running goroutine driven by a select over channel
// sources plus a cancellation signal — adapted from a raw order-entry
// session to a read-only subscription-driven stream.
package stream

import (
	"context"

	"github.com/rs/zerolog/log"

	"fenrir/internal/book"
	"fenrir/internal/eventbus"
	"fenrir/internal/instrument"
	"fenrir/internal/trade"
)

// Source is the narrow surface a Session needs from the engine: enough
// to capture a snapshot and to reach the bus. Kept as an interface, the
// way the teacher's internal/net/server.go narrows its Engine dependency
// to {PlaceOrder, CancelOrder, LogBook} rather than depending on the
// concrete engine type.
type Source interface {
	Snapshot(pair instrument.Pair) (book.BookSnapshot, error)
	Bus() *eventbus.Bus
}

// FrameKind discriminates a Frame's payload.
type FrameKind uint8

const (
	FrameBookSnapshot FrameKind = iota
	FrameTrade
)

// Frame is the tagged union a session emits. Exactly one of Snapshot or
// Trade is meaningful, per Kind.
type Frame struct {
	Kind     FrameKind
	Snapshot book.BookSnapshot
	Trade    trade.Trade
}

// Session is a per-subscriber, per-pair stream. Construct with New, then
// call Run in its own goroutine; read frames off Frames() until it's
// closed.
type Session struct {
	pair   instrument.Pair
	source Source
	frames chan Frame
}

// New creates a session for pair against source. Frames is buffered
// lightly so Run can make progress sending a couple of frames ahead of a
// slow reader without stalling the bus-drain loop; it is not a
// replacement for the bus's own lag handling.
func New(source Source, pair instrument.Pair) *Session {
	return &Session{pair: pair, source: source, frames: make(chan Frame, 8)}
}

// Frames returns the channel frames are delivered on. It is closed when
// Run returns, by whatever cause.
func (s *Session) Frames() <-chan Frame {
	return s.frames
}

// Run is the session state machine: Opening (subscribe, snapshot, send),
// Running (cooperative select over trades, book-updates, cancellation),
// Closing (drop subscriptions, return). It returns when ctx is
// cancelled or a snapshot capture fails, whether the initial one or a
// later re-snapshot.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.frames)

	bus := s.source.Bus()
	trades := bus.SubscribeTrades()
	defer trades.Close()
	updates := bus.SubscribeBookUpdates()
	defer updates.Close()

	snap, err := s.source.Snapshot(s.pair)
	if err != nil {
		return err
	}
	if err := s.send(ctx, Frame{Kind: FrameBookSnapshot, Snapshot: snap}); err != nil {
		return err
	}

	symbol := s.pair.Canonical()

	for {
		if err := s.drainTrades(ctx, trades, symbol); err != nil {
			return err
		}

		needsSnapshot, err := s.drainBookUpdates(updates)
		if err != nil {
			return err
		}
		if needsSnapshot {
			// Trades are published before the book-update they caused, so
			// any that landed after the drain above are forwarded first.
			if err := s.drainTrades(ctx, trades, symbol); err != nil {
				return err
			}
			snap, err := s.source.Snapshot(s.pair)
			if err != nil {
				return err
			}
			if err := s.send(ctx, Frame{Kind: FrameBookSnapshot, Snapshot: snap}); err != nil {
				return err
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-trades.Notify():
		case <-updates.Notify():
		}
	}
}

// drainTrades forwards every currently-available trade for this pair, in
// order, without coalescing — each one the subscriber observed must be
// delivered. A lag drops whatever trades were skipped for this
// subscriber only; they remain durable in the trade log.
func (s *Session) drainTrades(ctx context.Context, sub *eventbus.Subscription[trade.Trade], symbol string) error {
	for {
		t, ok, err := sub.TryRecv()
		if err != nil {
			log.Warn().Str("pair", symbol).Err(err).Msg("stream session lagged on trades topic")
			continue
		}
		if !ok {
			return nil
		}
		if t.Symbol != symbol {
			continue
		}
		if err := s.send(ctx, Frame{Kind: FrameTrade, Trade: t}); err != nil {
			return err
		}
	}
}

// drainBookUpdates coalesces every currently-available book-update for
// this pair into a single "a fresh snapshot is owed" signal: snapshots
// are idempotent, so only the fact that at least one update arrived
// matters, not how many.
func (s *Session) drainBookUpdates(sub *eventbus.Subscription[instrument.Pair]) (needsSnapshot bool, err error) {
	for {
		p, ok, recvErr := sub.TryRecv()
		if recvErr != nil {
			return true, nil
		}
		if !ok {
			return needsSnapshot, nil
		}
		if p == s.pair {
			needsSnapshot = true
		}
	}
}

func (s *Session) send(ctx context.Context, f Frame) error {
	select {
	case s.frames <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
