package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/book"
	"fenrir/internal/eventbus"
	"fenrir/internal/instrument"
	"fenrir/internal/trade"
)

type fakeSource struct {
	bus  *eventbus.Bus
	snap book.BookSnapshot
}

func (f *fakeSource) Snapshot(instrument.Pair) (book.BookSnapshot, error) { return f.snap, nil }
func (f *fakeSource) Bus() *eventbus.Bus                                  { return f.bus }

func recvFrame(t *testing.T, frames <-chan Frame) Frame {
	t.Helper()
	select {
	case f, ok := <-frames:
		require.True(t, ok, "frames channel closed unexpectedly")
		return f
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a frame")
		return Frame{}
	}
}

func TestRun_SendsInitialSnapshotFirst(t *testing.T) {
	src := &fakeSource{bus: eventbus.New(16, 16), snap: book.BookSnapshot{Bids: []book.Level{{Price: 99, Quantity: 10}}}}
	s := New(src, instrument.BTCUSD)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	f := recvFrame(t, s.Frames())
	assert.Equal(t, FrameBookSnapshot, f.Kind)
	assert.Equal(t, src.snap, f.Snapshot)
}

func TestRun_ForwardsMatchingTradesOnly(t *testing.T) {
	bus := eventbus.New(16, 16)
	src := &fakeSource{bus: bus}
	s := New(src, instrument.BTCUSD)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()
	recvFrame(t, s.Frames()) // initial snapshot

	other := trade.Trade{Symbol: instrument.ETHUSD.Canonical(), Quantity: 1}
	mine := trade.Trade{Symbol: instrument.BTCUSD.Canonical(), Quantity: 2}
	bus.PublishTrade(other)
	bus.PublishTrade(mine)

	f := recvFrame(t, s.Frames())
	assert.Equal(t, FrameTrade, f.Kind)
	assert.Equal(t, mine, f.Trade)
}

func TestRun_BookUpdateTriggersResnapshot(t *testing.T) {
	bus := eventbus.New(16, 16)
	src := &fakeSource{bus: bus, snap: book.BookSnapshot{Bids: []book.Level{{Price: 100, Quantity: 1}}}}
	s := New(src, instrument.BTCUSD)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()
	recvFrame(t, s.Frames()) // initial snapshot

	src.snap = book.BookSnapshot{Bids: []book.Level{{Price: 100, Quantity: 5}}}
	bus.PublishBookUpdate(instrument.ETHUSD) // different pair: ignored
	bus.PublishBookUpdate(instrument.BTCUSD)

	f := recvFrame(t, s.Frames())
	assert.Equal(t, FrameBookSnapshot, f.Kind)
	assert.Equal(t, src.snap, f.Snapshot)
}

func TestRun_ReturnsAndClosesFramesOnCancel(t *testing.T) {
	src := &fakeSource{bus: eventbus.New(16, 16)}
	s := New(src, instrument.BTCUSD)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	recvFrame(t, s.Frames())

	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	_, ok := <-s.Frames()
	assert.False(t, ok, "frames channel is closed once Run returns")
}
