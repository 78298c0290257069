package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/instrument"
	"fenrir/internal/trade"
)

func testTrade(qty uint64) trade.Trade {
	return trade.Trade{
		Price:     100,
		Quantity:  qty,
		MakerID:   uuid.New(),
		TakerID:   uuid.New(),
		Timestamp: time.Now(),
		Symbol:    instrument.BTCUSD.Canonical(),
	}
}

func TestBus_PublishWithNoSubscribersDoesNotBlock(t *testing.T) {
	b := New(4, 4)
	assert.NotPanics(t, func() {
		b.PublishTrade(testTrade(1))
		b.PublishBookUpdate(instrument.BTCUSD)
	})
}

func TestSubscribeTrades_OnlySeesTradesAfterSubscribe(t *testing.T) {
	b := New(4, 4)
	b.PublishTrade(testTrade(1)) // published before subscribing, so invisible

	sub := b.SubscribeTrades()
	defer sub.Close()

	_, ok, err := sub.TryRecv()
	require.NoError(t, err)
	assert.False(t, ok)

	want := testTrade(2)
	b.PublishTrade(want)

	got, ok, err := sub.TryRecv()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestSubscribeTrades_DeliversInPublishOrder(t *testing.T) {
	b := New(4, 4)
	sub := b.SubscribeTrades()
	defer sub.Close()

	first := testTrade(1)
	second := testTrade(2)
	b.PublishTrade(first)
	b.PublishTrade(second)

	got1, ok, err := sub.TryRecv()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, got1)

	got2, ok, err := sub.TryRecv()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second, got2)
}

func TestSubscribeTrades_IndependentCursorsPerSubscriber(t *testing.T) {
	b := New(4, 4)
	subA := b.SubscribeTrades()
	defer subA.Close()

	want := testTrade(5)
	b.PublishTrade(want)

	subB := b.SubscribeTrades() // joins after the publish
	defer subB.Close()

	_, ok, err := subA.TryRecv()
	require.NoError(t, err)
	assert.True(t, ok, "subA was already subscribed when the trade published")

	_, ok, err = subB.TryRecv()
	require.NoError(t, err)
	assert.False(t, ok, "subB joined after the publish and starts from the current position")
}

func TestTryRecv_LagReportsErrLaggedAndFastForwards(t *testing.T) {
	b := New(2, 4) // capacity 2: the third publish overwrites the first
	sub := b.SubscribeTrades()
	defer sub.Close()

	b.PublishTrade(testTrade(1))
	b.PublishTrade(testTrade(2))
	latest := testTrade(3)
	b.PublishTrade(latest)

	_, ok, err := sub.TryRecv()
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrLagged)

	// Cursor was fast-forwarded to the oldest retained entry; the next
	// read proceeds normally from there.
	got, ok, err := sub.TryRecv()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testTrade(2).Quantity, got.Quantity)

	got, ok, err = sub.TryRecv()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, latest.Quantity, got.Quantity)
}

func TestRecv_BlocksUntilPublishThenReturns(t *testing.T) {
	b := New(4, 4)
	sub := b.SubscribeTrades()
	defer sub.Close()

	want := testTrade(7)
	done := make(chan trade.Trade, 1)
	go func() {
		v, err := sub.Recv(context.Background())
		require.NoError(t, err)
		done <- v
	}()

	time.Sleep(10 * time.Millisecond) // give Recv time to block on notify
	b.PublishTrade(want)

	select {
	case got := <-done:
		assert.Equal(t, want, got)
	case <-time.After(time.Second):
		t.Fatal("Recv did not return after publish")
	}
}

func TestRecv_UnblocksOnContextCancel(t *testing.T) {
	b := New(4, 4)
	sub := b.SubscribeTrades()
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := sub.Recv(ctx)
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Recv did not unblock on cancellation")
	}
}

func TestSubscribeBookUpdates_DeliversPair(t *testing.T) {
	b := New(4, 4)
	sub := b.SubscribeBookUpdates()
	defer sub.Close()

	b.PublishBookUpdate(instrument.ETHUSD)

	got, ok, err := sub.TryRecv()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, instrument.ETHUSD, got)
}

func TestClose_IsIdempotentAndKeepsCursorReadable(t *testing.T) {
	b := New(4, 4)
	sub := b.SubscribeTrades()
	sub.Close()
	sub.Close() // must not panic

	b.PublishTrade(testTrade(1))
	_, ok, err := sub.TryRecv()
	require.NoError(t, err)
	assert.True(t, ok, "a closed subscription's own cursor still advances; only its notify wakeup is removed")
}
