// Package eventbus is the process-local publish/subscribe fabric: a
// trades topic and a book-updates topic, each a bounded, lossy ring
// buffer with independent per-subscriber read cursors.
//
// There is no broadcast channel in the standard library, and nothing in
// the retrieved pack implements one either, so this is hand-built rather
// than adapted from an existing Go dependency. Its shape mirrors the
// Rust original's tokio::sync::broadcast channels (capacity 1024 for
// trades, 16 for book updates) as closely as a lock-guarded slice ring
// buffer can.
package eventbus

import (
	"context"
	"errors"
	"sync"

	"fenrir/internal/instrument"
	"fenrir/internal/trade"
)

// ErrLagged is returned by Recv/TryRecv when a subscriber's read cursor
// fell far enough behind that the buffer overwrote what it hadn't read
// yet. The subscriber's cursor is advanced to the oldest retained entry
// before returning, so the next call proceeds normally; whatever was
// skipped is considered lost for that subscriber only.
var ErrLagged = errors.New("eventbus: subscriber lagged past buffer capacity")

// topic is a lock-guarded, multi-writer, multi-reader bounded ring
// buffer. writeSeq
// counts every publish ever made; the buffer retains the last cap
// entries, addressed by writeSeq % cap.
type topic[T any] struct {
	mu       sync.Mutex
	buf      []T
	cap      uint64
	writeSeq uint64

	subsMu sync.Mutex
	subs   []chan struct{}
}

func newTopic[T any](capacity int) *topic[T] {
	return &topic[T]{buf: make([]T, capacity), cap: uint64(capacity)}
}

// publish is fire-and-forget: it always succeeds, even with zero
// subscribers, and never blocks on a slow reader.
func (t *topic[T]) publish(v T) {
	t.mu.Lock()
	t.buf[t.writeSeq%t.cap] = v
	t.writeSeq++
	t.mu.Unlock()

	t.subsMu.Lock()
	for _, notify := range t.subs {
		select {
		case notify <- struct{}{}:
		default:
		}
	}
	t.subsMu.Unlock()
}

func (t *topic[T]) subscribe() *Subscription[T] {
	notify := make(chan struct{}, 1)
	t.subsMu.Lock()
	t.subs = append(t.subs, notify)
	t.subsMu.Unlock()

	t.mu.Lock()
	readSeq := t.writeSeq
	t.mu.Unlock()

	return &Subscription[T]{topic: t, readSeq: readSeq, notify: notify}
}

func (t *topic[T]) unsubscribe(notify chan struct{}) {
	t.subsMu.Lock()
	defer t.subsMu.Unlock()
	for i, n := range t.subs {
		if n == notify {
			t.subs = append(t.subs[:i], t.subs[i+1:]...)
			return
		}
	}
}

// tryRead attempts a single non-blocking read at the subscriber's
// current cursor. ok is false if there is nothing new yet.
func (t *topic[T]) tryRead(readSeq *uint64) (v T, ok bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if *readSeq >= t.writeSeq {
		return v, false, nil
	}
	oldest := uint64(0)
	if t.writeSeq > t.cap {
		oldest = t.writeSeq - t.cap
	}
	if *readSeq < oldest {
		*readSeq = oldest
		return v, false, ErrLagged
	}
	v = t.buf[*readSeq%t.cap]
	*readSeq++
	return v, true, nil
}

// Subscription is one consumer's independent read cursor into a topic.
type Subscription[T any] struct {
	topic   *topic[T]
	readSeq uint64
	notify  chan struct{}
}

// TryRecv performs a single non-blocking read. ok is false if there is
// nothing new since the last read. err is ErrLagged if the cursor had
// to be fast-forwarded past dropped entries; the returned value in that
// case is the zero value and ok is false — callers should treat a lag
// as a signal to resynchronize (e.g. re-snapshot) rather than retry.
func (s *Subscription[T]) TryRecv() (v T, ok bool, err error) {
	return s.topic.tryRead(&s.readSeq)
}

// Recv blocks until a new entry is available, ctx is cancelled, or the
// subscriber has lagged. It never busy-waits: between attempts it waits
// on the topic's per-subscriber notify channel, which is pinged
// (non-blockingly) on every publish.
func (s *Subscription[T]) Recv(ctx context.Context) (T, error) {
	for {
		v, ok, err := s.TryRecv()
		if err != nil {
			return v, err
		}
		if ok {
			return v, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-s.notify:
		}
	}
}

// Notify exposes the per-subscriber wakeup channel so a caller driving
// its own select loop (rather than calling Recv) can wait on several
// subscriptions and a cancellation signal at once.
func (s *Subscription[T]) Notify() <-chan struct{} {
	return s.notify
}

// Close releases this subscriber's slot on the topic. Safe to call more
// than once.
func (s *Subscription[T]) Close() {
	s.topic.unsubscribe(s.notify)
}

// Default buffer capacities, matching the Rust original's broadcast
// channel sizing and spec's suggested minimums.
const (
	DefaultTradesCapacity      = 1024
	DefaultBookUpdatesCapacity = 16
)

// Bus composes the two topics the core defines: trades and book-updates.
type Bus struct {
	trades      *topic[trade.Trade]
	bookUpdates *topic[instrument.Pair]
}

// New creates a Bus with the given topic capacities. A non-positive
// capacity falls back to the package default for that topic.
func New(tradesCapacity, bookUpdatesCapacity int) *Bus {
	if tradesCapacity <= 0 {
		tradesCapacity = DefaultTradesCapacity
	}
	if bookUpdatesCapacity <= 0 {
		bookUpdatesCapacity = DefaultBookUpdatesCapacity
	}
	return &Bus{
		trades:      newTopic[trade.Trade](tradesCapacity),
		bookUpdates: newTopic[instrument.Pair](bookUpdatesCapacity),
	}
}

// PublishTrade fans a single executed trade out to every trades
// subscriber. Fire-and-forget: never blocks, never fails.
func (b *Bus) PublishTrade(t trade.Trade) {
	b.trades.publish(t)
}

// PublishBookUpdate announces that pair's book changed. Fire-and-forget.
func (b *Bus) PublishBookUpdate(pair instrument.Pair) {
	b.bookUpdates.publish(pair)
}

// SubscribeTrades attaches a new trades subscriber starting from the
// current write position (it sees only trades published after this
// call).
func (b *Bus) SubscribeTrades() *Subscription[trade.Trade] {
	return b.trades.subscribe()
}

// SubscribeBookUpdates attaches a new book-updates subscriber starting
// from the current write position.
func (b *Bus) SubscribeBookUpdates() *Subscription[instrument.Pair] {
	return b.bookUpdates.subscribe()
}
