// Package engine is the submission coordinator: the single-writer gate
// around the per-pair order books that enforces match → persist →
// publish ordering.
//
// Grounded on the teacher's internal/engine/engine.go
// (Engine{Books map[AssetType]OrderBook}, a PlaceOrder/Trade method
// split), generalized from a single hardcoded AssetType to the pair
// whitelist and from stubbed bodies to the full ordering contract.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"fenrir/internal/book"
	"fenrir/internal/eventbus"
	"fenrir/internal/instrument"
	"fenrir/internal/order"
	"fenrir/internal/store"
	"fenrir/internal/trade"
)

var (
	// ErrQuantityMustBePositive is the InvalidArgument case for a zero
	// quantity submission.
	ErrQuantityMustBePositive = errors.New("engine: quantity must be > 0")
	// ErrUnsupportedPair is the InvalidArgument case for any pair this
	// Coordinator has no book for (see supported).
	ErrUnsupportedPair = errors.New("engine: unsupported pair")
	// ErrMissingPrice is the InvalidArgument case for a limit order
	// submitted with no price.
	ErrMissingPrice = errors.New("engine: limit order requires a price")
)

// SubmitRequest is the input to Submit: everything a caller supplies
// about a new order before it is assigned an id.
type SubmitRequest struct {
	Pair     instrument.Pair
	Side     order.Side
	Kind     order.Kind
	Price    uint64
	HasPrice bool
	Quantity uint64
}

// Coordinator owns the books mapping, the trade log, and the bus, and
// is the only component allowed to mutate a book.
type Coordinator struct {
	mu    sync.RWMutex
	books map[instrument.Pair]*book.OrderBook

	store *store.Store
	bus   *eventbus.Bus
}

// New creates a Coordinator with one empty book per supported pair.
func New(pairs []instrument.Pair, st *store.Store, bus *eventbus.Bus) *Coordinator {
	books := make(map[instrument.Pair]*book.OrderBook, len(pairs))
	for _, p := range pairs {
		books[p] = book.New()
	}
	return &Coordinator{books: books, store: st, bus: bus}
}

// Bus exposes the underlying event bus so stream sessions can subscribe
// directly; the Coordinator itself never reads from it.
func (c *Coordinator) Bus() *eventbus.Bus {
	return c.bus
}

// supported reports whether pair has a book on this Coordinator. A pair
// can be in instrument's global whitelist yet not configured for this
// process, so membership in c.books — not instrument.IsSupported — is
// the authoritative check here.
func (c *Coordinator) supported(pair instrument.Pair) bool {
	_, ok := c.books[pair]
	return ok
}

// Submit validates, matches, persists, and publishes one order in the
// exact step order the ordering contract requires: validate, assign id,
// match under the books write lock, persist every resulting trade,
// publish each trade in match order, then publish one book-update.
//
// If persistence fails partway through, already-persisted trades are
// not rolled back — the book has already moved — and no events are
// published for this submission; the caller gets the trades successfully
// persisted so far alongside the error.
func (c *Coordinator) Submit(req SubmitRequest) (order.ID, []trade.Trade, error) {
	if req.Quantity == 0 {
		return order.ID{}, nil, ErrQuantityMustBePositive
	}
	if !c.supported(req.Pair) {
		return order.ID{}, nil, ErrUnsupportedPair
	}
	if req.Kind == order.Limit && !req.HasPrice {
		return order.ID{}, nil, ErrMissingPrice
	}

	o := &order.Order{
		ID:        order.NewID(),
		Side:      req.Side,
		Kind:      req.Kind,
		Price:     req.Price,
		HasPrice:  req.HasPrice,
		Quantity:  req.Quantity,
		Timestamp: time.Now(),
		Pair:      req.Pair,
	}

	c.mu.Lock()
	b := c.books[req.Pair]
	trades := b.Match(o)
	c.mu.Unlock()

	for i, t := range trades {
		if err := c.store.Insert(t); err != nil {
			log.Error().
				Err(err).
				Str("pair", req.Pair.Canonical()).
				Int("trade_index", i).
				Int("trade_count", len(trades)).
				Msg("trade log insert failed; in-memory book state has already moved and will not be rewound")
			return o.ID, trades[:i], fmt.Errorf("engine: persist trade %d/%d: %w", i+1, len(trades), err)
		}
	}

	for _, t := range trades {
		c.bus.PublishTrade(t)
	}
	c.bus.PublishBookUpdate(req.Pair)

	return o.ID, trades, nil
}

// Cancel removes a resting order by id from pair's book. On success it
// publishes exactly one book-update.
func (c *Coordinator) Cancel(pair instrument.Pair, id order.ID) (bool, error) {
	if !c.supported(pair) {
		return false, ErrUnsupportedPair
	}

	c.mu.Lock()
	b := c.books[pair]
	found := b.Cancel(id)
	c.mu.Unlock()

	if found {
		c.bus.PublishBookUpdate(pair)
	}
	return found, nil
}

// Snapshot captures a point-in-time projection of pair's book under the
// books read lock.
func (c *Coordinator) Snapshot(pair instrument.Pair) (book.BookSnapshot, error) {
	if !c.supported(pair) {
		return book.BookSnapshot{}, ErrUnsupportedPair
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.books[pair].Snapshot(), nil
}

// PageTrades pages the durable trade log for pair, clamping limit into
// [1, 1000] per the external paging contract.
func (c *Coordinator) PageTrades(pair instrument.Pair, afterCursor string, limit int) ([]trade.Trade, string, error) {
	if !c.supported(pair) {
		return nil, "", ErrUnsupportedPair
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 1000 {
		limit = 1000
	}
	return c.store.PageAscending(pair.Canonical(), afterCursor, limit)
}
