// Package book implements the price-time priority limit order book for a
// single instrument: resting order storage, the matching algorithm,
// cancellation, and read-only snapshot projection.
//
// Both sides are kept in a tidwall/btree ordered map keyed by price, the
// way the teacher's internal/engine/orderbook.go does it: a side-specific
// comparator gives each side's "best" price as the tree's Min, so the
// matching loop never needs a direction flag — it just walks Min()
// repeatedly until the opposite side stops crossing.
package book

import (
	"errors"
	"time"

	"github.com/tidwall/btree"

	"fenrir/internal/order"
	"fenrir/internal/trade"
)

var (
	// ErrNotLimitOrder is returned by Add when asked to rest a market order.
	ErrNotLimitOrder = errors.New("book: cannot add a market order to the book")
	// ErrZeroQuantity is returned by Add when the order has no quantity left.
	ErrZeroQuantity = errors.New("book: order quantity must be > 0")
)

// PriceLevel is the FIFO queue of resting orders at one price, for one
// side. An empty queue is never retained in a book: the moment it drains,
// the level is removed from the tree.
type PriceLevel struct {
	Price  uint64
	Orders []*order.Order
}

// TotalQuantity sums the remaining quantity of every order resting at
// this level.
func (l *PriceLevel) TotalQuantity() uint64 {
	var sum uint64
	for _, o := range l.Orders {
		sum += o.Quantity
	}
	return sum
}

// Level is a point-in-time (price, aggregate quantity) pair, the unit of
// a BookSnapshot.
type Level struct {
	Price    uint64
	Quantity uint64
}

// BookSnapshot is an immutable, point-in-time projection of a book's
// aggregate quantities per price level. It holds no references into the
// live book.
type BookSnapshot struct {
	Bids []Level // best first: descending price
	Asks []Level // best first: ascending price
}

// OrderBook is the resting-order book for one instrument: two
// price-ordered maps of FIFO queues. It carries no lock of its own —
// per spec, the books mapping is guarded by a single reader-writer lock
// one level up, in the submission coordinator.
type OrderBook struct {
	Bids *btree.BTreeG[*PriceLevel] // ordered best (highest) first
	Asks *btree.BTreeG[*PriceLevel] // ordered best (lowest) first
}

// New creates an empty order book.
func New() *OrderBook {
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price > b.Price // highest bid sorts first
	})
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price < b.Price // lowest ask sorts first
	})
	return &OrderBook{Bids: bids, Asks: asks}
}

func (b *OrderBook) levels(side order.Side) *btree.BTreeG[*PriceLevel] {
	if side == order.Buy {
		return b.Bids
	}
	return b.Asks
}

func (b *OrderBook) opposite(side order.Side) *btree.BTreeG[*PriceLevel] {
	if side == order.Buy {
		return b.Asks
	}
	return b.Bids
}

// Add rests a limit order at the tail of its price level, creating the
// level if this is the first order at that price. Market orders are
// rejected outright with no side effect; it is the caller's job to route
// market orders to Match only.
func (b *OrderBook) Add(o *order.Order) error {
	if o.Kind != order.Limit {
		return ErrNotLimitOrder
	}
	if o.Quantity == 0 {
		return ErrZeroQuantity
	}

	levels := b.levels(o.Side)
	lvl, ok := levels.GetMut(&PriceLevel{Price: o.Price})
	if !ok {
		levels.Set(&PriceLevel{Price: o.Price, Orders: []*order.Order{o}})
		return nil
	}
	lvl.Orders = append(lvl.Orders, o)
	return nil
}

// Match crosses incoming against the opposite side in priority order,
// emitting one Trade per fill against the head of each crossed price
// level. If incoming is a limit order and survives with quantity > 0, the
// residual rests via Add on its own side. Market residuals are discarded.
//
// incoming is mutated in place: its Quantity reflects what is left after
// matching (zero if fully filled).
func (b *OrderBook) Match(incoming *order.Order) []trade.Trade {
	opposite := b.opposite(incoming.Side)
	var trades []trade.Trade
	now := time.Now()

	for incoming.Quantity > 0 {
		lvl, ok := opposite.MinMut()
		if !ok {
			break
		}
		if incoming.Kind == order.Limit && !crosses(incoming, lvl.Price) {
			break
		}

		for len(lvl.Orders) > 0 && incoming.Quantity > 0 {
			maker := lvl.Orders[0]
			filled := min(incoming.Quantity, maker.Quantity)

			trades = append(trades, trade.Trade{
				Price:     lvl.Price,
				Quantity:  filled,
				MakerID:   maker.ID,
				TakerID:   incoming.ID,
				Timestamp: now,
				Symbol:    incoming.Pair.Canonical(),
			})

			incoming.Quantity -= filled
			maker.Quantity -= filled
			if maker.Quantity == 0 {
				lvl.Orders = lvl.Orders[1:]
			}
		}

		if len(lvl.Orders) == 0 {
			opposite.Delete(lvl)
		}
	}

	if incoming.Kind == order.Limit && incoming.Quantity > 0 {
		// Preconditions (Kind=Limit, Quantity>0) hold by construction here,
		// so this can never fail.
		_ = b.Add(incoming)
	}

	return trades
}

// crosses reports whether a resting level at levelPrice is aggressive
// enough to trade against incoming's limit price.
func crosses(incoming *order.Order, levelPrice uint64) bool {
	if incoming.Side == order.Buy {
		return levelPrice <= incoming.Price
	}
	return levelPrice >= incoming.Price
}

// Cancel removes a resting order by id from whichever side it is on.
// Reports whether an order with that id was found.
func (b *OrderBook) Cancel(id order.ID) bool {
	if cancelFrom(b.Bids, id) {
		return true
	}
	return cancelFrom(b.Asks, id)
}

func cancelFrom(levels *btree.BTreeG[*PriceLevel], id order.ID) bool {
	var target *PriceLevel
	idx := -1
	levels.Scan(func(lvl *PriceLevel) bool {
		for i, o := range lvl.Orders {
			if o.ID == id {
				target, idx = lvl, i
				return false
			}
		}
		return true
	})
	if target == nil {
		return false
	}
	target.Orders = append(target.Orders[:idx], target.Orders[idx+1:]...)
	if len(target.Orders) == 0 {
		levels.Delete(target)
	}
	return true
}

// Snapshot produces a read-only, point-in-time projection of both sides'
// aggregate quantity per price level. Bids are descending (best first);
// asks are ascending (best first).
func (b *OrderBook) Snapshot() BookSnapshot {
	var snap BookSnapshot
	b.Bids.Scan(func(lvl *PriceLevel) bool {
		snap.Bids = append(snap.Bids, Level{Price: lvl.Price, Quantity: lvl.TotalQuantity()})
		return true
	})
	b.Asks.Scan(func(lvl *PriceLevel) bool {
		snap.Asks = append(snap.Asks, Level{Price: lvl.Price, Quantity: lvl.TotalQuantity()})
		return true
	})
	return snap
}
