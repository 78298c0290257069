// Package order defines the Order type submitted to and resting in a book.
package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"fenrir/internal/instrument"
)

// ID is an opaque, process-unique order identifier. It is backed by a
// uuid.UUID (128 bits) rather than a sequential counter: collision
// probability is negligible over a run without any shared sequencer.
type ID = uuid.UUID

// NewID mints a fresh, process-unique order id.
func NewID() ID {
	return uuid.New()
}

// Side is which direction of the market an order is on.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Kind distinguishes resting limit orders from immediate-execution market
// orders.
type Kind uint8

const (
	Limit Kind = iota
	Market
)

func (k Kind) String() string {
	if k == Limit {
		return "limit"
	}
	return "market"
}

// Order is a single order submitted to the exchange. Price is only
// meaningful when Kind == Limit; HasPrice reports whether it was set.
type Order struct {
	ID        ID
	Side      Side
	Kind      Kind
	Price     uint64 // valid iff HasPrice
	HasPrice  bool
	Quantity  uint64 // remaining, monotonically decreasing
	Timestamp time.Time
	Pair      instrument.Pair
}

// Remaining reports whether the order still has quantity left to fill.
func (o *Order) Remaining() bool {
	return o.Quantity > 0
}

func (o Order) String() string {
	price := "market"
	if o.HasPrice {
		price = fmt.Sprintf("%d", o.Price)
	}
	return fmt.Sprintf(
		"Order{id=%s side=%s kind=%s price=%s qty=%d pair=%s ts=%s}",
		o.ID, o.Side, o.Kind, price, o.Quantity, o.Pair, o.Timestamp.Format(time.RFC3339Nano),
	)
}
