// Package trade defines the immutable record produced by a match.
package trade

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Trade is an immutable execution record. Price is always the maker's
// resting price (price-improvement rule): the incoming order crosses at
// the maker's level, never its own.
type Trade struct {
	Price     uint64
	Quantity  uint64
	MakerID   uuid.UUID
	TakerID   uuid.UUID
	Timestamp time.Time
	Symbol    string // the pair's canonical string, e.g. "BTC-USD"
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"Trade{symbol=%s price=%d qty=%d maker=%s taker=%s ts=%s}",
		t.Symbol, t.Price, t.Quantity, t.MakerID, t.TakerID, t.Timestamp.Format(time.RFC3339Nano),
	)
}
