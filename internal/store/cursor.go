package store

import (
	"encoding/base64"
	"encoding/binary"
	"errors"

	"github.com/google/uuid"

	"fenrir/internal/trade"
)

// ErrBadCursor is returned for a cursor that is malformed, carries an
// unsupported version, or does not identify an entry that actually
// exists in the requested symbol's keyspace.
var ErrBadCursor = errors.New("store: bad cursor")

const cursorVersion1 = 1

// cursor fields, encoded as a fixed 57-byte buffer:
//   1 (version) + 8 (ts_nanos) + 16 (maker) + 16 (taker) + 8 (price) + 8 (quantity)
const cursorLen = 1 + 8 + 16 + 16 + 8 + 8

// cursor is the decoded form of an opaque trade-log pagination token. It
// is never exposed as a public type outside this package: callers only
// ever see its base64 wire form.
type cursor struct {
	version  uint8
	tsNanos  uint64
	makerID  uuid.UUID
	takerID  uuid.UUID
	price    uint64
	quantity uint64
}

func cursorFor(t trade.Trade) cursor {
	return cursor{
		version:  cursorVersion1,
		tsNanos:  uint64(t.Timestamp.UnixNano()),
		makerID:  t.MakerID,
		takerID:  t.TakerID,
		price:    t.Price,
		quantity: t.Quantity,
	}
}

func (c cursor) encode() string {
	buf := make([]byte, cursorLen)
	buf[0] = c.version
	binary.BigEndian.PutUint64(buf[1:9], c.tsNanos)
	copy(buf[9:25], c.makerID[:])
	copy(buf[25:41], c.takerID[:])
	binary.BigEndian.PutUint64(buf[41:49], c.price)
	binary.BigEndian.PutUint64(buf[49:57], c.quantity)
	return base64.RawURLEncoding.EncodeToString(buf)
}

func decodeCursor(s string) (cursor, error) {
	buf, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(buf) != cursorLen {
		return cursor{}, ErrBadCursor
	}
	if buf[0] != cursorVersion1 {
		return cursor{}, ErrBadCursor
	}
	var c cursor
	c.version = buf[0]
	c.tsNanos = binary.BigEndian.Uint64(buf[1:9])
	copy(c.makerID[:], buf[9:25])
	copy(c.takerID[:], buf[25:41])
	c.price = binary.BigEndian.Uint64(buf[41:49])
	c.quantity = binary.BigEndian.Uint64(buf[49:57])
	return c, nil
}

// key reconstructs the exact trade-log key this cursor names, under the
// given symbol. The cursor itself carries no symbol, which is what
// makes a cursor minted while paging one symbol fail the existence
// check when replayed against a different one.
func (c cursor) key(symbol string) []byte {
	return encodeKey(symbol, c.tsNanos, c.makerID, c.takerID, c.price, c.quantity)
}
