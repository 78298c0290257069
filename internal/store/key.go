package store

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// keyTailLen is the fixed width of everything after "symbol:": a 16-byte
// big-endian ts_nanos (only the low 8 bytes are ever non-zero — a Unix
// nanosecond timestamp fits comfortably in 64 bits, but the schema
// reserves the full 128 bits the original Rust store used), two 16-byte
// UUIDs, and the 8-byte price and quantity.
const keyTailLen = 16 + 16 + 16 + 8 + 8

// keyPrefix is the symbol_bytes || ':' prefix shared by every key
// belonging to one symbol. Symbols are drawn from a closed whitelist of
// distinct names, so no symbol's prefix can also be a prefix of
// another's.
func keyPrefix(symbol string) []byte {
	p := make([]byte, len(symbol)+1)
	copy(p, symbol)
	p[len(symbol)] = ':'
	return p
}

// encodeKey builds the full lexicographically-ordered key for one trade
// log entry: symbol || ':' || ts_nanos(16B BE) || maker(16B) ||
// taker(16B) || price(8B BE) || quantity(8B BE). Big-endian throughout
// makes byte order equal numeric order on the tail.
func encodeKey(symbol string, tsNanos uint64, maker, taker uuid.UUID, price, quantity uint64) []byte {
	prefix := keyPrefix(symbol)
	key := make([]byte, len(prefix)+keyTailLen)
	n := copy(key, prefix)

	binary.BigEndian.PutUint64(key[n:n+8], 0) // high 64 bits of the 128-bit ts field
	binary.BigEndian.PutUint64(key[n+8:n+16], tsNanos)
	n += 16

	copy(key[n:n+16], maker[:])
	n += 16
	copy(key[n:n+16], taker[:])
	n += 16

	binary.BigEndian.PutUint64(key[n:n+8], price)
	n += 8
	binary.BigEndian.PutUint64(key[n:n+8], quantity)
	n += 8

	return key
}

// prefixUpperBound returns the smallest key that sorts strictly after
// every key with the given prefix, for bounding a pebble iterator or
// DeleteRange to exactly that prefix. Returns nil if prefix is empty or
// all 0xFF (unbounded above).
func prefixUpperBound(prefix []byte) []byte {
	upper := append([]byte(nil), prefix...)
	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper[:i+1]
		}
	}
	return nil
}
