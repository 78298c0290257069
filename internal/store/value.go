package store

import (
	"encoding/binary"
	"errors"

	"github.com/google/uuid"

	"fenrir/internal/trade"
)

// ErrCorruptRecord is returned when a stored value cannot be decoded
// back into a Trade. It should never occur against a store this package
// wrote; it exists to surface on-disk corruption rather than panic.
var ErrCorruptRecord = errors.New("store: corrupt trade record")

// encodeValue is a deterministic binary encoding of a Trade: self
// contained (it repeats the symbol) so a value can be decoded without
// reference to the key that holds it. Layout:
//
//	price(8) | quantity(8) | maker(16) | taker(16) | ts_nanos(8) | symbol_len(2) | symbol
func encodeValue(t trade.Trade) []byte {
	buf := make([]byte, 8+8+16+16+8+2+len(t.Symbol))
	binary.BigEndian.PutUint64(buf[0:8], t.Price)
	binary.BigEndian.PutUint64(buf[8:16], t.Quantity)
	copy(buf[16:32], t.MakerID[:])
	copy(buf[32:48], t.TakerID[:])
	binary.BigEndian.PutUint64(buf[48:56], uint64(t.Timestamp.UnixNano()))
	binary.BigEndian.PutUint16(buf[56:58], uint16(len(t.Symbol)))
	copy(buf[58:], t.Symbol)
	return buf
}

func decodeValue(b []byte) (trade.Trade, error) {
	if len(b) < 58 {
		return trade.Trade{}, ErrCorruptRecord
	}
	var t trade.Trade
	t.Price = binary.BigEndian.Uint64(b[0:8])
	t.Quantity = binary.BigEndian.Uint64(b[8:16])
	t.MakerID = uuid.UUID(b[16:32])
	t.TakerID = uuid.UUID(b[32:48])
	t.Timestamp = nanosToTime(binary.BigEndian.Uint64(b[48:56]))
	symLen := int(binary.BigEndian.Uint16(b[56:58]))
	if len(b) != 58+symLen {
		return trade.Trade{}, ErrCorruptRecord
	}
	t.Symbol = string(b[58 : 58+symLen])
	return t, nil
}
