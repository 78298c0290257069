package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/trade"
)

func TestCursor_EncodeDecodeRoundTrip(t *testing.T) {
	want := cursorFor(trade.Trade{
		Price:     42,
		Quantity:  7,
		MakerID:   uuid.New(),
		TakerID:   uuid.New(),
		Timestamp: tradeAt("BTC-USD", 1234, 0).Timestamp,
	})

	got, err := decodeCursor(want.encode())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeCursor_RejectsWrongVersion(t *testing.T) {
	c := cursorFor(trade.Trade{Timestamp: tradeAt("BTC-USD", 1, 0).Timestamp})
	c.version = cursorVersion1 + 1
	_, err := decodeCursor(c.encode())
	assert.ErrorIs(t, err, ErrBadCursor)
}

func TestDecodeCursor_RejectsMalformedBase64(t *testing.T) {
	_, err := decodeCursor("not base64 at all!!")
	assert.ErrorIs(t, err, ErrBadCursor)
}

func TestDecodeCursor_RejectsWrongLength(t *testing.T) {
	_, err := decodeCursor("AAAA")
	assert.ErrorIs(t, err, ErrBadCursor)
}

func TestCursorKey_MatchesEncodeKey(t *testing.T) {
	maker, taker := uuid.New(), uuid.New()
	c := cursor{version: cursorVersion1, tsNanos: 99, makerID: maker, takerID: taker, price: 10, quantity: 5}
	assert.Equal(t, encodeKey("BTC-USD", 99, maker, taker, 10, 5), c.key("BTC-USD"))
}
