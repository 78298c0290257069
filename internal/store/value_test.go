package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeValue_RoundTrip(t *testing.T) {
	want := tradeAt("BTC-USD", 123456789, 42)
	got, err := decodeValue(encodeValue(want))
	require.NoError(t, err)
	assert.True(t, want.Timestamp.Equal(got.Timestamp))
	got.Timestamp = want.Timestamp
	assert.Equal(t, want, got)
}

func TestDecodeValue_RejectsTruncatedBuffer(t *testing.T) {
	_, err := decodeValue(make([]byte, 10))
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestDecodeValue_RejectsSymbolLengthMismatch(t *testing.T) {
	buf := encodeValue(tradeAt("BTC-USD", 1, 1))
	_, err := decodeValue(buf[:len(buf)-1])
	assert.ErrorIs(t, err, ErrCorruptRecord)
}
