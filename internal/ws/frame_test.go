package ws

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"fenrir/internal/book"
	"fenrir/internal/stream"
	"fenrir/internal/trade"
)

func TestToWireFrame_Snapshot(t *testing.T) {
	f := stream.Frame{
		Kind: stream.FrameBookSnapshot,
		Snapshot: book.BookSnapshot{
			Bids: []book.Level{{Price: 99, Quantity: 10}},
			Asks: []book.Level{{Price: 100, Quantity: 5}},
		},
	}

	wire := toWireFrame(f)
	assert.Equal(t, "snapshot", wire.Kind)
	assert.Nil(t, wire.Trade)
	assert.Equal(t, []wireLevel{{Price: 99, Quantity: 10}}, wire.Snapshot.Bids)
	assert.Equal(t, []wireLevel{{Price: 100, Quantity: 5}}, wire.Snapshot.Asks)
}

func TestToWireFrame_Trade(t *testing.T) {
	tr := trade.Trade{
		Price:     100,
		Quantity:  5,
		MakerID:   uuid.New(),
		TakerID:   uuid.New(),
		Timestamp: time.Unix(0, 1_700_000_000_000_000_000),
		Symbol:    "BTC-USD",
	}
	f := stream.Frame{Kind: stream.FrameTrade, Trade: tr}

	wire := toWireFrame(f)
	assert.Equal(t, "trade", wire.Kind)
	assert.Nil(t, wire.Snapshot)
	assert.Equal(t, tr.MakerID.String(), wire.Trade.MakerID)
	assert.Equal(t, tr.TakerID.String(), wire.Trade.TakerID)
	assert.Equal(t, tr.Timestamp.UnixNano(), wire.Trade.TimestampNanos)
	assert.Equal(t, "BTC-USD", wire.Trade.Symbol)
}
