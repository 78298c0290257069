package ws

import "fenrir/internal/stream"

type wireLevel struct {
	Price    uint64 `json:"price"`
	Quantity uint64 `json:"quantity"`
}

type wireSnapshot struct {
	Bids []wireLevel `json:"bids"`
	Asks []wireLevel `json:"asks"`
}

type wireTrade struct {
	Price          uint64 `json:"price"`
	Quantity       uint64 `json:"quantity"`
	MakerID        string `json:"maker_id"`
	TakerID        string `json:"taker_id"`
	TimestampNanos int64  `json:"timestamp_nanos"`
	Symbol         string `json:"symbol"`
}

// wireFrame is the JSON-serialized form of a stream.Frame: a
// discriminated union with exactly one of Snapshot or Trade populated,
// per Kind.
type wireFrame struct {
	Kind     string        `json:"kind"`
	Snapshot *wireSnapshot `json:"snapshot,omitempty"`
	Trade    *wireTrade    `json:"trade,omitempty"`
}

func toWireFrame(f stream.Frame) wireFrame {
	if f.Kind == stream.FrameTrade {
		t := f.Trade
		return wireFrame{
			Kind: "trade",
			Trade: &wireTrade{
				Price:          t.Price,
				Quantity:       t.Quantity,
				MakerID:        t.MakerID.String(),
				TakerID:        t.TakerID.String(),
				TimestampNanos: t.Timestamp.UnixNano(),
				Symbol:         t.Symbol,
			},
		}
	}

	bids := make([]wireLevel, len(f.Snapshot.Bids))
	for i, l := range f.Snapshot.Bids {
		bids[i] = wireLevel{Price: l.Price, Quantity: l.Quantity}
	}
	asks := make([]wireLevel, len(f.Snapshot.Asks))
	for i, l := range f.Snapshot.Asks {
		asks[i] = wireLevel{Price: l.Price, Quantity: l.Quantity}
	}
	return wireFrame{Kind: "snapshot", Snapshot: &wireSnapshot{Bids: bids, Asks: asks}}
}
