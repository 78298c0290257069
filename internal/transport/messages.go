// Package transport is the binary order-entry wire protocol and its TCP
// server, adapted from the teacher's internal/net package: the same
// BigEndian fixed-header-plus-variable-trailer framing, generalized from
// a single hardcoded AssetType/Ticker/float64 price to the pair
// whitelist and the spec's non-negative integer prices.
package transport

import (
	"encoding/binary"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"fenrir/internal/engine"
	"fenrir/internal/instrument"
	"fenrir/internal/order"
	"fenrir/internal/trade"
)

var (
	ErrInvalidMessageType = errors.New("transport: invalid message type")
	ErrMessageTooShort    = errors.New("transport: message too short")
)

// MessageType discriminates an inbound client message.
type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
)

// ReportMessageType discriminates an outbound server report.
type ReportMessageType uint8

const (
	ExecutionReport ReportMessageType = iota
	ErrorReport
)

const (
	baseHeaderLen = 2 // MessageType

	// side(1) + kind(1) + hasPrice(1) + price(8) + quantity(8) + pairLen(1)
	newOrderHeaderLen = 1 + 1 + 1 + 8 + 8 + 1
	// orderID(16) + pairLen(1)
	cancelOrderHeaderLen = 16 + 1
)

// NewOrderMessage is a parsed order-entry request.
type NewOrderMessage struct {
	Side     order.Side
	Kind     order.Kind
	HasPrice bool
	Price    uint64
	Quantity uint64
	Pair     instrument.Pair
}

// SubmitRequest converts a wire message into the coordinator's request
// shape.
func (m NewOrderMessage) SubmitRequest() engine.SubmitRequest {
	return engine.SubmitRequest{
		Pair:     m.Pair,
		Side:     m.Side,
		Kind:     m.Kind,
		Price:    m.Price,
		HasPrice: m.HasPrice,
		Quantity: m.Quantity,
	}
}

// CancelOrderMessage is a parsed cancellation request.
type CancelOrderMessage struct {
	OrderID order.ID
	Pair    instrument.Pair
}

// ParseMessage reads the 2-byte type header and dispatches to the
// matching body parser.
func ParseMessage(msg []byte) (any, error) {
	if len(msg) < baseHeaderLen {
		return nil, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[baseHeaderLen:]

	switch typeOf {
	case NewOrder:
		return parseNewOrder(body)
	case CancelOrder:
		return parseCancelOrder(body)
	case Heartbeat:
		return Heartbeat, nil
	default:
		return nil, ErrInvalidMessageType
	}
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	if len(msg) < newOrderHeaderLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}

	m := NewOrderMessage{
		Side:     order.Side(msg[0]),
		Kind:     order.Kind(msg[1]),
		HasPrice: msg[2] != 0,
		Price:    binary.BigEndian.Uint64(msg[3:11]),
		Quantity: binary.BigEndian.Uint64(msg[11:19]),
	}

	pairLen := int(msg[19])
	if len(msg) < newOrderHeaderLen+pairLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	pair, err := instrument.ParsePair(string(msg[newOrderHeaderLen : newOrderHeaderLen+pairLen]))
	if err != nil {
		return NewOrderMessage{}, err
	}
	m.Pair = pair
	return m, nil
}

// EncodeNewOrder renders a NewOrderMessage as a complete framed message,
// header included — what a client writes to the wire.
func EncodeNewOrder(m NewOrderMessage) []byte {
	pair := m.Pair.Canonical()
	buf := make([]byte, baseHeaderLen+newOrderHeaderLen+len(pair))

	binary.BigEndian.PutUint16(buf[0:2], uint16(NewOrder))
	buf[2] = byte(m.Side)
	buf[3] = byte(m.Kind)
	if m.HasPrice {
		buf[4] = 1
	}
	binary.BigEndian.PutUint64(buf[5:13], m.Price)
	binary.BigEndian.PutUint64(buf[13:21], m.Quantity)
	buf[21] = byte(len(pair))
	copy(buf[22:], pair)

	return buf
}

// EncodeCancelOrder renders a CancelOrderMessage as a complete framed
// message.
func EncodeCancelOrder(m CancelOrderMessage) []byte {
	pair := m.Pair.Canonical()
	buf := make([]byte, baseHeaderLen+cancelOrderHeaderLen+len(pair))

	binary.BigEndian.PutUint16(buf[0:2], uint16(CancelOrder))
	copy(buf[2:18], m.OrderID[:])
	buf[18] = byte(len(pair))
	copy(buf[19:], pair)

	return buf
}

func parseCancelOrder(msg []byte) (CancelOrderMessage, error) {
	if len(msg) < cancelOrderHeaderLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}

	id, err := uuid.FromBytes(msg[0:16])
	if err != nil {
		return CancelOrderMessage{}, err
	}
	pairLen := int(msg[16])
	if len(msg) < cancelOrderHeaderLen+pairLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	pair, err := instrument.ParsePair(string(msg[cancelOrderHeaderLen : cancelOrderHeaderLen+pairLen]))
	if err != nil {
		return CancelOrderMessage{}, err
	}
	return CancelOrderMessage{OrderID: id, Pair: pair}, nil
}

// Report is the outbound frame for both a successful submission and an
// error. tradeRecordLen is the fixed size of one serialized trade
// within a Report: price(8) + quantity(8) + maker(16) + taker(16) +
// timestamp(8).
const tradeRecordLen = 8 + 8 + 16 + 16 + 8

// Report carries either the outcome of a submission (OrderID + Trades)
// or an error string back to the client that sent it.
type Report struct {
	Kind    ReportMessageType
	OrderID order.ID
	Trades  []trade.Trade
	Err     string
}

// Serialize renders r onto the wire: kind(1) + orderID(16) +
// tradeCount(2) + trades... + errLen(4) + err.
func (r Report) Serialize() []byte {
	buf := make([]byte, 1+16+2+len(r.Trades)*tradeRecordLen+4+len(r.Err))

	buf[0] = byte(r.Kind)
	copy(buf[1:17], r.OrderID[:])
	binary.BigEndian.PutUint16(buf[17:19], uint16(len(r.Trades)))

	off := 19
	for _, t := range r.Trades {
		binary.BigEndian.PutUint64(buf[off:off+8], t.Price)
		binary.BigEndian.PutUint64(buf[off+8:off+16], t.Quantity)
		copy(buf[off+16:off+32], t.MakerID[:])
		copy(buf[off+32:off+48], t.TakerID[:])
		binary.BigEndian.PutUint64(buf[off+48:off+56], uint64(t.Timestamp.UnixNano()))
		off += tradeRecordLen
	}

	binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(r.Err)))
	off += 4
	copy(buf[off:], r.Err)

	return buf
}

const reportFixedHeaderLen = 1 + 16 + 2 // kind + orderID + tradeCount

// ReadReport reads one complete Report frame from r, the inverse of
// Serialize: it blocks until the fixed header, every trade record, and
// the trailing error string have all arrived.
func ReadReport(r io.Reader) (Report, error) {
	header := make([]byte, reportFixedHeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return Report{}, err
	}

	rep := Report{Kind: ReportMessageType(header[0])}
	copy(rep.OrderID[:], header[1:17])
	tradeCount := binary.BigEndian.Uint16(header[17:19])

	if tradeCount > 0 {
		body := make([]byte, int(tradeCount)*tradeRecordLen)
		if _, err := io.ReadFull(r, body); err != nil {
			return Report{}, err
		}
		rep.Trades = make([]trade.Trade, tradeCount)
		off := 0
		for i := range rep.Trades {
			rep.Trades[i].Price = binary.BigEndian.Uint64(body[off : off+8])
			rep.Trades[i].Quantity = binary.BigEndian.Uint64(body[off+8 : off+16])
			copy(rep.Trades[i].MakerID[:], body[off+16:off+32])
			copy(rep.Trades[i].TakerID[:], body[off+32:off+48])
			rep.Trades[i].Timestamp = time.Unix(0, int64(binary.BigEndian.Uint64(body[off+48:off+56])))
			off += tradeRecordLen
		}
	}

	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return Report{}, err
	}
	if errLen := binary.BigEndian.Uint32(lenBuf); errLen > 0 {
		errBuf := make([]byte, errLen)
		if _, err := io.ReadFull(r, errBuf); err != nil {
			return Report{}, err
		}
		rep.Err = string(errBuf)
	}

	return rep, nil
}

func executionReport(id order.ID, trades []trade.Trade) Report {
	return Report{Kind: ExecutionReport, OrderID: id, Trades: trades}
}

func errorReport(id order.ID, err error) Report {
	return Report{Kind: ErrorReport, OrderID: id, Err: err.Error()}
}
