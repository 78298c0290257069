package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"fenrir/internal/engine"
	"fenrir/internal/instrument"
	"fenrir/internal/order"
	"fenrir/internal/trade"
	"fenrir/internal/utils"
)

const (
	maxRecvSize        = 4 * 1024
	defaultConnTimeout = 5 * time.Second
)

var (
	ErrImproperConversion = errors.New("transport: improper type conversion")
	ErrClientDoesNotExist = errors.New("transport: client does not exist")
)

// Engine is the narrow surface the transport needs from the submission
// coordinator, the way the teacher's internal/net/server.go narrows its
// dependency to an Engine interface rather than the concrete engine type.
type Engine interface {
	Submit(req engine.SubmitRequest) (order.ID, []trade.Trade, error)
	Cancel(pair instrument.Pair, id order.ID) (bool, error)
}

type clientMessage struct {
	clientAddress string
	body          any
}

// Server is the TCP order-entry listener: a worker pool of short-lived
// connection readers feeding one session handler that dispatches parsed
// messages against Engine and writes Reports back.
type Server struct {
	addr   string
	engine Engine
	pool   *utils.WorkerPool

	sessionsMu sync.Mutex
	sessions   map[string]net.Conn

	messages chan clientMessage
}

// New creates a server listening on addr with the given worker pool
// size.
func New(addr string, eng Engine, poolSize int) *Server {
	return &Server{
		addr:     addr,
		engine:   eng,
		pool:     utils.NewWorkerPool(poolSize),
		sessions: make(map[string]net.Conn),
		messages: make(chan clientMessage, 1),
	}
}

// Run accepts connections until ctx is cancelled. It blocks until the
// listener stops.
func (s *Server) Run(ctx context.Context) error {
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("transport: listen %s: %w", s.addr, err)
	}
	defer listener.Close()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})
	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("addr", s.addr).Msg("transport server listening")

	for {
		select {
		case <-ctx.Done():
			return t.Err()
		default:
		}

		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return t.Err()
			default:
				log.Error().Err(err).Msg("error accepting client connection")
				continue
			}
		}

		log.Info().Str("addr", conn.RemoteAddr().String()).Msg("client connected")
		s.addSession(conn)
		s.pool.AddTask(conn)
	}
}

// sessionHandler is the single consumer of parsed client messages; it
// runs the Engine operations and writes the resulting Report back to
// whichever client sent the request.
func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case msg := <-s.messages:
			if err := s.handle(msg); err != nil {
				log.Error().Err(err).Str("client", msg.clientAddress).Msg("error handling client message")
			}
		}
	}
}

func (s *Server) handle(msg clientMessage) error {
	switch body := msg.body.(type) {
	case NewOrderMessage:
		id, trades, err := s.engine.Submit(body.SubmitRequest())
		if err != nil {
			return s.write(msg.clientAddress, errorReport(id, err))
		}
		return s.write(msg.clientAddress, executionReport(id, trades))

	case CancelOrderMessage:
		found, err := s.engine.Cancel(body.Pair, body.OrderID)
		if err != nil {
			return s.write(msg.clientAddress, errorReport(body.OrderID, err))
		}
		if !found {
			return s.write(msg.clientAddress, errorReport(body.OrderID, fmt.Errorf("transport: unknown order id")))
		}
		return s.write(msg.clientAddress, executionReport(body.OrderID, nil))

	case MessageType: // Heartbeat
		return nil

	default:
		return ErrInvalidMessageType
	}
}

func (s *Server) write(clientAddress string, r Report) error {
	s.sessionsMu.Lock()
	conn, ok := s.sessions[clientAddress]
	s.sessionsMu.Unlock()
	if !ok {
		return ErrClientDoesNotExist
	}
	if _, err := conn.Write(r.Serialize()); err != nil {
		s.removeSession(clientAddress)
		return fmt.Errorf("transport: write report: %w", err)
	}
	return nil
}

// handleConnection is one short-lived worker cycle: read one message off
// conn, hand it to the session handler, then re-queue conn for its next
// message. A read error or parse failure drops the client's session.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}

	if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().Err(err).Str("addr", conn.RemoteAddr().String()).Msg("failed setting connection deadline")
		return nil
	}

	buf := make([]byte, maxRecvSize)
	select {
	case <-t.Dying():
		return nil
	default:
	}

	n, err := conn.Read(buf)
	if err != nil {
		s.removeSession(conn.RemoteAddr().String())
		conn.Close()
		return nil
	}

	body, err := ParseMessage(buf[:n])
	if err != nil {
		log.Error().Err(err).Str("addr", conn.RemoteAddr().String()).Msg("error parsing client message")
		s.removeSession(conn.RemoteAddr().String())
		conn.Close()
		return nil
	}

	s.messages <- clientMessage{clientAddress: conn.RemoteAddr().String(), body: body}
	s.pool.AddTask(conn)
	return nil
}

func (s *Server) addSession(conn net.Conn) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	s.sessions[conn.RemoteAddr().String()] = conn
}

func (s *Server) removeSession(addr string) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	delete(s.sessions, addr)
}
