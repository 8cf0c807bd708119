package websocket

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/Pawarasasmina/photobooth/config"
	"github.com/Pawarasasmina/photobooth/metrics"
	"github.com/Pawarasasmina/photobooth/protocol"
	"github.com/Pawarasasmina/photobooth/session"
)

const (
	websocketRetryDelay = 200 * time.Millisecond
)

// ErrSendQueueFull is returned by Send when the outbound queue has no
// room; the session layer treats it like a disconnect.
var ErrSendQueueFull = errors.New("outbound queue full")

// ClientSession represents one connected websocket client. It
// implements session.Peer: Send enqueues onto the outbound queue and a
// single write pump drains it, so per-sender message order is
// preserved end to end.
type ClientSession struct {
	id   string
	conn *websocket.Conn
	cfg  *config.WebSocketConfig

	out    chan protocol.Message
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex // guards conn writes
	closeOnce sync.Once

	// bound role, set once a join succeeds
	bindMu  sync.Mutex
	sess    *session.Session
	role    session.Role
	hasBind bool
}

// NewClientSession creates a new client session.
func NewClientSession(id string, conn *websocket.Conn, cfg *config.WebSocketConfig) *ClientSession {
	ctx, cancel := context.WithCancel(context.Background())
	return &ClientSession{
		id:     id,
		conn:   conn,
		cfg:    cfg,
		out:    make(chan protocol.Message, cfg.SendQueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ID returns the connection identifier.
func (s *ClientSession) ID() string { return s.id }

// Send enqueues a message for delivery without blocking. A full queue
// or a closed connection returns an error rather than stalling the
// caller.
func (s *ClientSession) Send(msg protocol.Message) error {
	select {
	case <-s.ctx.Done():
		return errors.New("connection closed")
	default:
	}
	select {
	case s.out <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Bind records which session and role this connection joined. A
// connection joins at most once.
func (s *ClientSession) Bind(sess *session.Session, role session.Role) bool {
	s.bindMu.Lock()
	defer s.bindMu.Unlock()
	if s.hasBind {
		return false
	}
	s.sess = sess
	s.role = role
	s.hasBind = true
	return true
}

// Binding returns the session and role this connection holds, if any.
func (s *ClientSession) Binding() (*session.Session, session.Role, bool) {
	s.bindMu.Lock()
	defer s.bindMu.Unlock()
	return s.sess, s.role, s.hasBind
}

// StartWritePump starts the goroutine that drains the outbound queue
// and keeps the connection alive with pings.
func (s *ClientSession) StartWritePump() {
	go s.writePump()
}

func (s *ClientSession) writePump() {
	pingTicker := time.NewTicker(time.Duration(s.cfg.PingInterval) * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case msg := <-s.out:
			if err := s.SafeWriteJSON(msg); err != nil {
				log.Printf("Write to client %s failed: %v", s.id, err)
				s.Close(websocket.CloseInternalServerErr, "Write failure")
				return
			}
			metrics.MessagesSent.Inc()
		case <-pingTicker.C:
			if err := s.SendPing(); err != nil {
				log.Printf("Failed to send ping to %s: %v", s.id, err)
				s.Close(websocket.CloseInternalServerErr, "Ping failure")
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// SafeWriteJSON writes data to the websocket with retry capability
func (s *ClientSession) SafeWriteJSON(data interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	operation := func() error {
		return s.conn.WriteJSON(data)
	}

	backoffStrategy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(websocketRetryDelay),
			uint64(s.cfg.MaxWriteRetries),
		),
		s.ctx,
	)

	return backoff.RetryNotify(operation, backoffStrategy, func(err error, d time.Duration) {
		log.Printf("Retrying WebSocket write to %s: %v (next attempt in %s)", s.id, err, d)
	})
}

// SendPing writes a ping control frame.
func (s *ClientSession) SendPing() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn.WriteControl(
		websocket.PingMessage,
		[]byte{},
		time.Now().Add(time.Duration(s.cfg.WriteTimeout)*time.Second),
	)
}

// GetPongHandler returns a pong handler that pushes the read deadline
// forward; a transport that stops answering pings surfaces as a read
// error, which the handler treats as a disconnect.
func (s *ClientSession) GetPongHandler() func(string) error {
	return func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(time.Duration(s.cfg.PongTimeout) * time.Second))
	}
}

// Close closes the websocket connection. Safe to call more than once;
// only the first call writes the close frame.
func (s *ClientSession) Close(code int, text string) error {
	var closeErr error
	s.closeOnce.Do(func() {
		s.cancel()

		s.mu.Lock()
		defer s.mu.Unlock()

		writeTimeout := time.Duration(s.cfg.WriteTimeout) * time.Second
		err := s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, text),
			time.Now().Add(writeTimeout),
		)
		if err != nil {
			log.Printf("Error sending close message: %v", err)
		}

		closeErr = s.conn.Close()
	})
	return closeErr
}
