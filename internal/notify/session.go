package notify

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// sendQueueSize bounds how far a slow client may fall behind before
	// events are dropped for it. Delivery is at-most-once.
	sendQueueSize = 16

	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// Session is one physical connection under a logical channel. The hub writes
// into the session's buffered queue; the write pump owns the websocket.
type Session struct {
	id     string
	send   chan []byte
	closed chan struct{}
}

// NewSession creates a session with a bounded outbound queue.
func NewSession(id string) *Session {
	return &Session{
		id:     id,
		send:   make(chan []byte, sendQueueSize),
		closed: make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// enqueue offers a payload to the session without blocking. It reports false
// when the session is closed or its queue is full.
func (s *Session) enqueue(payload []byte) bool {
	select {
	case <-s.closed:
		return false
	default:
	}
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// Close stops the write pump. Idempotent.
func (s *Session) Close() {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
}

// Outbox exposes the pending payload stream. The write pump consumes it;
// tests read it directly.
func (s *Session) Outbox() <-chan []byte {
	return s.send
}

// WritePump drains the queue into the websocket connection until the session
// closes or a write fails. Run it on its own goroutine per connection.
func (s *Session) WritePump(conn *websocket.Conn, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case payload := <-s.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debug("Websocket write failed, closing session",
					zap.String("session_id", s.id),
					zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.closed:
			return
		}
	}
}
