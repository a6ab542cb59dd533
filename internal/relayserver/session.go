package relayserver

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

// sendQueueDepth bounds how many outbound frames a session's writer can
// fall behind by before further frames to it are dropped.
const sendQueueDepth = 64

// session is one connected client: its WebSocket, its roster identity,
// and its outbound write queue. A session's conn.Write is only ever
// called from its own writer goroutine.
type session struct {
	id        string
	nickname  string
	publicKey string // base64
	room      string

	conn    *websocket.Conn
	out     chan []byte
	limiter *rate.Limiter

	closeOnce sync.Once
	done      chan struct{}
}

func newSession(id string, conn *websocket.Conn) *session {
	return &session{
		id:      id,
		conn:    conn,
		room:    DefaultRoom,
		out:     make(chan []byte, sendQueueDepth),
		limiter: rate.NewLimiter(rate.Limit(MessagesPerSecond), MessagesPerSecond),
		done:    make(chan struct{}),
	}
}

// enqueue queues a frame for delivery, dropping it if the session's
// writer has fallen too far behind rather than blocking the caller.
func (s *session) enqueue(frame []byte) {
	select {
	case s.out <- frame:
	case <-s.done:
	default:
		// Writer backlogged; drop rather than stall the hub.
	}
}

// writerLoop drains s.out to the WebSocket until the session closes.
func (s *session) writerLoop() {
	ctx := context.Background()
	for {
		select {
		case frame := <-s.out:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := s.conn.Write(writeCtx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				s.close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// close shuts the session down idempotently.
func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close(websocket.StatusNormalClosure, "")
	})
}

const writeTimeout = 5 * time.Second
