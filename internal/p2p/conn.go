package p2p

import (
	"context"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// Conn is one direct peer connection, dialed or accepted. It has the
// same shape as relayclient.Client so the session layer drives both
// deployment shapes identically.
type Conn struct {
	ws *websocket.Conn

	frames chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newConn(ws *websocket.Conn) *Conn {
	c := &Conn{
		ws:     ws,
		frames: make(chan []byte, 64),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Send writes a single frame to the peer.
func (c *Conn) Send(ctx context.Context, frame []byte) error {
	return c.ws.Write(ctx, websocket.MessageText, frame)
}

// Frames returns the channel of inbound frames, closed when the
// connection ends.
func (c *Conn) Frames() <-chan []byte { return c.frames }

// Close ends the connection.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close(websocket.StatusNormalClosure, "")
	})
	return err
}

func (c *Conn) readLoop() {
	defer close(c.frames)
	ctx := context.Background()
	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			return
		}
		select {
		case c.frames <- data:
		case <-c.done:
			return
		}
	}
}

// Ping sends a keepalive ping with a short write deadline.
func (c *Conn) Ping(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, 5*time.Second)
	defer cancel()
	return c.ws.Ping(ctx)
}

func acceptWS(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, nil)
}

// Dial connects directly to a peer advertising itself at addr
// (host:port, as discovered via internal/discovery).
func Dial(ctx context.Context, addr string) (*Conn, error) {
	url := "ws://" + addr + "/ws"
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return newConn(ws), nil
}
