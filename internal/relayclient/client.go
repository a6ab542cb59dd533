package relayclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// Client is a connected relay session. Send is safe to call from
// multiple goroutines; Frames delivers inbound frames in order.
type Client struct {
	conn *websocket.Conn

	frames chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to a relay at addr (e.g. "relay.example.com:3600") over
// ws:// or wss://, depending on useTLS, and starts its read pump.
func Dial(ctx context.Context, addr string, useTLS bool) (*Client, error) {
	scheme := "ws"
	if useTLS {
		scheme = "wss"
	}
	url := fmt.Sprintf("%s://%s/ws", scheme, addr)

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("relayclient: dial %s: %w", url, err)
	}

	c := &Client{
		conn:   conn,
		frames: make(chan []byte, 64),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Send writes a single frame to the relay.
func (c *Client) Send(ctx context.Context, frame []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, frame)
}

// Frames returns the channel of inbound frames. It is closed when the
// connection ends.
func (c *Client) Frames() <-chan []byte { return c.frames }

// Close ends the connection and its read pump.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close(websocket.StatusNormalClosure, "")
	})
	return err
}

func (c *Client) readLoop() {
	defer close(c.frames)
	ctx := context.Background()
	for {
		_, data, err := c.conn.Read(ctx)
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

// Ping sends a keepalive ping frame with a short write deadline.
func (c *Client) Ping(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, 5*time.Second)
	defer cancel()
	return c.conn.Ping(ctx)
}
