package p2p

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	readHeaderTO = 5 * time.Second
	idleTO       = 60 * time.Second
)

// Listener accepts direct connections from other CipherMesh nodes
// discovered on the LAN (spec.md §1 P2P deployment shape).
type Listener struct {
	srv      *http.Server
	incoming chan *Conn
}

// Listen builds a Listener bound to addr (host:port), ready to
// ListenAndServe. Each accepted WebSocket handshake is delivered to
// Accept in the order received.
func Listen(addr string) *Listener {
	l := &Listener{incoming: make(chan *Conn, 8)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", l.handleWS)

	l.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTO,
		IdleTimeout:       idleTO,
	}
	return l
}

func (l *Listener) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := acceptWS(w, r)
	if err != nil {
		return
	}
	l.incoming <- newConn(ws)
}

// ListenAndServe blocks serving direct connections until Shutdown is
// called.
func (l *Listener) ListenAndServe() error {
	err := l.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Accept blocks until a peer connects or ctx is done.
func (l *Listener) Accept(ctx context.Context) (*Conn, error) {
	select {
	case c := <-l.incoming:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown gracefully stops accepting new connections.
func (l *Listener) Shutdown(ctx context.Context) error {
	if err := l.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("p2p: shutdown: %w", err)
	}
	return nil
}
