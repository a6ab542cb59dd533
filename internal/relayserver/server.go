package relayserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"ciphermesh/internal/wire"
)

const (
	readHeaderTO = 5 * time.Second
	idleTO       = 60 * time.Second
	joinTimeout  = 10 * time.Second
)

// Server is the blind relay's HTTP/WebSocket front end.
type Server struct {
	hub *hub
	srv *http.Server
}

// New builds a Server bound to addr (host:port), ready to ListenAndServe.
func New(addr string) *Server {
	h := newHub()
	mux := http.NewServeMux()

	s := &Server{hub: h}
	mux.HandleFunc("GET /ws", withRecover(s.handleWS))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTO,
		IdleTimeout:       idleTO,
	}
	return s
}

// ListenAndServe blocks serving the relay until Shutdown is called.
func (s *Server) ListenAndServe() error {
	slog.Info("relay listening", "addr", s.srv.Addr)
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the relay, waiting up to the given context's
// deadline for in-flight connections to drain.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// withRecover converts a handler panic into a 500 instead of crashing
// the relay process.
func withRecover(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("relay: panic in handler", "err", rec)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		h(w, r)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	id := uuid.NewString()
	sess := newSession(id, conn)

	if !s.awaitJoin(sess) {
		sess.close()
		return
	}

	s.hub.register(sess)
	go sess.writerLoop()
	s.announceJoin(sess)

	defer func() {
		s.hub.unregister(sess)
		s.broadcastPeerLeft(sess)
		sess.close()
	}()

	s.readLoop(sess)
}

// awaitJoin reads the mandatory first frame and validates it as a join,
// rejecting on a taken nickname or a malformed frame. It returns false
// if the session should not proceed.
func (s *Server) awaitJoin(sess *session) bool {
	ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
	defer cancel()

	_, data, err := sess.conn.Read(ctx)
	if err != nil {
		return false
	}

	env, err := wire.Validate(data)
	if err != nil || env.Type != wire.KindJoin {
		s.sendError(sess, wire.ErrInvalidMessage, "first frame must be join")
		return false
	}
	var join wire.Join
	if err := json.Unmarshal(data, &join); err != nil {
		s.sendError(sess, wire.ErrInvalidMessage, "malformed join")
		return false
	}
	if s.hub.nicknameTaken(join.Nickname) {
		s.sendError(sess, wire.ErrNicknameTaken, "nickname already in use")
		return false
	}

	sess.nickname = join.Nickname
	sess.publicKey = join.PublicKey
	return true
}

// announceJoin sends the new session its join_ack (with any queued
// offline messages) and tells its roommates about it.
func (s *Server) announceJoin(sess *session) {
	peers := s.hub.roomPeers(sess.room, sess)
	summaries := make([]wire.PeerSummary, 0, len(peers))
	for _, p := range peers {
		summaries = append(summaries, wire.PeerSummary{SessionID: p.id, Nickname: p.nickname, PublicKey: p.publicKey})
	}

	queued := s.hub.drainOffline(sess.nickname, sess.publicKey)
	for _, frame := range queued {
		sess.enqueue(frame)
	}

	ack := wire.JoinAck{
		Envelope:    envelopeNow(wire.KindJoinAck),
		SessionID:   sess.id,
		Peers:       summaries,
		QueuedCount: len(queued),
		Room:        sess.room,
	}
	sess.enqueue(mustMarshal(ack))

	s.hub.broadcastRoom(sess.room, sess, mustMarshal(wire.PeerJoined{
		Envelope:  envelopeNow(wire.KindPeerJoined),
		SessionID: sess.id,
		Nickname:  sess.nickname,
		PublicKey: sess.publicKey,
	}))
}

func (s *Server) broadcastPeerLeft(sess *session) {
	s.hub.broadcastRoom(sess.room, sess, mustMarshal(wire.PeerLeft{
		Envelope:  envelopeNow(wire.KindPeerLeft),
		SessionID: sess.id,
	}))
}

// readLoop processes frames from an established session until it
// disconnects.
func (s *Server) readLoop(sess *session) {
	ctx := context.Background()
	for {
		_, data, err := sess.conn.Read(ctx)
		if err != nil {
			return
		}
		if !sess.limiter.Allow() {
			s.sendError(sess, wire.ErrRateLimited, "send rate exceeded")
			continue
		}
		s.dispatch(sess, data)
	}
}

func (s *Server) dispatch(sess *session, data []byte) {
	env, err := wire.Validate(data)
	if err != nil {
		var verr *wire.ValidationError
		if errors.As(err, &verr) {
			s.sendError(sess, verr.Code, verr.Message)
		} else {
			s.sendError(sess, wire.ErrInvalidMessage, err.Error())
		}
		return
	}

	switch env.Type {
	case wire.KindEncryptedMsg:
		s.routeEncrypted(sess, data)
	case wire.KindPing:
		sess.enqueue(mustMarshal(wire.Pong{Envelope: envelopeNow(wire.KindPong)}))
	case wire.KindKeyUpdate:
		s.handleKeyUpdate(sess, data)
	case wire.KindChangeRoom:
		s.handleChangeRoom(sess, data)
	case wire.KindListRooms:
		s.handleListRooms(sess)
	default:
		s.sendError(sess, wire.ErrInvalidMessage, "unsupported frame type: "+env.Type)
	}
}

func (s *Server) routeEncrypted(sess *session, data []byte) {
	var msg wire.EncryptedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(sess, wire.ErrInvalidMessage, "malformed encrypted_message")
		return
	}

	if target, online := s.hub.lookup(msg.To); online {
		target.enqueue(data)
		return
	}
	s.hub.enqueueOffline(msg.To, sess.publicKey, data)
}

func (s *Server) handleKeyUpdate(sess *session, data []byte) {
	var ku wire.KeyUpdate
	if err := json.Unmarshal(data, &ku); err != nil {
		s.sendError(sess, wire.ErrInvalidMessage, "malformed key_update")
		return
	}
	sess.publicKey = ku.PublicKey
	s.hub.broadcastRoom(sess.room, sess, mustMarshal(wire.PeerKeyUpdated{
		Envelope:  envelopeNow(wire.KindPeerKeyUpdated),
		SessionID: sess.id,
		PublicKey: ku.PublicKey,
	}))
}

func (s *Server) handleChangeRoom(sess *session, data []byte) {
	var cr wire.ChangeRoom
	if err := json.Unmarshal(data, &cr); err != nil || cr.Room == "" {
		s.sendError(sess, wire.ErrInvalidMessage, "malformed change_room")
		return
	}
	s.broadcastPeerLeft(sess)
	s.hub.setRoom(sess, cr.Room)

	sess.enqueue(mustMarshal(wire.RoomChanged{Envelope: envelopeNow(wire.KindRoomChanged), Room: cr.Room}))
	s.announceJoin(sess)
}

func (s *Server) handleListRooms(sess *session) {
	s.hub.mu.RLock()
	seen := make(map[string]struct{})
	for _, p := range s.hub.sessions {
		seen[p.room] = struct{}{}
	}
	s.hub.mu.RUnlock()

	rooms := make([]string, 0, len(seen))
	for r := range seen {
		rooms = append(rooms, r)
	}
	sess.enqueue(mustMarshal(wire.RoomList{Envelope: envelopeNow(wire.KindRoomList), Rooms: rooms}))
}

func (s *Server) sendError(sess *session, code, message string) {
	sess.enqueue(mustMarshal(wire.ErrorFrame{
		Envelope: envelopeNow(wire.KindError),
		Code:     code,
		Message:  message,
	}))
}

func envelopeNow(kind string) wire.Envelope {
	return wire.Envelope{Type: kind, Version: wire.Version, Timestamp: time.Now().UnixMilli()}
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Every type passed here is one of this package's own wire
		// structs; a marshal failure means a programming error.
		panic(fmt.Sprintf("relayserver: marshal %T: %v", v, err))
	}
	return b
}
