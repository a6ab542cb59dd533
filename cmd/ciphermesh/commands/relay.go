package commands

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"ciphermesh/internal/domain"
	"ciphermesh/internal/relayclient"
	"ciphermesh/internal/session"
	"ciphermesh/internal/wire"
)

// relayCmd groups relay-mode operations.
func relayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Chat over the blind relay",
	}
	cmd.AddCommand(relayConnectCmd())
	return cmd
}

// relayConnectCmd joins a relay session and drops into the thinnest
// possible controller: stdin lines out, frames in. It exists only to
// exercise the core end-to-end; a richer UI is out of scope.
func relayConnectCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Join a relay session and chat from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				return fmt.Errorf("--addr is required")
			}
			if err := requireNickname(); err != nil {
				return err
			}
			passphrase, err := readPassphrase()
			if err != nil {
				return err
			}

			sess, ok, err := appCtx.OpenSession(domain.Nickname(nickname), passphrase)
			if err != nil {
				return fmt.Errorf("unlocking identity: %w", err)
			}
			if !ok {
				return fmt.Errorf("no identity found; run `ciphermesh init` first")
			}
			defer sess.Close()

			ctx := cmd.Context()

			client, err := relayclient.Dial(ctx, addr, useTLS)
			if err != nil {
				return fmt.Errorf("connecting to relay: %w", err)
			}
			defer client.Close()

			c := &relayController{
				sess:   sess,
				client: client,
				byName: make(map[string]string),
				byID:   make(map[string]string),
			}
			if err := c.join(ctx); err != nil {
				return err
			}

			go c.readLoop(ctx)
			c.inputLoop(ctx)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "relay address, e.g. relay.example.com:3600")
	return cmd
}

// relayController tracks the nickname<->session-id mapping the relay
// assigns, on top of one session.Session.
type relayController struct {
	sess   *relaySession
	client *relayclient.Client

	mu     sync.Mutex
	byName map[string]string
	byID   map[string]string
}

// relaySession is the subset of *session.Session the controller drives.
type relaySession = session.Session

func (c *relayController) join(ctx context.Context) error {
	pub := c.sess.Identity().Public()
	join := wire.Join{
		Envelope:  wire.Envelope{Type: wire.KindJoin, Version: wire.Version, Timestamp: nowMillis()},
		Nickname:  nickname,
		PublicKey: base64.StdEncoding.EncodeToString(pub[:]),
	}
	raw, err := json.Marshal(join)
	if err != nil {
		return err
	}
	return c.client.Send(ctx, raw)
}

func (c *relayController) readLoop(ctx context.Context) {
	for frame := range c.client.Frames() {
		c.handleFrame(ctx, frame)
	}
}

func (c *relayController) handleFrame(ctx context.Context, frame []byte) {
	env, err := wire.Validate(frame)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[rejected frame: %v]\n", err)
		return
	}

	switch env.Type {
	case wire.KindJoinAck:
		var ack wire.JoinAck
		if err := json.Unmarshal(frame, &ack); err != nil {
			return
		}
		if err := c.sess.SetLocalSessionID(ack.SessionID); err != nil {
			fmt.Fprintf(os.Stderr, "[setting local session id: %v]\n", err)
		}
		for _, p := range ack.Peers {
			c.greetPeer(p.SessionID, p.Nickname, p.PublicKey)
		}
		fmt.Printf("[joined as %s, %d peer(s) online]\n", ack.SessionID, len(ack.Peers))

	case wire.KindPeerJoined:
		var pj wire.PeerJoined
		if err := json.Unmarshal(frame, &pj); err != nil {
			return
		}
		c.greetPeer(pj.SessionID, pj.Nickname, pj.PublicKey)
		fmt.Printf("[%s joined]\n", pj.Nickname)

	case wire.KindPeerLeft:
		var pl wire.PeerLeft
		if err := json.Unmarshal(frame, &pl); err != nil {
			return
		}
		c.forget(pl.SessionID)

	case wire.KindPeerKeyUpdated:
		var pk wire.PeerKeyUpdated
		if err := json.Unmarshal(frame, &pk); err != nil {
			return
		}
		c.mu.Lock()
		peerNick := c.byID[pk.SessionID]
		c.mu.Unlock()
		raw, err := base64.StdEncoding.DecodeString(pk.PublicKey)
		if err != nil || len(raw) != 32 {
			return
		}
		var pub domain.X25519Public
		copy(pub[:], raw)
		if err := c.sess.HandleKeyUpdate(pk.SessionID, domain.Nickname(peerNick), pub); err != nil {
			fmt.Fprintf(os.Stderr, "[key update for %s rejected: %v]\n", peerNick, err)
		}

	case wire.KindEncryptedMsg:
		var msg wire.EncryptedMessage
		if err := json.Unmarshal(frame, &msg); err != nil {
			return
		}
		c.mu.Lock()
		peerID, known := c.byName[strings.ToLower(msg.From)]
		c.mu.Unlock()
		if !known {
			fmt.Fprintf(os.Stderr, "[message from unrecognised peer %q dropped]\n", msg.From)
			return
		}
		plaintext, _, err := c.sess.Receive(peerID, msg.Payload)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[undecryptable message from %s: %v]\n", msg.From, err)
			return
		}
		fmt.Printf("%s: %s\n", msg.From, plaintext)

	case wire.KindPing:
		pong := wire.Pong{Envelope: wire.Envelope{Type: wire.KindPong, Version: wire.Version, Timestamp: nowMillis()}}
		raw, _ := json.Marshal(pong)
		_ = c.client.Send(ctx, raw)

	case wire.KindError:
		var ef wire.ErrorFrame
		if err := json.Unmarshal(frame, &ef); err != nil {
			return
		}
		fmt.Fprintf(os.Stderr, "[relay error %s: %s]\n", ef.Code, ef.Message)
	}
}

func (c *relayController) greetPeer(peerID, peerNickname, publicKeyB64 string) {
	raw, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil || len(raw) != 32 {
		return
	}
	var pub domain.X25519Public
	copy(pub[:], raw)

	state, err := c.sess.Greet(peerID, domain.Nickname(peerNickname), pub)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[greeting %s failed: %v]\n", peerNickname, err)
		return
	}
	switch state {
	case domain.TrustMismatch:
		fmt.Printf("[WARNING: %s's key does not match the pinned record; run `trust update %s <key>` to accept it]\n", peerNickname, peerNickname)
	case domain.TrustVerifiedMismatch:
		fmt.Printf("[DANGER: %s's key changed but was previously SAS-verified; this may be an active attack]\n", peerNickname)
	}

	c.mu.Lock()
	c.byName[strings.ToLower(peerNickname)] = peerID
	c.byID[peerID] = peerNickname
	c.mu.Unlock()
}

func (c *relayController) forget(peerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if nick, ok := c.byID[peerID]; ok {
		delete(c.byName, strings.ToLower(nick))
		delete(c.byID, peerID)
	}
}

// inputLoop reads "<nickname> <message>" lines from stdin and sends each
// as a ratchet-encrypted frame to that peer.
func (c *relayController) inputLoop(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()

		if line == ":keyupdate" {
			if err := c.sendKeyUpdate(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "[key update failed: %v]\n", err)
			}
			continue
		}

		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 || parts[0] == "" {
			fmt.Fprintln(os.Stderr, "usage: <nickname> <message>  (or :keyupdate to announce a rotated identity)")
			continue
		}

		c.mu.Lock()
		peerID, peerNick, found := c.peerByPrefix(strings.ToLower(parts[0]))
		c.mu.Unlock()
		if !found {
			fmt.Fprintf(os.Stderr, "[unknown peer %q]\n", parts[0])
			continue
		}

		payload, err := c.sess.Send(peerID, session.ModeRatchet, []byte(parts[1]))
		if err != nil {
			fmt.Fprintf(os.Stderr, "[encrypt failed: %v]\n", err)
			continue
		}

		msg := wire.EncryptedMessage{
			Envelope: wire.Envelope{Type: wire.KindEncryptedMsg, Version: wire.Version, Timestamp: nowMillis()},
			From:     nickname,
			To:       peerNick,
			Payload:  payload,
		}
		raw, err := json.Marshal(msg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[marshal failed: %v]\n", err)
			continue
		}
		if err := c.client.Send(ctx, raw); err != nil {
			fmt.Fprintf(os.Stderr, "[send failed: %v]\n", err)
			return
		}
	}
}

// sendKeyUpdate broadcasts the identity's current public key as a
// key_update frame, for after `init --rotate` ahead of a relay session.
func (c *relayController) sendKeyUpdate(ctx context.Context) error {
	pub := c.sess.Identity().Public()
	ku := wire.KeyUpdate{
		Envelope:  wire.Envelope{Type: wire.KindKeyUpdate, Version: wire.Version, Timestamp: nowMillis()},
		PublicKey: base64.StdEncoding.EncodeToString(pub[:]),
	}
	raw, err := json.Marshal(ku)
	if err != nil {
		return err
	}
	return c.client.Send(ctx, raw)
}

// peerByPrefix resolves a lowercased nickname to its session id and
// canonical-case nickname. Callers must hold c.mu.
func (c *relayController) peerByPrefix(lower string) (peerID, canonical string, found bool) {
	peerID, found = c.byName[lower]
	if !found {
		return "", "", false
	}
	return peerID, c.byID[peerID], true
}

func nowMillis() int64 { return time.Now().UnixMilli() }
