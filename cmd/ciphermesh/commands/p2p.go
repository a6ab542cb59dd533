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

	"github.com/spf13/cobra"

	"ciphermesh/internal/discovery"
	"ciphermesh/internal/domain"
	"ciphermesh/internal/p2p"
	"ciphermesh/internal/session"
	"ciphermesh/internal/wire"
)

// p2pCmd groups direct, relay-free operations.
func p2pCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "p2p",
		Short: "Chat directly with peers discovered on the local network",
	}
	cmd.AddCommand(p2pListenCmd())
	return cmd
}

// p2pListenCmd advertises this node over mDNS, accepts direct connections
// from peers it discovers the same way, and drops into the same
// thin stdin-out/frames-in controller as relay connect. The crypto core
// cannot tell the two deployment shapes apart; only the transport and
// the local session identifier (here the nickname, not a relay UUID)
// differ (spec.md §1, §4.5).
func p2pListenCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Advertise via mDNS and chat with peers directly",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if err := sess.SetLocalSessionID(nickname); err != nil {
				return fmt.Errorf("setting local session id: %w", err)
			}

			ctx := cmd.Context()

			listener := p2p.Listen(fmt.Sprintf(":%d", port))
			go func() {
				if err := listener.ListenAndServe(); err != nil {
					fmt.Fprintf(os.Stderr, "[p2p listener stopped: %v]\n", err)
				}
			}()
			defer listener.Shutdown(context.Background())

			adv, err := discovery.Advertise(nickname, port)
			if err != nil {
				return fmt.Errorf("advertising on mDNS: %w", err)
			}
			defer adv.Shutdown()

			c := &p2pController{
				sess:  sess,
				conns: make(map[string]*p2p.Conn),
			}

			go c.acceptLoop(ctx, listener)
			go c.browseLoop(ctx, port)

			fmt.Printf("[listening on port %d as %s; discovering peers on the LAN]\n", port, nickname)
			c.inputLoop(ctx)
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 4010, "port to listen on for direct connections")
	return cmd
}

// p2pController owns one direct Conn per peer nickname, each handshaking
// independently of the others.
type p2pController struct {
	sess *session.Session

	mu    sync.Mutex
	conns map[string]*p2p.Conn
}

func (c *p2pController) acceptLoop(ctx context.Context, listener *p2p.Listener) {
	for {
		conn, err := listener.Accept(ctx)
		if err != nil {
			return
		}
		go c.handshakeAndServe(ctx, conn)
	}
}

func (c *p2pController) browseLoop(ctx context.Context, myPort int) {
	_ = discovery.Browse(ctx, func(p discovery.Peer) {
		if p.Nickname == nickname {
			return
		}
		c.mu.Lock()
		_, connected := c.conns[p.Nickname]
		c.mu.Unlock()
		if connected {
			return
		}

		host := p.AddrV4
		if host == "" {
			host = p.AddrV6
		}
		if host == "" || p.Port == 0 {
			return
		}
		addr := fmt.Sprintf("%s:%d", host, p.Port)

		conn, err := p2p.Dial(ctx, addr)
		if err != nil {
			return
		}
		go c.handshakeAndServe(ctx, conn)
	})
}

// handshakeAndServe exchanges join frames to learn the peer's nickname
// and public key, registers it with the session, and then services
// inbound frames until the connection ends.
func (c *p2pController) handshakeAndServe(ctx context.Context, conn *p2p.Conn) {
	defer conn.Close()

	pub := c.sess.Identity().Public()
	hello := wire.Join{
		Envelope:  wire.Envelope{Type: wire.KindJoin, Version: wire.Version, Timestamp: nowMillis()},
		Nickname:  nickname,
		PublicKey: base64.StdEncoding.EncodeToString(pub[:]),
	}
	raw, err := json.Marshal(hello)
	if err != nil {
		return
	}
	if err := conn.Send(ctx, raw); err != nil {
		return
	}

	frame, ok := <-conn.Frames()
	if !ok {
		return
	}
	env, err := wire.Validate(frame)
	if err != nil || env.Type != wire.KindJoin {
		return
	}
	var peerHello wire.Join
	if err := json.Unmarshal(frame, &peerHello); err != nil {
		return
	}
	peerRaw, err := base64.StdEncoding.DecodeString(peerHello.PublicKey)
	if err != nil || len(peerRaw) != 32 {
		return
	}
	var peerPub domain.X25519Public
	copy(peerPub[:], peerRaw)

	state, err := c.sess.Greet(peerHello.Nickname, domain.Nickname(peerHello.Nickname), peerPub)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[greeting %s failed: %v]\n", peerHello.Nickname, err)
		return
	}
	switch state {
	case domain.TrustMismatch:
		fmt.Printf("[WARNING: %s's key does not match the pinned record; run `trust update %s <key>` to accept it]\n", peerHello.Nickname, peerHello.Nickname)
	case domain.TrustVerifiedMismatch:
		fmt.Printf("[DANGER: %s's key changed but was previously SAS-verified; this may be an active attack]\n", peerHello.Nickname)
	}

	c.mu.Lock()
	if _, already := c.conns[peerHello.Nickname]; already {
		c.mu.Unlock()
		return
	}
	c.conns[peerHello.Nickname] = conn
	c.mu.Unlock()
	fmt.Printf("[connected to %s]\n", peerHello.Nickname)

	defer func() {
		c.mu.Lock()
		if c.conns[peerHello.Nickname] == conn {
			delete(c.conns, peerHello.Nickname)
		}
		c.mu.Unlock()
	}()

	for frame := range conn.Frames() {
		c.handleFrame(ctx, peerHello.Nickname, frame)
	}
}

func (c *p2pController) handleFrame(ctx context.Context, peerNickname string, frame []byte) {
	env, err := wire.Validate(frame)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[rejected frame from %s: %v]\n", peerNickname, err)
		return
	}

	switch env.Type {
	case wire.KindEncryptedMsg:
		var msg wire.EncryptedMessage
		if err := json.Unmarshal(frame, &msg); err != nil {
			return
		}
		plaintext, _, err := c.sess.Receive(peerNickname, msg.Payload)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[undecryptable message from %s: %v]\n", peerNickname, err)
			return
		}
		fmt.Printf("%s: %s\n", peerNickname, plaintext)

	case wire.KindKeyUpdate:
		var ku wire.KeyUpdate
		if err := json.Unmarshal(frame, &ku); err != nil {
			return
		}
		raw, err := base64.StdEncoding.DecodeString(ku.PublicKey)
		if err != nil || len(raw) != 32 {
			return
		}
		var pub domain.X25519Public
		copy(pub[:], raw)
		if err := c.sess.HandleKeyUpdate(peerNickname, domain.Nickname(peerNickname), pub); err != nil {
			fmt.Fprintf(os.Stderr, "[key update from %s rejected: %v]\n", peerNickname, err)
		}

	case wire.KindPing:
		pong := wire.Pong{Envelope: wire.Envelope{Type: wire.KindPong, Version: wire.Version, Timestamp: nowMillis()}}
		raw, _ := json.Marshal(pong)
		c.mu.Lock()
		conn := c.conns[peerNickname]
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Send(ctx, raw)
		}
	}
}

// inputLoop reads "<nickname> <message>" lines from stdin and sends each
// as a ratchet-encrypted frame to that directly-connected peer.
func (c *p2pController) inputLoop(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 || parts[0] == "" {
			fmt.Fprintln(os.Stderr, "usage: <nickname> <message>")
			continue
		}

		c.mu.Lock()
		conn, found := c.conns[parts[0]]
		c.mu.Unlock()
		if !found {
			fmt.Fprintf(os.Stderr, "[no direct connection to %q yet]\n", parts[0])
			continue
		}

		payload, err := c.sess.Send(parts[0], session.ModeRatchet, []byte(parts[1]))
		if err != nil {
			fmt.Fprintf(os.Stderr, "[encrypt failed: %v]\n", err)
			continue
		}

		msg := wire.EncryptedMessage{
			Envelope: wire.Envelope{Type: wire.KindEncryptedMsg, Version: wire.Version, Timestamp: nowMillis()},
			From:     nickname,
			To:       parts[0],
			Payload:  payload,
		}
		raw, err := json.Marshal(msg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[marshal failed: %v]\n", err)
			continue
		}
		if err := conn.Send(ctx, raw); err != nil {
			fmt.Fprintf(os.Stderr, "[send failed: %v]\n", err)
		}
	}
}
