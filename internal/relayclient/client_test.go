package relayclient_test

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"ciphermesh/internal/relayclient"
	"ciphermesh/internal/relayserver"
	"ciphermesh/internal/wire"
)

// startRelay reserves a free port, starts a relay on it, registers its
// shutdown with t.Cleanup, and returns its address. Mirrors the teacher's pattern of binding
// ":0" in tests and reading back the chosen port.
func startRelay(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserving port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	srv := relayserver.New(addr)
	go srv.ListenAndServe()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	waitForListener(t, addr)
	return addr
}

func waitForListener(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("relay never started listening on %s", addr)
}

func joinFrame(nickname, pubkeyB64 string) []byte {
	raw, _ := json.Marshal(wire.Join{
		Envelope:  wire.Envelope{Type: wire.KindJoin, Version: wire.Version, Timestamp: 1},
		Nickname:  nickname,
		PublicKey: pubkeyB64,
	})
	return raw
}

func readFrame(t *testing.T, c *relayclient.Client, kind string) []byte {
	t.Helper()
	for {
		select {
		case frame, ok := <-c.Frames():
			if !ok {
				t.Fatalf("frames channel closed waiting for %q", kind)
			}
			env, err := wire.Validate(frame)
			if err != nil {
				t.Fatalf("invalid frame while waiting for %q: %v", kind, err)
			}
			if env.Type == kind {
				return frame
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for %q", kind)
		}
	}
}

func TestDial_JoinAndReceiveAck(t *testing.T) {
	addr := startRelay(t)
	ctx := context.Background()

	client, err := relayclient.Dial(ctx, addr, false)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	if err := client.Send(ctx, joinFrame("alice", "QUFBQUFBQUFBQUFBQUFBQUFBQUFBQUFBQUFBQUFBQUE=")); err != nil {
		t.Fatalf("Send(join): %v", err)
	}

	raw := readFrame(t, client, wire.KindJoinAck)
	var ack wire.JoinAck
	if err := json.Unmarshal(raw, &ack); err != nil {
		t.Fatalf("unmarshal join_ack: %v", err)
	}
	if ack.SessionID == "" {
		t.Errorf("join_ack.sessionId is empty")
	}
	if len(ack.Peers) != 0 {
		t.Errorf("join_ack.peers = %v, want empty for first joiner", ack.Peers)
	}
}

func TestDial_NicknameCollisionRejected(t *testing.T) {
	addr := startRelay(t)
	ctx := context.Background()

	first, err := relayclient.Dial(ctx, addr, false)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer first.Close()
	if err := first.Send(ctx, joinFrame("bob", "QkJCQkJCQkJCQkJCQkJCQkJCQkJCQkJCQkJCQkJCQkI=")); err != nil {
		t.Fatalf("Send(join): %v", err)
	}
	readFrame(t, first, wire.KindJoinAck)

	second, err := relayclient.Dial(ctx, addr, false)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer second.Close()
	if err := second.Send(ctx, joinFrame("bob", "Q0NDQ0NDQ0NDQ0NDQ0NDQ0NDQ0NDQ0NDQ0NDQ0NDQ0M=")); err != nil {
		t.Fatalf("Send(join): %v", err)
	}

	frame, ok := <-second.Frames()
	if !ok {
		t.Fatalf("second connection closed before sending error frame")
	}
	env, err := wire.Validate(frame)
	if err != nil {
		t.Fatalf("wire.Validate: %v", err)
	}
	if env.Type != wire.KindError {
		t.Fatalf("frame type = %q, want error", env.Type)
	}
	var ef wire.ErrorFrame
	if err := json.Unmarshal(frame, &ef); err != nil {
		t.Fatalf("unmarshal error frame: %v", err)
	}
	if ef.Code != wire.ErrNicknameTaken {
		t.Errorf("error code = %q, want %q", ef.Code, wire.ErrNicknameTaken)
	}
}

func TestDial_RelaysEncryptedMessageBetweenPeers(t *testing.T) {
	addr := startRelay(t)
	ctx := context.Background()

	alice, err := relayclient.Dial(ctx, addr, false)
	if err != nil {
		t.Fatalf("Dial alice: %v", err)
	}
	defer alice.Close()
	if err := alice.Send(ctx, joinFrame("alice", "QUFBQUFBQUFBQUFBQUFBQUFBQUFBQUFBQUFBQUFBQUE=")); err != nil {
		t.Fatalf("alice join: %v", err)
	}
	readFrame(t, alice, wire.KindJoinAck)

	bob, err := relayclient.Dial(ctx, addr, false)
	if err != nil {
		t.Fatalf("Dial bob: %v", err)
	}
	defer bob.Close()
	if err := bob.Send(ctx, joinFrame("bob", "QkJCQkJCQkJCQkJCQkJCQkJCQkJCQkJCQkJCQkJCQkI=")); err != nil {
		t.Fatalf("bob join: %v", err)
	}
	readFrame(t, bob, wire.KindJoinAck)

	// alice should see bob's peer_joined broadcast.
	readFrame(t, alice, wire.KindPeerJoined)

	msg := wire.EncryptedMessage{
		Envelope: wire.Envelope{Type: wire.KindEncryptedMsg, Version: wire.Version, Timestamp: 1},
		From:     "alice",
		To:       "bob",
		Payload: wire.Payload{
			Ciphertext: "Y2lwaGVydGV4dA==",
			Nonce:      "Tk5OTk5OTk5OTk5OTk5OTk5OTk5OTk5O",
			Deniable:   false,
		},
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal encrypted_message: %v", err)
	}
	if err := alice.Send(ctx, raw); err != nil {
		t.Fatalf("alice send: %v", err)
	}

	got := readFrame(t, bob, wire.KindEncryptedMsg)
	var relayed wire.EncryptedMessage
	if err := json.Unmarshal(got, &relayed); err != nil {
		t.Fatalf("unmarshal relayed message: %v", err)
	}
	if relayed.From != "alice" || relayed.To != "bob" {
		t.Errorf("relayed from/to = %s/%s, want alice/bob", relayed.From, relayed.To)
	}
	if relayed.Payload.Ciphertext != msg.Payload.Ciphertext {
		t.Errorf("relayed ciphertext = %q, want %q (relay must not touch payload)", relayed.Payload.Ciphertext, msg.Payload.Ciphertext)
	}
}
