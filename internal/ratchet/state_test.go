package ratchet

import (
	"bytes"
	"testing"

	"ciphermesh/internal/crypto"
)

func newPair(t *testing.T) (initiator, responder *State) {
	t.Helper()

	aliceSec, alicePub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatal(err)
	}
	bobSec, bobPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatal(err)
	}

	initiator, err = Init(aliceSec, bobPub, true)
	if err != nil {
		t.Fatal(err)
	}
	responder, err = Init(bobSec, alicePub, false)
	if err != nil {
		t.Fatal(err)
	}
	return initiator, responder
}

func TestRatchetBasicRoundTrip(t *testing.T) {
	alice, bob := newPair(t)

	msg, err := alice.Encrypt([]byte("hello bob"))
	if err != nil {
		t.Fatal(err)
	}
	pt, ok, err := bob.Decrypt(msg.Ciphertext, msg.Nonce, msg.EphemeralPublic, msg.Counter, msg.PreviousCounter)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected successful decryption")
	}
	if !bytes.Equal(pt, []byte("hello bob")) {
		t.Fatalf("got %q", pt)
	}
}

func TestRatchetBidirectional(t *testing.T) {
	alice, bob := newPair(t)

	m1, err := alice.Encrypt([]byte("ping"))
	if err != nil {
		t.Fatal(err)
	}
	pt, ok, err := bob.Decrypt(m1.Ciphertext, m1.Nonce, m1.EphemeralPublic, m1.Counter, m1.PreviousCounter)
	if err != nil || !ok {
		t.Fatalf("bob decrypt failed: ok=%v err=%v", ok, err)
	}
	if string(pt) != "ping" {
		t.Fatalf("got %q", pt)
	}

	m2, err := bob.Encrypt([]byte("pong"))
	if err != nil {
		t.Fatal(err)
	}
	pt2, ok, err := alice.Decrypt(m2.Ciphertext, m2.Nonce, m2.EphemeralPublic, m2.Counter, m2.PreviousCounter)
	if err != nil || !ok {
		t.Fatalf("alice decrypt failed: ok=%v err=%v", ok, err)
	}
	if string(pt2) != "pong" {
		t.Fatalf("got %q", pt2)
	}
}

func TestRatchetOutOfOrderDelivery(t *testing.T) {
	alice, bob := newPair(t)

	m1, err := alice.Encrypt([]byte("one"))
	if err != nil {
		t.Fatal(err)
	}
	m2, err := alice.Encrypt([]byte("two"))
	if err != nil {
		t.Fatal(err)
	}
	m3, err := alice.Encrypt([]byte("three"))
	if err != nil {
		t.Fatal(err)
	}

	// Deliver out of order: 3, 1, 2.
	pt3, ok, err := bob.Decrypt(m3.Ciphertext, m3.Nonce, m3.EphemeralPublic, m3.Counter, m3.PreviousCounter)
	if err != nil || !ok || string(pt3) != "three" {
		t.Fatalf("decrypt m3: ok=%v err=%v pt=%q", ok, err, pt3)
	}
	pt1, ok, err := bob.Decrypt(m1.Ciphertext, m1.Nonce, m1.EphemeralPublic, m1.Counter, m1.PreviousCounter)
	if err != nil || !ok || string(pt1) != "one" {
		t.Fatalf("decrypt m1: ok=%v err=%v pt=%q", ok, err, pt1)
	}
	pt2, ok, err := bob.Decrypt(m2.Ciphertext, m2.Nonce, m2.EphemeralPublic, m2.Counter, m2.PreviousCounter)
	if err != nil || !ok || string(pt2) != "two" {
		t.Fatalf("decrypt m2: ok=%v err=%v pt=%q", ok, err, pt2)
	}
}

func TestRatchetTooManySkippedFails(t *testing.T) {
	alice, bob := newPair(t)

	var last SendResult
	for i := 0; i < MaxSkip+5; i++ {
		msg, err := alice.Encrypt([]byte("spam"))
		if err != nil {
			t.Fatal(err)
		}
		last = msg
	}

	_, _, err := bob.Decrypt(last.Ciphertext, last.Nonce, last.EphemeralPublic, last.Counter, last.PreviousCounter)
	if err == nil {
		t.Fatal("expected a too-many-skipped error")
	}
}

func TestRatchetRejectsTamperedCiphertext(t *testing.T) {
	alice, bob := newPair(t)

	msg, err := alice.Encrypt([]byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	tampered := append([]byte(nil), msg.Ciphertext...)
	tampered[0] ^= 0xFF

	_, ok, err := bob.Decrypt(tampered, msg.Nonce, msg.EphemeralPublic, msg.Counter, msg.PreviousCounter)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected tampered ciphertext to fail authentication")
	}
}
