package crypto

import (
	"bytes"
	"testing"
)

func TestDeniableChannelRoundTrip(t *testing.T) {
	alicePriv, alicePub := mustKeypair(t)
	bobPriv, bobPub := mustKeypair(t)
	nonce := randomNonce(t)

	aliceShared := PrecomputeDeniable(bobPub, alicePriv)
	bobShared := PrecomputeDeniable(alicePub, bobPriv)
	if aliceShared != bobShared {
		t.Fatal("expected both parties to derive the same shared key")
	}

	ct, err := EncryptDeniable([]byte("off the record"), nonce, aliceShared)
	if err != nil {
		t.Fatal(err)
	}
	pt, ok := DecryptDeniable(ct, nonce, bobShared)
	if !ok {
		t.Fatal("expected successful decryption")
	}
	if !bytes.Equal(pt, []byte("off the record")) {
		t.Fatalf("got %q", pt)
	}
}

func TestDeniableChannelRejectsWrongKey(t *testing.T) {
	alicePriv, _ := mustKeypair(t)
	_, bobPub := mustKeypair(t)
	_, malloryPub := mustKeypair(t)
	nonce := randomNonce(t)

	shared := PrecomputeDeniable(bobPub, alicePriv)
	wrong := PrecomputeDeniable(malloryPub, alicePriv)

	ct, err := EncryptDeniable([]byte("secret"), nonce, shared)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := DecryptDeniable(ct, nonce, wrong); ok {
		t.Fatal("expected decryption under a mismatched shared key to fail")
	}
}
