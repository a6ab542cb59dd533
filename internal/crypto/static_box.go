package crypto

import (
	"fmt"

	"golang.org/x/crypto/nacl/box"

	"ciphermesh/internal/domain"
	"ciphermesh/internal/padding"
	"ciphermesh/internal/util/memzero"
)

// EncryptStatic pads plaintext and seals it with crypto_box_easy
// (X25519 + XSalsa20-Poly1305) for recipientPub, authenticated as
// senderSec (spec.md §4.4).
func EncryptStatic(plaintext []byte, nonce [24]byte, recipientPub domain.X25519Public, senderSec domain.X25519Private) ([]byte, error) {
	padded, err := padding.Pad(plaintext)
	if err != nil {
		return nil, fmt.Errorf("static box: pad: %w", err)
	}
	recipient := [32]byte(recipientPub)
	sender := [32]byte(senderSec)

	ct := box.Seal(nil, padded, &nonce, &recipient, &sender)
	memzero.Zero(padded)
	return ct, nil
}

// DecryptStatic opens a Static Box ciphertext sent by senderPub and
// addressed to recipientSec. ok is false on any authentication failure.
func DecryptStatic(ct []byte, nonce [24]byte, senderPub domain.X25519Public, recipientSec domain.X25519Private) (plaintext []byte, ok bool) {
	sender := [32]byte(senderPub)
	recipient := [32]byte(recipientSec)

	padded, opened := box.Open(nil, ct, &nonce, &sender, &recipient)
	if !opened {
		return nil, false
	}
	pt, ok := padding.SecureUnpad(padded)
	if !ok {
		return nil, false
	}
	return pt, true
}

// DecryptStaticWithFallback tries to open ct under up to four
// (senderPub, recipientSec) combinations, in the order (current,
// current), (previous sender, current), (current, previous recipient),
// (previous, previous) — covering both ends having rotated their
// identity independently within the grace window. It returns the first
// successful decryption.
func DecryptStaticWithFallback(
	ct []byte,
	nonce [24]byte,
	curSenderPub domain.X25519Public,
	curRecvSec domain.X25519Private,
	prevSenderPub *domain.X25519Public,
	prevRecvSec *domain.X25519Private,
) (plaintext []byte, ok bool) {
	if pt, ok := DecryptStatic(ct, nonce, curSenderPub, curRecvSec); ok {
		return pt, true
	}
	if prevSenderPub != nil {
		if pt, ok := DecryptStatic(ct, nonce, *prevSenderPub, curRecvSec); ok {
			return pt, true
		}
	}
	if prevRecvSec != nil {
		if pt, ok := DecryptStatic(ct, nonce, curSenderPub, *prevRecvSec); ok {
			return pt, true
		}
	}
	if prevSenderPub != nil && prevRecvSec != nil {
		if pt, ok := DecryptStatic(ct, nonce, *prevSenderPub, *prevRecvSec); ok {
			return pt, true
		}
	}
	return nil, false
}
