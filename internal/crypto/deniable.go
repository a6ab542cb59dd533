package crypto

import (
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"

	"ciphermesh/internal/domain"
	"ciphermesh/internal/padding"
	"ciphermesh/internal/util/memzero"
)

// DeniableKey is a precomputed crypto_box_beforenm shared key: either
// party can derive the same key from the other's public and their own
// secret, so neither can prove authorship of a ciphertext sealed with it
// (spec.md §4.9).
type DeniableKey [32]byte

// PrecomputeDeniable derives the shared key for the Deniable Channel.
func PrecomputeDeniable(peerPub domain.X25519Public, mySec domain.X25519Private) DeniableKey {
	peer := [32]byte(peerPub)
	my := [32]byte(mySec)
	var shared [32]byte
	box.Precompute(&shared, &peer, &my)
	return DeniableKey(shared)
}

// EncryptDeniable pads plaintext and seals it with the precomputed shared
// key via secretbox.
func EncryptDeniable(plaintext []byte, nonce [24]byte, shared DeniableKey) ([]byte, error) {
	padded, err := padding.Pad(plaintext)
	if err != nil {
		return nil, err
	}
	key := [32]byte(shared)
	ct := secretbox.Seal(nil, padded, &nonce, &key)
	memzero.Zero(padded)
	return ct, nil
}

// DecryptDeniable opens a Deniable Channel ciphertext.
func DecryptDeniable(ct []byte, nonce [24]byte, shared DeniableKey) (plaintext []byte, ok bool) {
	key := [32]byte(shared)
	padded, opened := secretbox.Open(nil, ct, &nonce, &key)
	if !opened {
		return nil, false
	}
	return padding.SecureUnpad(padded)
}

// Zero wipes the shared key's backing bytes.
func (k *DeniableKey) Zero() {
	memzero.Zero(k[:])
}
