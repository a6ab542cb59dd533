package ratchet

import (
	"fmt"

	"golang.org/x/crypto/blake2b"

	"ciphermesh/internal/domain"
)

// kdfRK advances the root key given a fresh DH output, returning the new
// root key and a freshly derived chain key (spec.md §4.5 KDF_RK).
func kdfRK(rootKey domain.Key32, dhOut [32]byte) (newRoot domain.Key32, chainKey domain.Key32, err error) {
	h, err := blake2b.New(64, rootKey[:])
	if err != nil {
		return newRoot, chainKey, fmt.Errorf("ratchet: KDF_RK: %w", err)
	}
	h.Write(dhOut[:])
	buf := h.Sum(nil)

	copy(newRoot[:], buf[:32])
	copy(chainKey[:], buf[32:64])
	return newRoot, chainKey, nil
}

// kdfCK advances a symmetric chain, returning the message key for the
// current step and the next chain key (spec.md §4.5 KDF_CK).
func kdfCK(chainKey domain.Key32) (messageKey domain.Key32, nextChainKey domain.Key32, err error) {
	mk, err := blake2b.New(32, chainKey[:])
	if err != nil {
		return messageKey, nextChainKey, fmt.Errorf("ratchet: KDF_CK message key: %w", err)
	}
	mk.Write([]byte{0x01})
	copy(messageKey[:], mk.Sum(nil))

	ck, err := blake2b.New(32, chainKey[:])
	if err != nil {
		return messageKey, nextChainKey, fmt.Errorf("ratchet: KDF_CK next chain key: %w", err)
	}
	ck.Write([]byte{0x02})
	copy(nextChainKey[:], ck.Sum(nil))

	return messageKey, nextChainKey, nil
}

// rootKeyFromDH derives the initial root key from the bootstrap static-static
// DH output (spec.md §4.5 step 1).
func rootKeyFromDH(dh0 [32]byte) domain.Key32 {
	return domain.Key32(blake2b.Sum256(dh0[:]))
}
