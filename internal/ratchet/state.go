package ratchet

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"time"

	"ciphermesh/internal/crypto"
	"ciphermesh/internal/domain"
	"ciphermesh/internal/padding"
	"ciphermesh/internal/util/memzero"

	"golang.org/x/crypto/nacl/secretbox"
)

// MaxSkip bounds how many message keys a single receive may derive and
// cache while catching up a lagging chain (spec.md §4.5).
const MaxSkip = 100

// SkippedKeyTTL is how long a cached skipped key survives before the
// lazy sweep on Decrypt wipes it.
const SkippedKeyTTL = 60 * time.Second

// State is one peer's live Double Ratchet, wrapping the persisted
// domain.RatchetState with the operations of spec.md §4.5.
type State struct {
	s *domain.RatchetState
}

// SendResult is what Encrypt emits: a ciphertext plus the header the
// receiver needs to find the right chain position.
type SendResult struct {
	Ciphertext      []byte
	Nonce           [24]byte
	EphemeralPublic domain.X25519Public
	Counter         uint32
	PreviousCounter uint32
}

// New wraps an existing persisted state (e.g. loaded from the vault).
func New(s *domain.RatchetState) *State {
	if s.Skipped == nil {
		s.Skipped = make(map[domain.SkippedKeyID]domain.SkippedKey)
	}
	return &State{s: s}
}

// Init bootstraps a fresh ratchet between the local static identity and a
// peer's static public key (spec.md §4.5 Initialization). initiator is
// decided by the caller via the session-id tie-break.
func Init(myStaticSec domain.X25519Private, peerStaticPub domain.X25519Public, initiator bool) (*State, error) {
	dh0, err := crypto.DH(myStaticSec, peerStaticPub)
	if err != nil {
		return nil, fmt.Errorf("ratchet: init: %w", err)
	}
	rootKey := rootKeyFromDH(dh0)
	memzero.Zero(dh0[:])

	s := domain.NewRatchetState()
	s.RootKey = rootKey
	s.NeedSendRatchet = true

	if initiator {
		priv, pub, err := crypto.GenerateX25519()
		if err != nil {
			return nil, fmt.Errorf("ratchet: init: generate ephemeral: %w", err)
		}
		s.MyEphPrivate = &priv
		s.MyEphPublic = &pub
		s.PeerEphPublic = &peerStaticPub
	} else {
		priv := myStaticSec
		s.MyEphPrivate = &priv
	}

	return &State{s: s}, nil
}

// Export returns the underlying persisted state for serialization. The
// caller owns the returned pointer; it is the same one backing this
// State, so further Encrypt/Decrypt calls mutate it in place.
func (r *State) Export() *domain.RatchetState { return r.s }

// Encrypt advances the send chain (ratcheting first if needed) and seals
// plaintext (spec.md §4.5 Send).
func (r *State) Encrypt(plaintext []byte) (SendResult, error) {
	s := r.s

	if s.NeedSendRatchet {
		if s.PeerEphPublic == nil {
			return SendResult{}, fmt.Errorf("ratchet: encrypt: no peer ephemeral yet")
		}
		s.PreviousSendCount = s.SendCounter
		s.SendCounter = 0

		if s.MyEphPrivate != nil {
			memzero.Zero(s.MyEphPrivate[:])
		}
		priv, pub, err := crypto.GenerateX25519()
		if err != nil {
			return SendResult{}, fmt.Errorf("ratchet: encrypt: generate ephemeral: %w", err)
		}
		s.MyEphPrivate = &priv
		s.MyEphPublic = &pub

		dh, err := crypto.DH(priv, *s.PeerEphPublic)
		if err != nil {
			return SendResult{}, fmt.Errorf("ratchet: encrypt: DH: %w", err)
		}
		newRoot, chainKey, err := kdfRK(s.RootKey, dh)
		memzero.Zero(dh[:])
		if err != nil {
			return SendResult{}, err
		}
		memzero.Zero(s.RootKey[:])
		s.RootKey = newRoot
		s.SendChainKey = &chainKey

		s.NeedSendRatchet = false
	}

	msgKey, nextCK, err := kdfCK(*s.SendChainKey)
	if err != nil {
		return SendResult{}, err
	}
	memzero.Zero(s.SendChainKey[:])
	s.SendChainKey = &nextCK

	padded, err := padding.Pad(plaintext)
	if err != nil {
		return SendResult{}, fmt.Errorf("ratchet: encrypt: pad: %w", err)
	}

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		memzero.Zero(padded)
		return SendResult{}, fmt.Errorf("ratchet: encrypt: nonce: %w", err)
	}

	key := [32]byte(msgKey)
	ct := secretbox.Seal(nil, padded, &nonce, &key)
	memzero.Zero(padded)
	memzero.Zero(msgKey[:])

	result := SendResult{
		Ciphertext:      ct,
		Nonce:           nonce,
		EphemeralPublic: *s.MyEphPublic,
		Counter:         s.SendCounter,
		PreviousCounter: s.PreviousSendCount,
	}
	s.SendCounter++
	return result, nil
}

// Decrypt opens a ratchet-path ciphertext, performing a DH ratchet step
// and/or in-chain skip as needed (spec.md §4.5 Receive). ok is false on
// any authentication failure; err is set for the too-many-skipped-messages
// case and for a failed DH or KDF step, each of which fails this message
// only.
func (r *State) Decrypt(ct []byte, nonce [24]byte, ephPub domain.X25519Public, counter, previousCounter uint32) (plaintext []byte, ok bool, err error) {
	s := r.s
	now := time.Now()

	// Skipped-key fast path.
	id := domain.SkippedKeyID{EphemeralPublic: ephPub, Counter: counter}
	if sk, found := s.Skipped[id]; found {
		delete(s.Skipped, id)
		key := [32]byte(sk.MessageKey)
		padded, opened := secretbox.Open(nil, ct, &nonce, &key)
		memzero.Zero(sk.MessageKey[:])
		if !opened {
			return nil, false, nil
		}
		pt, valid := padding.SecureUnpad(padded)
		return pt, valid, nil
	}

	// DH ratchet step.
	if s.PeerEphPublic == nil || !bytes.Equal(s.PeerEphPublic[:], ephPub[:]) {
		if s.RecvChainKey != nil {
			if err := r.skipToLocked(previousCounter, now); err != nil {
				return nil, false, err
			}
		}
		peerPub := ephPub
		s.PeerEphPublic = &peerPub

		dh, derr := crypto.DH(*s.MyEphPrivate, ephPub)
		if derr != nil {
			return nil, false, fmt.Errorf("ratchet: decrypt: DH: %w", derr)
		}
		newRoot, chainKey, derr := kdfRK(s.RootKey, dh)
		memzero.Zero(dh[:])
		if derr != nil {
			return nil, false, derr
		}
		memzero.Zero(s.RootKey[:])
		s.RootKey = newRoot
		s.RecvChainKey = &chainKey
		s.RecvCounter = 0
		s.NeedSendRatchet = true
	}

	// In-chain skip.
	if counter > s.RecvCounter {
		if err := r.skipToLocked(counter, now); err != nil {
			return nil, false, err
		}
	}

	msgKey, nextCK, derr := kdfCK(*s.RecvChainKey)
	if derr != nil {
		return nil, false, derr
	}
	memzero.Zero(s.RecvChainKey[:])
	s.RecvChainKey = &nextCK
	s.RecvCounter++

	key := [32]byte(msgKey)
	padded, opened := secretbox.Open(nil, ct, &nonce, &key)
	memzero.Zero(msgKey[:])
	if !opened {
		if padded != nil {
			memzero.Zero(padded)
		}
		r.sweepExpired(now)
		return nil, false, nil
	}

	pt, valid := padding.SecureUnpad(padded)
	r.sweepExpired(now)
	return pt, valid, nil
}

// skipToLocked advances the current receive chain up to (not including)
// target, caching each derived key as a skipped key for later
// out-of-order delivery.
func (r *State) skipToLocked(target uint32, now time.Time) error {
	s := r.s
	if s.RecvChainKey == nil {
		return nil
	}
	if target < s.RecvCounter {
		return nil
	}
	if target-s.RecvCounter > MaxSkip {
		return fmt.Errorf("ratchet: too many skipped messages (%d)", target-s.RecvCounter)
	}
	for s.RecvCounter < target {
		msgKey, nextCK, err := kdfCK(*s.RecvChainKey)
		if err != nil {
			return err
		}
		memzero.Zero(s.RecvChainKey[:])
		s.RecvChainKey = &nextCK

		id := domain.SkippedKeyID{EphemeralPublic: *s.PeerEphPublic, Counter: s.RecvCounter}
		s.Skipped[id] = domain.SkippedKey{MessageKey: msgKey, InsertedAt: now.UnixMilli()}
		s.RecvCounter++
	}
	return nil
}

// Destroy wipes every secret this ratchet holds: the root key, both
// chain keys, the current sending ephemeral private key, and every
// cached skipped message key. The State must not be used afterward
// (spec.md §3, §5).
func (r *State) Destroy() {
	s := r.s
	memzero.Zero(s.RootKey[:])
	if s.SendChainKey != nil {
		memzero.Zero(s.SendChainKey[:])
	}
	if s.RecvChainKey != nil {
		memzero.Zero(s.RecvChainKey[:])
	}
	if s.MyEphPrivate != nil {
		memzero.Zero(s.MyEphPrivate[:])
	}
	for id, sk := range s.Skipped {
		memzero.Zero(sk.MessageKey[:])
		delete(s.Skipped, id)
	}
}

// sweepExpired wipes and removes skipped keys older than SkippedKeyTTL.
func (r *State) sweepExpired(now time.Time) {
	cutoff := now.Add(-SkippedKeyTTL).UnixMilli()
	for id, sk := range r.s.Skipped {
		if sk.InsertedAt < cutoff {
			memzero.Zero(sk.MessageKey[:])
			delete(r.s.Skipped, id)
		}
	}
}
