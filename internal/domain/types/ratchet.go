package types

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// Key32 is a raw 32-byte secret (a root key, chain key, or message key)
// that serializes as base64, matching every other fixed-size key type in
// this package.
type Key32 [32]byte

// MarshalJSON renders the key as a base64 string.
func (k Key32) MarshalJSON() ([]byte, error) { return marshalKeyJSON(k[:]) }

// UnmarshalJSON parses a base64-string key.
func (k *Key32) UnmarshalJSON(b []byte) error { return unmarshalKeyJSON(b, k[:]) }

// RatchetHeader accompanies every ratchet-path ciphertext (spec.md §4.5).
type RatchetHeader struct {
	EphemeralPublic X25519Public
	Counter         uint32
	PreviousCounter uint32
}

// SkippedKeyID identifies one cached skipped message key: the sender
// ephemeral public it was derived under, plus the chain counter. It
// implements encoding.TextMarshaler so it can serialize as a JSON map key.
type SkippedKeyID struct {
	EphemeralPublic X25519Public
	Counter         uint32
}

// MarshalText renders the id as "<base64 ephemeral>:<counter>".
func (id SkippedKeyID) MarshalText() ([]byte, error) {
	s := base64.StdEncoding.EncodeToString(id.EphemeralPublic[:]) + ":" + strconv.FormatUint(uint64(id.Counter), 10)
	return []byte(s), nil
}

// UnmarshalText parses the id back from its MarshalText form.
func (id *SkippedKeyID) UnmarshalText(b []byte) error {
	parts := strings.SplitN(string(b), ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("domain: malformed skipped-key id %q", b)
	}
	raw, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(raw) != 32 {
		return fmt.Errorf("domain: malformed skipped-key ephemeral in %q", b)
	}
	counter, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return fmt.Errorf("domain: malformed skipped-key counter in %q", b)
	}
	copy(id.EphemeralPublic[:], raw)
	id.Counter = uint32(counter)
	return nil
}

// SkippedKey is one cached out-of-order message key with the wall-clock
// time (unix millis) it was derived, for the 60s expiry sweep.
type SkippedKey struct {
	MessageKey Key32 `json:"messageKey"`
	InsertedAt int64 `json:"insertedAt"`
}

// RatchetState is the full per-peer Double Ratchet state (spec.md §3).
//
// Every secret field here is expected to live for the lifetime of the
// owning registry entry and be wiped (not merely dropped) on teardown;
// wiping is the caller's (internal/ratchet's) responsibility, not this
// plain-data type's.
type RatchetState struct {
	RootKey Key32 `json:"rootKey"`

	SendChainKey *Key32 `json:"sendChainKey,omitempty"`
	RecvChainKey *Key32 `json:"recvChainKey,omitempty"`

	SendCounter       uint32 `json:"sendCounter"`
	RecvCounter       uint32 `json:"recvCounter"`
	PreviousSendCount uint32 `json:"previousSendCount"`

	MyEphPrivate  *X25519Private `json:"myEphPrivate,omitempty"`
	MyEphPublic   *X25519Public  `json:"myEphPublic,omitempty"`
	PeerEphPublic *X25519Public  `json:"peerEphPublic,omitempty"`

	Initialized     bool `json:"initialized"`
	NeedSendRatchet bool `json:"needSendRatchet"`

	Skipped map[SkippedKeyID]SkippedKey `json:"skipped"`
}

// NewRatchetState returns a zero-value state with its skipped-key cache
// initialized.
func NewRatchetState() *RatchetState {
	return &RatchetState{Skipped: make(map[SkippedKeyID]SkippedKey)}
}
