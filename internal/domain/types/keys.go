package types

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// MarshalJSON renders the key as a base64 string.
func (p X25519Public) MarshalJSON() ([]byte, error) { return marshalKeyJSON(p[:]) }

// UnmarshalJSON parses a base64-string key.
func (p *X25519Public) UnmarshalJSON(b []byte) error { return unmarshalKeyJSON(b, p[:]) }

// X25519Private is a Curve25519 private (scalar) key.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// MarshalJSON renders the key as a base64 string.
func (k X25519Private) MarshalJSON() ([]byte, error) { return marshalKeyJSON(k[:]) }

// UnmarshalJSON parses a base64-string key.
func (k *X25519Private) UnmarshalJSON(b []byte) error { return unmarshalKeyJSON(b, k[:]) }

// marshalKeyJSON renders raw bytes as a base64 JSON string, the shared
// encoding every fixed-size secret/key type in this package uses.
func marshalKeyJSON(raw []byte) ([]byte, error) {
	return json.Marshal(base64.StdEncoding.EncodeToString(raw))
}

// unmarshalKeyJSON decodes a base64 JSON string into dst, which must
// already be sized to the expected key length.
func unmarshalKeyJSON(b []byte, dst []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("domain: decode base64 key: %w", err)
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("domain: key length mismatch: want %d, got %d", len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}

// MustX25519Public builds an X25519Public from a byte slice, panicking if
// the length is wrong. Used at deserialization boundaries where the length
// is already validated.
func MustX25519Public(b []byte) X25519Public {
	if len(b) != 32 {
		panic(fmt.Errorf("domain: X25519 public key: want 32 bytes, got %d", len(b)))
	}
	var out X25519Public
	copy(out[:], b)
	return out
}

// MustX25519Private builds an X25519Private from a byte slice, panicking if
// the length is wrong.
func MustX25519Private(b []byte) X25519Private {
	if len(b) != 32 {
		panic(fmt.Errorf("domain: X25519 private key: want 32 bytes, got %d", len(b)))
	}
	var out X25519Private
	copy(out[:], b)
	return out
}
