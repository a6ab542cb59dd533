package nonce

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
	"time"
)

// Size is the fixed nonce length CipherMesh uses everywhere: an 8-byte
// millisecond timestamp, a 4-byte monotonic counter, and 12 bytes of
// CSPRNG filler (spec.md §3).
const Size = 24

// MaxDrift bounds how far a nonce's embedded timestamp may lag or lead the
// local clock before it is rejected as stale (spec.md §4.2).
const MaxDrift = 30 * time.Second

// Manager tracks the highest accepted counter per peer so replayed or
// out-of-order nonces can be rejected. The zero value is ready to use.
type Manager struct {
	mu          sync.Mutex
	lastCounter map[string]uint32
	nextCounter uint32
}

// NewManager returns a ready Manager.
func NewManager() *Manager {
	return &Manager{lastCounter: make(map[string]uint32)}
}

// Generate produces a fresh 24-byte nonce: the current millisecond
// timestamp, this manager's next monotonic counter (wrapping mod 2^32),
// and random filler.
func (m *Manager) Generate() ([Size]byte, error) {
	var n [Size]byte

	m.mu.Lock()
	m.nextCounter++
	counter := m.nextCounter
	m.mu.Unlock()

	binary.BigEndian.PutUint64(n[0:8], uint64(time.Now().UnixMilli()))
	binary.BigEndian.PutUint32(n[8:12], counter)
	if _, err := rand.Read(n[12:24]); err != nil {
		return n, fmt.Errorf("nonce: generate filler: %w", err)
	}
	return n, nil
}

// Validate reports whether a nonce received from peer should be accepted:
// its timestamp must be within MaxDrift of now, and its counter must
// strictly exceed the last counter accepted from that peer. On acceptance
// the peer's last-counter is advanced.
func (m *Manager) Validate(peer string, n []byte) bool {
	if len(n) != Size {
		return false
	}
	ts := int64(binary.BigEndian.Uint64(n[0:8]))
	counter := binary.BigEndian.Uint32(n[8:12])

	drift := time.Since(time.UnixMilli(ts))
	if drift < 0 {
		drift = -drift
	}
	if drift > MaxDrift {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if counter <= m.lastCounter[peer] {
		return false
	}
	if m.lastCounter == nil {
		m.lastCounter = make(map[string]uint32)
	}
	m.lastCounter[peer] = counter
	return true
}

// RemovePeer clears a peer's tracked counter, e.g. on trust reset or
// session teardown.
func (m *Manager) RemovePeer(peer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lastCounter, peer)
}
