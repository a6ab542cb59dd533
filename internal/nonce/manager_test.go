package nonce

import "testing"

func TestGenerateLength(t *testing.T) {
	m := NewManager()
	n, err := m.Generate()
	if err != nil {
		t.Fatal(err)
	}
	if len(n) != Size {
		t.Fatalf("expected %d bytes, got %d", Size, len(n))
	}
}

func TestValidateAcceptsIncreasingCounters(t *testing.T) {
	m := NewManager()
	n1, _ := m.Generate()
	n2, _ := m.Generate()

	if !m.Validate("alice", n1[:]) {
		t.Fatal("expected first nonce to be accepted")
	}
	if !m.Validate("alice", n2[:]) {
		t.Fatal("expected second, higher-counter nonce to be accepted")
	}
}

func TestValidateRejectsReplay(t *testing.T) {
	m := NewManager()
	n, _ := m.Generate()

	if !m.Validate("alice", n[:]) {
		t.Fatal("expected first acceptance")
	}
	if m.Validate("alice", n[:]) {
		t.Fatal("expected replay to be rejected")
	}
}

func TestValidateRejectsMalformedLength(t *testing.T) {
	m := NewManager()
	if m.Validate("alice", []byte{1, 2, 3}) {
		t.Fatal("expected malformed-length nonce to be rejected")
	}
}

func TestValidateRejectsStaleTimestamp(t *testing.T) {
	m := NewManager()
	var n [Size]byte
	n[7] = 0x01 // timestamp of 1ms since epoch (1970), far outside the drift window
	if m.Validate("alice", n[:]) {
		t.Fatal("expected stale timestamp to be rejected")
	}
}

func TestRemovePeerClearsCounter(t *testing.T) {
	m := NewManager()
	n, _ := m.Generate()
	m.Validate("alice", n[:])
	m.RemovePeer("alice")

	if !m.Validate("alice", n[:]) {
		t.Fatal("expected replay to succeed again after RemovePeer")
	}
}
