package types

// StateEnvelope is the on-disk encrypted container for PersistedState
// (spec.md §3 "State Envelope"): an Argon2id-derived key protecting a
// secretbox-sealed blob.
type StateEnvelope struct {
	Salt       [16]byte `json:"salt"`
	Nonce      [24]byte `json:"nonce"`
	Ciphertext []byte   `json:"ciphertext"`
}

// PersistedIdentity is the serialized form of the local Identity Keypair
// Manager (C1), including the previous keypair during a rotation grace
// window.
type PersistedIdentity struct {
	CurrentPrivate X25519Private `json:"currentPrivate"`
	CurrentPublic  X25519Public  `json:"currentPublic"`

	PreviousPrivate *X25519Private `json:"previousPrivate,omitempty"`
	PreviousPublic  *X25519Public  `json:"previousPublic,omitempty"`

	RotatedAt int64 `json:"rotatedAt"` // unix millis, 0 if never rotated
}

// PersistedPeer is one Handshake Registry entry (C6): the peer's current
// (and, during a grace window, previous) static public key plus its
// Double Ratchet state, if a session has been established.
type PersistedPeer struct {
	CurrentPublic X25519Public `json:"currentPublic"`

	PreviousPublic *X25519Public `json:"previousPublic,omitempty"`
	KeyUpdatedAt   int64         `json:"keyUpdatedAt,omitempty"`

	Ratchet *RatchetState `json:"ratchet,omitempty"`
}

// PersistedState is the full plaintext sealed inside a StateEnvelope: the
// local identity, the handshake registry, and the local relay session id
// (spec.md §3, §4.6).
type PersistedState struct {
	Identity       PersistedIdentity        `json:"identity"`
	Peers          map[string]PersistedPeer `json:"peers"`
	LocalSessionID string                   `json:"localSessionId,omitempty"`
}

// NewPersistedState returns an empty state with its peer map initialized.
func NewPersistedState() *PersistedState {
	return &PersistedState{Peers: make(map[string]PersistedPeer)}
}
