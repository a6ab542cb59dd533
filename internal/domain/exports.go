package domain

import types "ciphermesh/internal/domain/types"

// Type aliases expose domain types from the types subpackage for compact
// imports elsewhere in the module.
type (
	X25519Public  = types.X25519Public
	X25519Private = types.X25519Private

	PeerRecord = types.PeerRecord
	TrustState = types.TrustState

	RatchetHeader = types.RatchetHeader
	RatchetState  = types.RatchetState
	SkippedKey    = types.SkippedKey

	StateEnvelope     = types.StateEnvelope
	PersistedState    = types.PersistedState
	PersistedIdentity = types.PersistedIdentity
	PersistedPeer     = types.PersistedPeer

	Nickname = types.Nickname
)

// Re-exported TrustState values.
const (
	TrustNewPeer          = types.TrustNewPeer
	TrustTrusted          = types.TrustTrusted
	TrustMismatch         = types.TrustMismatch
	TrustVerifiedMismatch = types.TrustVerifiedMismatch
)

// NewPersistedState returns an empty PersistedState ready to populate.
func NewPersistedState() *PersistedState { return types.NewPersistedState() }
