package session

import (
	"encoding/base64"
	"fmt"
	"sync"

	"ciphermesh/internal/crypto"
	"ciphermesh/internal/domain"
	"ciphermesh/internal/nonce"
	"ciphermesh/internal/registry"
	"ciphermesh/internal/trust"
	"ciphermesh/internal/wire"
)

// Mode selects which of CipherMesh's three send paths a message takes.
type Mode int

const (
	// ModeRatchet is the default: forward-secret Double Ratchet delivery.
	// It requires the peer's ratchet to already be initialized.
	ModeRatchet Mode = iota
	// ModeStatic seals directly under both parties' long-term identity
	// keys (Static Box, C4) — used before a ratchet exists or when the
	// caller explicitly asks for it.
	ModeStatic
	// ModeDeniable seals under a key either party could have derived
	// alone, so neither can prove authorship of the ciphertext (C9).
	ModeDeniable
)

// Session is CipherMesh's runtime cryptographic state for one running
// client: its identity, its peers' handshake state, and trust pinning.
// It is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	nickname domain.Nickname
	identity *crypto.Identity
	nonces   *nonce.Manager
	registry *registry.Registry
	trust    *trust.Store

	localSessionID string
}

// New creates a Session for a fresh identity with no prior peers. Use
// Restore to rehydrate one from a loaded State Vault instead.
func New(nickname domain.Nickname, identity *crypto.Identity, trustStore *trust.Store) *Session {
	return &Session{
		nickname: nickname,
		identity: identity,
		nonces:   nonce.NewManager(),
		registry: registry.New(identity.Private()),
		trust:    trustStore,
	}
}

// Restore rebuilds a Session from a State Vault load: the identity is
// already reconstructed by the caller (crypto.FromPersisted), and every
// peer's ratchet and pinned keys are replayed into the registry.
func Restore(nickname domain.Nickname, identity *crypto.Identity, trustStore *trust.Store, state *domain.PersistedState) *Session {
	s := New(nickname, identity, trustStore)
	for peerID, pp := range state.Peers {
		s.registry.Restore(peerID, pp)
	}
	if state.LocalSessionID != "" {
		_ = s.SetLocalSessionID(state.LocalSessionID)
	}
	return s
}

// SetLocalSessionID records this client's own session identifier — a
// relay-assigned UUID in relay mode, or the local nickname in P2P mode —
// used to break the initiator/responder tie for any peer registered
// before or after this call (spec.md §4.5, §4.6).
func (s *Session) SetLocalSessionID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localSessionID = id
	return s.registry.SetLocalSessionID(id)
}

// Identity returns the underlying Identity Keypair Manager.
func (s *Session) Identity() *crypto.Identity { return s.identity }

// Greet checks an observed peer public key against the Trust Store,
// auto-pinning it on first sight, and registers the peer in the
// Handshake Registry so its ratchet can be bootstrapped (spec.md §4.6,
// §4.7). Callers must surface TrustMismatch/TrustVerifiedMismatch to the
// user before trusting further traffic from this peer.
func (s *Session) Greet(peerID string, peerNickname domain.Nickname, pub domain.X25519Public) (domain.TrustState, error) {
	state, err := s.trust.Check(peerNickname, pub)
	if err != nil {
		return state, err
	}
	if state == domain.TrustNewPeer {
		if err := s.trust.Record(peerNickname, pub); err != nil {
			return state, err
		}
	}
	if err := s.registry.RegisterPeer(peerID, pub); err != nil {
		return state, err
	}
	return state, nil
}

// HandleKeyUpdate applies a peer's in-channel identity rotation
// announcement, moving its old key to the grace-window fallback slot
// and preserving any existing SAS verification, since the announcement
// itself arrived authenticated over an already-trusted channel
// (spec.md §4.1, §4.6).
func (s *Session) HandleKeyUpdate(peerID string, peerNickname domain.Nickname, newPub domain.X25519Public) error {
	if err := s.registry.UpdatePeerKey(peerID, newPub); err != nil {
		return err
	}
	return s.trust.AutoUpdate(peerNickname, newPub)
}

// MigratePeer transfers a peer's handshake state to a new transport
// identifier, e.g. when a relay assigns a fresh session UUID to a
// reconnecting nickname.
func (s *Session) MigratePeer(oldPeerID, newPeerID string) error {
	return s.registry.MigrateRatchet(oldPeerID, newPeerID)
}

// SAS computes the Short Authentication String the local user and
// peerID's user should compare out of band to confirm neither public key
// was substituted by an active attacker (spec.md §4.7).
func (s *Session) SAS(peerID string) (string, error) {
	e, found := s.registry.Get(peerID)
	if !found {
		return "", fmt.Errorf("session: unknown peer %s", peerID)
	}
	return trust.SAS(s.identity.Public(), e.CurrentPublic), nil
}

// MarkVerified flags peerNickname's pinned key as SAS-verified.
func (s *Session) MarkVerified(peerNickname domain.Nickname) error {
	return s.trust.MarkVerified(peerNickname)
}

// RotateIdentity generates a fresh long-term keypair, keeping the old
// one alive for crypto.GraceWindow, and returns the new public key for
// the caller to announce to peers via a key_update frame.
func (s *Session) RotateIdentity() (domain.X25519Public, error) {
	if err := s.identity.Rotate(); err != nil {
		return domain.X25519Public{}, err
	}
	return s.identity.Public(), nil
}

// Send encrypts plaintext for peerID under mode and returns the wire
// Payload ready to embed in an encrypted_message frame.
func (s *Session) Send(peerID string, mode Mode, plaintext []byte) (wire.Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch mode {
	case ModeRatchet:
		return s.sendRatchet(peerID, plaintext)
	case ModeStatic:
		return s.sendStatic(peerID, plaintext)
	case ModeDeniable:
		return s.sendDeniable(peerID, plaintext)
	default:
		return wire.Payload{}, fmt.Errorf("session: unknown send mode %d", mode)
	}
}

func (s *Session) sendRatchet(peerID string, plaintext []byte) (wire.Payload, error) {
	e, found := s.registry.Get(peerID)
	if !found {
		return wire.Payload{}, fmt.Errorf("session: unknown peer %s", peerID)
	}
	if e.Ratchet == nil {
		return wire.Payload{}, fmt.Errorf("session: peer %s has no ratchet yet", peerID)
	}

	result, err := e.Ratchet.Encrypt(plaintext)
	if err != nil {
		return wire.Payload{}, fmt.Errorf("session: ratchet encrypt: %w", err)
	}

	counter := int64(result.Counter)
	previousCounter := int64(result.PreviousCounter)
	return wire.Payload{
		Ciphertext:         base64.StdEncoding.EncodeToString(result.Ciphertext),
		Nonce:              base64.StdEncoding.EncodeToString(result.Nonce[:]),
		EphemeralPublicKey: base64.StdEncoding.EncodeToString(result.EphemeralPublic[:]),
		Counter:            &counter,
		PreviousCounter:    &previousCounter,
	}, nil
}

func (s *Session) sendStatic(peerID string, plaintext []byte) (wire.Payload, error) {
	e, found := s.registry.Get(peerID)
	if !found {
		return wire.Payload{}, fmt.Errorf("session: unknown peer %s", peerID)
	}

	n, err := s.nonces.Generate()
	if err != nil {
		return wire.Payload{}, fmt.Errorf("session: generate nonce: %w", err)
	}
	ct, err := crypto.EncryptStatic(plaintext, n, e.CurrentPublic, s.identity.Private())
	if err != nil {
		return wire.Payload{}, fmt.Errorf("session: static encrypt: %w", err)
	}
	return wire.Payload{
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
		Nonce:      base64.StdEncoding.EncodeToString(n[:]),
	}, nil
}

func (s *Session) sendDeniable(peerID string, plaintext []byte) (wire.Payload, error) {
	e, found := s.registry.Get(peerID)
	if !found {
		return wire.Payload{}, fmt.Errorf("session: unknown peer %s", peerID)
	}

	n, err := s.nonces.Generate()
	if err != nil {
		return wire.Payload{}, fmt.Errorf("session: generate nonce: %w", err)
	}
	shared := crypto.PrecomputeDeniable(e.CurrentPublic, s.identity.Private())
	ct, err := crypto.EncryptDeniable(plaintext, n, shared)
	shared.Zero()
	if err != nil {
		return wire.Payload{}, fmt.Errorf("session: deniable encrypt: %w", err)
	}
	return wire.Payload{
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
		Nonce:      base64.StdEncoding.EncodeToString(n[:]),
		Deniable:   true,
	}, nil
}

// Receive opens an encrypted_message's payload from peerID, dispatching
// to the ratchet, deniable, or static path per payload shape (spec.md
// §4.10). Static and deniable deliveries are additionally checked
// against the Nonce Manager for replay; the ratchet path relies on its
// own chain counters instead.
func (s *Session) Receive(peerID string, payload wire.Payload) (plaintext []byte, dispatch wire.Dispatch, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ct, err := base64.StdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return nil, wire.DispatchNone, fmt.Errorf("session: decode ciphertext: %w", err)
	}
	nonceBytes, err := base64.StdEncoding.DecodeString(payload.Nonce)
	if err != nil || len(nonceBytes) != 24 {
		return nil, wire.DispatchNone, fmt.Errorf("session: decode nonce: %w", err)
	}
	var n [24]byte
	copy(n[:], nonceBytes)

	e, found := s.registry.Get(peerID)
	if !found {
		return nil, wire.DispatchNone, fmt.Errorf("session: unknown peer %s", peerID)
	}

	switch {
	case payload.EphemeralPublicKey != "":
		return s.receiveRatchet(e, ct, n, payload)
	case payload.Deniable:
		return s.receiveDeniable(e, ct, n, peerID)
	default:
		return s.receiveStatic(e, ct, n, peerID)
	}
}

func (s *Session) receiveRatchet(e *registry.Entry, ct []byte, n [24]byte, payload wire.Payload) ([]byte, wire.Dispatch, error) {
	if e.Ratchet == nil {
		return nil, wire.DispatchRatchet, fmt.Errorf("session: peer has no ratchet yet")
	}
	ephBytes, err := base64.StdEncoding.DecodeString(payload.EphemeralPublicKey)
	if err != nil || len(ephBytes) != 32 {
		return nil, wire.DispatchRatchet, fmt.Errorf("session: decode ephemeral public key: %w", err)
	}
	var ephPub domain.X25519Public
	copy(ephPub[:], ephBytes)

	if payload.Counter == nil || payload.PreviousCounter == nil {
		return nil, wire.DispatchRatchet, fmt.Errorf("session: ratchet payload missing counters")
	}

	pt, ok, err := e.Ratchet.Decrypt(ct, n, ephPub, uint32(*payload.Counter), uint32(*payload.PreviousCounter))
	if err != nil {
		return nil, wire.DispatchRatchet, fmt.Errorf("session: ratchet decrypt: %w", err)
	}
	if !ok {
		return nil, wire.DispatchRatchet, fmt.Errorf("session: ratchet authentication failed")
	}
	return pt, wire.DispatchRatchet, nil
}

func (s *Session) receiveDeniable(e *registry.Entry, ct []byte, n [24]byte, peerID string) ([]byte, wire.Dispatch, error) {
	if !s.nonces.Validate(peerID, n[:]) {
		return nil, wire.DispatchDeniable, fmt.Errorf("session: nonce rejected (stale or replayed)")
	}
	shared := crypto.PrecomputeDeniable(e.CurrentPublic, s.identity.Private())
	pt, ok := crypto.DecryptDeniable(ct, n, shared)
	shared.Zero()
	if !ok {
		return nil, wire.DispatchDeniable, fmt.Errorf("session: deniable authentication failed")
	}
	return pt, wire.DispatchDeniable, nil
}

func (s *Session) receiveStatic(e *registry.Entry, ct []byte, n [24]byte, peerID string) ([]byte, wire.Dispatch, error) {
	if !s.nonces.Validate(peerID, n[:]) {
		return nil, wire.DispatchStatic, fmt.Errorf("session: nonce rejected (stale or replayed)")
	}

	var prevSenderPub *domain.X25519Public
	if e.PreviousPublic != nil {
		prevSenderPub = e.PreviousPublic
	}
	var prevRecvSec *domain.X25519Private
	if priv, _, ok := s.identity.Previous(); ok {
		prevRecvSec = &priv
	}

	pt, ok := crypto.DecryptStaticWithFallback(ct, n, e.CurrentPublic, s.identity.Private(), prevSenderPub, prevRecvSec)
	if !ok {
		return nil, wire.DispatchStatic, fmt.Errorf("session: static box authentication failed")
	}
	return pt, wire.DispatchStatic, nil
}

// Export snapshots everything the State Vault needs to persist: the
// local identity, every peer's handshake state, and the local session
// identifier.
func (s *Session) Export() *domain.PersistedState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := domain.NewPersistedState()
	st.Identity = s.identity.Export()
	st.Peers = s.registry.Export()
	st.LocalSessionID = s.localSessionID
	return st
}

// Close wipes every secret the Session holds: the identity's current and
// previous keypairs and every peer's ratchet state. The Session must not
// be used afterward.
func (s *Session) Close() {
	s.identity.Destroy()
	s.registry.Close()
}
