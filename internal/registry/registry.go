package registry

import (
	"fmt"
	"sync"
	"time"

	"ciphermesh/internal/domain"
	"ciphermesh/internal/ratchet"
	"ciphermesh/internal/util/memzero"
)

// GraceWindow is how long a superseded peer public key stays available
// for Static Box fallback decryption before being wiped (spec.md §4.6).
const GraceWindow = 30 * time.Second

// Entry is one peer's live handshake state: its static public key(s)
// and, once both ends' session identifiers are known, its ratchet.
type Entry struct {
	CurrentPublic domain.X25519Public

	PreviousPublic *domain.X25519Public
	previousTimer  *time.Timer

	Ratchet *ratchet.State
}

// Registry is the runtime Handshake Registry (C6), owned by exactly one
// local session.
type Registry struct {
	mu sync.Mutex

	myStaticSec domain.X25519Private

	localSessionID string
	havingSession  bool

	peers   map[string]*Entry
	pending map[string]domain.X25519Public // peers registered before localSessionID was known
}

// New returns an empty Registry bound to the local identity's static
// secret, used to bootstrap each peer's ratchet.
func New(myStaticSec domain.X25519Private) *Registry {
	return &Registry{
		myStaticSec: myStaticSec,
		peers:       make(map[string]*Entry),
		pending:     make(map[string]domain.X25519Public),
	}
}

// SetLocalSessionID records this client's own session identifier (a
// relay-assigned UUID, or the local nickname in P2P mode) and lazily
// initializes ratchets for any peer registered before it was known
// (spec.md §4.6).
func (r *Registry) SetLocalSessionID(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.localSessionID = id
	r.havingSession = true

	for peerID, pub := range r.pending {
		if err := r.initRatchetLocked(peerID, pub); err != nil {
			return err
		}
		delete(r.pending, peerID)
	}
	return nil
}

// RegisterPeer records a peer's static public key, creating its ratchet
// immediately if the local session id is already known, or deferring
// ratchet creation until SetLocalSessionID otherwise.
func (r *Registry) RegisterPeer(peerID string, pub domain.X25519Public) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, found := r.peers[peerID]; found {
		e.CurrentPublic = pub
		return nil
	}

	r.peers[peerID] = &Entry{CurrentPublic: pub}

	if !r.havingSession {
		r.pending[peerID] = pub
		return nil
	}
	return r.initRatchetLocked(peerID, pub)
}

// initRatchetLocked creates peerID's ratchet using the byte-lexicographic
// session-id tie-break (spec.md §4.5). Callers hold r.mu.
func (r *Registry) initRatchetLocked(peerID string, pub domain.X25519Public) error {
	initiator := r.localSessionID < peerID
	s, err := ratchet.Init(r.myStaticSec, pub, initiator)
	if err != nil {
		return fmt.Errorf("registry: init ratchet for %s: %w", peerID, err)
	}
	r.peers[peerID].Ratchet = s
	return nil
}

// UpdatePeerKey moves peerID's current public key to its previous slot
// — clearing any prior previous-key timer — and starts a GraceWindow
// wipe timer, then installs newPub as current.
func (r *Registry) UpdatePeerKey(peerID string, newPub domain.X25519Public) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, found := r.peers[peerID]
	if !found {
		return fmt.Errorf("registry: unknown peer %s", peerID)
	}

	if e.previousTimer != nil {
		e.previousTimer.Stop()
	}
	old := e.CurrentPublic
	e.PreviousPublic = &old
	e.CurrentPublic = newPub

	e.previousTimer = time.AfterFunc(GraceWindow, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if cur, ok := r.peers[peerID]; ok && cur == e {
			e.PreviousPublic = nil
		}
	})
	return nil
}

// MigrateRatchet transfers an entry from oldPeerID to newPeerID, for when
// a relay assigns a fresh session UUID to a reconnecting nickname.
func (r *Registry) MigrateRatchet(oldPeerID, newPeerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, found := r.peers[oldPeerID]
	if !found {
		return fmt.Errorf("registry: unknown peer %s", oldPeerID)
	}
	delete(r.peers, oldPeerID)
	r.peers[newPeerID] = e
	return nil
}

// Restore rehydrates peerID from a State Vault load, reconstructing its
// ratchet from persisted state rather than bootstrapping a fresh one.
func (r *Registry) Restore(peerID string, pp domain.PersistedPeer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := &Entry{CurrentPublic: pp.CurrentPublic, PreviousPublic: pp.PreviousPublic}
	if pp.Ratchet != nil {
		e.Ratchet = ratchet.New(pp.Ratchet)
	}
	r.peers[peerID] = e
	if pp.PreviousPublic != nil {
		e.previousTimer = time.AfterFunc(GraceWindow, func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if cur, ok := r.peers[peerID]; ok && cur == e {
				e.PreviousPublic = nil
			}
		})
	}
}

// Get returns peerID's entry, if registered.
func (r *Registry) Get(peerID string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, found := r.peers[peerID]
	return e, found
}

// Export returns a snapshot of persisted peer state for the State Vault.
func (r *Registry) Export() map[string]domain.PersistedPeer {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]domain.PersistedPeer, len(r.peers))
	for id, e := range r.peers {
		pp := domain.PersistedPeer{CurrentPublic: e.CurrentPublic, PreviousPublic: e.PreviousPublic}
		if e.Ratchet != nil {
			pp.Ratchet = e.Ratchet.Export()
		}
		out[id] = pp
	}
	return out
}

// Close wipes every peer's previous-key timer and ratchet secret state.
// The Registry must not be used afterward.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	memzero.Zero(r.myStaticSec[:])
	for _, e := range r.peers {
		if e.previousTimer != nil {
			e.previousTimer.Stop()
		}
		if e.Ratchet != nil {
			e.Ratchet.Destroy()
		}
	}
}
