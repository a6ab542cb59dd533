package crypto

import (
	"fmt"
	"sync"
	"time"

	"ciphermesh/internal/domain"
	"ciphermesh/internal/util/memzero"
)

// GraceWindow is how long a rotated-out previous keypair stays usable by
// Static Box's fallback decrypt before being wiped (spec.md §4.1).
const GraceWindow = 30 * time.Second

// Identity is the local long-term X25519 keypair (C1), with the previous
// keypair kept alive for GraceWindow after a rotation so in-flight
// messages encrypted under it can still be opened.
type Identity struct {
	mu sync.Mutex

	currentPriv domain.X25519Private
	currentPub  domain.X25519Public

	previousPriv *domain.X25519Private
	previousPub  *domain.X25519Public
	rotatedAt    int64 // unix millis, 0 if never rotated

	graceTimer *time.Timer
}

// NewIdentity generates a fresh Identity. It fails only on RNG error.
func NewIdentity() (*Identity, error) {
	priv, pub, err := GenerateX25519()
	if err != nil {
		return nil, fmt.Errorf("identity: generate keypair: %w", err)
	}
	return &Identity{currentPriv: priv, currentPub: pub}, nil
}

// FromKeypair restores an Identity from a previously persisted keypair
// (used when loading the State Vault).
func FromKeypair(priv domain.X25519Private, pub domain.X25519Public) *Identity {
	return &Identity{currentPriv: priv, currentPub: pub}
}

// FromPersisted restores a full Identity, including a still-live previous
// keypair, from a State Vault load. If the previous keypair's grace
// window has already elapsed it is wiped immediately instead of being
// rescheduled for the remainder, since the elapsed wall-clock time is not
// itself persisted precisely enough to resume a partial timer.
func FromPersisted(p domain.PersistedIdentity) *Identity {
	id := &Identity{currentPriv: p.CurrentPrivate, currentPub: p.CurrentPublic, rotatedAt: p.RotatedAt}
	if p.PreviousPrivate != nil && p.PreviousPublic != nil {
		priv := *p.PreviousPrivate
		pub := *p.PreviousPublic
		if time.Since(time.UnixMilli(p.RotatedAt)) >= GraceWindow {
			memzero.Zero(priv[:])
			return id
		}
		id.previousPriv = &priv
		id.previousPub = &pub
		id.graceTimer = time.AfterFunc(GraceWindow, func() {
			id.mu.Lock()
			defer id.mu.Unlock()
			id.wipePreviousLocked()
		})
	}
	return id
}

// Export snapshots the Identity for the State Vault. It does not consume
// or wipe the live keypairs; Destroy is still required on teardown.
func (id *Identity) Export() domain.PersistedIdentity {
	id.mu.Lock()
	defer id.mu.Unlock()

	p := domain.PersistedIdentity{
		CurrentPrivate: id.currentPriv,
		CurrentPublic:  id.currentPub,
		RotatedAt:      id.rotatedAt,
	}
	if id.previousPriv != nil && id.previousPub != nil {
		priv := *id.previousPriv
		pub := *id.previousPub
		p.PreviousPrivate = &priv
		p.PreviousPublic = &pub
	}
	return p
}

// Public returns the current public key.
func (id *Identity) Public() domain.X25519Public {
	id.mu.Lock()
	defer id.mu.Unlock()
	return id.currentPub
}

// Private returns the current private key. Callers must not retain it
// beyond the scope of a single DH operation.
func (id *Identity) Private() domain.X25519Private {
	id.mu.Lock()
	defer id.mu.Unlock()
	return id.currentPriv
}

// Previous returns the previous keypair, if a rotation's grace window is
// still open, and whether one is available.
func (id *Identity) Previous() (priv domain.X25519Private, pub domain.X25519Public, ok bool) {
	id.mu.Lock()
	defer id.mu.Unlock()
	if id.previousPriv == nil || id.previousPub == nil {
		return priv, pub, false
	}
	return *id.previousPriv, *id.previousPub, true
}

// Fingerprint returns the display fingerprint of the current public key.
func (id *Identity) Fingerprint() string {
	pub := id.Public()
	return Fingerprint(pub[:])
}

// Rotate moves the current keypair to previous — wiping any existing
// previous immediately — generates a fresh current keypair, and schedules
// the previous keypair's wipe after GraceWindow.
func (id *Identity) Rotate() error {
	newPriv, newPub, err := GenerateX25519()
	if err != nil {
		return fmt.Errorf("identity: rotate: generate keypair: %w", err)
	}

	id.mu.Lock()
	defer id.mu.Unlock()

	id.wipePreviousLocked()

	oldPriv := id.currentPriv
	oldPub := id.currentPub
	id.previousPriv = &oldPriv
	id.previousPub = &oldPub

	id.currentPriv = newPriv
	id.currentPub = newPub
	id.rotatedAt = time.Now().UnixMilli()

	id.graceTimer = time.AfterFunc(GraceWindow, func() {
		id.mu.Lock()
		defer id.mu.Unlock()
		id.wipePreviousLocked()
	})

	return nil
}

// wipePreviousLocked zeroes and clears the previous keypair, if any, and
// stops any pending grace timer. Callers must hold id.mu.
func (id *Identity) wipePreviousLocked() {
	if id.graceTimer != nil {
		id.graceTimer.Stop()
		id.graceTimer = nil
	}
	if id.previousPriv != nil {
		memzero.Zero(id.previousPriv[:])
		id.previousPriv = nil
	}
	id.previousPub = nil
}

// Destroy wipes both the current and any previous secret key material.
// The Identity must not be used afterward.
func (id *Identity) Destroy() {
	id.mu.Lock()
	defer id.mu.Unlock()
	id.wipePreviousLocked()
	memzero.Zero(id.currentPriv[:])
}
