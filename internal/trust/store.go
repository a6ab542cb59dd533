package trust

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"ciphermesh/internal/domain"
	"ciphermesh/internal/store"
)

// FileMode is the permission new trust-store files are created with.
// The store holds no secrets, only public keys, but is still kept
// user-private.
const FileMode = 0o600

// Store is the persisted Trust Store: nickname (lowercased) → PeerRecord.
type Store struct {
	mu      sync.Mutex
	path    string
	records map[string]domain.PeerRecord
}

// Open loads the trust store at path, creating an empty one in memory if
// the file does not yet exist.
func Open(path string) (*Store, error) {
	records := make(map[string]domain.PeerRecord)
	if err := store.ReadJSON(path, &records); err != nil {
		return nil, fmt.Errorf("trust: load %s: %w", path, err)
	}
	return &Store{path: path, records: records}, nil
}

func (s *Store) saveLocked() error {
	return store.WriteJSON(s.path, s.records, FileMode)
}

// Check compares an observed public key against the pinned record for
// nickname, returning the resulting trust state (spec.md §4.7). A
// Trusted verdict updates lastSeen.
func (s *Store) Check(nickname domain.Nickname, public domain.X25519Public) (domain.TrustState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, found := s.records[nickname.Lower()]
	if !found {
		return domain.TrustNewPeer, nil
	}
	if bytes.Equal(rec.PublicKey[:], public[:]) {
		rec.LastSeen = time.Now().UnixMilli()
		s.records[nickname.Lower()] = rec
		if err := s.saveLocked(); err != nil {
			return domain.TrustTrusted, err
		}
		return domain.TrustTrusted, nil
	}
	if rec.Verified {
		return domain.TrustVerifiedMismatch, nil
	}
	return domain.TrustMismatch, nil
}

// Record pins a new, unverified record for nickname — called the first
// time a peer's key is observed (TrustNewPeer).
func (s *Store) Record(nickname domain.Nickname, public domain.X25519Public) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	s.records[nickname.Lower()] = domain.PeerRecord{
		Fingerprint: fingerprintOf(public),
		PublicKey:   public,
		FirstSeen:   now,
		LastSeen:    now,
		Verified:    false,
	}
	return s.saveLocked()
}

// Update replaces the pinned key after explicit user acceptance of a
// mismatch, clearing any prior verification.
func (s *Store) Update(nickname domain.Nickname, public domain.X25519Public) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	existing, found := s.records[nickname.Lower()]
	firstSeen := now
	if found {
		firstSeen = existing.FirstSeen
	}
	s.records[nickname.Lower()] = domain.PeerRecord{
		Fingerprint: fingerprintOf(public),
		PublicKey:   public,
		FirstSeen:   firstSeen,
		LastSeen:    now,
		Verified:    false,
	}
	return s.saveLocked()
}

// AutoUpdate replaces the pinned key following an authenticated
// in-channel rotation (the new key arrived over a ratchet already
// trusted under the old one) — it preserves the verified flag.
func (s *Store) AutoUpdate(nickname domain.Nickname, public domain.X25519Public) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	existing, found := s.records[nickname.Lower()]
	firstSeen := now
	verified := false
	if found {
		firstSeen = existing.FirstSeen
		verified = existing.Verified
	}
	s.records[nickname.Lower()] = domain.PeerRecord{
		Fingerprint: fingerprintOf(public),
		PublicKey:   public,
		FirstSeen:   firstSeen,
		LastSeen:    now,
		Verified:    verified,
	}
	return s.saveLocked()
}

// MarkVerified flags nickname's current record as SAS-verified.
func (s *Store) MarkVerified(nickname domain.Nickname) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, found := s.records[nickname.Lower()]
	if !found {
		return fmt.Errorf("trust: no record for %q", nickname)
	}
	rec.Verified = true
	s.records[nickname.Lower()] = rec
	return s.saveLocked()
}

// Get returns the current record for nickname, if any.
func (s *Store) Get(nickname domain.Nickname) (domain.PeerRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, found := s.records[nickname.Lower()]
	return rec, found
}

// List returns a snapshot of all records, keyed by lowercase nickname.
func (s *Store) List() map[string]domain.PeerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]domain.PeerRecord, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out
}
