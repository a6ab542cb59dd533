package app

import (
	"fmt"
	"os"
	"path/filepath"

	"ciphermesh/internal/crypto"
	"ciphermesh/internal/domain"
	"ciphermesh/internal/session"
	"ciphermesh/internal/trust"
	"ciphermesh/internal/vault"
)

// Wire bundles CipherMesh's file-backed stores for the CLI: the Trust
// Store and the State Vault. Both are opened eagerly; the Session
// itself is opened lazily, once a command supplies a passphrase.
type Wire struct {
	Config Config

	Trust *trust.Store
	Vault *vault.Vault
}

// NewWire ensures cfg.HomeDir exists and opens the Trust Store and
// State Vault within it.
func NewWire(cfg Config) (*Wire, error) {
	if err := os.MkdirAll(cfg.HomeDir, 0o700); err != nil {
		return nil, fmt.Errorf("app: create home dir: %w", err)
	}

	trustStore, err := trust.Open(filepath.Join(cfg.HomeDir, "trust.json"))
	if err != nil {
		return nil, fmt.Errorf("app: open trust store: %w", err)
	}
	vlt := vault.Open(filepath.Join(cfg.HomeDir, "identity.vault"))

	return &Wire{Config: cfg, Trust: trustStore, Vault: vlt}, nil
}

// NewIdentity creates a fresh Session backed by a brand-new identity,
// for `init` with no existing vault.
func (w *Wire) NewIdentity(nickname domain.Nickname) (*session.Session, error) {
	id, err := crypto.NewIdentity()
	if err != nil {
		return nil, err
	}
	return session.New(nickname, id, w.Trust), nil
}

// OpenSession unlocks the State Vault with passphrase and rebuilds a
// Session from the persisted identity and peer state. ok is false if no
// vault exists yet or the passphrase is wrong — the two are
// indistinguishable by design (spec.md §4.8).
func (w *Wire) OpenSession(nickname domain.Nickname, passphrase []byte) (sess *session.Session, ok bool, err error) {
	state, ok, err := w.Vault.Load(passphrase)
	if err != nil {
		return nil, false, fmt.Errorf("app: load vault: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	id := crypto.FromPersisted(state.Identity)
	return session.Restore(nickname, id, w.Trust, state), true, nil
}

// SaveSession seals sess's current state into the vault under
// passphrase.
func (w *Wire) SaveSession(sess *session.Session, passphrase []byte) error {
	if err := w.Vault.Save(sess.Export(), passphrase); err != nil {
		return fmt.Errorf("app: save vault: %w", err)
	}
	return nil
}
