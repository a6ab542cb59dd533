package vault

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"

	"ciphermesh/internal/domain"
	"ciphermesh/internal/store"
	"ciphermesh/internal/util/memzero"
)

// FileMode is the permission new vault files are created with.
const FileMode = 0o600

// Argon2id parameters matching libsodium's crypto_pwhash "interactive"
// tuning: 2 passes, 64 MiB, single-threaded.
const (
	argonTime    = 2
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 1
	kekLen       = 32
)

// Vault reads and writes the encrypted state file at path.
type Vault struct {
	path string
}

// Open returns a Vault bound to path. It does not read or create the
// file; use Load/Save for that.
func Open(path string) *Vault {
	return &Vault{path: path}
}

// Exists reports whether a vault file is already present at path.
func (v *Vault) Exists() bool {
	_, err := os.Stat(v.path)
	return err == nil
}

// DeriveKEK derives a 32-byte key-encryption-key from passphrase via
// Argon2id. If salt is nil, a fresh 16-byte salt is generated. The
// returned key lives in a plain Go slice — callers must Zero it when
// done (spec.md §4.8).
func DeriveKEK(passphrase []byte, salt []byte) (kek []byte, usedSalt []byte, err error) {
	if salt == nil {
		salt = make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, fmt.Errorf("vault: generate salt: %w", err)
		}
	}
	kek = argon2.IDKey(passphrase, salt, argonTime, argonMemory, argonThreads, kekLen)
	return kek, salt, nil
}

// Save seals data under a key derived from passphrase and atomically
// writes the envelope to the vault's path.
func (v *Vault) Save(data *domain.PersistedState, passphrase []byte) error {
	plaintext, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("vault: marshal state: %w", err)
	}
	defer memzero.Zero(plaintext)

	kek, salt, err := DeriveKEK(passphrase, nil)
	if err != nil {
		return err
	}
	defer memzero.Zero(kek)

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("vault: generate nonce: %w", err)
	}

	var key [32]byte
	copy(key[:], kek)
	ct := secretbox.Seal(nil, plaintext, &nonce, &key)
	memzero.Zero(key[:])

	env := domain.StateEnvelope{Nonce: nonce, Ciphertext: ct}
	copy(env.Salt[:], salt)

	return store.WriteJSON(v.path, env, FileMode)
}

// Load opens the vault with passphrase, returning the decrypted state.
// ok is false for a wrong passphrase, a corrupt envelope, or a missing
// file — all three look identical to the caller, so a bad guess cannot
// be distinguished from "no vault yet".
func (v *Vault) Load(passphrase []byte) (data *domain.PersistedState, ok bool, err error) {
	var env domain.StateEnvelope
	raw, err := store.ReadFile(v.path)
	if err != nil {
		return nil, false, fmt.Errorf("vault: read %s: %w", v.path, err)
	}
	if raw == nil {
		return nil, false, nil
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false, nil
	}

	kek, _, err := DeriveKEK(passphrase, env.Salt[:])
	if err != nil {
		return nil, false, err
	}
	defer memzero.Zero(kek)

	var key [32]byte
	copy(key[:], kek)
	plaintext, opened := secretbox.Open(nil, env.Ciphertext, &env.Nonce, &key)
	memzero.Zero(key[:])
	if !opened {
		return nil, false, nil
	}
	defer memzero.Zero(plaintext)

	var state domain.PersistedState
	if err := json.Unmarshal(plaintext, &state); err != nil {
		return nil, false, nil
	}
	return &state, true, nil
}

// Clear overwrites the vault file with zeros before unlinking it, so a
// forensic read of freed disk blocks does not recover the envelope.
func (v *Vault) Clear() error {
	info, err := os.Stat(v.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("vault: stat %s: %w", v.path, err)
	}

	zeros := make([]byte, info.Size())
	if err := os.WriteFile(v.path, zeros, FileMode); err != nil {
		return fmt.Errorf("vault: zero %s: %w", v.path, err)
	}
	return os.Remove(v.path)
}
