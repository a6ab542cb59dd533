// Package vault implements CipherMesh's State Vault (C8): the local
// identity keypair and Handshake Registry state, sealed at rest behind a
// passphrase-derived Argon2id key in a secretbox envelope
// (internal/domain.StateEnvelope), stored at the path given to Open
// (the CLI uses identity.vault in its home directory).
package vault
