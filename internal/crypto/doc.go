// Package crypto holds CipherMesh's identity and channel primitives: the
// rotating X25519 Identity Keypair Manager (C1), the NaCl box-based Static
// Channel (C4), and the precomputed-key Deniable Channel (C9). Nonce
// management and padding live in separate packages (internal/nonce,
// internal/padding); the Double Ratchet lives in internal/ratchet.
//
// # Notes
//
// Keys are the fixed-size array types defined in internal/domain;
// ciphertexts and plaintexts are byte slices. Callers should treat returned
// secrets as sensitive and wipe them once done: Identity.Destroy and
// DeniableKey.Zero for the types here, memzero.Zero for raw key bytes.
package crypto
