// Package domain defines the plain data models shared across CipherMesh's
// core packages: key types and persisted records. Wire envelopes are
// defined in internal/wire.
//
// It deliberately holds no behavior — encryption and storage live in the
// packages that consume these types (internal/crypto, internal/ratchet,
// internal/trust, internal/vault).
package domain
