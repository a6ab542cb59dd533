// Package registry implements CipherMesh's Handshake Registry (C6): the
// live, in-memory map from peer identifier to that peer's current (and,
// during a grace window, previous) static public key and its Double
// Ratchet. Persistence of this state lives in internal/vault; this
// package is the runtime structure the session layer mutates.
package registry
