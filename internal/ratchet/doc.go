// Package ratchet implements CipherMesh's Double Ratchet (C5): a root key
// advanced by DH ratchet steps, and per-direction symmetric chains
// advanced by a message-key KDF, giving forward secrecy and bounded
// post-compromise recovery for out-of-order delivery.
//
// Unlike Signal's, CipherMesh's KDFs use keyed BLAKE2b rather than
// HKDF/SHA-256, and the bootstrap DH uses the two parties' static
// identity keys rather than a signed prekey bundle — see Init.
//
// Concurrency: State is not safe for concurrent use. Callers must
// serialize access per peer; the owning internal/session.Session already
// does this.
package ratchet
