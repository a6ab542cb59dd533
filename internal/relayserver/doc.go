// Package relayserver implements CipherMesh's blind relay: a WebSocket
// star-topology server that forwards encrypted_message frames between
// nicknamed sessions without ever inspecting their payload. It enforces
// the wire protocol's structural invariants, per-session rate limits,
// and nickname uniqueness, and queues messages for briefly-offline
// recipients (spec.md §6).
package relayserver
