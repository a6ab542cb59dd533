// Package session wires CipherMesh's cryptographic components (identity,
// nonces, the Double Ratchet registry, trust pinning, the deniable
// channel) into a single per-run value, transport-agnostic over relay
// and P2P delivery (spec.md §4, §9). It owns every piece of secret
// state the process holds and is responsible for wiping all of it on
// every exit path, including error returns and process shutdown.
package session
