// Package p2p is CipherMesh's direct peer-to-peer transport: the same
// WebSocket wire framing as internal/relayserver/internal/relayclient,
// minus the hub, so two nodes discovered via internal/discovery can
// exchange envelopes without a relay in the middle (spec.md §1, §6).
package p2p
