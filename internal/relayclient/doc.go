// Package relayclient is CipherMesh's WebSocket client for the blind
// relay (internal/relayserver): it dials, sends join/encrypted_message/
// control frames, and delivers incoming frames to the session layer over
// a channel (spec.md §6).
package relayclient
