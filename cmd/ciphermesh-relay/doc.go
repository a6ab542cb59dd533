// Command ciphermesh-relay runs CipherMesh's blind relay: a WebSocket
// rendezvous that forwards already-encrypted frames between sessions on
// a nickname and never sees plaintext or private keys (spec.md §6).
//
// Flags
//
//	--port, -p    listen port (default 3600, or $PORT)
//	--log-level   debug, info, warn, error, silent (default info, or $LOG_LEVEL)
//
// The relay serves plain HTTP/WebSocket only. It has no --tls flag, and
// the TLS environment variable, though parsed by internal/config, has no
// effect on it.
//
// The relay holds no state across restarts: rosters, rooms and the
// offline-message queue are all in memory only.
package main
