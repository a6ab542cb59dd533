// Package nonce implements CipherMesh's Nonce Manager (C2): 24-byte
// nonces that embed a timestamp and a monotonic per-peer counter, with
// replay and clock-drift rejection on receive.
package nonce
