// Package config reads CipherMesh's environment-driven settings:
// LOG_LEVEL, PORT, and TLS (spec.md §6).
package config
