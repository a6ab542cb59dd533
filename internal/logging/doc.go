// Package logging configures CipherMesh's structured logger, a thin
// wrapper over log/slog matching the level names of the LOG_LEVEL
// environment variable (spec.md §6).
package logging
