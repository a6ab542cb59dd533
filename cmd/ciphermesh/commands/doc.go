// Package commands implements the ciphermesh CLI's command hierarchy:
// identity lifecycle, trust management, and the relay/P2P chat loops
// (spec.md §6).
package commands
