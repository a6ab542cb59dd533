// Package store provides the atomic, file-based JSON persistence CipherMesh
// builds its Trust Store (internal/trust) and State Vault (internal/vault)
// on: writes go to a temp file in the target directory and are renamed into
// place, so a crash mid-write never leaves a torn file behind.
package store
