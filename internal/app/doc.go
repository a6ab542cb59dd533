// Package app wires CipherMesh's CLI dependencies: the Trust Store, the
// State Vault, and the Session they back, exposed via the Wire struct
// for cmd/ciphermesh's commands to use.
package app
