// Package wire defines CipherMesh's on-the-wire JSON envelope (spec.md
// §6) and implements the Wire Validator (C10): structural and type
// validation of a received frame before it reaches the session layer,
// independent of whether its payload can actually be decrypted.
package wire
