// Package padding implements CipherMesh's length-hiding Padding Codec
// (C3): plaintexts are padded up to a bucket boundary before encryption
// so ciphertext length leaks less about message content.
package padding
