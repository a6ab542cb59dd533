package padding

import (
	"crypto/rand"
	"fmt"

	"ciphermesh/internal/util/memzero"
)

// buckets are the length-hiding size classes a padded message rounds up
// to (spec.md §3).
var buckets = []int{128, 256, 512, 1024, 2048, 4096, 8192, 16384, 32768}

// headerLen is the 2-byte big-endian length prefix written ahead of the
// plaintext in every padded buffer.
const headerLen = 2

// Pad returns plaintext wrapped in a 2-byte length header and padded with
// random filler up to the smallest bucket size that fits it. If the
// header plus plaintext exceeds the largest bucket, the frame is sent
// unpadded at exactly that size instead (spec.md §3).
func Pad(plaintext []byte) ([]byte, error) {
	if len(plaintext) > 0xFFFF {
		return nil, fmt.Errorf("padding: plaintext too large to pad (%d bytes)", len(plaintext))
	}
	need := headerLen + len(plaintext)

	size := bucketFor(need)
	out := make([]byte, size)
	out[0] = byte(len(plaintext) >> 8)
	out[1] = byte(len(plaintext))
	copy(out[headerLen:], plaintext)
	if _, err := rand.Read(out[need:]); err != nil {
		return nil, fmt.Errorf("padding: fill random tail: %w", err)
	}
	return out, nil
}

// bucketFor returns the smallest configured bucket that fits need bytes,
// or need itself (no padding) if it exceeds the largest bucket.
func bucketFor(need int) int {
	for _, b := range buckets {
		if need <= b {
			return b
		}
	}
	return need
}

// Unpad reverses Pad. It returns ok=false if padded is shorter than the
// header or declares a length that would overrun the buffer.
func Unpad(padded []byte) (plaintext []byte, ok bool) {
	if len(padded) < headerLen {
		return nil, false
	}
	declared := int(padded[0])<<8 | int(padded[1])
	if headerLen+declared > len(padded) {
		return nil, false
	}
	return padded[headerLen : headerLen+declared], true
}

// SecureUnpad behaves like Unpad but copies the plaintext into a freshly
// allocated buffer and wipes the input buffer afterward, so the padded
// ciphertext scratch space does not retain a second copy of the plaintext.
func SecureUnpad(padded []byte) (plaintext []byte, ok bool) {
	pt, ok := Unpad(padded)
	if !ok {
		memzero.Zero(padded)
		return nil, false
	}
	out := make([]byte, len(pt))
	copy(out, pt)
	memzero.Zero(padded)
	return out, true
}
