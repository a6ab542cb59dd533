package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint returns the display fingerprint of a public key: the
// uppercase hex of the first 8 bytes of SHA-256(pub), grouped into four
// hyphenless "XXXX:" quartets for SAS-style comparison over voice or
// text (spec.md §4.7).
func Fingerprint(pub []byte) string {
	sum := sha256.Sum256(pub)
	hexStr := strings.ToUpper(hex.EncodeToString(sum[:8]))

	var groups [4]string
	for i := 0; i < 4; i++ {
		groups[i] = hexStr[i*4 : i*4+4]
	}
	return strings.Join(groups[:], ":")
}
