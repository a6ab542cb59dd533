package trust

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"ciphermesh/internal/crypto"
	"ciphermesh/internal/domain"
)

func fingerprintOf(pub domain.X25519Public) string {
	return crypto.Fingerprint(pub[:])
}

// sasDomain is mixed into the SAS hash so it can never collide with a
// BLAKE2b-256 computed for an unrelated purpose elsewhere in CipherMesh.
const sasDomain = "CipherMesh-SAS-v1"

// SAS derives the 6-digit Short Authentication String both ends of a
// conversation compute and compare out of band to confirm neither key was
// substituted by an active attacker (spec.md §4.7).
func SAS(myPublic, peerPublic domain.X25519Public) string {
	first, second := myPublic[:], peerPublic[:]
	if bytes.Compare(first, second) > 0 {
		first, second = second, first
	}

	h := blake2b.Sum256(append(append(append([]byte{}, first...), second...), sasDomain...))
	n := (uint32(h[0])<<16 | uint32(h[1])<<8 | uint32(h[2])) % 1_000_000
	return fmt.Sprintf("%06d", n)
}
