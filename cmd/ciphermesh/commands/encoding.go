package commands

import (
	"encoding/base64"

	"ciphermesh/internal/domain"
)

func base64PublicKey(pub domain.X25519Public) string {
	return base64.StdEncoding.EncodeToString(pub[:])
}
