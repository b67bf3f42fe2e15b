package tracking

import (
	"crypto/rand"
	"encoding/hex"
)

// GeneratePixelToken returns a cryptographically random 64-character hex token
// (32 bytes of entropy). The token is the only externally-exposed identifier
// for a tracked email, so it must not be derivable from the email itself.
func GeneratePixelToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(b)
}
