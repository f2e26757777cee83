package presence

import (
	"crypto/rand"
	"encoding/base64"
)

// newToken generates an unguessable presence token: 32 random bytes,
// base64url. The token is the sole lookup key for check-in.
func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b)[:43], nil
}
