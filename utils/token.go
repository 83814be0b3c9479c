package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// NewShareToken returns an unguessable URL-safe token with 192 bits of entropy.
func NewShareToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
