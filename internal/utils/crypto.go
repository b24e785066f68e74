package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateSecureToken returns n random bytes encoded as unpadded base64url.
func GenerateSecureToken(n int) (string, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SecureTokenLength is the encoded length of a token of n bytes.
func SecureTokenLength(n int) int {
	return base64.RawURLEncoding.EncodedLen(n)
}
