// Package passkey obfuscates the admin passkey for storage in the browser.
// Base64 is reversible and provides no secrecy.
package passkey

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// Encrypt returns the standard base64 encoding of key.
func Encrypt(key string) string {
	return base64.StdEncoding.EncodeToString([]byte(key))
}

// Decrypt reverses Encrypt.
func Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("passkey: decode: %w", err)
	}
	return string(raw), nil
}

// Verify reports whether encoded decodes to expected. An empty expected
// passkey never verifies.
func Verify(encoded, expected string) bool {
	if expected == "" {
		return false
	}
	plain, err := Decrypt(encoded)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(plain), []byte(expected)) == 1
}
