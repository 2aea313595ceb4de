package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// signingKey authenticates session cookies. Derived via deriveKey; the
// default secret is for development only and should be replaced through
// SetCookieSecret at startup.
var signingKey = deriveKey("ephemeral-chatty-dev-secret")

// SetCookieSecret replaces the cookie signing key with one derived from the
// configured secret.
func SetCookieSecret(secret string) {
	signingKey = deriveKey(secret)
}

// deriveKey stretches the secret into a 32-byte HMAC key with HKDF-SHA256.
func deriveKey(secret string) []byte {
	h := hkdf.New(sha256.New, []byte(secret), nil, []byte("cookie-signing"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(h, key); err != nil {
		panic(err)
	}
	return key
}

// SignCookie creates a signed cookie value in the format "value|signature".
func SignCookie(value string) string {
	mac := hmac.New(sha256.New, signingKey)
	mac.Write([]byte(value))
	signature := mac.Sum(nil)
	return fmt.Sprintf("%s|%s", base64.URLEncoding.EncodeToString([]byte(value)), base64.URLEncoding.EncodeToString(signature))
}

// VerifyCookie verifies the signed cookie and returns the original value.
func VerifyCookie(signedValue string) (string, error) {
	parts := strings.Split(signedValue, "|")
	if len(parts) != 2 {
		return "", errors.New("invalid cookie format")
	}

	valueBytes, err := base64.URLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", errors.New("invalid value encoding")
	}
	value := string(valueBytes)

	signature, err := base64.URLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", errors.New("invalid signature encoding")
	}

	mac := hmac.New(sha256.New, signingKey)
	mac.Write([]byte(value))
	expected := mac.Sum(nil)

	if !hmac.Equal(signature, expected) {
		return "", errors.New("invalid signature")
	}

	return value, nil
}
