// Package crypto implements the simulated end-to-end encryption codec.
//
// This is NOT real cryptography. The "public" and "private" keys have no
// mathematical relationship, and the per-message session key travels in
// cleartext inside the envelope. The codec exists so the rest of the system
// can exercise an encrypt/decrypt round-trip; it provides no confidentiality
// and must never be presented as secure.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Ftffxu/ephemeral-chatty/internal/models"
)

// EnvelopeMarker prefixes every encrypted payload.
const EnvelopeMarker = "ENC"

// envelopeSep delimits the marker, session key and ciphertext.
const envelopeSep = "::"

// sessionKeyLen is the hex length of the per-message session key (16 bytes).
const sessionKeyLen = 32

// pubKeyPrefixLen is how many characters of the recipient's public key are
// prepended to the session key to form the visible "encrypted" session key.
const pubKeyPrefixLen = 8

var (
	// ErrMalformedCiphertext is returned when ciphertext is not a sequence
	// of 4-hex-digit groups.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
	// ErrInvalidSessionKey is returned when the envelope's session key field
	// is too short to contain a key.
	ErrInvalidSessionKey = errors.New("invalid session key")
)

const base36 = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateKeyPair produces a fresh simulated key pair.
func GenerateKeyPair() models.KeyPair {
	return models.KeyPair{
		PublicKey:  "pub_" + RandomString(base36, 13),
		PrivateKey: "priv_" + RandomString(base36, 13),
	}
}

// EncryptMessage obfuscates plaintext for the holder of recipientPublicKey.
// It generates a random session key, XORs the plaintext against it, and
// wraps both in a marker-delimited envelope. The session key is embedded in
// the envelope behind a public-key prefix, so anyone holding the envelope
// can recover it.
func EncryptMessage(plaintext, recipientPublicKey string) (string, error) {
	raw := make([]byte, sessionKeyLen/2)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("generate session key: %w", err)
	}
	sessionKey := hex.EncodeToString(raw)

	prefix := recipientPublicKey
	if len(prefix) > pubKeyPrefixLen {
		prefix = prefix[:pubKeyPrefixLen]
	}

	cipherText := simEncrypt(plaintext, sessionKey)
	return EnvelopeMarker + envelopeSep + prefix + sessionKey + envelopeSep + cipherText, nil
}

// DecryptMessage reverses EncryptMessage. The private key is accepted for
// interface symmetry only: the session key is recovered from the envelope
// itself, so any private key decrypts any envelope. Strings that do not
// carry the envelope marker are returned unchanged.
func DecryptMessage(envelope, privateKey string) (string, error) {
	_ = privateKey

	if !strings.HasPrefix(envelope, EnvelopeMarker+envelopeSep) {
		return envelope, nil
	}

	parts := strings.SplitN(envelope, envelopeSep, 3)
	if len(parts) != 3 {
		return envelope, nil
	}

	encKey := parts[1]
	if len(encKey) < sessionKeyLen {
		return "", ErrInvalidSessionKey
	}
	sessionKey := encKey[len(encKey)-sessionKeyLen:]

	return simDecrypt(parts[2], sessionKey)
}

// simEncrypt XORs each plaintext byte against the repeating key and encodes
// every result byte as 4 hex digits.
func simEncrypt(text, key string) string {
	if key == "" {
		return ""
	}
	var b strings.Builder
	for i, c := range []byte(text) {
		b.WriteString(fmt.Sprintf("%04x", c^key[i%len(key)]))
	}
	return b.String()
}

// simDecrypt reverses simEncrypt.
func simDecrypt(cipherText, key string) (string, error) {
	if key == "" {
		return "", ErrInvalidSessionKey
	}
	if len(cipherText)%4 != 0 {
		return "", ErrMalformedCiphertext
	}
	out := make([]byte, 0, len(cipherText)/4)
	for i := 0; i < len(cipherText); i += 4 {
		v, err := strconv.ParseUint(cipherText[i:i+4], 16, 16)
		if err != nil {
			return "", ErrMalformedCiphertext
		}
		out = append(out, byte(v)^key[(i/4)%len(key)])
	}
	return string(out), nil
}

// RandomString returns n characters drawn from charset using crypto/rand.
// It is also used by the auth store for unique ids.
func RandomString(charset string, n int) string {
	raw := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		panic(err)
	}
	for i, b := range raw {
		raw[i] = charset[int(b)%len(charset)]
	}
	return string(raw)
}
