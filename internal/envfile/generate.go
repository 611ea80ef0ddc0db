package envfile

import (
	"crypto/rand"
	"encoding/hex"
)

// Secret length defaults. Passwords for service accounts and the admin user
// are generated at 20 characters; the bare Password default of 16 matches
// the generator's historical behavior for ad-hoc callers.
const (
	DefaultPasswordLength  = 16
	ServicePasswordLength  = 20
	DefaultSecretKeyLength = 64
	SaltLength             = 32
)

const passwordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Generator produces the three kinds of secrets the template needs.
// Implementations must draw from a cryptographically secure source.
type Generator interface {
	// Password returns an alphanumeric password of the given length.
	Password(length int) string
	// SecretKey returns a lowercase hex string of the given length.
	SecretKey(length int) string
	// Salt returns a 32-character lowercase hex salt.
	Salt() string
}

// cryptoGenerator is the production Generator backed by crypto/rand.
type cryptoGenerator struct{}

// NewGenerator returns the crypto/rand backed secret generator.
func NewGenerator() Generator {
	return cryptoGenerator{}
}

func (cryptoGenerator) Password(length int) string {
	if length <= 0 {
		length = DefaultPasswordLength
	}
	raw := make([]byte, length)
	out := make([]byte, length)
	mustRead(raw)
	for i := range raw {
		out[i] = passwordCharset[int(raw[i])%len(passwordCharset)]
	}
	return string(out)
}

func (cryptoGenerator) SecretKey(length int) string {
	if length <= 0 {
		length = DefaultSecretKeyLength
	}
	// hex doubles the byte count; odd lengths round down like token_hex.
	raw := make([]byte, length/2)
	mustRead(raw)
	return hex.EncodeToString(raw)
}

func (cryptoGenerator) Salt() string {
	raw := make([]byte, SaltLength/2)
	mustRead(raw)
	return hex.EncodeToString(raw)
}

// mustRead fills b from crypto/rand. A starved or broken entropy source is
// an OS-level fatal condition, not a recoverable error.
func mustRead(b []byte) {
	if _, err := rand.Read(b); err != nil {
		panic("envfile: crypto/rand failed: " + err.Error())
	}
}
