package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// SecureBuffer provides memory-safe storage for sensitive data.
// It wraps memguard.Enclave to encrypt secrets at rest in memory
// and protect them from swapping via mlock.
type SecureBuffer struct {
	enclave *memguard.Enclave
	mu      sync.RWMutex
	// destroyed allows idempotent Destroy() calls and prevents use
	// after destroy
	destroyed bool
}

// NewSecureBuffer creates a protected buffer from secret bytes.
// The input is immediately copied into a protected memory region;
// the caller should zero its own copy.
func NewSecureBuffer(data []byte) *SecureBuffer {
	return &SecureBuffer{
		enclave: memguard.NewEnclave(data),
	}
}

// NewSecureString creates a protected buffer from a secret string,
// the common case for passwords coming from flags or env files.
func NewSecureString(value string) *SecureBuffer {
	return NewSecureBuffer([]byte(value))
}

// Open decrypts and returns the protected data in a locked buffer.
// The caller MUST call Destroy() on the returned LockedBuffer when done
// to wipe the plaintext from memory.
func (s *SecureBuffer) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return memguard.NewBufferFromBytes([]byte{}), nil
	}
	return s.enclave.Open()
}

// WithString decrypts the buffer, invokes fn with the plaintext as a
// string, and wipes the plaintext before returning. The string must not
// escape fn.
func (s *SecureBuffer) WithString(fn func(value string) error) error {
	locked, err := s.Open()
	if err != nil {
		return err
	}
	defer locked.Destroy()
	return fn(locked.String())
}

// Destroy marks this SecureBuffer as destroyed and prevents further use.
// The encrypted enclave data is safe even without explicit destruction.
// Idempotent; after Destroy(), Open() returns an empty buffer.
//
// For complete cleanup of all memguard data at application exit,
// call memguard.Purge() in a defer statement in main().
func (s *SecureBuffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}
	s.enclave = nil
	s.destroyed = true
}
