package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrEmptySecret is returned when asked to protect zero bytes
var ErrEmptySecret = errors.New("secure: refusing to protect an empty secret")

// ErrDestroyed is returned when a destroyed buffer is revealed
var ErrDestroyed = errors.New("secure: buffer has been destroyed")

// SecureBuffer provides memory-safe storage for a single secret value.
type SecureBuffer struct {
	mu        sync.RWMutex
	enclave   *memguard.Enclave
	destroyed bool
}

// NewSecureBuffer seals data into an enclave. memguard wipes the source slice,
// so callers must not reuse it.
func NewSecureBuffer(data []byte) (*SecureBuffer, error) {
	if len(data) == 0 {
		return nil, ErrEmptySecret
	}
	return &SecureBuffer{enclave: memguard.NewEnclave(data)}, nil
}

// Open decrypts the enclave into a locked buffer. The caller must Destroy it.
func (s *SecureBuffer) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return nil, ErrDestroyed
	}
	return s.enclave.Open()
}

// Reveal calls fn with the plaintext and wipes it as soon as fn returns.
// fn must not retain the slice.
func (s *SecureBuffer) Reveal(fn func(secret []byte) error) error {
	locked, err := s.Open()
	if err != nil {
		return err
	}
	defer locked.Destroy()
	return fn(locked.Bytes())
}

// Destroy drops the enclave. It is idempotent; later Open calls fail with
// ErrDestroyed.
func (s *SecureBuffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enclave = nil
	s.destroyed = true
}

// Destroyed reports whether Destroy has been called
func (s *SecureBuffer) Destroyed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.destroyed
}

// Wipe zeroes b in place
func Wipe(b []byte) {
	memguard.WipeBytes(b)
}
