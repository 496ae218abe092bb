package crypto

import (
	"crypto/rand"
	"io"
)

// Suite bundles the primitives the secure queue depends on.
type Suite interface {
	// DeriveKey turns a device secret into a symmetric key.
	DeriveKey(secret []byte) (*Key, error)
	// Seal encrypts plaintext under a fresh nonce.
	Seal(key *Key, plaintext []byte) (Envelope, error)
	// Open authenticates and decrypts an envelope.
	Open(key *Key, env Envelope) ([]byte, error)
}

// Standard is the production suite: PBKDF2-SHA256 and AES-256-GCM.
type Standard struct {
	Rand       io.Reader
	Salt       []byte
	Iterations int
}

var _ Suite = (*Standard)(nil)

// NewStandard returns a suite with the default salt and iteration count.
func NewStandard() *Standard {
	return &Standard{Rand: rand.Reader, Salt: DefaultSalt, Iterations: DefaultIterations}
}

func (s *Standard) DeriveKey(secret []byte) (*Key, error) {
	return DeriveKey(secret, s.Salt, s.Iterations)
}

func (s *Standard) Seal(key *Key, plaintext []byte) (Envelope, error) {
	return Seal(s.Rand, key, plaintext)
}

func (s *Standard) Open(key *Key, env Envelope) ([]byte, error) {
	return Open(key, env)
}
