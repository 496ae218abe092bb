// Package crypto implements key derivation and authenticated encryption for the offline queue.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/pbkdf2"

	"github.com/and161185/capture-queue/internal/errs"
)

// PBKDF2 parameters.
const (
	KeyLen            = 32 // AES-256
	DefaultIterations = 100000
)

// DefaultSalt is the fixed application salt. Changing it orphans every queued blob.
var DefaultSalt = []byte("capture-queue/offline-clock-events/v1")

// Key is a derived AES-256 key. Its bytes are not exported.
type Key struct {
	b []byte
}

// Wipe zeroes the key material. A wiped key fails every Seal/Open.
func (k *Key) Wipe() {
	if k == nil {
		return
	}
	memguard.WipeBytes(k.b)
	k.b = nil
}

// RandBytes returns n bytes read from r.
func RandBytes(r io.Reader, n int) ([]byte, error) {
	if r == nil {
		r = rand.Reader
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("%w: random source: %w", errs.ErrCryptoUnsupported, err)
	}
	return b, nil
}

// DeriveKey runs PBKDF2-HMAC-SHA256 over secret with the given salt and iteration count.
// Identical inputs always yield an identical key.
func DeriveKey(secret, salt []byte, iterations int) (*Key, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty secret", errs.ErrCryptoUnsupported)
	}
	if len(salt) == 0 || iterations <= 0 {
		return nil, fmt.Errorf("%w: invalid kdf parameters", errs.ErrCryptoUnsupported)
	}
	return &Key{b: pbkdf2.Key(secret, salt, iterations, KeyLen, sha256.New)}, nil
}
