package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"

	"github.com/and161185/capture-queue/internal/errs"
)

// NonceSize is the GCM nonce length (96 bits).
const NonceSize = 12

func newGCM(key *Key) (cipher.AEAD, error) {
	if key == nil || len(key.b) != KeyLen {
		return nil, fmt.Errorf("%w: key not usable", errs.ErrCryptoUnsupported)
	}
	block, err := aes.NewCipher(key.b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCryptoUnsupported, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCryptoUnsupported, err)
	}
	return gcm, nil
}

// Seal encrypts plaintext with AES-256-GCM under a nonce freshly drawn from r.
// The returned ciphertext carries the authentication tag.
func Seal(r io.Reader, key *Key, plaintext []byte) (Envelope, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return Envelope{}, err
	}
	nonce, err := RandBytes(r, NonceSize)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Nonce: nonce, Ciphertext: gcm.Seal(nil, nonce, plaintext, nil)}, nil
}

// Open authenticates and decrypts env. It never returns unauthenticated data.
func Open(key *Key, env Envelope) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(env.Nonce) != NonceSize {
		return nil, fmt.Errorf("%w: nonce length %d", errs.ErrDecryptionFailed, len(env.Nonce))
	}
	if len(env.Ciphertext) < gcm.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", errs.ErrDecryptionFailed)
	}
	pt, err := gcm.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrDecryptionFailed, err)
	}
	return pt, nil
}
