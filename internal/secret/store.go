// Package secret provisions the long-lived device secret that queue keys are derived from.
package secret

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/and161185/capture-queue/internal/crypto"
	"github.com/and161185/capture-queue/internal/errs"
	"github.com/and161185/capture-queue/internal/storage"
)

// Size is the number of random bytes behind a device secret.
const Size = 32

// FallbackSecret is returned when the secret cannot be read or persisted.
// It is identical on every device that hits this path, so data sealed under it
// is only obscured, not protected.
const FallbackSecret Secret = "capture-queue-fallback-device-secret"

// Secret is the printable (hex) form of the device secret.
type Secret string

// IsFallback reports whether s is the shared fallback value.
func (s Secret) IsFallback() bool { return s == FallbackSecret }

// Bytes returns the key derivation input.
func (s Secret) Bytes() []byte { return []byte(s) }

// Store reads and lazily creates the device secret slot.
type Store struct {
	kv   storage.Store
	key  string
	rand io.Reader
	log  *zap.Logger
}

// NewStore returns a store persisting the secret under key. log may be nil.
func NewStore(kv storage.Store, key string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: kv, key: key, rand: rand.Reader, log: log}
}

// WithRand replaces the random source. Used by tests.
func (s *Store) WithRand(r io.Reader) *Store {
	s.rand = r
	return s
}

// GetOrCreate returns the persisted secret, creating it on first use.
// It never fails: storage or entropy failures yield FallbackSecret.
func (s *Store) GetOrCreate(ctx context.Context) Secret {
	sec, err := s.getOrCreate(ctx)
	if err != nil {
		s.log.Warn("device secret unavailable, using fallback",
			zap.String("slot", s.key),
			zap.Error(err),
		)
		return FallbackSecret
	}
	return sec
}

// Lookup returns the persisted secret without creating one.
// It reports errs.ErrNotFound when the device has no secret yet.
func (s *Store) Lookup(ctx context.Context) (sec Secret, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", errs.ErrStorageUnavailable, r)
		}
	}()

	v, err := s.kv.Get(ctx, s.key)
	switch {
	case err == nil:
		return Secret(v), nil
	case errors.Is(err, errs.ErrNotFound):
		return "", err
	default:
		return "", fmt.Errorf("%w: %w", errs.ErrStorageUnavailable, err)
	}
}

func (s *Store) getOrCreate(ctx context.Context) (sec Secret, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", errs.ErrStorageUnavailable, r)
		}
	}()

	v, err := s.kv.Get(ctx, s.key)
	switch {
	case err == nil:
		return Secret(v), nil
	case !errors.Is(err, errs.ErrNotFound):
		return "", fmt.Errorf("%w: %w", errs.ErrStorageUnavailable, err)
	}

	raw, err := crypto.RandBytes(s.rand, Size)
	if err != nil {
		return "", err
	}
	sec = Secret(hex.EncodeToString(raw))
	if err := s.kv.Set(ctx, s.key, []byte(sec)); err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrStorageUnavailable, err)
	}
	s.log.Info("device secret created", zap.String("slot", s.key))
	return sec, nil
}
