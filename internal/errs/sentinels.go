// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across storage/crypto/queue layers.
var (
	// ErrNotFound indicates the requested storage slot holds no value.
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable indicates a persistent storage read or write failed
	// (quota, permissions, closed connection, backend panic).
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrCryptoUnsupported indicates a required primitive (random source,
	// derivation, authenticated cipher) could not be used.
	ErrCryptoUnsupported = errors.New("crypto unsupported")

	// ErrDecryptionFailed indicates tamper, corruption or a key mismatch.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrSerialization indicates a stored sequence could not be encoded or decoded.
	ErrSerialization = errors.New("serialization error")
)
