// Package storage defines the key/value slots the offline queue persists into.
package storage

import (
	"context"
)

// Store is a persistent key/value store holding the queue's slots.
// Implementations must be safe to call from one goroutine at a time; callers do not
// cache values between calls.
type Store interface {
	// Get returns the value stored under key, or errs.ErrNotFound if the slot is empty.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set overwrites the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete clears the slot. Deleting an empty slot is not an error.
	Delete(ctx context.Context, key string) error
}

// Keys names the three slots used by the queue.
type Keys struct {
	Secret string // device secret
	Secure string // encrypted queue blob
	Plain  string // plaintext fallback queue
}

// DefaultKeys returns the default slot names.
func DefaultKeys() Keys {
	return Keys{
		Secret: "offline_device_secret",
		Secure: "offline_queue_secure",
		Plain:  "offline_queue",
	}
}

// WithNamespace prefixes every slot with ns and a dot. An empty ns leaves k unchanged.
func (k Keys) WithNamespace(ns string) Keys {
	if ns == "" {
		return k
	}
	return Keys{
		Secret: ns + "." + k.Secret,
		Secure: ns + "." + k.Secure,
		Plain:  ns + "." + k.Plain,
	}
}
