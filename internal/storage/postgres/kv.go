package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/capture-queue/internal/errs"
	"github.com/and161185/capture-queue/internal/storage"
)

// KVStore implements storage.Store using PostgreSQL.
type KVStore struct{ db *DB }

var _ storage.Store = (*KVStore)(nil)

// NewKVStore constructs a slot store.
func NewKVStore(db *DB) *KVStore { return &KVStore{db: db} }

// Get returns the slot value or errs.ErrNotFound.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT value FROM kv_slots WHERE key=$1`
	var v []byte
	if err := s.db.Pool.QueryRow(ctx, q, key).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get slot[%s]: %w", key, err)
	}
	return v, nil
}

// Set upserts the slot value.
func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	const q = `
INSERT INTO kv_slots (key, value) VALUES ($1,$2)
ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=now()`
	if value == nil {
		value = []byte{}
	}
	if _, err := s.db.Pool.Exec(ctx, q, key, value); err != nil {
		return fmt.Errorf("failed to set slot[%s]: %w", key, err)
	}
	return nil
}

// Delete removes the slot; missing rows are fine.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM kv_slots WHERE key=$1`
	if _, err := s.db.Pool.Exec(ctx, q, key); err != nil {
		return fmt.Errorf("failed to delete slot[%s]: %w", key, err)
	}
	return nil
}
