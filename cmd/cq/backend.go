package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/and161185/capture-queue/internal/config"
	"github.com/and161185/capture-queue/internal/storage"
	"github.com/and161185/capture-queue/internal/storage/file"
	"github.com/and161185/capture-queue/internal/storage/memory"
	"github.com/and161185/capture-queue/internal/storage/postgres"
	"github.com/and161185/capture-queue/internal/storage/s3store"
	"github.com/and161185/capture-queue/internal/storage/sqlite"
)

func noClose() error { return nil }

// openBackend is replaced in tests.
var openBackend = openStore

// openStore builds the configured backend and the function releasing it.
func openStore(ctx context.Context, c config.Storage) (storage.Store, func() error, error) {
	switch c.Backend {
	case config.BackendMemory:
		return memory.New(), noClose, nil

	case config.BackendFile:
		s, err := file.New(c.Dir)
		if err != nil {
			return nil, nil, err
		}
		return s, noClose, nil

	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(c.SQLitePath), 0o700); err != nil {
			return nil, nil, err
		}
		s, err := sqlite.Open(ctx, c.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case config.BackendPostgres:
		db, err := postgres.New(ctx, c.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewKVStore(db), func() error { db.Close(); return nil }, nil

	case config.BackendS3:
		client, err := s3store.NewClient(ctx, s3store.Options{
			Region:    c.S3.Region,
			Endpoint:  c.S3.Endpoint,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
		})
		if err != nil {
			return nil, nil, err
		}
		s, err := s3store.New(client, c.S3.Bucket, c.S3.Prefix)
		if err != nil {
			return nil, nil, err
		}
		return s, noClose, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", c.Backend)
	}
}
