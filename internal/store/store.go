// SPDX-License-Identifier: MIT

// Package store provides durable, keyed persistence of media records.
// Three backends sit behind the same contract: badger (default), sqlite
// and an in-memory store for tests and ephemeral runs.
package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ManuGH/reelvault/internal/config"
	"github.com/ManuGH/reelvault/internal/media"
)

// Store is the persistence contract the rest of the system depends on.
// Once Create returns nil the record is durable until explicitly deleted.
type Store interface {
	// Create persists rec together with its payload atomically. The
	// store assigns rec.Seq. A reused id fails with media.ErrDuplicateID
	// and leaves no partial state behind.
	Create(ctx context.Context, rec *media.Record, payload io.Reader) error

	// ListAll returns every record sorted by UploadedAt descending,
	// ties broken by insertion order. Empty store yields an empty
	// slice, not an error. Payloads are not loaded.
	ListAll(ctx context.Context) ([]media.Record, error)

	// Payload opens a read stream over the stored bytes for id.
	// Returns media.ErrNotFound for unknown ids.
	Payload(ctx context.Context, id string) (io.ReadCloser, error)

	// DeleteByID removes the record and its payload. Deleting an absent
	// id returns media.ErrNotFound so callers can distinguish it from
	// success.
	DeleteByID(ctx context.Context, id string) error

	Close() error
}

// Open creates the store backend selected by cfg. Persistent backends
// live under cfg.DataDir.
func Open(cfg config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendBadger:
		dir := filepath.Join(cfg.DataDir, "badger")
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create badger dir: %w", err)
		}
		return OpenBadgerStore(dir)
	case config.BackendSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return OpenSQLiteStore(filepath.Join(cfg.DataDir, "reelvault.db"))
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}
