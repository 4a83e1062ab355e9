// SPDX-License-Identifier: MIT

// Package app ties the store, reel navigator, blob manager and ingest
// pipeline together behind a single mutex. Every mutation runs to
// completion before the next one starts, so observers always see the
// collection, the cursor and the active handle change together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/reelvault/internal/blob"
	"github.com/ManuGH/reelvault/internal/cache"
	"github.com/ManuGH/reelvault/internal/config"
	"github.com/ManuGH/reelvault/internal/fsutil"
	"github.com/ManuGH/reelvault/internal/ingest"
	"github.com/ManuGH/reelvault/internal/log"
	"github.com/ManuGH/reelvault/internal/media"
	"github.com/ManuGH/reelvault/internal/metrics"
	"github.com/ManuGH/reelvault/internal/probe"
	"github.com/ManuGH/reelvault/internal/reel"
	"github.com/ManuGH/reelvault/internal/store"
)

// Snapshot is a self-consistent view of the reel state for presentation.
type Snapshot struct {
	Items  []media.Record `json:"items"`
	Cursor int            `json:"cursor"`
	Active *blob.Handle   `json:"active,omitempty"`
}

// App owns the mutable state of the vault. All exported methods are
// safe for concurrent use; mutations are serialized.
type App struct {
	mu sync.Mutex

	cfg        config.Config
	store      store.Store
	nav        *reel.Navigator
	blobs      *blob.Manager
	pipeline   *ingest.Pipeline
	probeCache cache.Cache[probe.Result]
	logger     zerolog.Logger
}

// New wires an App from explicit collaborators. The navigator starts
// empty; call Refresh to load the initial snapshot.
func New(cfg config.Config, st store.Store, extractor probe.Extractor, probeCache cache.Cache[probe.Result], logger zerolog.Logger) *App {
	a := &App{
		cfg:        cfg,
		store:      st,
		nav:        reel.NewNavigator(st),
		blobs:      blob.NewManager(st, logger),
		probeCache: probeCache,
		logger:     logger,
	}
	a.pipeline = ingest.NewPipeline(st, extractor, probeCache, logger)
	return a
}

// Open builds a production App from configuration: store backend by
// cfg.StoreBackend, probe cache by cfg.CacheBackend, ffmpeg/ffprobe
// extraction. The initial snapshot is loaded and, if non-empty, the
// first item's payload handle is activated.
func Open(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*App, error) {
	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if cfg.ExportDir != "" {
		if err := os.MkdirAll(cfg.ExportDir, 0o750); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("create export dir: %w", err)
		}
	}

	var probeCache cache.Cache[probe.Result]
	switch cfg.CacheBackend {
	case config.CacheRedis:
		rc, err := cache.NewRedisCache[probe.Result](cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		probeCache = rc
	default:
		probeCache = cache.NewMemoryCache[probe.Result](5 * time.Minute)
	}

	extractor := probe.NewFFmpegExtractor(cfg.FFmpegPath, cfg.FFprobePath, cfg.ProbeTimeout, logger)

	a := New(cfg, st, extractor, probeCache, logger)
	if err := a.Refresh(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("load initial snapshot: %w", err)
	}
	return a, nil
}

// Ingest runs a batch through the pipeline and reconciles the reel
// afterwards. The partial report is returned even when the batch was
// cancelled mid-way.
func (a *App) Ingest(ctx context.Context, files []ingest.File, onProgress func(ingest.Progress)) (ingest.Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx = log.ContextWithBatchID(ctx, uuid.NewString())
	report, ingestErr := a.pipeline.Ingest(ctx, files, onProgress)

	// Records persisted before a cancellation still belong in the reel.
	if err := a.refreshLocked(context.WithoutCancel(ctx)); err != nil {
		logger := log.WithContext(ctx, a.logger)
		logger.Error().Err(err).Msg("refresh after ingest failed")
		if ingestErr == nil {
			ingestErr = err
		}
	}
	return report, ingestErr
}

// Delete removes a record. Deleting an id that is already gone is
// benign; the reel is reconciled either way.
func (a *App) Delete(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	err := a.store.DeleteByID(ctx, id)
	switch {
	case err == nil:
		metrics.IncDelete("success")
	case errors.Is(err, media.ErrNotFound):
		metrics.IncDelete("not_found")
		a.logger.Debug().Str("id", id).Msg("delete of unknown record")
	default:
		metrics.IncDelete("error")
		return fmt.Errorf("delete %s: %w", id, err)
	}

	return a.refreshLocked(ctx)
}

// Next advances the cursor and re-binds the active handle.
func (a *App) Next(ctx context.Context) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.nav.Next()
	a.reactivateLocked(ctx)
	return a.snapshotLocked()
}

// Previous moves the cursor back and re-binds the active handle.
func (a *App) Previous(ctx context.Context) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.nav.Previous()
	a.reactivateLocked(ctx)
	return a.snapshotLocked()
}

// JumpTo moves the cursor to an explicit index.
func (a *App) JumpTo(ctx context.Context, index int) (Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.nav.JumpTo(index); err != nil {
		return a.snapshotLocked(), err
	}
	a.reactivateLocked(ctx)
	return a.snapshotLocked(), nil
}

// Refresh re-pulls the collection from the store and reconciles cursor
// and active handle.
func (a *App) Refresh(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refreshLocked(ctx)
}

// Snapshot returns the current reel view.
func (a *App) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// OpenBlob resolves a handle token to its payload stream.
func (a *App) OpenBlob(ctx context.Context, token string) (io.ReadCloser, error) {
	return a.blobs.Open(ctx, token)
}

// ResolveBlob looks up a handle without opening the payload.
func (a *App) ResolveBlob(token string) (blob.Handle, bool) {
	return a.blobs.Resolve(token)
}

// Export writes a record's payload atomically into the export
// directory and returns the final path. The destination name derives
// from the stored filename unless overridden; either way it is
// sanitized and confined to cfg.ExportDir.
func (a *App) Export(ctx context.Context, id, name string) (string, error) {
	a.mu.Lock()
	rec, err := a.findLocked(id)
	a.mu.Unlock()
	if err != nil {
		return "", err
	}

	if name == "" {
		name = rec.Filename
	}
	dest, err := fsutil.ConfineRelPath(a.cfg.ExportDir, fsutil.SanitizeFilename(name))
	if err != nil {
		return "", fmt.Errorf("export destination: %w", err)
	}

	// A one-shot handle keeps the export independent of cursor moves.
	h, err := a.blobs.OneShot(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("export %s: %w", id, err)
	}
	defer a.blobs.Release(h.Token)

	rc, err := a.blobs.Open(ctx, h.Token)
	if err != nil {
		return "", fmt.Errorf("export %s: %w", id, err)
	}
	defer func() { _ = rc.Close() }()

	pending, err := renameio.TempFile("", dest)
	if err != nil {
		return "", fmt.Errorf("export %s: %w", id, err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := io.Copy(pending, rc); err != nil {
		return "", fmt.Errorf("export %s: %w", id, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("export %s: %w", id, err)
	}

	a.logger.Info().Str("id", id).Str("path", dest).Msg("record exported")
	return dest, nil
}

// Record looks up a record in the current snapshot by id.
func (a *App) Record(id string) (media.Record, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, err := a.findLocked(id)
	return rec, err == nil
}

// Close releases every outstanding handle and shuts the store down.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.blobs.ReleaseAll()
	if a.probeCache != nil {
		_ = a.probeCache.Close()
	}
	return a.store.Close()
}

func (a *App) refreshLocked(ctx context.Context) error {
	if err := a.nav.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh reel: %w", err)
	}
	a.reactivateLocked(ctx)
	metrics.RecordCount(a.nav.Len())
	return nil
}

// reactivateLocked binds the active handle to whatever the cursor now
// points at. A failed activation keeps the previous handle alive, so a
// transient payload error never strands playback.
func (a *App) reactivateLocked(ctx context.Context) {
	cur, ok := a.nav.Current()
	if !ok {
		a.blobs.ReleaseActive()
		return
	}

	if active, has := a.blobs.Active(); has && active.RecordID == cur.ID {
		return
	}
	if _, err := a.blobs.Activate(ctx, cur); err != nil {
		a.logger.Warn().Err(err).Str("id", cur.ID).Msg("handle activation failed")
	}
}

func (a *App) snapshotLocked() Snapshot {
	items, cursor := a.nav.Snapshot()
	snap := Snapshot{Items: items, Cursor: cursor}
	if h, ok := a.blobs.Active(); ok {
		snap.Active = &h
	}
	return snap
}

func (a *App) findLocked(id string) (media.Record, error) {
	items, _ := a.nav.Snapshot()
	for _, rec := range items {
		if rec.ID == id {
			return rec, nil
		}
	}
	return media.Record{}, media.ErrNotFound
}
