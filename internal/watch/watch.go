// SPDX-License-Identifier: MIT

// Package watch ingests files dropped into a directory. A file is
// picked up once it has stopped growing for a settle window, then
// removed from the directory after successful ingest.
package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ManuGH/reelvault/internal/ingest"
)

// Ingester accepts batches of files; the vault App satisfies it.
type Ingester interface {
	Ingest(ctx context.Context, files []ingest.File, onProgress func(ingest.Progress)) (ingest.Report, error)
}

// candidate is a dropped file waiting out its settle window.
type candidate struct {
	seenAt time.Time
	size   int64
}

// Watcher observes one drop directory.
type Watcher struct {
	dir      string
	settle   time.Duration
	ingester Ingester
	logger   zerolog.Logger

	pending map[string]candidate
}

// New creates a watcher over dir. settle is how long a file must stay
// unchanged before it is ingested.
func New(dir string, settle time.Duration, ingester Ingester, logger zerolog.Logger) *Watcher {
	return &Watcher{
		dir:      dir,
		settle:   settle,
		ingester: ingester,
		logger:   logger,
		pending:  make(map[string]candidate),
	}
}

// Run blocks until ctx is cancelled. Files already present in the
// directory at startup are picked up as well.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.scanExisting()

	tick := w.settle / 2
	if tick < 100*time.Millisecond {
		tick = 100 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	w.logger.Info().Str("dir", w.dir).Dur("settle", w.settle).Msg("drop directory watcher started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) {
				w.touch(ev.Name)
			}
			if ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
				delete(w.pending, ev.Name)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watcher error")

		case <-ticker.C:
			w.settleCheck(ctx)
		}
	}
}

func (w *Watcher) scanExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn().Err(err).Str("dir", w.dir).Msg("initial scan failed")
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			w.touch(filepath.Join(w.dir, e.Name()))
		}
	}
}

// touch registers file activity and restarts its settle window.
func (w *Watcher) touch(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	if !ingest.Supported(info.Name(), "") {
		return
	}
	w.pending[path] = candidate{seenAt: time.Now(), size: info.Size()}
}

// settleCheck ingests every pending file whose size has been stable
// for the whole settle window.
func (w *Watcher) settleCheck(ctx context.Context) {
	now := time.Now()
	for path, c := range w.pending {
		if now.Sub(c.seenAt) < w.settle {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			delete(w.pending, path)
			continue
		}
		if info.Size() != c.size {
			// Still growing; restart the window.
			w.pending[path] = candidate{seenAt: now, size: info.Size()}
			continue
		}

		delete(w.pending, path)
		w.ingestFile(ctx, path, info.Size())
	}
}

func (w *Watcher) ingestFile(ctx context.Context, path string, size int64) {
	file := ingest.File{
		Name:      filepath.Base(path),
		SizeBytes: size,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}

	report, err := w.ingester.Ingest(ctx, []ingest.File{file}, nil)
	if err != nil {
		w.logger.Warn().Err(err).Str("path", path).Msg("drop ingest aborted")
		return
	}
	if len(report.Failed) > 0 {
		w.logger.Warn().
			Str("path", path).
			Str("reason", report.Failed[0].Reason).
			Msg("drop ingest rejected file")
		return
	}

	if err := os.Remove(path); err != nil {
		w.logger.Warn().Err(err).Str("path", path).Msg("could not remove ingested drop file")
		return
	}
	w.logger.Info().Str("path", path).Msg("drop file ingested")
}
