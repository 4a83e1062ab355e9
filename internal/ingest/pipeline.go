// SPDX-License-Identifier: MIT

// Package ingest orchestrates validation, metadata extraction and store
// insertion for a batch of files. One bad file never aborts the batch;
// failures are collected per item and returned as a structured report.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/reelvault/internal/cache"
	"github.com/ManuGH/reelvault/internal/log"
	"github.com/ManuGH/reelvault/internal/media"
	"github.com/ManuGH/reelvault/internal/metrics"
	"github.com/ManuGH/reelvault/internal/probe"
)

// probeCacheTTL bounds how long a probe result for identical bytes is
// reused.
const probeCacheTTL = 24 * time.Hour

// allowedExtensions supplements MIME sniffing for suppliers that do not
// report a content type (e.g. the drop directory watcher).
var allowedExtensions = []string{".mp4", ".mkv", ".webm", ".mov", ".avi", ".ts", ".m4v"}

// File is one item of an ingest batch: an opaque binary blob plus the
// attributes captured at ingest time. Open returns a fresh read stream
// over the content.
type File struct {
	Name      string
	MimeType  string
	SizeBytes int64
	Open      func() (io.ReadCloser, error)
}

// Progress is emitted after each file, regardless of outcome, in strict
// input order.
type Progress struct {
	Index    int    `json:"index"` // 1-based position within the batch
	Total    int    `json:"total"`
	Filename string `json:"filename"`
}

// Failure describes one file the batch could not ingest.
type Failure struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// Report summarises an ingest batch.
type Report struct {
	Succeeded int       `json:"succeeded"`
	Failed    []Failure `json:"failed"`
}

// Creator is the write side of the media store the pipeline inserts into.
type Creator interface {
	Create(ctx context.Context, rec *media.Record, payload io.Reader) error
}

// Pipeline ingests batches sequentially. It does not refresh the reel
// navigator; that is the caller's responsibility.
type Pipeline struct {
	creator    Creator
	extractor  probe.Extractor
	probeCache cache.Cache[probe.Result]
	spoolDir   string // "" means the OS temp dir
	logger     zerolog.Logger
}

// NewPipeline wires an ingest pipeline. probeCache may be nil to
// disable probe result reuse.
func NewPipeline(creator Creator, extractor probe.Extractor, probeCache cache.Cache[probe.Result], logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		creator:    creator,
		extractor:  extractor,
		probeCache: probeCache,
		logger:     logger,
	}
}

// Ingest processes files in input order, one at a time. onProgress, if
// non-nil, is invoked after every file. A cancelled context stops the
// batch before the next file's extraction; records already persisted
// are never rolled back, and the partial report is returned together
// with the context error.
func (p *Pipeline) Ingest(ctx context.Context, files []File, onProgress func(Progress)) (Report, error) {
	report := Report{Failed: []Failure{}}
	if len(files) == 0 {
		return report, nil
	}

	// Correlation ids (request id from the HTTP layer, batch id from
	// the orchestrator) ride along on every line of the batch.
	logger := log.WithContext(ctx, p.logger)

	start := time.Now()
	metrics.IncIngestBatch()
	defer func() {
		metrics.ObserveIngestBatch(time.Since(start).Seconds())
	}()

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("ingest cancelled before %q: %w", f.Name, err)
		}

		if err := p.ingestOne(ctx, f); err != nil {
			report.Failed = append(report.Failed, Failure{Filename: f.Name, Reason: err.Error()})
			logger.Warn().
				Err(err).
				Str("filename", f.Name).
				Int("index", i+1).
				Int("total", len(files)).
				Msg("ingest item failed")
		} else {
			report.Succeeded++
		}

		if onProgress != nil {
			onProgress(Progress{Index: i + 1, Total: len(files), Filename: f.Name})
		}
	}

	logger.Info().
		Int("total", len(files)).
		Int("succeeded", report.Succeeded).
		Int("failed", len(report.Failed)).
		Msg("ingest batch complete")
	return report, nil
}

func (p *Pipeline) ingestOne(ctx context.Context, f File) error {
	if !Supported(f.Name, f.MimeType) {
		metrics.IncIngestFile("validation_failed")
		return fmt.Errorf("unsupported media type %q", f.MimeType)
	}

	spool, size, digest, err := p.spool(f)
	if err != nil {
		metrics.IncIngestFile("validation_failed")
		return fmt.Errorf("read content: %w", err)
	}
	defer func() {
		_ = spool.Close()
		_ = os.Remove(spool.Name())
	}()

	result := p.extract(ctx, spool.Name(), digest)

	rec := media.Record{
		ID:              media.NewID(),
		Filename:        f.Name,
		MimeType:        f.MimeType,
		SizeBytes:       size,
		UploadedAt:      time.Now().UTC(),
		DurationSeconds: result.DurationSeconds,
		Thumbnail:       result.Thumbnail,
	}

	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		metrics.IncIngestFile("store_failed")
		return fmt.Errorf("rewind spool: %w", err)
	}
	if err := p.creator.Create(ctx, &rec, spool); err != nil {
		metrics.IncIngestFile("store_failed")
		return fmt.Errorf("persist record: %w", err)
	}

	metrics.IncIngestFile("success")
	return nil
}

// spool copies the file content to a temp file, hashing it on the way.
// The extractor needs a seekable path and the store needs a second
// pass over the bytes; spooling avoids holding payloads in memory.
func (p *Pipeline) spool(f File) (*os.File, int64, string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, 0, "", err
	}
	defer func() { _ = rc.Close() }()

	tmp, err := os.CreateTemp(p.spoolDir, "reelvault-ingest-*"+filepath.Ext(f.Name))
	if err != nil {
		return nil, 0, "", err
	}

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hash), rc)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, 0, "", err
	}

	return tmp, size, hex.EncodeToString(hash.Sum(nil)), nil
}

// extract runs the probe, consulting the content-addressed cache first.
func (p *Pipeline) extract(ctx context.Context, path, digest string) probe.Result {
	key := "probe:" + digest

	if p.probeCache != nil {
		if cached, ok := p.probeCache.Get(key); ok {
			metrics.IncProbeCache("hit")
			return cached
		}
		metrics.IncProbeCache("miss")
	}

	result := p.extractor.Extract(ctx, path)
	if result.DurationSeconds == 0 && result.Thumbnail == "" {
		metrics.IncProbeDegraded()
	}

	if p.probeCache != nil {
		p.probeCache.Set(key, result, probeCacheTTL)
	}
	return result
}

// Supported reports whether a file is a video by MIME type, falling
// back to the extension when no type was supplied.
func Supported(name, mimeType string) bool {
	if strings.HasPrefix(mimeType, "video/") {
		return true
	}
	if mimeType != "" {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range allowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
