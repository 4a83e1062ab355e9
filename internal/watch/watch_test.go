// SPDX-License-Identifier: MIT

package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/reelvault/internal/ingest"
)

type fakeIngester struct {
	mu    sync.Mutex
	names []string
	data  []string
}

func (f *fakeIngester) Ingest(ctx context.Context, files []ingest.File, onProgress func(ingest.Progress)) (ingest.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, file := range files {
		rc, err := file.Open()
		if err != nil {
			return ingest.Report{}, err
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return ingest.Report{}, err
		}
		f.names = append(f.names, file.Name)
		f.data = append(f.data, string(data))
	}
	return ingest.Report{Succeeded: len(files)}, nil
}

func (f *fakeIngester) ingested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.names...)
}

func TestWatcherIngestsSettledFile(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	ing := &fakeIngester{}
	w := New(dir, 50*time.Millisecond, ing, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	path := filepath.Join(dir, "dropped.mp4")
	require.NoError(t, os.WriteFile(path, []byte("clip-bytes"), 0o644))

	require.Eventually(t, func() bool {
		return len(ing.ingested()) == 1
	}, 5*time.Second, 20*time.Millisecond, "file was not ingested")

	assert.Equal(t, []string{"dropped.mp4"}, ing.ingested())

	// The source file is removed once it is safely in the store.
	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcherPicksUpPreexistingFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.mp4"), []byte("x"), 0o644))

	ing := &fakeIngester{}
	w := New(dir, 50*time.Millisecond, ing, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(ing.ingested()) == 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcherIgnoresUnsupportedFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	ing := &fakeIngester{}
	w := New(dir, 50*time.Millisecond, ing, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("text"), 0o644))

	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, ing.ingested())
	_, err := os.Stat(path)
	assert.NoError(t, err, "unsupported files stay untouched")

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
