// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ManuGH/reelvault/internal/config"
	"github.com/ManuGH/reelvault/internal/media"
)

// backends under test; each constructor opens a fresh store per call.
func testBackends(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"badger": func(t *testing.T) Store {
			s, err := OpenBadgerStore(t.TempDir())
			if err != nil {
				t.Fatalf("open badger store: %v", err)
			}
			return s
		},
		"sqlite": func(t *testing.T) Store {
			s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "reelvault.db"))
			if err != nil {
				t.Fatalf("open sqlite store: %v", err)
			}
			return s
		},
	}
}

func mustCreate(t *testing.T, s Store, id string, uploadedAt time.Time, payload string) media.Record {
	t.Helper()
	rec := media.Record{
		ID:         id,
		Filename:   id + ".mp4",
		MimeType:   "video/mp4",
		SizeBytes:  int64(len(payload)),
		UploadedAt: uploadedAt,
	}
	if err := s.Create(context.Background(), &rec, strings.NewReader(payload)); err != nil {
		t.Fatalf("create %s: %v", id, err)
	}
	return rec
}

func TestStoreListAllSortedNewestFirst(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for name, open := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })

			mustCreate(t, s, "middle", base, "m")
			mustCreate(t, s, "newest", base.Add(time.Hour), "n")
			mustCreate(t, s, "oldest", base.Add(-time.Hour), "o")

			recs, err := s.ListAll(context.Background())
			if err != nil {
				t.Fatalf("list: %v", err)
			}

			got := make([]string, len(recs))
			for i, r := range recs {
				got[i] = r.ID
			}
			want := []string{"newest", "middle", "oldest"}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStoreTimestampTiesKeepInsertionOrder(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for name, open := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })

			mustCreate(t, s, "first", ts, "1")
			mustCreate(t, s, "second", ts, "2")
			mustCreate(t, s, "third", ts, "3")

			recs, err := s.ListAll(context.Background())
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			want := []string{"first", "second", "third"}
			for i, id := range want {
				if recs[i].ID != id {
					t.Fatalf("position %d: got %q, want %q", i, recs[i].ID, id)
				}
			}
		})
	}
}

func TestStorePayloadRoundTrip(t *testing.T) {
	for name, open := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })

			mustCreate(t, s, "clip", time.Now().UTC(), "raw video bytes")

			rc, err := s.Payload(context.Background(), "clip")
			if err != nil {
				t.Fatalf("payload: %v", err)
			}
			defer func() { _ = rc.Close() }()

			data, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("read payload: %v", err)
			}
			if string(data) != "raw video bytes" {
				t.Fatalf("payload mismatch: got %q", data)
			}
		})
	}
}

func TestStoreDuplicateIDRejected(t *testing.T) {
	for name, open := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })

			mustCreate(t, s, "dup", time.Now().UTC(), "a")

			rec := media.Record{ID: "dup", Filename: "dup.mp4", MimeType: "video/mp4", UploadedAt: time.Now().UTC()}
			err := s.Create(context.Background(), &rec, strings.NewReader("b"))
			if !errors.Is(err, media.ErrDuplicateID) {
				t.Fatalf("expected ErrDuplicateID, got %v", err)
			}

			// the original payload must be untouched
			rc, err := s.Payload(context.Background(), "dup")
			if err != nil {
				t.Fatalf("payload after duplicate create: %v", err)
			}
			data, _ := io.ReadAll(rc)
			_ = rc.Close()
			if string(data) != "a" {
				t.Fatalf("payload overwritten by failed create: got %q", data)
			}
		})
	}
}

func TestStoreDeleteIdempotent(t *testing.T) {
	for name, open := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })

			mustCreate(t, s, "gone", time.Now().UTC(), "x")
			mustCreate(t, s, "stays", time.Now().UTC(), "y")

			if err := s.DeleteByID(context.Background(), "gone"); err != nil {
				t.Fatalf("first delete: %v", err)
			}
			err := s.DeleteByID(context.Background(), "gone")
			if !errors.Is(err, media.ErrNotFound) {
				t.Fatalf("second delete: expected ErrNotFound, got %v", err)
			}

			recs, err := s.ListAll(context.Background())
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(recs) != 1 || recs[0].ID != "stays" {
				t.Fatalf("unexpected records after repeated delete: %+v", recs)
			}
		})
	}
}

func TestStoreEmptyListIsNotError(t *testing.T) {
	for name, open := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })

			recs, err := s.ListAll(context.Background())
			if err != nil {
				t.Fatalf("list on empty store: %v", err)
			}
			if len(recs) != 0 {
				t.Fatalf("expected empty slice, got %d records", len(recs))
			}
		})
	}
}

func TestStorePayloadUnknownID(t *testing.T) {
	for name, open := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })

			_, err := s.Payload(context.Background(), "missing")
			if !errors.Is(err, media.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestPersistentBackendsSurviveReopen(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := map[string]struct {
		open func(dir string) (Store, error)
	}{
		"badger": {open: func(dir string) (Store, error) { return OpenBadgerStore(dir) }},
		"sqlite": {open: func(dir string) (Store, error) { return OpenSQLiteStore(filepath.Join(dir, "reelvault.db")) }},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()

			s, err := tc.open(dir)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			want := mustCreate(t, s, "durable", base, "persisted bytes")
			if err := s.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}

			s, err = tc.open(dir)
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })

			recs, err := s.ListAll(context.Background())
			if err != nil {
				t.Fatalf("list after reopen: %v", err)
			}
			if len(recs) != 1 {
				t.Fatalf("expected 1 record after reopen, got %d", len(recs))
			}
			if diff := cmp.Diff(want, recs[0], cmpopts.EquateApproxTime(time.Microsecond)); diff != "" {
				t.Fatalf("record mismatch after reopen (-want +got):\n%s", diff)
			}

			rc, err := s.Payload(context.Background(), "durable")
			if err != nil {
				t.Fatalf("payload after reopen: %v", err)
			}
			data, _ := io.ReadAll(rc)
			_ = rc.Close()
			if string(data) != "persisted bytes" {
				t.Fatalf("payload mismatch after reopen: got %q", data)
			}
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	cfg := config.Config{StoreBackend: "cassandra", DataDir: t.TempDir()}
	if _, err := Open(cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestOpenMemoryBackend(t *testing.T) {
	s, err := Open(config.Config{StoreBackend: config.BackendMemory})
	if err != nil {
		t.Fatalf("open memory backend: %v", err)
	}
	_ = s.Close()
}

func TestSQLiteConnectionPragmas(t *testing.T) {
	s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "reelvault.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	defer func() { _ = s.Close() }()

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Fatalf("journal_mode = %q, want wal", mode)
	}

	var timeout int
	if err := s.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("query busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Fatalf("busy_timeout = %d, want 5000", timeout)
	}
}
