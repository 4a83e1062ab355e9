// SPDX-License-Identifier: MIT

package media

import (
	"testing"
	"time"
)

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recs := []Record{
		{ID: "a", UploadedAt: base, Seq: 1},
		{ID: "b", UploadedAt: base.Add(time.Hour), Seq: 2},
		{ID: "c", UploadedAt: base.Add(-time.Hour), Seq: 3},
	}

	SortNewestFirst(recs)

	want := []string{"b", "a", "c"}
	for i, id := range want {
		if recs[i].ID != id {
			t.Fatalf("position %d: got %q, want %q", i, recs[i].ID, id)
		}
	}
}

func TestSortNewestFirstStableTies(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recs := []Record{
		{ID: "second", UploadedAt: ts, Seq: 2},
		{ID: "first", UploadedAt: ts, Seq: 1},
		{ID: "third", UploadedAt: ts, Seq: 3},
	}

	SortNewestFirst(recs)

	want := []string{"first", "second", "third"}
	for i, id := range want {
		if recs[i].ID != id {
			t.Fatalf("position %d: got %q, want %q", i, recs[i].ID, id)
		}
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if id == "" {
			t.Fatal("empty id")
		}
		if seen[id] {
			t.Fatalf("duplicate id after %d generations: %s", i, id)
		}
		seen[id] = true
	}
}
