// SPDX-License-Identifier: MIT

package reel

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/reelvault/internal/media"
	"github.com/ManuGH/reelvault/internal/store"
)

func seedStore(t *testing.T, s store.Store, ids ...string) {
	t.Helper()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	// later entries are older, so ListAll yields ids in argument order
	for i, id := range ids {
		rec := media.Record{
			ID:         id,
			Filename:   id + ".mp4",
			MimeType:   "video/mp4",
			UploadedAt: base.Add(-time.Duration(i) * time.Minute),
		}
		if err := s.Create(context.Background(), &rec, strings.NewReader(id)); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
}

func addRecord(t *testing.T, s store.Store, id string, uploadedAt time.Time) {
	t.Helper()
	rec := media.Record{ID: id, Filename: id + ".mp4", MimeType: "video/mp4", UploadedAt: uploadedAt}
	if err := s.Create(context.Background(), &rec, strings.NewReader(id)); err != nil {
		t.Fatalf("add %s: %v", id, err)
	}
}

func TestRefreshInitialCursor(t *testing.T) {
	s := store.NewMemoryStore()
	seedStore(t, s, "a", "b", "c")

	nav := NewNavigator(s)
	if err := nav.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if got := nav.Position(); got != 0 {
		t.Fatalf("initial cursor: got %d, want 0", got)
	}
	cur, ok := nav.Current()
	if !ok || cur.ID != "a" {
		t.Fatalf("current: got %v %v, want record a", cur.ID, ok)
	}
}

func TestRefreshEmptyCollection(t *testing.T) {
	s := store.NewMemoryStore()
	nav := NewNavigator(s)

	if err := nav.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := nav.Position(); got != -1 {
		t.Fatalf("cursor on empty collection: got %d, want -1", got)
	}
	if _, ok := nav.Current(); ok {
		t.Fatal("Current must report empty collection")
	}
}

func TestCursorFollowsItemAcrossInsert(t *testing.T) {
	s := store.NewMemoryStore()
	seedStore(t, s, "a", "b", "c")

	nav := NewNavigator(s)
	if err := nav.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	nav.Next() // cursor 1, item b

	// insert an item that sorts ahead of everything (newest)
	addRecord(t, s, "d", time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))
	if err := nav.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh after insert: %v", err)
	}

	cur, ok := nav.Current()
	if !ok || cur.ID != "b" {
		t.Fatalf("cursor should still point at b, got %v", cur.ID)
	}
	if got := nav.Position(); got != 2 {
		t.Fatalf("b's new position: got %d, want 2", got)
	}
}

func TestDeleteReconciliation(t *testing.T) {
	s := store.NewMemoryStore()
	seedStore(t, s, "a", "b", "c")

	nav := NewNavigator(s)
	if err := nav.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := nav.JumpTo(2); err != nil { // cursor at c
		t.Fatalf("jump: %v", err)
	}

	if err := s.DeleteByID(context.Background(), "b"); err != nil {
		t.Fatalf("delete b: %v", err)
	}
	if err := nav.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh after delete: %v", err)
	}

	cur, ok := nav.Current()
	if !ok || cur.ID != "c" {
		t.Fatalf("cursor should follow c, got %v", cur.ID)
	}
	if got := nav.Position(); got != 1 {
		t.Fatalf("c's new position: got %d, want 1", got)
	}
}

func TestDeleteCurrentItemClamps(t *testing.T) {
	s := store.NewMemoryStore()
	seedStore(t, s, "a", "b", "c")

	nav := NewNavigator(s)
	if err := nav.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := nav.JumpTo(2); err != nil {
		t.Fatalf("jump: %v", err)
	}

	if err := s.DeleteByID(context.Background(), "c"); err != nil {
		t.Fatalf("delete c: %v", err)
	}
	if err := nav.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if got := nav.Position(); got != 1 {
		t.Fatalf("cursor after deleting current tail: got %d, want 1", got)
	}
}

func TestDeleteLastRecordEmptiesCursor(t *testing.T) {
	s := store.NewMemoryStore()
	seedStore(t, s, "only")

	nav := NewNavigator(s)
	if err := nav.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if err := s.DeleteByID(context.Background(), "only"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := nav.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if got := nav.Position(); got != -1 {
		t.Fatalf("cursor after emptying collection: got %d, want -1", got)
	}
}

func TestSaturatingNavigation(t *testing.T) {
	s := store.NewMemoryStore()
	seedStore(t, s, "a", "b")

	nav := NewNavigator(s)
	if err := nav.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	nav.Previous() // already at 0
	if got := nav.Position(); got != 0 {
		t.Fatalf("previous at start: got %d, want 0", got)
	}

	nav.Next()
	nav.Next() // already at end
	if got := nav.Position(); got != 1 {
		t.Fatalf("next at end: got %d, want 1", got)
	}
}

func TestNavigationOnEmptyCollectionIsNoop(t *testing.T) {
	nav := NewNavigator(store.NewMemoryStore())
	if err := nav.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	nav.Next()
	nav.Previous()
	if got := nav.Position(); got != -1 {
		t.Fatalf("cursor must stay empty, got %d", got)
	}
}

func TestJumpToOutOfRange(t *testing.T) {
	s := store.NewMemoryStore()
	seedStore(t, s, "a", "b")

	nav := NewNavigator(s)
	if err := nav.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	for _, index := range []int{-1, 2, 100} {
		err := nav.JumpTo(index)
		if !errors.Is(err, media.ErrOutOfRange) {
			t.Fatalf("jump to %d: expected ErrOutOfRange, got %v", index, err)
		}
	}
	if got := nav.Position(); got != 0 {
		t.Fatalf("cursor moved by failed jump: got %d", got)
	}
}

func TestCursorBoundsInvariantUnderMutation(t *testing.T) {
	s := store.NewMemoryStore()
	nav := NewNavigator(s)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ids := []string{"r0", "r1", "r2", "r3", "r4"}
	for i, id := range ids {
		addRecord(t, s, id, base.Add(time.Duration(i)*time.Minute))
		if err := nav.Refresh(context.Background()); err != nil {
			t.Fatalf("refresh: %v", err)
		}
		checkBounds(t, nav)
		nav.Next()
		checkBounds(t, nav)
	}
	for _, id := range ids {
		if err := s.DeleteByID(context.Background(), id); err != nil {
			t.Fatalf("delete %s: %v", id, err)
		}
		if err := nav.Refresh(context.Background()); err != nil {
			t.Fatalf("refresh: %v", err)
		}
		checkBounds(t, nav)
	}
}

func checkBounds(t *testing.T, nav *Navigator) {
	t.Helper()
	pos, length := nav.Position(), nav.Len()
	if length == 0 {
		if pos != -1 {
			t.Fatalf("empty collection with cursor %d", pos)
		}
		return
	}
	if pos < 0 || pos >= length {
		t.Fatalf("cursor %d outside [0,%d)", pos, length)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := store.NewMemoryStore()
	seedStore(t, s, "a", "b")

	nav := NewNavigator(s)
	if err := nav.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	items, cursor := nav.Snapshot()
	if cursor != 0 || len(items) != 2 {
		t.Fatalf("snapshot: cursor %d, %d items", cursor, len(items))
	}
	items[0].ID = "mutated"

	cur, _ := nav.Current()
	if cur.ID == "mutated" {
		t.Fatal("snapshot shares backing array with navigator state")
	}
}
