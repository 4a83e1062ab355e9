// SPDX-License-Identifier: MIT

// Package reel maintains the ordered view of the media collection and a
// bounded cursor into it. The cursor never points outside the
// collection and prefers staying on the same logical item when the
// collection mutates underneath it.
package reel

import (
	"context"
	"fmt"
	"sync"

	"github.com/ManuGH/reelvault/internal/media"
)

// Lister is the read side of the media store the navigator refreshes from.
type Lister interface {
	ListAll(ctx context.Context) ([]media.Record, error)
}

// Navigator holds the latest ordered snapshot and the cursor. A cursor
// of -1 means the collection is empty; otherwise 0 <= cursor < len.
type Navigator struct {
	mu     sync.Mutex
	lister Lister
	items  []media.Record
	cursor int
}

// NewNavigator creates a navigator over the given store. Call Refresh
// to load the initial snapshot.
func NewNavigator(lister Lister) *Navigator {
	return &Navigator{lister: lister, cursor: -1}
}

// Refresh re-pulls the ordered collection and reconciles the cursor:
// if the previously current item still exists it follows that item to
// its new position; otherwise the cursor clamps to the nearest valid
// index, or empty.
func (n *Navigator) Refresh(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var prevID string
	if n.cursor >= 0 && n.cursor < len(n.items) {
		prevID = n.items[n.cursor].ID
	}

	items, err := n.lister.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("refresh collection: %w", err)
	}
	n.items = items

	if len(items) == 0 {
		n.cursor = -1
		return nil
	}

	if prevID != "" {
		for i, rec := range items {
			if rec.ID == prevID {
				n.cursor = i
				return nil
			}
		}
	}

	if n.cursor >= len(items) {
		n.cursor = len(items) - 1
	}
	if n.cursor < 0 {
		n.cursor = 0
	}
	return nil
}

// Next advances the cursor by one; saturates at the end.
func (n *Navigator) Next() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cursor >= 0 && n.cursor+1 < len(n.items) {
		n.cursor++
	}
}

// Previous retreats the cursor by one; saturates at the start.
func (n *Navigator) Previous() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cursor > 0 {
		n.cursor--
	}
}

// JumpTo sets the cursor to index. Indexes outside [0, len) fail with
// media.ErrOutOfRange.
func (n *Navigator) JumpTo(index int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if index < 0 || index >= len(n.items) {
		return fmt.Errorf("jump to %d with %d items: %w", index, len(n.items), media.ErrOutOfRange)
	}
	n.cursor = index
	return nil
}

// Current returns the record at the cursor, or false when the
// collection is empty.
func (n *Navigator) Current() (media.Record, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cursor < 0 || n.cursor >= len(n.items) {
		return media.Record{}, false
	}
	return n.items[n.cursor], true
}

// Position returns the cursor index, -1 when empty.
func (n *Navigator) Position() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cursor
}

// Len returns the size of the current snapshot.
func (n *Navigator) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.items)
}

// Snapshot returns a copy of the ordered items and the cursor for
// read-only presentation.
func (n *Navigator) Snapshot() ([]media.Record, int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	items := make([]media.Record, len(n.items))
	copy(items, n.items)
	return items, n.cursor
}
