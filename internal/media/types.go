// SPDX-License-Identifier: MIT

// Package media defines the durable media record and the error taxonomy
// shared by the store, the reel navigator and the ingest pipeline.
package media

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Record is the durable unit of the media store. All fields except the
// derived ones (DurationSeconds, Thumbnail) are captured at ingest and
// immutable afterwards. The payload itself is owned by the store and
// streamed on demand; it is never carried inline on the record.
type Record struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`

	// Seq is the store-assigned insertion sequence. It breaks ordering
	// ties between records sharing the same UploadedAt instant.
	Seq uint64 `json:"seq"`

	// DurationSeconds is 0 when extraction could not determine it.
	DurationSeconds float64 `json:"duration_seconds"`

	// Thumbnail is a base64-encoded JPEG still, empty when extraction
	// degraded. Small enough to persist inline with the record.
	Thumbnail string `json:"thumbnail,omitempty"`
}

// NewID returns a fresh collision-resistant record identifier.
// Uniqueness is additionally enforced by the store on create.
func NewID() string {
	return uuid.NewString()
}

// SortNewestFirst orders records by UploadedAt descending. Records with
// the same timestamp keep their insertion order (Seq ascending).
func SortNewestFirst(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].UploadedAt.Equal(recs[j].UploadedAt) {
			return recs[i].Seq < recs[j].Seq
		}
		return recs[i].UploadedAt.After(recs[j].UploadedAt)
	})
}

var (
	// ErrNotFound signals that no record exists for the given id.
	// Repeated deletes of the same id report it; callers may treat it
	// as benign.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateID is returned by the store when a create would reuse
	// an existing id. Ids are minted per record, so this indicates a
	// caller bug or an id-generation collision.
	ErrDuplicateID = errors.New("duplicate record id")

	// ErrOutOfRange is returned for cursor jumps outside [0, length).
	ErrOutOfRange = errors.New("cursor index out of range")
)
