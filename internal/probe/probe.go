// SPDX-License-Identifier: MIT

// Package probe derives lightweight metadata (duration, thumbnail) from
// opaque video payloads. Extraction is best-effort: it degrades to zero
// values instead of failing the caller.
package probe

import "context"

// Result carries the derived metadata. Zero values mean the payload
// could not be decoded (or extraction timed out).
type Result struct {
	// DurationSeconds is 0 when undeterminable.
	DurationSeconds float64 `json:"duration_seconds"`
	// Thumbnail is a base64-encoded JPEG still, empty when unavailable.
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Extractor produces metadata for the video file at path. It never
// returns an error; callers must treat it as a potentially slow
// operation and pass a context they are willing to wait on.
type Extractor interface {
	Extract(ctx context.Context, path string) Result
}
