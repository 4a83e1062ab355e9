// SPDX-License-Identifier: MIT

package probe

import (
	"context"
	"sync/atomic"
	"time"
)

// StubExtractor returns a fixed result; it backs tests and runs without
// ffmpeg installed.
type StubExtractor struct {
	Result Result
	Delay  time.Duration // optional artificial extraction latency

	calls atomic.Int64
}

// Extract returns the configured result after the optional delay,
// degrading to a zero result if ctx expires first.
func (s *StubExtractor) Extract(ctx context.Context, path string) Result {
	s.calls.Add(1)

	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return Result{}
		}
	}
	return s.Result
}

// Calls reports how many extractions were requested.
func (s *StubExtractor) Calls() int64 {
	return s.calls.Load()
}
