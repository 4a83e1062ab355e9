// SPDX-License-Identifier: MIT

package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ManuGH/reelvault/internal/media"
)

// MemoryStore keeps records and payloads in process memory. It backs
// tests and ephemeral runs; nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]media.Record
	payloads map[string][]byte
	nextSeq  uint64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]media.Record),
		payloads: make(map[string][]byte),
	}
}

func (s *MemoryStore) Create(ctx context.Context, rec *media.Record, payload io.Reader) error {
	data, err := io.ReadAll(payload)
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("create %s: %w", rec.ID, media.ErrDuplicateID)
	}

	s.nextSeq++
	rec.Seq = s.nextSeq
	s.records[rec.ID] = *rec
	s.payloads[rec.ID] = data
	return nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]media.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]media.Record, 0, len(s.records))
	for _, r := range s.records {
		recs = append(recs, r)
	}
	media.SortNewestFirst(recs)
	return recs, nil
}

func (s *MemoryStore) Payload(ctx context.Context, id string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.payloads[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("payload %s: %w", id, media.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) DeleteByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[id]; !exists {
		return fmt.Errorf("delete %s: %w", id, media.ErrNotFound)
	}
	delete(s.records, id)
	delete(s.payloads, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
