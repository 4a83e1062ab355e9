// SPDX-License-Identifier: MIT

// Package blob manages ephemeral playback handles over stored payloads.
// A handle is a process-lifetime token that resolves to a payload
// stream; the manager is the only component that mints or revokes them.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/reelvault/internal/media"
	"github.com/ManuGH/reelvault/internal/metrics"
)

// ErrUnknownHandle is returned when a token does not resolve, either
// because it never existed or because it was revoked.
var ErrUnknownHandle = errors.New("unknown or revoked handle")

// PayloadSource is the read side of the store the manager borrows
// payload streams from. The manager never copies payload bytes into
// state of its own.
type PayloadSource interface {
	Payload(ctx context.Context, id string) (io.ReadCloser, error)
}

// Handle is an ephemeral reference to a record's payload. It is only
// valid within the current process lifetime.
type Handle struct {
	Token    string    `json:"token"`
	RecordID string    `json:"record_id"`
	MintedAt time.Time `json:"minted_at"`
}

// Manager tracks outstanding handles. At most one handle is "active"
// (bound to the reel cursor); one-shot handles for downloads and
// exports live alongside it and are released by their requester.
type Manager struct {
	mu      sync.Mutex
	source  PayloadSource
	handles map[string]Handle
	active  string // token of the active handle, "" if none
	logger  zerolog.Logger
}

// NewManager creates a handle manager over the given payload source.
func NewManager(source PayloadSource, logger zerolog.Logger) *Manager {
	return &Manager{
		source:  source,
		handles: make(map[string]Handle),
		logger:  logger,
	}
}

// Activate mints a handle for rec and makes it the active one. The new
// handle is created and registered before the previous active handle is
// revoked, so playback never observes a gap; if minting fails the
// previous handle stays active and the error surfaces.
func (m *Manager) Activate(ctx context.Context, rec media.Record) (Handle, error) {
	if err := m.verify(ctx, rec.ID); err != nil {
		return Handle{}, fmt.Errorf("activate %s: %w", rec.ID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	h := m.mint(rec.ID)
	prev := m.active
	m.active = h.Token
	if prev != "" {
		delete(m.handles, prev)
		metrics.RecordHandles(len(m.handles))
	}

	m.logger.Debug().
		Str("record_id", rec.ID).
		Str("token", h.Token).
		Msg("activated playback handle")
	return h, nil
}

// OneShot mints a handle independent of the active slot, for one-off
// actions like downloads. The requester must Release it immediately
// after use.
func (m *Manager) OneShot(ctx context.Context, rec media.Record) (Handle, error) {
	if err := m.verify(ctx, rec.ID); err != nil {
		return Handle{}, fmt.Errorf("one-shot %s: %w", rec.ID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mint(rec.ID), nil
}

// mint registers a fresh handle. Caller holds m.mu.
func (m *Manager) mint(recordID string) Handle {
	h := Handle{
		Token:    uuid.NewString(),
		RecordID: recordID,
		MintedAt: time.Now(),
	}
	m.handles[h.Token] = h
	metrics.RecordHandles(len(m.handles))
	return h
}

// verify confirms the payload is openable before a handle is handed out.
func (m *Manager) verify(ctx context.Context, recordID string) error {
	rc, err := m.source.Payload(ctx, recordID)
	if err != nil {
		return err
	}
	return rc.Close()
}

// Open resolves a token and returns a payload stream for it.
func (m *Manager) Open(ctx context.Context, token string) (io.ReadCloser, error) {
	m.mu.Lock()
	h, ok := m.handles[token]
	m.mu.Unlock()

	if !ok {
		return nil, ErrUnknownHandle
	}
	return m.source.Payload(ctx, h.RecordID)
}

// Resolve reports the handle registered for token, if any.
func (m *Manager) Resolve(token string) (Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.handles[token]
	return h, ok
}

// Active returns the currently active handle, if any.
func (m *Manager) Active() (Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == "" {
		return Handle{}, false
	}
	h, ok := m.handles[m.active]
	return h, ok
}

// Release revokes a single handle. Revoking an already-released token
// is a no-op.
func (m *Manager) Release(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.handles, token)
	if m.active == token {
		m.active = ""
	}
	metrics.RecordHandles(len(m.handles))
}

// ReleaseActive revokes the active handle, if any. Used when the
// collection empties.
func (m *Manager) ReleaseActive() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != "" {
		delete(m.handles, m.active)
		m.active = ""
		metrics.RecordHandles(len(m.handles))
	}
}

// ReleaseAll revokes every outstanding handle; called on teardown.
func (m *Manager) ReleaseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.handles)
	m.handles = make(map[string]Handle)
	m.active = ""
	metrics.RecordHandles(0)

	if n > 0 {
		m.logger.Debug().Int("released", n).Msg("released all playback handles")
	}
}
