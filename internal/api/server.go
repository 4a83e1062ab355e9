// SPDX-License-Identifier: MIT

// Package api exposes the vault over HTTP: upload, listing, deletion,
// reel navigation, handle-based playback and export.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/reelvault/internal/api/middleware"
	"github.com/ManuGH/reelvault/internal/app"
	"github.com/ManuGH/reelvault/internal/config"
	"github.com/ManuGH/reelvault/internal/ingest"
	"github.com/ManuGH/reelvault/internal/log"
	"github.com/ManuGH/reelvault/internal/media"
)

// multipartMemory caps how much of an upload is buffered in memory
// before spilling to disk.
const multipartMemory = 32 << 20

// Server serves the HTTP API over a vault App.
type Server struct {
	app    *app.App
	cfg    config.Config
	logger zerolog.Logger
}

// NewServer creates the API server.
func NewServer(a *app.App, cfg config.Config, logger zerolog.Logger) *Server {
	return &Server{app: a, cfg: cfg, logger: logger}
}

// Routes builds the router with the canonical middleware stack.
func (s *Server) Routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		Logger:         s.logger,
		MetricsEnabled: s.cfg.MetricsEnabled,
	})

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/videos", s.handleList)
		r.With(middleware.IngestRateLimit(s.cfg.RateLimitRPM)).
			Post("/videos", s.handleUpload)
		r.Delete("/videos/{id}", s.handleDelete)
		r.Post("/videos/{id}/export", s.handleExport)

		r.Get("/reel", s.handleReel)
		r.Post("/reel/next", s.handleNext)
		r.Post("/reel/previous", s.handlePrevious)
		r.Post("/reel/jump", s.handleJump)
	})

	r.Get("/play/{token}", s.handlePlay)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	snap := s.app.Snapshot()
	writeJSON(w, http.StatusOK, snap.Items)
}

// uploadResponse carries the per-item outcome of an upload batch plus
// the reconciled reel state.
type uploadResponse struct {
	Report   ingest.Report     `json:"report"`
	Progress []ingest.Progress `json:"progress"`
	Reel     app.Snapshot      `json:"reel"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse upload: %w", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("no files supplied"))
		return
	}

	files := make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		files = append(files, ingest.File{
			Name:      fh.Filename,
			MimeType:  fh.Header.Get("Content-Type"),
			SizeBytes: fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}

	var progress []ingest.Progress
	report, err := s.app.Ingest(r.Context(), files, func(ev ingest.Progress) {
		progress = append(progress, ev)
	})
	if err != nil {
		// Records already persisted survive; the client asked us to stop.
		logger := log.WithContext(r.Context(), s.logger)
		logger.Warn().Err(err).Msg("upload batch aborted")
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Report:   report,
		Progress: progress,
		Reel:     s.app.Snapshot(),
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.app.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Name string `json:"name"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("parse request: %w", err))
			return
		}
	}

	path, err := s.app.Export(r.Context(), id, req.Name)
	switch {
	case errors.Is(err, media.ErrNotFound):
		writeNotFound(w)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

func (s *Server) handleReel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Snapshot())
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Next(r.Context()))
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Previous(r.Context()))
}

func (s *Server) handleJump(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse request: %w", err))
		return
	}

	snap, err := s.app.JumpTo(r.Context(), req.Index)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handlePlay streams the payload behind a handle token. Unknown or
// revoked tokens are indistinguishable from never-issued ones.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	h, ok := s.app.ResolveBlob(token)
	if !ok {
		writeNotFound(w)
		return
	}

	rc, err := s.app.OpenBlob(r.Context(), token)
	if err != nil {
		writeNotFound(w)
		return
	}
	defer func() { _ = rc.Close() }()

	if rec, ok := s.app.Record(h.RecordID); ok {
		if rec.MimeType != "" {
			w.Header().Set("Content-Type", rec.MimeType)
		}
		if rec.SizeBytes > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(rec.SizeBytes, 10))
		}
	}
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Debug().Err(err).Str("token", token).Msg("playback stream interrupted")
	}
}
