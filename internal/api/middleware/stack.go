// SPDX-License-Identifier: MIT

// Package middleware provides the canonical HTTP middleware stack:
// panic recovery, request IDs, request logging, Prometheus metrics and
// per-client rate limiting.
package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ManuGH/reelvault/internal/log"
)

// StackConfig controls which middlewares the stack applies.
type StackConfig struct {
	Logger zerolog.Logger

	// MetricsEnabled toggles per-request Prometheus instrumentation.
	MetricsEnabled bool
}

// NewRouter constructs a chi router with the canonical stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack attaches the shared middleware in order. Recovery comes
// first so every later layer is covered.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	if cfg.MetricsEnabled {
		r.Use(Metrics())
	}
	r.Use(RequestLogger(cfg.Logger))
}

// RequestLogger emits one structured log line per request and seeds
// the request context with the request id for downstream log calls.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := chimw.GetReqID(r.Context())
			ctx := log.ContextWithRequestID(r.Context(), reqID)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			logger.Info().
				Str("request_id", reqID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}
