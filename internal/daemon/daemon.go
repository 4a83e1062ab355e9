// SPDX-License-Identifier: MIT

// Package daemon runs the long-lived pieces of the vault: the HTTP
// server and, when configured, the drop directory watcher. Everything
// shuts down together when the context is cancelled.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/reelvault/internal/app"
	"github.com/ManuGH/reelvault/internal/config"
	"github.com/ManuGH/reelvault/internal/watch"
)

const shutdownTimeout = 10 * time.Second

// Daemon owns the runtime components.
type Daemon struct {
	cfg    config.Config
	vault  *app.App
	logger zerolog.Logger

	server *http.Server
}

// New assembles a daemon around an already-opened vault App.
func New(cfg config.Config, vault *app.App, handler http.Handler, logger zerolog.Logger) *Daemon {
	return &Daemon{
		cfg:    cfg,
		vault:  vault,
		logger: logger,
		server: &http.Server{
			Addr:              cfg.Listen,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Run starts the HTTP server and the optional watcher and blocks until
// ctx is cancelled or a component fails. Shutdown is graceful.
func (d *Daemon) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.logger.Info().Str("listen", d.cfg.Listen).Msg("http server listening")
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			d.logger.Error().Err(err).Msg("http server shutdown error")
		}
		return nil
	})

	if d.cfg.WatchDir != "" {
		w := watch.New(d.cfg.WatchDir, d.cfg.SettleWindow, d.vault, d.logger.With().Str("component", "watch").Logger())
		g.Go(func() error {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("drop watcher: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()
	d.logger.Info().Msg("daemon stopped")
	return err
}
