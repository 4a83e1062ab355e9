// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ManuGH/reelvault/internal/api"
	"github.com/ManuGH/reelvault/internal/app"
	"github.com/ManuGH/reelvault/internal/config"
	"github.com/ManuGH/reelvault/internal/daemon"
	rvlog "github.com/ManuGH/reelvault/internal/log"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	rvlog.Configure(rvlog.Config{
		Level:   "info",
		Service: "reelvault",
		Version: version,
	})
	logger := rvlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	rvlog.Configure(rvlog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: version,
	})
	logger = rvlog.WithComponent("daemon")

	vault, err := app.Open(ctx, cfg, rvlog.WithComponent("vault"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open vault")
	}
	defer func() {
		if err := vault.Close(); err != nil {
			logger.Error().Err(err).Msg("vault close error")
		}
	}()

	server := api.NewServer(vault, cfg, rvlog.WithComponent("api"))
	d := daemon.New(cfg, vault, server.Routes(), logger)

	logger.Info().
		Str("version", version).
		Str("listen", cfg.Listen).
		Str("store", cfg.StoreBackend).
		Str("data", cfg.DataDir).
		Msg("starting reelvault")

	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("daemon exited with error")
	}
}
