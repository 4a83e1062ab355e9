// SPDX-License-Identifier: MIT

// Package config loads the reelvault runtime configuration from the
// environment. Precedence is ENV > defaults; the snapshot is immutable
// once loaded.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Store backends accepted by REELVAULT_STORE_BACKEND.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Cache backends accepted by REELVAULT_CACHE_BACKEND.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the immutable runtime configuration snapshot.
type Config struct {
	DataDir      string // root directory for persistent state
	Listen       string // HTTP listen address
	StoreBackend string // badger | sqlite | memory

	FFmpegPath   string        // ffmpeg binary for thumbnail extraction
	FFprobePath  string        // ffprobe binary for duration extraction
	ProbeTimeout time.Duration // hard cap per extraction; degrades to zero metadata on expiry

	WatchDir     string        // optional drop directory ingested automatically ("" disables)
	SettleWindow time.Duration // how long a dropped file must stay unchanged before ingest

	ExportDir string // directory exports are confined to

	MaxUploadBytes int64 // per-request multipart memory/stream cap

	CacheBackend  string // memory | redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitRPM   int  // ingest requests per minute per client IP (0 disables)
	MetricsEnabled bool // per-request Prometheus instrumentation

	LogLevel   string
	LogService string
}

// FromEnv builds a Config from REELVAULT_* environment variables,
// applying defaults for anything unset.
func FromEnv() Config {
	dataDir := ParseString("REELVAULT_DATA", "/var/lib/reelvault")

	return Config{
		DataDir:      dataDir,
		Listen:       ParseString("REELVAULT_LISTEN", ":8080"),
		StoreBackend: strings.ToLower(ParseString("REELVAULT_STORE_BACKEND", BackendBadger)),

		FFmpegPath:   ParseString("REELVAULT_FFMPEG", "ffmpeg"),
		FFprobePath:  ParseString("REELVAULT_FFPROBE", "ffprobe"),
		ProbeTimeout: ParseDuration("REELVAULT_PROBE_TIMEOUT", 10*time.Second),

		WatchDir:     ParseString("REELVAULT_WATCH_DIR", ""),
		SettleWindow: ParseDuration("REELVAULT_SETTLE_WINDOW", 2*time.Second),

		ExportDir: ParseString("REELVAULT_EXPORT_DIR", filepath.Join(dataDir, "exports")),

		MaxUploadBytes: ParseInt64("REELVAULT_MAX_UPLOAD_BYTES", 2<<30),

		CacheBackend:  strings.ToLower(ParseString("REELVAULT_CACHE_BACKEND", CacheMemory)),
		RedisAddr:     ParseString("REELVAULT_REDIS_ADDR", "localhost:6379"),
		RedisPassword: ParseString("REELVAULT_REDIS_PASSWORD", ""),
		RedisDB:       ParseInt("REELVAULT_REDIS_DB", 0),

		RateLimitRPM:   ParseInt("REELVAULT_RATE_LIMIT_RPM", 60),
		MetricsEnabled: ParseBool("REELVAULT_HTTP_METRICS", true),

		LogLevel:   ParseString("REELVAULT_LOG_LEVEL", "info"),
		LogService: ParseString("REELVAULT_LOG_SERVICE", "reelvault"),
	}
}

// Validate checks the snapshot for values that would fail at runtime.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendBadger, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown store backend: %q", c.StoreBackend)
	}
	switch c.CacheBackend {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("unknown cache backend: %q", c.CacheBackend)
	}
	if c.StoreBackend != BackendMemory && c.DataDir == "" {
		return fmt.Errorf("data directory required for %s backend", c.StoreBackend)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be positive, got %s", c.ProbeTimeout)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}
