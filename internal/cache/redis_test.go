// SPDX-License-Identifier: MIT

package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func setupMiniRedis(t *testing.T) *RedisCache[probeValue] {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return newRedisCacheForClient[probeValue](client, zerolog.Nop())
}

func TestRedisCacheSetGet(t *testing.T) {
	c := setupMiniRedis(t)
	t.Cleanup(func() { _ = c.Close() })

	c.Set("probe:abc", probeValue{Duration: 42, Thumbnail: "thumb"}, 5*time.Minute)

	got, found := c.Get("probe:abc")
	if !found {
		t.Fatal("expected value to be found")
	}
	if got.Duration != 42 || got.Thumbnail != "thumb" {
		t.Fatalf("unexpected value: %+v", got)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Sets != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRedisCacheMiss(t *testing.T) {
	c := setupMiniRedis(t)
	t.Cleanup(func() { _ = c.Close() })

	if _, found := c.Get("absent"); found {
		t.Fatal("expected miss for absent key")
	}
}

func TestRedisCacheDelete(t *testing.T) {
	c := setupMiniRedis(t)
	t.Cleanup(func() { _ = c.Close() })

	c.Set("k", probeValue{Duration: 1}, time.Minute)
	c.Delete("k")

	if _, found := c.Get("k"); found {
		t.Fatal("deleted key still present")
	}
}
