package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/floodguard/serving/pkg/errors"
	"github.com/floodguard/serving/pkg/logger"
)

// fingerprintLength is the number of hex characters kept from the payload
// digest. Keys look like "flood_risk:a1b2c3d4e5f60718".
const fingerprintLength = 16

// PredictionCache stores serialized prediction results keyed by a
// content fingerprint of the request payload.
//
// Store failures never propagate to callers: a failed Get is a miss, a
// failed Set is dropped after logging. Only Clear and Stats return errors,
// since their callers are operator endpoints that need to know.
type PredictionCache interface {
	Get(ctx context.Context, kind string, payload interface{}) ([]byte, bool)
	Set(ctx context.Context, kind string, payload interface{}, value []byte, ttl time.Duration)
	Delete(ctx context.Context, kind string, payload interface{}) error
	Clear(ctx context.Context, kind string) (int, error)
	Stats(ctx context.Context) (*CacheStats, error)
}

// CacheStats reports cache effectiveness. Hits and Misses are counted in
// process; the keyspace numbers come from the Redis server when available.
type CacheStats struct {
	Enabled        bool   `json:"enabled"`
	Hits           int64  `json:"hits"`
	Misses         int64  `json:"misses"`
	Keys           int64  `json:"keys"`
	KeyspaceHits   int64  `json:"keyspace_hits"`
	KeyspaceMisses int64  `json:"keyspace_misses"`
	UsedMemory     string `json:"used_memory,omitempty"`
	LocalEntries   int    `json:"local_entries"`
}

// Fingerprint derives the cache key for a payload. The payload is
// round-tripped through generic JSON so map key order never changes the
// digest; two requests with identical content always share a key.
func Fingerprint(kind string, payload interface{}) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.ErrCache("fingerprint", err)
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", apperrors.ErrCache("fingerprint", err)
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", apperrors.ErrCache("fingerprint", err)
	}
	sum := sha256.Sum256(canonical)
	return kind + ":" + hex.EncodeToString(sum[:])[:fingerprintLength], nil
}

type predictionCache struct {
	conn   *Connection   // nil when Redis is disabled
	local  *gocache.Cache // nil when the local tier is disabled
	logger logger.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewPredictionCache builds the cache. conn may be nil to run purely on the
// local tier; localFallback controls whether the in-process tier exists at
// all. With neither, every lookup is a miss.
func NewPredictionCache(conn *Connection, localFallback bool, log logger.Logger) PredictionCache {
	var local *gocache.Cache
	if localFallback {
		local = gocache.New(gocache.NoExpiration, 2*time.Minute)
	}
	return &predictionCache{
		conn:   conn,
		local:  local,
		logger: log.WithComponent("prediction_cache"),
	}
}

func (c *predictionCache) Get(ctx context.Context, kind string, payload interface{}) ([]byte, bool) {
	key, err := Fingerprint(kind, payload)
	if err != nil {
		c.logger.Warn(ctx, "cache key derivation failed", logger.String("kind", kind))
		c.misses.Add(1)
		return nil, false
	}

	if c.conn != nil {
		val, err := c.conn.Client().Get(ctx, key).Bytes()
		if err == nil {
			c.hits.Add(1)
			return val, true
		}
		if err != redis.Nil {
			c.logger.Warn(ctx, "cache read failed, treating as miss",
				logger.String("key", key), logger.String("error", err.Error()))
			// fall through to the local tier
		} else if c.local == nil {
			c.misses.Add(1)
			return nil, false
		}
	}

	if c.local != nil {
		if val, ok := c.local.Get(key); ok {
			c.hits.Add(1)
			return val.([]byte), true
		}
	}

	c.misses.Add(1)
	return nil, false
}

func (c *predictionCache) Set(ctx context.Context, kind string, payload interface{}, value []byte, ttl time.Duration) {
	key, err := Fingerprint(kind, payload)
	if err != nil {
		c.logger.Warn(ctx, "cache key derivation failed", logger.String("kind", kind))
		return
	}

	if c.conn != nil {
		if err := c.conn.Client().Set(ctx, key, value, ttl).Err(); err != nil {
			c.logger.Warn(ctx, "cache write failed, result not cached",
				logger.String("key", key), logger.String("error", err.Error()))
		}
	}

	if c.local != nil {
		c.local.Set(key, value, ttl)
	}
}

func (c *predictionCache) Delete(ctx context.Context, kind string, payload interface{}) error {
	key, err := Fingerprint(kind, payload)
	if err != nil {
		return err
	}

	if c.local != nil {
		c.local.Delete(key)
	}
	if c.conn != nil {
		if err := c.conn.Client().Del(ctx, key).Err(); err != nil {
			return apperrors.ErrCache("delete", err)
		}
	}
	return nil
}

// Clear removes every entry of one kind and returns the number removed.
func (c *predictionCache) Clear(ctx context.Context, kind string) (int, error) {
	prefix := kind + ":"
	removed := 0

	if c.local != nil {
		for key := range c.local.Items() {
			if strings.HasPrefix(key, prefix) {
				c.local.Delete(key)
				removed++
			}
		}
	}

	if c.conn != nil {
		client := c.conn.Client()
		iter := client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return removed, apperrors.ErrCache("scan", err)
		}
		if len(keys) > 0 {
			n, err := client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, apperrors.ErrCache("delete", err)
			}
			removed = int(n)
		} else if c.local == nil {
			removed = 0
		}
	}

	c.logger.Info(ctx, "cache cleared",
		logger.String("kind", kind), logger.Int("removed", removed))
	return removed, nil
}

func (c *predictionCache) Stats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{
		Enabled: c.conn != nil || c.local != nil,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
	if c.local != nil {
		stats.LocalEntries = c.local.ItemCount()
	}
	if c.conn == nil {
		return stats, nil
	}

	client := c.conn.Client()
	stats.Keys, _ = client.DBSize(ctx).Result()

	// INFO is best effort; not every store exposes it.
	info, err := client.Info(ctx, "stats", "memory").Result()
	if err != nil {
		c.logger.Warn(ctx, "cache info unavailable", logger.String("error", err.Error()))
		return stats, nil
	}
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "keyspace_hits:"):
			stats.KeyspaceHits = parseInfoInt(line)
		case strings.HasPrefix(line, "keyspace_misses:"):
			stats.KeyspaceMisses = parseInfoInt(line)
		case strings.HasPrefix(line, "used_memory_human:"):
			stats.UsedMemory = strings.TrimPrefix(line, "used_memory_human:")
		}
	}
	return stats, nil
}

func parseInfoInt(line string) int64 {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return 0
	}
	var n int64
	for _, ch := range line[idx+1:] {
		if ch < '0' || ch > '9' {
			break
		}
		n = n*10 + int64(ch-'0')
	}
	return n
}
