package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodguard/serving/pkg/logger"
)

func newTestCache(t *testing.T, localFallback bool) (PredictionCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	conn := NewConnectionFromClient(client, logger.NewNoopLogger())
	return NewPredictionCache(conn, localFallback, logger.NewNoopLogger()), mr
}

func TestFingerprintIsKeyOrderIndependent(t *testing.T) {
	a := map[string]interface{}{"latitude": 6.52, "longitude": 3.37, "rainfall_mm": 85.0}
	b := map[string]interface{}{"rainfall_mm": 85.0, "latitude": 6.52, "longitude": 3.37}

	keyA, err := Fingerprint("flood_risk", a)
	require.NoError(t, err)
	keyB, err := Fingerprint("flood_risk", b)
	require.NoError(t, err)

	assert.Equal(t, keyA, keyB)
}

func TestFingerprintDiffersByValueAndKind(t *testing.T) {
	base := map[string]interface{}{"rainfall_mm": 85.0}
	changed := map[string]interface{}{"rainfall_mm": 85.1}

	keyBase, err := Fingerprint("flood_risk", base)
	require.NoError(t, err)
	keyChanged, err := Fingerprint("flood_risk", changed)
	require.NoError(t, err)
	keyOtherKind, err := Fingerprint("nowcast", base)
	require.NoError(t, err)

	assert.NotEqual(t, keyBase, keyChanged)
	assert.NotEqual(t, keyBase, keyOtherKind)
	assert.Contains(t, keyBase, "flood_risk:")
	// kind prefix + 16 hex chars
	assert.Len(t, keyBase, len("flood_risk:")+16)
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, false)
	ctx := context.Background()
	payload := map[string]interface{}{"latitude": 6.52, "rainfall_mm": 85.0}

	_, ok := cache.Get(ctx, "flood_risk", payload)
	assert.False(t, ok)

	cache.Set(ctx, "flood_risk", payload, []byte(`{"risk_score":87}`), time.Minute)

	val, ok := cache.Get(ctx, "flood_risk", payload)
	require.True(t, ok)
	assert.Equal(t, []byte(`{"risk_score":87}`), val)
}

func TestCacheTTLExpiry(t *testing.T) {
	cache, mr := newTestCache(t, false)
	ctx := context.Background()
	payload := map[string]interface{}{"device_id": "SENSOR_001"}

	cache.Set(ctx, "anomaly", payload, []byte(`{"is_anomaly":false}`), 60*time.Second)

	_, ok := cache.Get(ctx, "anomaly", payload)
	require.True(t, ok)

	mr.FastForward(61 * time.Second)

	_, ok = cache.Get(ctx, "anomaly", payload)
	assert.False(t, ok)
}

func TestCacheClearRemovesOnlyOneKind(t *testing.T) {
	cache, _ := newTestCache(t, false)
	ctx := context.Background()

	cache.Set(ctx, "flood_risk", map[string]interface{}{"a": 1}, []byte("x"), time.Minute)
	cache.Set(ctx, "flood_risk", map[string]interface{}{"a": 2}, []byte("y"), time.Minute)
	cache.Set(ctx, "nowcast", map[string]interface{}{"a": 1}, []byte("z"), time.Minute)

	removed, err := cache.Clear(ctx, "flood_risk")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, ok := cache.Get(ctx, "flood_risk", map[string]interface{}{"a": 1})
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "nowcast", map[string]interface{}{"a": 1})
	assert.True(t, ok)
}

func TestCacheStoreFailureDegradesToMiss(t *testing.T) {
	cache, mr := newTestCache(t, false)
	ctx := context.Background()
	payload := map[string]interface{}{"a": 1}

	cache.Set(ctx, "flood_risk", payload, []byte("x"), time.Minute)
	mr.Close()

	_, ok := cache.Get(ctx, "flood_risk", payload)
	assert.False(t, ok)

	// Writes after the store dies must not panic or error out.
	cache.Set(ctx, "flood_risk", payload, []byte("y"), time.Minute)
}

func TestCacheLocalFallbackServesWhenStoreDown(t *testing.T) {
	cache, mr := newTestCache(t, true)
	ctx := context.Background()
	payload := map[string]interface{}{"a": 1}

	cache.Set(ctx, "flood_risk", payload, []byte("x"), time.Minute)
	mr.Close()

	val, ok := cache.Get(ctx, "flood_risk", payload)
	require.True(t, ok)
	assert.Equal(t, []byte("x"), val)
}

func TestCacheOnlyLocalTier(t *testing.T) {
	cache := NewPredictionCache(nil, true, logger.NewNoopLogger())
	ctx := context.Background()
	payload := map[string]interface{}{"a": 1}

	cache.Set(ctx, "evacuation", payload, []byte("plan"), time.Minute)

	val, ok := cache.Get(ctx, "evacuation", payload)
	require.True(t, ok)
	assert.Equal(t, []byte("plan"), val)

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.Enabled)
	assert.Equal(t, 1, stats.LocalEntries)
	assert.Equal(t, int64(1), stats.Hits)
}

func TestCacheStats(t *testing.T) {
	cache, _ := newTestCache(t, false)
	ctx := context.Background()
	payload := map[string]interface{}{"a": 1}

	cache.Set(ctx, "flood_risk", payload, []byte("x"), time.Minute)
	_, _ = cache.Get(ctx, "flood_risk", payload)
	_, _ = cache.Get(ctx, "flood_risk", map[string]interface{}{"a": 2})

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.Enabled)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Keys)
}
