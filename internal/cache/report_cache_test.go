package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/invhealth/internal/config"
	"github.com/andresuchdata/invhealth/internal/domain"
)

func TestBuildReportKey(t *testing.T) {
	assert.Equal(t, "audit:report:latest", buildReportKey(""))
	assert.Equal(t, "audit:report:latest", buildReportKey("  "))
	assert.Equal(t, "audit:report:date:2025-03-01", buildReportKey("2025-03-01"))
}

func TestNewReportCache_DisabledIsNoop(t *testing.T) {
	c := NewReportCache(nil, config.CacheConfig{Enabled: true})
	_, ok := c.(*noopReportCache)
	assert.True(t, ok, "no client means no cache")

	c = NewReportCache(nil, config.CacheConfig{Enabled: false})
	_, ok = c.(*noopReportCache)
	assert.True(t, ok)
}

func TestNoopReportCache(t *testing.T) {
	ctx := context.Background()
	c := NewNoopReportCache()

	require.NoError(t, c.SetLatest(ctx, &domain.AuditReport{}))
	report, ok, err := c.GetLatest(ctx)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, report)

	_, ok, err = c.GetByDate(ctx, "2025-03-01")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.InvalidateAll(ctx))
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)

	opts, err = buildRedisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:secret@redis.internal:6390/3"})
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6390", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "http://nope"})
	assert.Error(t, err)
}

func TestReportTTL(t *testing.T) {
	assert.Equal(t, defaultCacheTTL, reportTTL(config.CacheConfig{}))
	assert.Equal(t, 90*time.Second, reportTTL(config.CacheConfig{ReportTTLSeconds: 90}))
}
