package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/invhealth/internal/config"
	"github.com/andresuchdata/invhealth/internal/domain"
)

const (
	reportKeyPrefix    = "audit:report"
	reportScanBatch    = 100
	latestReportSuffix = "latest"
)

// ReportCache keeps recently computed audit reports close to the API.
type ReportCache interface {
	GetLatest(ctx context.Context) (*domain.AuditReport, bool, error)
	SetLatest(ctx context.Context, report *domain.AuditReport) error
	GetByDate(ctx context.Context, auditDate string) (*domain.AuditReport, bool, error)
	InvalidateAll(ctx context.Context) error
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReportCache struct{}

// NewReportCache returns the redis cache when caching is enabled and a
// client is available, the noop cache otherwise.
func NewReportCache(client *redis.Client, cfg config.CacheConfig) ReportCache {
	if !cfg.Enabled || client == nil {
		return &noopReportCache{}
	}
	return &redisReportCache{client: client, ttl: reportTTL(cfg)}
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) GetLatest(ctx context.Context) (*domain.AuditReport, bool, error) {
	return c.get(ctx, buildReportKey(""))
}

// SetLatest stores the report as latest and under its audit date.
func (c *redisReportCache) SetLatest(ctx context.Context, report *domain.AuditReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode audit report cache: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, buildReportKey(""), payload, c.ttl)
	if report.Summary.AuditDate != "" {
		pipe.Set(ctx, buildReportKey(report.Summary.AuditDate), payload, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisReportCache) GetByDate(ctx context.Context, auditDate string) (*domain.AuditReport, bool, error) {
	return c.get(ctx, buildReportKey(auditDate))
}

func (c *redisReportCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, reportKeyPrefix, reportScanBatch)
}

func (c *redisReportCache) get(ctx context.Context, key string) (*domain.AuditReport, bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var report domain.AuditReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, false, fmt.Errorf("decode audit report cache: %w", err)
	}
	return &report, true, nil
}

func (n *noopReportCache) GetLatest(ctx context.Context) (*domain.AuditReport, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) SetLatest(ctx context.Context, report *domain.AuditReport) error {
	return nil
}

func (n *noopReportCache) GetByDate(ctx context.Context, auditDate string) (*domain.AuditReport, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildReportKey(auditDate string) string {
	auditDate = strings.TrimSpace(auditDate)
	if auditDate == "" {
		return fmt.Sprintf("%s:%s", reportKeyPrefix, latestReportSuffix)
	}
	return fmt.Sprintf("%s:date:%s", reportKeyPrefix, auditDate)
}
