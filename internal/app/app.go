// Package app wires configuration into a ready AuditService for the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/invhealth/internal/broker"
	"github.com/andresuchdata/invhealth/internal/cache"
	"github.com/andresuchdata/invhealth/internal/config"
	"github.com/andresuchdata/invhealth/internal/lock"
	"github.com/andresuchdata/invhealth/internal/repository/postgres"
	"github.com/andresuchdata/invhealth/internal/service"
	"github.com/andresuchdata/invhealth/internal/storage"
)

// App holds the long-lived resources behind the audit service.
type App struct {
	DB      *postgres.DB
	Service *service.AuditService

	redis     *redis.Client
	publisher broker.RetrainPublisher
}

// New connects to every configured backend. Optional backends that are
// disabled get their noop or in-process versions.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// 1. Database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a := &App{DB: db}

	// 2. Redis, shared by the report cache and the run lock
	if cfg.Cache.Enabled || cfg.Lock.Enabled {
		client, err := cache.NewRedisClient(cfg.Cache)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.redis = client
	}

	reportCache := cache.NewReportCache(a.redis, cfg.Cache)

	var locker lock.RunLocker
	if cfg.Lock.Enabled && a.redis != nil {
		locker = lock.NewRedisLocker(a.redis, time.Duration(cfg.Lock.TTLSeconds)*time.Second)
	} else {
		locker = lock.NewLocalLocker()
	}

	// 3. Archive
	archive := storage.NewNoopArchive()
	if cfg.Storage.Enabled {
		minioArchive, err := storage.NewMinioArchive(cfg.Storage)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		if err := minioArchive.EnsureBucket(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
		archive = minioArchive
	}

	// 4. Retrain events
	a.publisher = broker.NewNoopPublisher()
	if cfg.Broker.Enabled {
		if len(cfg.Broker.Brokers) == 0 {
			_ = a.Close()
			return nil, errors.New("kafka is enabled but no brokers are configured")
		}
		a.publisher = broker.NewKafkaPublisher(cfg.Broker.Brokers, cfg.Broker.RetrainTopic)
	}

	a.Service = service.NewAuditService(service.Dependencies{
		Store:     postgres.NewStore(db),
		Runs:      postgres.NewRunRepository(db),
		Cache:     reportCache,
		Locker:    locker,
		Archive:   archive,
		Publisher: a.publisher,
	}, cfg.Audit)

	log.Info().
		Bool("cache", cfg.Cache.Enabled).
		Bool("redis_lock", cfg.Lock.Enabled).
		Bool("storage", cfg.Storage.Enabled).
		Bool("kafka", cfg.Broker.Enabled).
		Msg("Audit service ready")

	return a, nil
}

// Close releases everything New opened.
func (a *App) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
