package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/ethsentinel/internal/blob/s3"
	"github.com/alanyoungcy/ethsentinel/internal/cache/redis"
	"github.com/alanyoungcy/ethsentinel/internal/config"
	"github.com/alanyoungcy/ethsentinel/internal/domain"
	"github.com/alanyoungcy/ethsentinel/internal/pipeline"
	"github.com/alanyoungcy/ethsentinel/internal/store/memory"
	"github.com/alanyoungcy/ethsentinel/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	Trainer *pipeline.Trainer

	RunStore    domain.RunStore
	ResultCache domain.ResultCache
	ActivityLog domain.ActivityLog
	LockManager domain.LockManager

	Archiver  *s3blob.Archiver
	Artifacts domain.BlobReader
}

// Wire constructs the dependency graph from the configuration. External
// backends (postgres, redis, s3) are only dialed when enabled; otherwise the
// in-memory implementations take their place so the service runs standalone.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Trainer: pipeline.New(pipeline.Config{
			TestFraction:   cfg.Training.TestFraction,
			IQRFactor:      cfg.Training.IQRFactor,
			CVFolds:        cfg.Training.CVFolds,
			SMOTENeighbors: cfg.Training.SMOTENeighbors,
			TargetRatio:    cfg.Training.TargetRatio,
		}, logger),
	}

	// Run store: postgres when enabled, bounded in-memory otherwise.
	if cfg.Postgres.Enabled {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("app: connect postgres: %w", err)
		}
		closers = append(closers, pg.Close)

		if cfg.Postgres.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("app: run migrations: %w", err)
			}
		}
		deps.RunStore = postgres.NewRunStore(pg.Pool())
	} else {
		deps.RunStore = memory.NewRunStore(cfg.Retention.HistoryRuns)
	}

	// Cache, activity feed, and lock: redis when enabled.
	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("app: connect redis: %w", err)
		}
		closers = append(closers, func() { _ = rc.Close() })

		deps.ResultCache = redis.NewResultCache(rc)
		deps.ActivityLog = redis.NewActivityLog(rc, cfg.Retention.ActivityEvents)
		deps.LockManager = redis.NewLockManager(rc)
	} else {
		deps.ResultCache = memory.NewResultCache()
		deps.ActivityLog = memory.NewActivityLog(cfg.Retention.ActivityEvents)
		deps.LockManager = memory.NewLockManager()
	}

	// Archival is optional.
	if cfg.S3.Enabled {
		sc, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("app: connect s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(sc))
		deps.Artifacts = s3blob.NewReader(sc)
	}

	return deps, cleanup, nil
}
