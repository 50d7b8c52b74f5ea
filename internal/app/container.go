// Package app wires configuration into the services shared by the binaries.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"navexport/internal/config"
	"navexport/internal/db"
	"navexport/internal/export"
	"navexport/internal/metrics"
	"navexport/internal/pkg/nav"
	"navexport/internal/storage"
)

// Container holds all service dependencies
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.ExportMetrics
	Store    storage.DocumentStore
	NAV      *nav.Client
	DB       *gorm.DB
	History  *db.RunLogRepository
	Redis    *redis.Client
	Runner   *export.Runner
}

type Option func(*Container)

// WithStore replaces the S3 document store.
func WithStore(store storage.DocumentStore) Option {
	return func(c *Container) {
		c.Store = store
	}
}

// WithDB replaces the postgres connection used for run history.
func WithDB(conn *gorm.DB) Option {
	return func(c *Container) {
		c.DB = conn
	}
}

// NewContainer validates cfg and builds every service an export run needs.
// Run history and redis are optional: when unavailable the container carries on
// without them.
func NewContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Metrics = metrics.New(c.Registry)

	if err := c.initStore(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize document store: %w", err)
	}
	if err := c.initNAV(); err != nil {
		return nil, fmt.Errorf("failed to initialize NAV client: %w", err)
	}
	c.initHistory()
	c.initRedis(ctx)

	runnerOpts := []export.RunnerOption{
		export.WithLogger(c.Logger),
		export.WithMetrics(c.Metrics),
	}
	if c.History != nil {
		runnerOpts = append(runnerOpts, export.WithHistory(c.History))
	}
	c.Runner = export.NewRunner(export.Options{
		CompanyConfigFileID: cfg.CompanyConfigFileID,
		SummaryFolder:       cfg.SummaryLogFolderID,
	}, c.Store, c.NAV, runnerOpts...)

	return c, nil
}

func (c *Container) initStore(ctx context.Context) error {
	if c.Store != nil {
		return nil
	}
	store, err := storage.NewS3Store(ctx, &c.Config.Storage, storage.WithLogger(c.Logger))
	if err != nil {
		return err
	}
	c.Store = store
	return nil
}

func (c *Container) initNAV() error {
	direction, err := nav.ParseDirection(c.Config.NAV.InvoiceDirection)
	if err != nil {
		return err
	}

	sw := c.Config.NAV.Software
	c.NAV = nav.New(
		nav.WithTimeout(c.Config.NAV.RequestTimeout),
		nav.WithDirection(direction),
		nav.WithSoftware(nav.Software{
			ID:          sw.ID,
			Name:        sw.Name,
			Operation:   sw.Operation,
			MainVersion: sw.MainVersion,
			DevName:     sw.DevName,
			DevContact:  sw.DevContact,
		}),
		nav.WithRateLimit(c.Config.NAV.RequestsPerSecond),
		nav.WithStrictPagination(c.Config.NAV.StrictPagination),
		nav.WithPageObserver(c.Metrics),
		nav.WithLogger(c.Logger),
	)
	return nil
}

// initHistory connects the run history database
func (c *Container) initHistory() {
	if c.DB == nil {
		if c.Config.DatabaseURL == "" {
			c.Logger.Info("DATABASE_URL not set, running without run history")
			return
		}
		conn, err := db.InitDB(c.Config.DatabaseURL)
		if err != nil {
			c.Logger.Warn("database connection failed, running without run history", zap.Error(err))
			return
		}
		c.DB = conn
	}

	if err := db.Migrate(c.DB); err != nil {
		c.Logger.Warn("database migration failed, running without run history", zap.Error(err))
		c.DB = nil
		return
	}
	c.History = db.NewRunLogRepository(c.DB)
}

// initRedis initializes Redis client
func (c *Container) initRedis(ctx context.Context) {
	if c.Config.RedisURL == "" {
		return
	}

	opt, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		c.Logger.Warn("invalid REDIS_URL, running without run lock", zap.Error(err))
		return
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		c.Logger.Warn("Redis connection failed, running without run lock", zap.Error(err))
		_ = client.Close()
		return
	}
	c.Logger.Info("Redis connection established")
	c.Redis = client
}

// Close releases the database and redis connections.
func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = c.Logger.Sync()
}
