// Package bootstrap wires configuration into infrastructure clients, catalog
// sources and the matching service. Both binaries share it.
package bootstrap

import (
	"context"
	"time"

	"github.com/turtacn/reagent-match/internal/application/matching"
	"github.com/turtacn/reagent-match/internal/config"
	"github.com/turtacn/reagent-match/internal/domain/catalog"
	"github.com/turtacn/reagent-match/internal/infrastructure/database/postgres"
	"github.com/turtacn/reagent-match/internal/infrastructure/database/postgres/repositories"
	redisinfra "github.com/turtacn/reagent-match/internal/infrastructure/database/redis"
	"github.com/turtacn/reagent-match/internal/infrastructure/datasource/csvfile"
	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/prometheus"
	minioinfra "github.com/turtacn/reagent-match/internal/infrastructure/storage/minio"
	matcher "github.com/turtacn/reagent-match/internal/intelligence/catalog_matcher"
	"github.com/turtacn/reagent-match/pkg/errors"
)

// Check is a named readiness probe.
type Check func(ctx context.Context) error

// Infrastructure holds the clients and catalog sources built from a Config.
type Infrastructure struct {
	Postgres *postgres.Connection
	Redis    *redisinfra.Client
	MinIO    *minioinfra.MinIOClient

	Collector prometheus.MetricsCollector
	Metrics   *prometheus.MatchMetrics

	Products     catalog.ProductRepository
	Synonyms     catalog.SynonymRepository
	Invalidators []matching.Invalidator

	// WatchPaths lists the catalog files to watch for changes (file source).
	WatchPaths []string

	logger logging.Logger
}

// CSVOptions maps the catalog section onto csvfile parsing options.
func CSVOptions(cfg config.CatalogConfig) csvfile.Options {
	opts := csvfile.DefaultOptions()
	if r := []rune(cfg.Delimiter); len(r) == 1 {
		opts.Delimiter = r[0]
	}
	opts.Columns = csvfile.Columns{
		ID:        cfg.Columns.ID,
		Name:      cfg.Columns.Name,
		Quantity:  cfg.Columns.Quantity,
		Unit:      cfg.Columns.Unit,
		Purity:    cfg.Columns.Purity,
		Canonical: cfg.Columns.Canonical,
		Synonyms:  cfg.Columns.Synonyms,
	}
	return opts
}

// PostgresConfig maps the database section onto the connection settings.
func PostgresConfig(cfg config.DatabaseConfig) postgres.PostgresConfig {
	return postgres.PostgresConfig{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Database:        cfg.DBName,
		Username:        cfg.User,
		Password:        cfg.Password,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}
}

// MinIOConfig maps the minio section onto the client settings.
func MinIOConfig(cfg config.MinIOConfig) *minioinfra.MinIOConfig {
	return &minioinfra.MinIOConfig{
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKey,
		SecretAccessKey: cfg.SecretKey,
		UseSSL:          cfg.UseSSL,
		Region:          cfg.Region,
		Bucket:          cfg.Bucket,
	}
}

// RedisConfig maps the redis section onto the client settings.
func RedisConfig(cfg config.RedisConfig) *redisinfra.RedisConfig {
	return &redisinfra.RedisConfig{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// New connects every client the configured catalog source needs. On error
// the clients opened so far are closed.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Infrastructure, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	infra := &Infrastructure{logger: logger}

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Metrics.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return nil, err
	}
	infra.Collector = collector
	infra.Metrics = prometheus.NewMatchMetrics(collector)

	if err := infra.openSources(ctx, cfg); err != nil {
		infra.Close()
		return nil, err
	}

	if cfg.Redis.Enabled {
		rc, err := redisinfra.NewClient(RedisConfig(cfg.Redis), logger)
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.Redis = rc
		cache := redisinfra.NewRedisCache(rc, logger, redisinfra.WithPrefix(cfg.Redis.KeyPrefix), redisinfra.WithDefaultTTL(cfg.Redis.SnapshotTTL))
		products := redisinfra.NewCachedProductRepository(infra.Products, cache, cfg.Redis.SnapshotTTL, logger)
		synonyms := redisinfra.NewCachedSynonymRepository(infra.Synonyms, cache, cfg.Redis.SnapshotTTL, logger)
		infra.Products, infra.Synonyms = products, synonyms
		infra.Invalidators = append(infra.Invalidators, products, synonyms)
	}

	logger.Info("infrastructure initialized",
		logging.String("source", cfg.Catalog.Source),
		logging.Bool("redis", infra.Redis != nil),
	)
	return infra, nil
}

func (i *Infrastructure) openSources(ctx context.Context, cfg *config.Config) error {
	opts := CSVOptions(cfg.Catalog)
	switch cfg.Catalog.Source {
	case config.SourceFile:
		i.Products = csvfile.NewProductSource(cfg.Catalog.ProductsPath, opts, i.logger)
		i.Synonyms = csvfile.NewSynonymSource(cfg.Catalog.SynonymsPath, opts, i.logger)
		if cfg.Catalog.Watch {
			i.WatchPaths = []string{cfg.Catalog.ProductsPath, cfg.Catalog.SynonymsPath}
		}
	case config.SourcePostgres:
		conn, err := postgres.NewConnection(PostgresConfig(cfg.Database), i.logger)
		if err != nil {
			return err
		}
		i.Postgres = conn
		if cfg.Database.AutoMigrate {
			if err := conn.RunMigrations(cfg.Database.MigrationPath); err != nil {
				return err
			}
		}
		i.Products = repositories.NewPostgresProductRepo(conn, i.logger)
		i.Synonyms = repositories.NewPostgresSynonymRepo(conn, i.logger)
	case config.SourceMinIO:
		mc, err := minioinfra.NewMinIOClient(MinIOConfig(cfg.MinIO), i.logger)
		if err != nil {
			return err
		}
		i.MinIO = mc
		i.Products = minioinfra.NewProductObjectSource(mc, cfg.Catalog.ProductsObject, opts, i.logger)
		i.Synonyms = minioinfra.NewSynonymObjectSource(mc, cfg.Catalog.SynonymsObject, opts, i.logger)
	default:
		return errors.New(errors.ErrCodeSourceUnsupported, "unsupported catalog source").WithDetail(cfg.Catalog.Source)
	}
	return nil
}

// Checks returns readiness probes for every connected backend.
func (i *Infrastructure) Checks() map[string]Check {
	checks := make(map[string]Check)
	if i.Postgres != nil {
		checks["postgres"] = i.Postgres.Ping
	}
	if i.Redis != nil {
		checks["redis"] = i.Redis.Ping
	}
	if i.MinIO != nil {
		checks["minio"] = i.MinIO.Ping
	}
	return checks
}

// NewMatchingService builds the matcher and the service over the sources.
func (i *Infrastructure) NewMatchingService(cfg matcher.Config) (matching.Service, error) {
	m, err := matcher.NewMatcher(cfg, i.logger)
	if err != nil {
		return nil, err
	}
	return matching.NewService(i.Products, i.Synonyms, m, i.logger,
		matching.WithMetrics(i.Metrics),
		matching.WithInvalidators(i.Invalidators...),
	), nil
}

// WatchCatalog reloads svc whenever a watched catalog file changes. It
// returns immediately when nothing is watched and otherwise blocks until ctx
// is done.
func (i *Infrastructure) WatchCatalog(ctx context.Context, svc matching.Service, debounce time.Duration) error {
	if len(i.WatchPaths) == 0 {
		return nil
	}
	w, err := csvfile.NewWatcher(i.WatchPaths, debounce, func(ctx context.Context) {
		if _, err := svc.Reload(ctx); err != nil {
			i.logger.Warn("reload after file change failed", logging.Err(err))
		}
	}, i.logger)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// Close releases all clients. It is safe to call more than once.
func (i *Infrastructure) Close() {
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			i.logger.Warn("redis close failed", logging.Err(err))
		}
	}
	if i.Postgres != nil {
		if err := i.Postgres.Close(); err != nil {
			i.logger.Warn("postgres close failed", logging.Err(err))
		}
	}
}
