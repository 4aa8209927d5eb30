package config

import (
	"time"

	"github.com/turtacn/reagent-match/internal/intelligence/catalog_matcher"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort            = 8080
	DefaultServerMode            = "release"
	DefaultServerReadTimeout     = 15 * time.Second
	DefaultServerWriteTimeout    = 15 * time.Second
	DefaultServerShutdownTimeout = 10 * time.Second
	DefaultServerMaxBodySize     = 1 << 20

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultCatalogSource         = SourceFile
	DefaultCatalogDelimiter      = ","
	DefaultCatalogReloadDebounce = 500 * time.Millisecond

	DefaultDBHost            = "localhost"
	DefaultDBPort            = 5432
	DefaultDBName            = "reagentmatch"
	DefaultDBSSLMode         = "disable"
	DefaultDBMaxConns        = 10
	DefaultDBMaxIdleConns    = 5
	DefaultDBConnMaxLifetime = 30 * time.Minute

	DefaultRedisAddr        = "localhost:6379"
	DefaultRedisPoolSize    = 10
	DefaultRedisDialTimeout = 5 * time.Second
	DefaultRedisIOTimeout   = 3 * time.Second
	DefaultRedisSnapshotTTL = 10 * time.Minute
	DefaultRedisKeyPrefix   = "reagentmatch:"

	DefaultMinIOEndpoint = "localhost:9000"

	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "reagentmatch"
)

// ApplyDefaults fills every zero-value field in cfg with its default.
// Explicitly configured values are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultServerMaxBodySize
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Matcher ───────────────────────────────────────────────────────────────
	def := catalog_matcher.DefaultConfig()
	if cfg.Matcher.Weights == (catalog_matcher.Weights{}) {
		cfg.Matcher.Weights = def.Weights
	}
	if cfg.Matcher.Epsilon == 0 {
		cfg.Matcher.Epsilon = def.Epsilon
	}
	if cfg.Matcher.HighGradeKeywords == nil {
		cfg.Matcher.HighGradeKeywords = def.HighGradeKeywords
	}
	if cfg.Matcher.HighGradePurity == 0 {
		cfg.Matcher.HighGradePurity = def.HighGradePurity
	}

	// ── Catalog ───────────────────────────────────────────────────────────────
	if cfg.Catalog.Source == "" {
		cfg.Catalog.Source = DefaultCatalogSource
	}
	if cfg.Catalog.Delimiter == "" {
		cfg.Catalog.Delimiter = DefaultCatalogDelimiter
	}
	if cfg.Catalog.ReloadDebounce == 0 {
		cfg.Catalog.ReloadDebounce = DefaultCatalogReloadDebounce
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = DefaultDBSSLMode
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = DefaultDBMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = DefaultDBConnMaxLifetime
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = DefaultRedisDialTimeout
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = DefaultRedisIOTimeout
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = DefaultRedisIOTimeout
	}
	if cfg.Redis.SnapshotTTL == 0 {
		cfg.Redis.SnapshotTTL = DefaultRedisSnapshotTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
}
