// Package config defines the configuration structures of reagent-match.
// No I/O lives here, only plain data types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/reagent-match/internal/intelligence/catalog_matcher"
)

// Catalog source kinds.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
	SourceMinIO    = "minio"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// AllowedOrigins enables CORS for the listed origins. Empty disables it.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ColumnConfig pins CSV header names. Empty fields fall back to header
// auto-detection.
type ColumnConfig struct {
	ID        string `mapstructure:"id"`
	Name      string `mapstructure:"name"`
	Quantity  string `mapstructure:"quantity"`
	Unit      string `mapstructure:"unit"`
	Purity    string `mapstructure:"purity"`
	Canonical string `mapstructure:"canonical"`
	Synonyms  string `mapstructure:"synonyms"`
}

// CatalogConfig selects where products and synonyms are loaded from.
type CatalogConfig struct {
	Source string `mapstructure:"source"` // "file" | "postgres" | "minio"

	ProductsPath string `mapstructure:"products_path"`
	SynonymsPath string `mapstructure:"synonyms_path"`

	ProductsObject string `mapstructure:"products_object"`
	SynonymsObject string `mapstructure:"synonyms_object"`

	Delimiter string       `mapstructure:"delimiter"`
	Columns   ColumnConfig `mapstructure:"columns"`

	// Watch reloads the snapshot when the source files change (file source).
	Watch          bool          `mapstructure:"watch"`
	ReloadDebounce time.Duration `mapstructure:"reload_debounce"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// MigrationPath points at a directory of migration files. Empty uses the
	// migrations embedded in the binary.
	MigrationPath string `mapstructure:"migration_path"`
	AutoMigrate   bool   `mapstructure:"auto_migrate"`
}

// RedisConfig holds the snapshot cache connection parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	SnapshotTTL  time.Duration `mapstructure:"snapshot_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// MinIOConfig holds object-storage parameters for the minio source.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// MetricsConfig controls the Prometheus exposition.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig           `mapstructure:"server"`
	Log      logging.LogConfig      `mapstructure:"log"`
	Matcher  catalog_matcher.Config `mapstructure:"matcher"`
	Catalog  CatalogConfig          `mapstructure:"catalog"`
	Database DatabaseConfig         `mapstructure:"database"`
	Redis    RedisConfig            `mapstructure:"redis"`
	MinIO    MinIOConfig            `mapstructure:"minio"`
	Metrics  MetricsConfig          `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of a fully populated Config and
// returns the first error encountered.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	switch c.Log.Level {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if err := c.Matcher.Validate(); err != nil {
		return fmt.Errorf("config: matcher: %w", err)
	}

	if len([]rune(c.Catalog.Delimiter)) != 1 {
		return fmt.Errorf("config: catalog.delimiter must be a single character, got %q", c.Catalog.Delimiter)
	}
	switch c.Catalog.Source {
	case SourceFile:
		if c.Catalog.ProductsPath == "" || c.Catalog.SynonymsPath == "" {
			return fmt.Errorf("config: catalog.products_path and catalog.synonyms_path are required for the file source")
		}
	case SourcePostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("config: database.host is required for the postgres source")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
		}
		if c.Database.User == "" {
			return fmt.Errorf("config: database.user is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("config: database.db_name is required")
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("config: database.max_conns must be ≥ 1, got %d", c.Database.MaxConns)
		}
	case SourceMinIO:
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.endpoint and minio.bucket are required for the minio source")
		}
		if c.Catalog.ProductsObject == "" || c.Catalog.SynonymsObject == "" {
			return fmt.Errorf("config: catalog.products_object and catalog.synonyms_object are required for the minio source")
		}
	default:
		return fmt.Errorf("config: catalog.source %q is invalid; expected file|postgres|minio", c.Catalog.Source)
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required when redis is enabled")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
		}
	}

	return nil
}
