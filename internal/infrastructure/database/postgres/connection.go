package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/reagent-match/pkg/errors"
)

// driverName is the database/sql name registered by pgx/v5/stdlib.
const driverName = "pgx"

// sqlOpen is a variable to allow mocking in tests.
var sqlOpen = func(driverName, dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// PostgresConfig holds the database configuration.
type PostgresConfig struct {
	Host             string
	Port             int
	Database         string
	Username         string
	Password         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	StatementTimeout time.Duration
}

// Connection manages the PostgreSQL database connection pool.
type Connection struct {
	db     *sql.DB
	cfg    PostgresConfig
	logger logging.Logger
	once   sync.Once
}

// NewConnection opens the pool and verifies it with a ping.
func NewConnection(cfg PostgresConfig, log logging.Logger) (*Connection, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	db, err := sqlOpen(driverName, buildDSN(cfg))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to open database connection")
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(5)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "database connection failed")
	}

	log.Info("Connected to PostgreSQL database",
		logging.String("host", cfg.Host),
		logging.Int("port", cfg.Port),
		logging.String("database", cfg.Database),
	)

	return &Connection{db: db, cfg: cfg, logger: log}, nil
}

// NewConnectionWithDB creates a Connection with an existing sql.DB (for testing).
func NewConnectionWithDB(db *sql.DB, log logging.Logger) *Connection {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Connection{db: db, logger: log}
}

// DB returns the underlying sql.DB instance.
func (c *Connection) DB() *sql.DB {
	return c.db
}

// HealthCheck verifies the database connection status.
func (c *Connection) HealthCheck(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "database health check failed")
	}
	stats := c.Stats()
	if stats.MaxOpenConnections > 0 && stats.InUse*10 > stats.MaxOpenConnections*8 {
		c.logger.Warn("High database connection pool usage",
			logging.Int("in_use", stats.InUse),
			logging.Int("max_open", stats.MaxOpenConnections),
		)
	}
	return nil
}

// Ping is HealthCheck under the readiness probe name.
func (c *Connection) Ping(ctx context.Context) error {
	return c.HealthCheck(ctx)
}

// Stats returns database statistics.
func (c *Connection) Stats() sql.DBStats {
	return c.db.Stats()
}

// Close closes the database connection. Subsequent calls are no-ops.
func (c *Connection) Close() error {
	var err error
	c.once.Do(func() {
		err = c.db.Close()
		if err == nil {
			c.logger.Info("Closed PostgreSQL database connection")
		} else {
			c.logger.Error("Failed to close PostgreSQL database connection", logging.Err(err))
		}
	})
	return err
}

// buildDSN constructs the PostgreSQL connection string.
func buildDSN(cfg PostgresConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   cfg.Database,
	}

	q := u.Query()
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	} else {
		q.Set("sslmode", "disable")
	}
	if cfg.StatementTimeout > 0 {
		q.Set("statement_timeout", fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds()))
	}
	u.RawQuery = q.Encode()
	return u.String()
}
