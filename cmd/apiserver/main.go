// API server entry point for reagent-match.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/reagent-match/internal/application/matching"
	"github.com/turtacn/reagent-match/internal/bootstrap"
	"github.com/turtacn/reagent-match/internal/config"
	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/reagent-match/internal/interfaces/http"
	"github.com/turtacn/reagent-match/internal/interfaces/http/handlers"
)

// Build-time variables injected via ldflags.
var version = "dev"

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	requireCatalog := flag.Bool("require-catalog", false, "exit when the initial catalog load fails")
	flag.Parse()

	if err := run(*configPath, *httpPort, *requireCatalog); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, httpPort int, requireCatalog bool) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Fall back to environment-only configuration.
		configPath = ""
	}
	cfg, err := config.LoadWith(configPath, func(c *config.Config) {
		if httpPort > 0 {
			c.Server.Port = httpPort
		}
	})
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gin.SetMode(cfg.Server.Mode)
	logger.Info("starting reagent-match API server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port),
		logging.String("source", cfg.Catalog.Source),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	svc, err := infra.NewMatchingService(cfg.Matcher)
	if err != nil {
		return err
	}
	if res, err := svc.Reload(ctx); err != nil {
		if requireCatalog {
			return err
		}
		logger.Warn("initial catalog load failed; serving 503 until a reload succeeds", logging.Err(err))
	} else {
		logger.Info("catalog loaded",
			logging.String("version", res.Version),
			logging.Int("products", res.Products),
			logging.Int("substances", res.Substances),
		)
	}

	if cfg.Catalog.Watch {
		go func() {
			if err := infra.WatchCatalog(ctx, svc, cfg.Catalog.ReloadDebounce); err != nil {
				logger.Error("catalog watcher stopped", logging.Err(err))
			}
		}()
	}
	if configPath != "" {
		watchConfig(ctx, configPath, svc, logger)
	}

	routerCfg := httpserver.RouterConfig{
		MatchHandler:   handlers.NewMatchHandler(svc, logger),
		HealthHandler:  handlers.NewHealthHandler(version, svc.Ready, handlers.ChecksFromMap(infra.Checks())...),
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodySize:    cfg.Server.MaxBodySize,
	}
	if cfg.Metrics.Enabled {
		routerCfg.Metrics = infra.Metrics
		routerCfg.Collector = infra.Collector
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	server := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", logging.Err(err))
	}
	logger.Info("server stopped")
	return nil
}

// watchConfig reloads the catalog snapshot whenever the config file is
// rewritten, so operators can force a refresh of database-backed catalogs.
func watchConfig(ctx context.Context, path string, svc matching.Service, logger logging.Logger) {
	config.Watch(path, func(*config.Config) {
		if ctx.Err() != nil {
			return
		}
		reloadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if _, err := svc.Reload(reloadCtx); err != nil {
			logger.Warn("reload after config change failed", logging.Err(err))
			return
		}
		logger.Info("catalog reloaded after config change")
	}, func(err error) {
		logger.Warn("ignoring invalid config change", logging.Err(err))
	})
}
