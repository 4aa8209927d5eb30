// End-to-end tests for the matching API. By default the suite boots the
// full stack in-process on a copy of the sample catalog; set
// REAGENT_E2E_BASE_URL to run the read-only tests against a deployed server.
package e2e_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/turtacn/reagent-match/internal/bootstrap"
	"github.com/turtacn/reagent-match/internal/config"
	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/reagent-match/internal/interfaces/http"
	"github.com/turtacn/reagent-match/internal/interfaces/http/handlers"
	"github.com/turtacn/reagent-match/pkg/client"
)

const sampleData = "../../internal/infrastructure/datasource/csvfile/testdata"

// testEnv holds the shared resources of the suite.
type testEnv struct {
	baseURL      string
	embedded     bool
	productsPath string
	synonymsPath string
	sdk          *client.Client
	cleanupFuncs []func()
}

var env *testEnv

func TestMain(m *testing.M) {
	var err error
	env, err = setupTestEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "E2E test setup failed: %v\n", err)
		os.Exit(1)
	}

	exitCode := m.Run()
	cleanup()
	os.Exit(exitCode)
}

func setupTestEnv() (*testEnv, error) {
	e := &testEnv{}

	if baseURL := os.Getenv("REAGENT_E2E_BASE_URL"); baseURL != "" {
		e.baseURL = baseURL
	} else if err := e.startEmbedded(); err != nil {
		e.close()
		return nil, err
	}

	sdk, err := client.NewClient(e.baseURL, client.WithRetryWait(50*time.Millisecond, 500*time.Millisecond))
	if err != nil {
		e.close()
		return nil, fmt.Errorf("create SDK client: %w", err)
	}
	e.sdk = sdk

	if err := waitForReady(sdk, 30*time.Second); err != nil {
		e.close()
		return nil, err
	}
	return e, nil
}

// startEmbedded copies the sample catalog to a temp dir and serves it with
// file watching enabled.
func (e *testEnv) startEmbedded() error {
	dir, err := os.MkdirTemp("", "reagentmatch-e2e-")
	if err != nil {
		return err
	}
	e.cleanupFuncs = append(e.cleanupFuncs, func() { os.RemoveAll(dir) })

	e.productsPath = filepath.Join(dir, "products.csv")
	e.synonymsPath = filepath.Join(dir, "synonyms.csv")
	if err := copyFile(filepath.Join(sampleData, "products.csv"), e.productsPath); err != nil {
		return err
	}
	if err := copyFile(filepath.Join(sampleData, "synonyms.csv"), e.synonymsPath); err != nil {
		return err
	}

	cfg, err := config.LoadWith("", func(c *config.Config) {
		c.Server.Mode = "test"
		c.Catalog.Source = config.SourceFile
		c.Catalog.ProductsPath = e.productsPath
		c.Catalog.SynonymsPath = e.synonymsPath
		c.Catalog.Delimiter = ";"
		c.Catalog.Watch = true
		c.Catalog.ReloadDebounce = 50 * time.Millisecond
		c.Metrics.Enabled = true
	})
	if err != nil {
		return err
	}

	logger := logging.NewNopLogger()
	ctx, cancel := context.WithCancel(context.Background())
	e.cleanupFuncs = append(e.cleanupFuncs, cancel)

	infra, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	e.cleanupFuncs = append(e.cleanupFuncs, infra.Close)

	svc, err := infra.NewMatchingService(cfg.Matcher)
	if err != nil {
		return err
	}
	if _, err := svc.Reload(ctx); err != nil {
		return err
	}
	go func() { _ = infra.WatchCatalog(ctx, svc, cfg.Catalog.ReloadDebounce) }()
	// Give the watcher time to register its directories.
	time.Sleep(200 * time.Millisecond)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		MatchHandler:  handlers.NewMatchHandler(svc, logger),
		HealthHandler: handlers.NewHealthHandler("e2e", svc.Ready, handlers.ChecksFromMap(infra.Checks())...),
		Logger:        logger,
		Metrics:       infra.Metrics,
		Collector:     infra.Collector,
		MetricsPath:   cfg.Metrics.Path,
		MaxBodySize:   cfg.Server.MaxBodySize,
	})
	server := httptest.NewServer(router)
	e.cleanupFuncs = append(e.cleanupFuncs, server.Close)

	e.baseURL = server.URL
	e.embedded = true
	return nil
}

func (e *testEnv) close() {
	for i := len(e.cleanupFuncs) - 1; i >= 0; i-- {
		e.cleanupFuncs[i]()
	}
	e.cleanupFuncs = nil
}

func cleanup() {
	if env != nil {
		env.close()
	}
}

func waitForReady(sdk *client.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, err := sdk.Ready(ctx)
		cancel()
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("service not ready after %v: %w", timeout, err)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
