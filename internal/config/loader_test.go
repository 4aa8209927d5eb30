package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  port: 9090
  mode: debug
log:
  level: debug
  format: console
matcher:
  weights:
    substance: 0.5
    purity: 0.3
    quantity: 0.2
    fuzzy_max: 0
  epsilon: 0.005
  high_grade_keywords: ["hplc", "gc"]
  concurrency: 4
catalog:
  source: file
  products_path: /data/products.csv
  synonyms_path: /data/synonyms.csv
  delimiter: ";"
  watch: true
  columns:
    name: Produkt
redis:
  enabled: true
  addr: redis:6379
  snapshot_ttl: 1m
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 0.3, cfg.Matcher.Weights.Purity)
	assert.Equal(t, 0.005, cfg.Matcher.Epsilon)
	assert.Equal(t, []string{"hplc", "gc"}, cfg.Matcher.HighGradeKeywords)
	assert.Equal(t, 4, cfg.Matcher.Concurrency)
	assert.Equal(t, ";", cfg.Catalog.Delimiter)
	assert.True(t, cfg.Catalog.Watch)
	assert.Equal(t, "Produkt", cfg.Catalog.Columns.Name)
	assert.Equal(t, time.Minute, cfg.Redis.SnapshotTTL)
	assert.Equal(t, DefaultMetricsNamespace, cfg.Metrics.Namespace)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidContent(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "catalog:\n  source: ftp\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.source")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("REAGENT_SERVER_PORT", "7070")
	t.Setenv("REAGENT_CATALOG_PRODUCTS_PATH", "/env/products.csv")

	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/env/products.csv", cfg.Catalog.ProductsPath)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("REAGENT_CATALOG_PRODUCTS_PATH", "/env/products.csv")
	t.Setenv("REAGENT_CATALOG_SYNONYMS_PATH", "/env/synonyms.csv")
	t.Setenv("REAGENT_MATCHER_WEIGHTS_PURITY", "0.3")
	t.Setenv("REAGENT_MATCHER_WEIGHTS_SUBSTANCE", "0.5")
	t.Setenv("REAGENT_MATCHER_WEIGHTS_QUANTITY", "0.2")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/env/synonyms.csv", cfg.Catalog.SynonymsPath)
	assert.Equal(t, 0.3, cfg.Matcher.Weights.Purity)
	assert.Equal(t, 0.0, cfg.Matcher.Weights.FuzzyMax)
}

func TestLoadFromEnv_MissingPathsFailValidation(t *testing.T) {
	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.products_path")
}

func TestLoadWith_OverrideRunsBeforeValidation(t *testing.T) {
	cfg, err := LoadWith("", func(c *Config) {
		c.Catalog.ProductsPath = "flag/products.csv"
		c.Catalog.SynonymsPath = "flag/synonyms.csv"
	})
	require.NoError(t, err)
	assert.Equal(t, "flag/products.csv", cfg.Catalog.ProductsPath)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "absent.yaml")) })
}

func TestWatch_InvokesCallbackOnChange(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	changed := make(chan *Config, 1)
	Watch(path, func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	}, nil)

	time.Sleep(100 * time.Millisecond)
	updated := validConfigYAML + "metrics:\n  namespace: edited\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	select {
	case c := <-changed:
		assert.Equal(t, "edited", c.Metrics.Namespace)
	case <-time.After(5 * time.Second):
		t.Skip("filesystem notifications unavailable")
	}
}
