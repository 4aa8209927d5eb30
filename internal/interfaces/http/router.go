package http

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/reagent-match/internal/interfaces/http/handlers"
	"github.com/turtacn/reagent-match/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree. Nil handlers leave their routes unregistered.
type RouterConfig struct {
	MatchHandler  *handlers.MatchHandler
	HealthHandler *handlers.HealthHandler

	Logger    logging.Logger
	Metrics   *prometheus.MatchMetrics
	Collector prometheus.MetricsCollector
	// MetricsPath defaults to /metrics.
	MetricsPath string

	AllowedOrigins []string
	MaxBodySize    int64
	Logging        *middleware.LoggingConfig
}

// NewRouter constructs the gin engine serving the matching API.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// --- Global middleware ---
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	logCfg := middleware.DefaultLoggingConfig()
	if cfg.Logging != nil {
		logCfg = *cfg.Logging
	}
	r.Use(middleware.RequestLogging(logger, logCfg))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg := middleware.DefaultCORSConfig()
		corsCfg.AllowedOrigins = cfg.AllowedOrigins
		r.Use(middleware.CORS(corsCfg))
	}
	if cfg.MaxBodySize > 0 {
		r.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}

	// --- Probes ---
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}

	if cfg.Collector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.Collector.Handler()))
	}

	// --- API v1 ---
	if h := cfg.MatchHandler; h != nil {
		api := r.Group("/api/v1")
		api.POST("/search", h.Search)
		api.GET("/search", h.SearchQuery)
		api.GET("/substances", h.Substances)
		api.GET("/substances/resolve", h.Resolve)
		api.GET("/catalog", h.Catalog)
		api.POST("/catalog/reload", h.Reload)
	}

	return r
}
