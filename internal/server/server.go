package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/threadline/artifactd/internal/api/http"
	"github.com/threadline/artifactd/internal/api/middleware"
	"github.com/threadline/artifactd/internal/api/ws"
	"github.com/threadline/artifactd/internal/artifact"
	"github.com/threadline/artifactd/internal/infrastructure/config"
	"github.com/threadline/artifactd/internal/infrastructure/logging"
	"github.com/threadline/artifactd/internal/infrastructure/monitoring"
	"github.com/threadline/artifactd/internal/probe"
	"github.com/threadline/artifactd/internal/runner"
	"github.com/threadline/artifactd/internal/runtime"
	"github.com/threadline/artifactd/internal/service"
	"github.com/threadline/artifactd/internal/sqlengine"
)

// reapEvery is how often idle database sessions are reclaimed.
const reapEvery = 5 * time.Minute

// Server wraps the HTTP server and dependencies.
type Server struct {
	router   *gin.Engine
	config   *config.Config
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	execs    *runtime.Manager
	engine   *sqlengine.Engine
	registry *service.Registry

	stopReap chan struct{}
}

// NewServer creates a new server instance.
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing artifactd",
		zap.String("port", cfg.Server.Port),
		zap.Duration("sandbox_timeout", cfg.SandboxTimeout()),
	)

	metrics := monitoring.NewMetrics()
	stats := monitoring.NewAggregator(0)

	execs := runtime.NewManager(runtime.Config{
		Timeout:        cfg.SandboxTimeout(),
		MaxSourceBytes: cfg.Sandbox.MaxSourceBytes,
		MaxLogEntries:  cfg.Sandbox.MaxLogEntries,
	}, logger).WithObserver(func(result *runtime.ExecutionResult) {
		logger.Debug("Sandbox run finished",
			zap.String("state", string(result.State)),
			zap.Int64("duration_ms", result.DurationMs),
		)
	})

	engine := sqlengine.NewEngine(sqlengine.Config{
		MaxRows: cfg.Sql.MaxRows,
		MaxIdle: time.Duration(cfg.Sql.MaxSessionIdleS) * time.Second,
	}, logger).WithObserver(func(delta int) {
		metrics.SqlSessionsOpen.Add(float64(delta))
	})

	prober := probe.New(probe.Config{
		Timeout:      cfg.ProbeTimeout(),
		MaxBodyBytes: cfg.Probe.MaxBodyBytes,
	}, logger)

	parser := artifact.NewParser(logger)

	sqlRunner := runner.NewSqlRunner(engine, metrics, stats)
	registry := service.NewRegistry()
	for _, r := range []service.Runner{
		runner.NewCodeRunner(execs, metrics, stats),
		runner.NewCanvasRunner(execs, cfg.Sandbox.MaxFrames, metrics, stats),
		sqlRunner,
		runner.NewApiRunner(prober, metrics, stats),
	} {
		if err := registry.Register(r); err != nil {
			return nil, err
		}
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(metrics.Middleware())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(parser, registry, execs, engine, sqlRunner, prober, stats, logger)
	handlers.Register(router)

	wsHandler := ws.NewHandler(execs, cfg.Sandbox.MaxFrames, metrics, logger)
	router.GET("/stream", wsHandler.HandleConnection)

	router.GET("/metrics", metrics.Handler())

	s := &Server{
		router:   router,
		config:   cfg,
		logger:   logger,
		metrics:  metrics,
		execs:    execs,
		engine:   engine,
		registry: registry,
		stopReap: make(chan struct{}),
	}
	go s.reapLoop()

	logger.Info("Server initialized successfully")
	return s, nil
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	close(s.stopReap)
	s.execs.Close()
	s.engine.Close()

	s.logger.Sync()
	return nil
}

func (s *Server) reapLoop() {
	ticker := time.NewTicker(reapEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.engine.ReapIdle(); n > 0 {
				s.logger.Info("Reaped idle database sessions", zap.Int("count", n))
			}
		case <-s.stopReap:
			return
		}
	}
}
