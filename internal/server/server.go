package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mcptools/bashserver/internal/config"
	httpapi "github.com/mcptools/bashserver/internal/http"
	"github.com/mcptools/bashserver/internal/logging"
	"github.com/mcptools/bashserver/internal/middleware"
	"github.com/mcptools/bashserver/internal/monitoring"
	"github.com/mcptools/bashserver/internal/providers/shell"
	"github.com/mcptools/bashserver/internal/providers/transfer"
	"github.com/mcptools/bashserver/internal/service"
	"github.com/mcptools/bashserver/internal/session"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router         *gin.Engine
	registry       *service.Registry
	sessionManager *session.Manager
	executor       *session.Executor
	reaper         *session.Reaper
	logger         *logging.Logger
	config         *config.Config
	metrics        *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing bashserver",
		zap.String("port", cfg.Server.Port),
		zap.Duration("idle_threshold", cfg.Session.IdleThreshold),
		zap.Duration("reap_interval", cfg.Session.ReapInterval),
	)

	metrics := monitoring.NewMetrics()

	// Session core: registry, executor and reaper share one kill path.
	sessionManager := session.NewManager(cfg.Session, logger).WithMetrics(metrics)
	executor := session.NewExecutor(sessionManager, cfg.Session, logger).WithMetrics(metrics)
	reaper := session.NewReaper(sessionManager, cfg.Session.ReapInterval, cfg.Session.IdleThreshold, logger).WithMetrics(metrics)

	serviceRegistry := service.NewRegistry()
	serviceRegistry.Register(shell.NewProvider(sessionManager, executor, cfg.Session, logger))
	serviceRegistry.Register(transfer.NewProvider(sessionManager, cfg.Transfer, logger))

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
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

	handlers := httpapi.NewHandlers(serviceRegistry, sessionManager)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Tool dispatch surface
	router.GET("/services", handlers.ListServices)
	router.POST("/services/execute", handlers.ExecuteService)

	// Convenience read-only view of the session registry
	router.GET("/sessions", handlers.ListSessions)

	reaper.Start()

	return &Server{
		router:         router,
		registry:       serviceRegistry,
		sessionManager: sessionManager,
		executor:       executor,
		reaper:         reaper,
		logger:         logger,
		config:         cfg,
		metrics:        metrics,
	}, nil
}

// Run starts the server
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting bashserver", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close drains the session registry and stops the reaper. Sessions are
// in-memory only; nothing survives a restart.
func (s *Server) Close() error {
	s.logger.Info("Shutting down: draining sessions")
	s.reaper.Stop()
	s.sessionManager.Shutdown()
	return s.logger.Sync()
}
