package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/promptrelay/relay/internal/config"
	"github.com/promptrelay/relay/internal/metrics"
	"github.com/promptrelay/relay/internal/models"
	"github.com/promptrelay/relay/internal/relay"
	"github.com/promptrelay/relay/internal/upstream"
	"go.uber.org/zap"
)

// Route paths
const (
	DirectRelayPath    = "/api/openapi"
	ResilientRelayPath = "/api/generate"
)

// Server represents the API server
type Server struct {
	cfg       *config.Config
	logger    *zap.Logger
	router    *gin.Engine
	metrics   *metrics.Metrics
	direct    *relay.Direct
	resilient *relay.Resilient
}

// Option customizes a Server.
type Option func(*options)

type options struct {
	sender relay.Sender
	sleep  relay.SleepFunc
}

// WithSender replaces the upstream client used by both relays.
func WithSender(sender relay.Sender) Option {
	return func(o *options) {
		o.sender = sender
	}
}

// WithSleep replaces the real-time sleep of the resilient relay.
func WithSleep(fn relay.SleepFunc) Option {
	return func(o *options) {
		o.sleep = fn
	}
}

// New creates a new server instance. cfg must already be validated and is
// never modified.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.sender == nil {
		o.sender = upstream.NewClient(cfg.Upstream, logger)
	}

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		router:  gin.New(),
		metrics: metrics.New(),
	}

	s.direct = relay.NewDirect(o.sender, cfg.Upstream.Model, logger, s.metrics)

	resilientOpts := []relay.Option{relay.WithMetrics(s.metrics)}
	if o.sleep != nil {
		resilientOpts = append(resilientOpts, relay.WithSleep(o.sleep))
	}
	s.resilient = relay.NewResilient(o.sender, cfg, logger, resilientOpts...)

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// Router returns the gin engine
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(s.recoveryMiddleware())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggerMiddleware())

	if s.cfg.Security.EnableCORS {
		s.router.Use(s.corsMiddleware())
	}
}

func (s *Server) setupRoutes() {
	s.router.HandleMethodNotAllowed = true
	s.router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, models.ErrorResponse{Error: models.ErrMsgMethodNotAllowed})
	})
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: models.ErrMsgNotFound})
	})

	s.router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/ping", s.ping)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	s.router.POST(DirectRelayPath, s.directRelay)
	// any verb reaches the handler, which answers 405 itself
	s.router.Any(ResilientRelayPath, s.resilientRelay)
}
