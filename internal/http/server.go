// Package http serves the ragd JSON API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/config"
	"github.com/fyrsmithlabs/ragd/internal/document"
	"github.com/fyrsmithlabs/ragd/internal/ingest"
	"github.com/fyrsmithlabs/ragd/internal/llm"
	"github.com/fyrsmithlabs/ragd/internal/logging"
)

// RAG answers questions and manages single documents.
type RAG interface {
	Query(ctx context.Context, text string, k int) (*llm.Response, error)
	DirectQuery(ctx context.Context, text string) (*llm.Response, error)
	AddDocument(ctx context.Context, content string, metadata document.Metadata) (string, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Processor chunks and stores documents.
type Processor interface {
	ProcessDocument(ctx context.Context, text string, metadata document.Metadata) (*ingest.Processed, error)
	ProcessDocuments(ctx context.Context, inputs []ingest.Input) ([]*ingest.Processed, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Host         string
	Port         int
	APIKey       string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// RateLimitWindow and RateLimitMax bound requests per client address.
	RateLimitWindow time.Duration
	RateLimitMax    int

	CORSOrigins    []string
	BodyLimit      string
	MaxUploadBytes int64
}

// ConfigFrom builds a Config from the service configuration.
func ConfigFrom(c config.ServerConfig) *Config {
	return &Config{
		Host:            c.Host,
		Port:            c.Port,
		APIKey:          c.APIKey.Value(),
		ReadTimeout:     c.ReadTimeout,
		WriteTimeout:    c.WriteTimeout,
		RateLimitWindow: c.RateLimitWindow,
		RateLimitMax:    c.RateLimitMax,
		CORSOrigins:     c.CORSOrigins,
		BodyLimit:       c.BodyLimit,
		MaxUploadBytes:  c.MaxUploadBytes,
	}
}

// Options holds optional server dependencies.
type Options struct {
	// MeterProvider receives HTTP metrics; nil uses the global provider.
	MeterProvider metric.MeterProvider
	// Gatherer is served on /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// Server provides the HTTP endpoints for ragd.
type Server struct {
	echo      *echo.Echo
	rag       RAG
	processor Processor
	logger    *logging.Logger
	config    *Config
	limiter   *FixedWindowStore
}

// NewServer creates a new HTTP server.
func NewServer(rag RAG, processor Processor, logger *logging.Logger, cfg *Config, opts Options) (*Server, error) {
	if rag == nil {
		return nil, errors.New("rag service is required")
	}
	if processor == nil {
		return nil, errors.New("document processor is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("api key is required")
	}
	if cfg.RateLimitWindow <= 0 || cfg.RateLimitMax <= 0 {
		return nil, fmt.Errorf("rate limit window and max must be positive, got %s and %d", cfg.RateLimitWindow, cfg.RateLimitMax)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		rag:       rag,
		processor: processor,
		logger:    logger,
		config:    cfg,
		limiter:   NewFixedWindowStore(cfg.RateLimitWindow, cfg.RateLimitMax),
	}
	e.HTTPErrorHandler = s.handleError

	metrics := NewHTTPMetrics(opts.MeterProvider, logger.Underlying())

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: newRequestID}))
	e.Use(s.requestLogger())
	e.Use(metrics.MetricsMiddleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, HeaderAPIKey},
	}))
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
			Limit:   cfg.BodyLimit,
			Skipper: func(c echo.Context) bool { return c.Path() == uploadPath },
		}))
	}
	e.Use(s.rateLimiter())

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s.registerRoutes(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return s, nil
}

const uploadPath = "/api/documents/upload"

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes(metricsHandler http.Handler) {
	s.echo.GET("/", s.handleRoot)
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(metricsHandler))

	api := s.echo.Group("/api", s.requireAPIKey())

	ragGroup := api.Group("/rag")
	ragGroup.POST("/query", s.handleQuery)
	ragGroup.POST("/document", s.handleAddDocument)
	ragGroup.DELETE("/document/:id", s.handleDeleteDocument)

	docs := api.Group("/documents")
	docs.POST("/process", s.handleProcess)
	docs.POST("/process-multiple", s.handleProcessMultiple)
	docs.POST("/search", s.handleSearch)
	docs.POST("/direct-query", s.handleDirectQuery)
	docs.POST("/upload", s.handleUpload)
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Start starts the HTTP server and blocks until it stops. It returns nil
// after a graceful shutdown.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         s.Addr(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", srv.Addr))
	if err := s.echo.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
