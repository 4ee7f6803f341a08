// Package server exposes the pipeline as a small web UI and JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/valpere/wordweaver/internal"
	"github.com/valpere/wordweaver/internal/logging"
	"github.com/valpere/wordweaver/internal/metrics"
	"github.com/valpere/wordweaver/internal/pipeline"
	"github.com/valpere/wordweaver/internal/report"
	"github.com/valpere/wordweaver/internal/store"
)

// Pipeline is the processing surface the handlers call.
type Pipeline interface {
	Process(ctx context.Context, in pipeline.Input) (*pipeline.Result, error)
	Extract(ctx context.Context, image []byte) (*pipeline.ExtractResult, error)
}

// Reports reads and deletes stored reports. It is nil when the store is disabled.
type Reports interface {
	ListReports(ctx context.Context, student string, limit int) ([]store.ReportSummary, error)
	GetReport(ctx context.Context, id string) (*report.Report, error)
	ReportSubmission(ctx context.Context, reportID string) (*internal.Submission, error)
	DeleteReport(ctx context.Context, id string) error
}

// HealthChecker reports whether the model runtime answers.
type HealthChecker interface {
	IsAvailable(ctx context.Context) error
}

type Config struct {
	Addr            string
	MaxUploadMB     int
	RateLimit       float64
	Burst           int
	ShutdownTimeout time.Duration
}

type Server struct {
	e       *echo.Echo
	cfg     Config
	pipe    Pipeline
	reports Reports
	health  HealthChecker
	rec     *metrics.Recorder
	logger  *zap.Logger
}

func New(cfg Config, pipe Pipeline, reports Reports, health HealthChecker, rec *metrics.Recorder, logger *zap.Logger) (*Server, error) {
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 10
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	renderer, err := newRenderer()
	if err != nil {
		return nil, err
	}

	s := &Server{
		e:       echo.New(),
		cfg:     cfg,
		pipe:    pipe,
		reports: reports,
		health:  health,
		rec:     rec,
		logger:  logging.OrNop(logger),
	}
	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.Renderer = renderer
	s.e.HTTPErrorHandler = s.errorHandler
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) routes() {
	s.e.Use(middleware.Recover())
	s.e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.Error(v.Error))
			return nil
		},
	}))
	s.e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", s.cfg.MaxUploadMB)))

	heavy := []echo.MiddlewareFunc{}
	if s.cfg.RateLimit > 0 {
		burst := s.cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		heavy = append(heavy, middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(s.cfg.RateLimit),
				Burst:     burst,
				ExpiresIn: 10 * time.Minute,
			})))
	}

	s.e.GET("/", s.handleIndex)
	s.e.POST("/analyze", s.handleAnalyzePage, heavy...)
	s.e.GET("/reports", s.handleReportsPage)
	s.e.GET("/reports/:id", s.handleReportPage)

	api := s.e.Group("/api/v1")
	api.POST("/extract", s.handleExtractAPI, heavy...)
	api.POST("/analyze", s.handleAnalyzeAPI, heavy...)
	api.GET("/reports", s.handleListReportsAPI)
	api.GET("/reports/:id", s.handleGetReportAPI)
	api.GET("/reports/:id/submission", s.handleReportSubmissionAPI)
	api.DELETE("/reports/:id", s.handleDeleteReportAPI)

	s.e.GET("/healthz", s.handleHealth)
	s.e.GET("/metrics", echo.WrapHandler(s.rec.Handler()))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", zap.String("addr", s.cfg.Addr))
		if err := s.e.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("web server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down web server")
	if err := s.e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
