// Package server is folio's HTTP surface. Handlers are thin translators
// between JSON or multipart requests and the pipeline.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/Yates-Labs/folio/internal/apperror"
	"github.com/Yates-Labs/folio/internal/jobs"
	"github.com/Yates-Labs/folio/internal/logging"
	"github.com/Yates-Labs/folio/internal/orchestrator"
	"github.com/Yates-Labs/folio/internal/telemetry"
)

// Backend is the part of the pipeline the handlers call.
type Backend interface {
	ListIndexes(ctx context.Context) ([]string, error)
	Answer(ctx context.Context, req orchestrator.AnswerRequest) (*orchestrator.AnswerResult, error)
	SubmitIndexJob(ctx context.Context, path, indexName string) (jobs.Job, error)
	Job(ctx context.Context, id string) (jobs.Job, error)
	DefaultIndexName(path string) string
}

var _ Backend = (*orchestrator.Pipeline)(nil)

// Options configures the HTTP surface.
type Options struct {
	// AssetsDir receives uploaded books.
	AssetsDir string
	// StaticDir holds index.html and the files served under /static.
	StaticDir string
	// DefaultLimit is the per-index passage count when limit is absent.
	DefaultLimit int
	// BodyLimit caps request bodies, e.g. "64M".
	BodyLimit string
	Metrics   *telemetry.Metrics
}

// Server wraps the echo instance.
type Server struct {
	echo    *echo.Echo
	backend Backend
	opts    Options
	logger  zerolog.Logger
}

// New builds the router.
func New(backend Backend, opts Options) *Server {
	if opts.AssetsDir == "" {
		opts.AssetsDir = "assets"
	}
	if opts.StaticDir == "" {
		opts.StaticDir = "static"
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 5
	}
	if opts.BodyLimit == "" {
		opts.BodyLimit = "64M"
	}

	s := &Server{
		echo:    echo.New(),
		backend: backend,
		opts:    opts,
		logger:  logging.Component("http"),
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Use(s.observe)
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(opts.BodyLimit))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"*"},
	}))

	e.POST("/upload-book", s.uploadBook)
	e.GET("/jobs/:id", s.getJob)
	e.GET("/book-indexes", s.bookIndexes)
	e.POST("/search-books", s.searchBooks)
	e.GET("/health", s.health)
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics.Handler()))
	}

	e.Static("/static", opts.StaticDir)
	e.GET("/", func(c echo.Context) error {
		return c.File(filepath.Join(opts.StaticDir, "index.html"))
	})

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is done, then shuts down gracefully within
// shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Listening")
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

// handleError writes every failure as {"detail": message}.
func (s *Server) handleError(err error, c echo.Context) {
	code := apperror.HTTPStatus(err)
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}

	req := c.Request()
	event := s.logger.Warn()
	if code >= http.StatusInternalServerError {
		event = s.logger.Error()
	}
	event.Err(err).Int("status", code).Str("method", req.Method).Str("path", req.URL.Path).
		Str("remote", c.RealIP()).Msg("Request failed")

	if c.Response().Committed {
		return
	}
	if req.Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]string{"detail": msg})
}

// observe logs each request and records it in the metrics.
func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		elapsed := time.Since(start)
		status := c.Response().Status
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		s.opts.Metrics.ObserveHTTP(c.Request().Method, route, status, elapsed)
		s.logger.Debug().Str("method", c.Request().Method).Str("route", route).
			Int("status", status).Dur("elapsed", elapsed).Msg("Request served")
		return nil
	}
}
