// Package server exposes symmetry analysis over HTTP.
//
//	POST /v1/analyze   find the symmetries of a model
//	POST /v1/validate  check generators against a model
//	GET  /v1/models    list the built-in models
//	GET  /health       liveness
//	GET  /metrics      Prometheus metrics
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/njchilds90/liesym/internal/cache"
	"github.com/njchilds90/liesym/internal/config"
)

// Server handles analysis requests. The cache is optional.
type Server struct {
	cfg    config.Config
	cache  *cache.Cache
	logger *slog.Logger
	engine *gin.Engine
}

// New builds the routes. c may be nil.
func New(cfg config.Config, c *cache.Cache, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, cache: c, logger: logger, engine: gin.New()}
	s.engine.Use(gin.CustomRecovery(s.recover), s.observe)

	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	v1 := s.engine.Group("/v1")
	v1.POST("/analyze", s.handleAnalyze)
	v1.POST("/validate", s.handleValidate)
	v1.GET("/models", s.handleModels)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on the configured address until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ServerAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      s.cfg.Timeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", slog.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	return srv.Shutdown(shutdown)
}

func (s *Server) recover(c *gin.Context, rec any) {
	s.logger.Error("panic in handler",
		slog.String("path", c.Request.URL.Path),
		slog.Any("panic", rec),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "INTERNAL"})
}

func (s *Server) observe(c *gin.Context) {
	start := time.Now()
	c.Next()
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	requestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	s.logger.Debug("request",
		slog.String("method", c.Request.Method),
		slog.String("route", route),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("elapsed", time.Since(start)),
	)
}
