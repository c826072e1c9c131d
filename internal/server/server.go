// Package server exposes risk badges over HTTP and websocket.
//
// HTTP renders are stateless: every request mounts a fresh badge, renders it
// once and unmounts it. A websocket connection is one long-lived mount that
// receives a new view whenever the selected token's lookup changes state and
// may use its single retry.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"riskscan/internal/badge"
	"riskscan/internal/i18n"
	"riskscan/internal/metrics"
	"riskscan/internal/model"
	"riskscan/internal/preferences"
)

// RiskFetcher is the shared risk cache the server mounts badges on.
type RiskFetcher interface {
	badge.Source
	Load(ctx context.Context, key model.Key) (model.Snapshot, error)
}

// Enricher fills display data, such as the symbol, for a token.
type Enricher interface {
	Enrich(ctx context.Context, token *model.Token)
}

// ScanHistory returns recorded lookups of a token, newest first.
type ScanHistory interface {
	LatestScans(ctx context.Context, key model.Key, limit int) ([]model.ScanRecord, error)
}

// Option configures a Server.
type Option func(*Server)

// WithHistory enables GET /v1/risk/:chainId/:address/history.
func WithHistory(history ScanHistory) Option {
	return func(s *Server) {
		s.history = history
	}
}

// Config holds server settings.
type Config struct {
	Addr           string
	TrustedOrigins []string
	MaxWait        time.Duration
}

// Server hosts the HTTP routes and websocket sessions.
type Server struct {
	cfg      Config
	fetcher  RiskFetcher
	prefs    *preferences.Resolver
	bundle   *i18n.Bundle
	enricher Enricher
	history  ScanHistory
	logger   *zap.Logger
	router   *gin.Engine
}

// New builds a server. enricher may be nil.
func New(cfg Config, fetcher RiskFetcher, prefs *preferences.Resolver, bundle *i18n.Bundle, enricher Enricher, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bundle == nil {
		bundle = i18n.NewBundle()
	}
	if prefs == nil {
		prefs = preferences.NewResolver(nil, false, logger)
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 30 * time.Second
	}

	s := &Server{
		cfg:      cfg,
		fetcher:  fetcher,
		prefs:    prefs,
		bundle:   bundle,
		enricher: enricher,
		logger:   logger,
		router:   gin.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		s.logger.Error("panic recovered",
			zap.Any("error", recovered),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}))
	s.router.Use(metrics.Middleware())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/metrics", metrics.Handler())

	v1 := s.router.Group("/v1")
	v1.GET("/risk/:chainId/:address", s.getRisk)
	v1.GET("/risk/:chainId/:address/badge", s.getBadgeHTML)
	v1.GET("/risk/:chainId/:address/history", s.getHistory)
	v1.GET("/preferences/:user", s.getPreferences)
	v1.PUT("/preferences/:user", s.putPreferences)
	v1.GET("/ws", s.serveWS)
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		switch {
		case status >= 500:
			s.logger.Error("request completed", fields...)
		case status >= 400:
			s.logger.Warn("request completed", fields...)
		default:
			s.logger.Debug("request completed", fields...)
		}
	}
}

// userID identifies the caller for preference lookups.
func userID(c *gin.Context) string {
	if id := c.GetHeader("X-User-ID"); id != "" {
		return id
	}
	return c.Query("user")
}

func (s *Server) translator(c *gin.Context) *i18n.Translator {
	return s.bundle.Translator(c.Query("lang"), c.GetHeader("Accept-Language"))
}
