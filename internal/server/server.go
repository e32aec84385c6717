package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ticket-translator/internal/config"
	"github.com/ticket-translator/internal/logging"
)

const headerRequestID = "X-Request-ID"

const shutdownTimeout = 30 * time.Second

// Routes mounts application routes on the engine.
type Routes interface {
	Register(r gin.IRouter)
}

// Server runs the HTTP endpoint.
type Server struct {
	server *http.Server
	engine *gin.Engine
	log    *slog.Logger
}

// New builds the gin engine and the http.Server around it.
func New(cfg *config.Config, routes Routes, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestContext(logger), accessLog())
	engine.GET("/healthz", handleHealth)
	routes.Register(engine)

	s := &Server{
		engine: engine,
		log:    logger,
	}
	s.server = &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           engine,
		ReadTimeout:       cfg.Server.ReadTimeout.Duration,
		ReadHeaderTimeout: cfg.Server.ReadTimeout.Duration,
		WriteTimeout:      cfg.Server.WriteTimeout.Duration,
		IdleTimeout:       cfg.Server.IdleTimeout.Duration,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting http server", slog.String("address", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("server shutdown: %w", err)
		}
		s.log.Info("shutdown complete")
		return nil
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}

func handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// requestContext tags each request with an id and stores a scoped logger in its context.
func requestContext(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)

		reqLogger := logger.With(slog.String("request_id", id))
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), reqLogger))
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.FromContext(c.Request.Context(), slog.Default()).Info("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}
