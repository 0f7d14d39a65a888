// Package server exposes the ask contract over HTTP. The core owns no
// wire format for notes; this surface only wraps Engine.Ask.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mossline/notewise/internal/engine"
	"github.com/mossline/notewise/internal/llm"
)

// Server is the HTTP surface over the ask pipeline.
type Server struct {
	engine          *engine.Engine
	echo            *echo.Echo
	log             *zap.Logger
	addr            string
	shutdownTimeout time.Duration
}

// AskRequest is the JSON body for POST /v1/ask.
type AskRequest struct {
	Question string        `json:"question"`
	History  []llm.Message `json:"history,omitempty"`
}

// AskResponse is the JSON reply for POST /v1/ask.
type AskResponse struct {
	Answer    string `json:"answer"`
	RequestID string `json:"request_id"`
}

// HealthResponse is the JSON reply for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// New creates a server for the engine listening on addr.
func New(eng *engine.Engine, log *zap.Logger, addr string, shutdownTimeout time.Duration) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{
		engine:          eng,
		echo:            e,
		log:             log,
		addr:            addr,
		shutdownTimeout: shutdownTimeout,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.POST("/v1/ask", s.handleAsk)
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

func (s *Server) handleAsk(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}

	answer := s.engine.Ask(c.Request().Context(), req.Question, req.History)
	return c.JSON(http.StatusOK, AskResponse{
		Answer:    answer,
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Echo returns the underlying router, used by tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully. Returns http.ErrServerClosed on clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(s.addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()
	s.log.Info("http server listening", zap.String("addr", s.addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return http.ErrServerClosed
	}
}
