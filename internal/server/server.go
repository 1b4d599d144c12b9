// Package server provides the HTTP server and Echo setup for the omni API.
package server

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Server is the HTTP server (Echo) with API-key middleware and registered
// handlers.
type Server struct {
	echo   *echo.Echo
	addr   string
	logger *slog.Logger
}

// Handler registers routes on the Echo instance.
type Handler interface {
	Register(e *echo.Echo)
}

// NewServer builds the Echo server with recovery, request logging, the
// API-key check, and the given handlers.
func NewServer(log *slog.Logger, addr, apiKey string, handlers ...Handler) *Server {
	if addr == "" {
		addr = ":8882"
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", c.RealIP()),
			)
			return nil
		},
	}))
	e.Use(APIKeyMiddleware(apiKey, func(c echo.Context) bool {
		path := c.Request().URL.Path
		return path == "/health" || path == "/ping"
	}))

	for _, h := range handlers {
		if h != nil {
			h.Register(e)
		}
	}

	return &Server{
		echo:   e,
		addr:   addr,
		logger: log.With(slog.String("component", "server")),
	}
}

// APIKeyMiddleware rejects requests that do not carry the configured key in
// the x-api-key header (or an Authorization bearer token). An empty
// configured key disables the check; skip exempts individual routes.
func APIKeyMiddleware(apiKey string, skip func(c echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if apiKey == "" || (skip != nil && skip(c)) {
				return next(c)
			}
			provided := strings.TrimSpace(c.Request().Header.Get("x-api-key"))
			if provided == "" {
				auth := c.Request().Header.Get(echo.HeaderAuthorization)
				provided = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
			}
			return next(c)
		}
	}
}

// Start starts the HTTP server (blocks until shutdown).
func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

// Stop gracefully shuts down the server using the given context.
func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
