package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	pointpack "github.com/tingold/orb-pointpack"
	"github.com/tingold/orb-pointpack/internal/config"
	"github.com/tingold/orb-pointpack/layer"
)

// Server represents the HTTP API server
type Server struct {
	app    *fiber.App
	logger zerolog.Logger
	addr   string
}

// NewServer creates the HTTP server and registers every route.
func NewServer(cfg *config.Config, catalog *layer.Catalog, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "pointpack",
		BodyLimit:             int(cfg.Server.BodyLimit),
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(requestLogger(logger))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	NewPackageHandler(catalog, cfg.Package.Compress, logger).RegisterRoutes(app)

	return &Server{
		app:    app,
		logger: logger.With().Str("component", "api-server").Logger(),
		addr:   cfg.Server.Addr(),
	}
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured address and blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.addr).Msg("Starting pointpack HTTP server")
	return s.app.Listen(s.addr)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(timeout time.Duration) error {
	s.logger.Info().Msg("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info().Msg("Server stopped")
	return nil
}

// statusCode maps handler errors onto HTTP status codes.
func statusCode(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, layer.ErrLayerNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, layer.ErrInvalidLayerName),
		errors.Is(err, pointpack.ErrTransformResolution),
		errors.Is(err, pointpack.ErrGeometryTransform),
		errors.Is(err, pointpack.ErrInvalidValue),
		errors.Is(err, pointpack.ErrTooManyAttributes),
		errors.Is(err, pointpack.ErrUnsupportedGeometry):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func errorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := statusCode(err)

		event := logger.Warn()
		if code >= fiber.StatusInternalServerError {
			event = logger.Error()
		}
		event.
			Err(err).
			Int("status", code).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("Request error")

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}

// requestLogger logs every request once it has been handled.
func requestLogger(logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusCode(err)
		}

		logger.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Int("bytes", len(c.Response().Body())).
			Msg("Request")

		return err
	}
}
