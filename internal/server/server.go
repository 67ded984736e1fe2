package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tronscope/tronscope/internal/routes"
	"github.com/tronscope/tronscope/internal/wallet"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app  *fiber.App
	addr string
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
// The record store schema is in place once New returns.
func New(ctx context.Context, d routes.Deps) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      d.Cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: ErrorHandler(d.Logger),
	})

	if err := routes.Setup(ctx, app, d); err != nil {
		return nil, err
	}

	return &Server{app: app, addr: d.Cfg.Address()}, nil
}

// ErrorHandler renders every error as {"detail": "..."}. Only *fiber.Error
// messages reach the client; anything else is logged and reported as a
// generic internal error.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if !errors.As(err, &fe) {
			logger.Error("unhandled error", slog.String("path", c.Path()), slog.Any("error", err))
			fe = fiber.NewError(fiber.StatusInternalServerError, wallet.DetailInternal)
		}
		return c.Status(fe.Code).JSON(fiber.Map{"detail": fe.Message})
	}
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the underlying Fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
