package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/tronscope/tronscope/internal/config"
	"github.com/tronscope/tronscope/internal/metrics"
	"github.com/tronscope/tronscope/internal/middleware"
	"github.com/tronscope/tronscope/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Chain   wallet.Chain
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Setup configures middlewares and all application routes, and makes sure
// the record store schema exists before any route can be served.
func Setup(ctx context.Context, app *fiber.App, d Deps) error {
	if d.DB == nil && !d.Cfg.IsDev() {
		return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
	}
	if d.Chain == nil {
		return fmt.Errorf("chain client is required")
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New("tronscope")
	}

	var repo wallet.Repository
	if d.DB != nil {
		repo = wallet.NewPostgresRepository(d.DB)
	} else {
		d.Logger.Warn("no database configured, records are kept in memory")
		repo = wallet.NewMemoryRepository()
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	app.Use(middleware.Metrics(d.Metrics))

	// Health and metrics
	RegisterHealthRoutes(app, d)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{})))
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.GetRequestID(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	walletSvc := wallet.NewService(repo, d.Chain, d.Logger, wallet.WithDroppedWrites(d.Metrics.DroppedWrites))
	walletHandler := wallet.NewHandler(walletSvc, d.Logger)

	lookupGuards := []fiber.Handler{
		middleware.RateLimit(d.Cache, d.Cfg.WalletRateLimit, d.Logger),
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
	}
	RegisterWalletRoutes(app, walletHandler, lookupGuards...)

	return nil
}
