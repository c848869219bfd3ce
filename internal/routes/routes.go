package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fiora-pay/fiora_funds/internal/config"
	"github.com/fiora-pay/fiora_funds/internal/ledger"
	"github.com/fiora-pay/fiora_funds/internal/limits"
	"github.com/fiora-pay/fiora_funds/internal/middleware"
	"github.com/fiora-pay/fiora_funds/internal/notification"
	"github.com/fiora-pay/fiora_funds/internal/otp"
	"github.com/fiora-pay/fiora_funds/internal/partner"
	"github.com/fiora-pay/fiora_funds/internal/sending"
	"github.com/fiora-pay/fiora_funds/internal/user"
	"github.com/fiora-pay/fiora_funds/internal/withdraw"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. A nil DB falls
// back to in-memory stores, which keeps local development and handler tests
// free of infrastructure.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	// Health
	RegisterHealthRoutes(app, d)

	// Stores
	var (
		ledgerBackend ledger.Ledger
		users         user.Repository
		otpStore      otp.Store
		benefits      limits.BenefitSource
		inbox         notification.Inbox
	)
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB, partner.NewPostgresLinker())
		users = user.NewPostgresRepository(d.DB)
		otpStore = otp.NewPostgresStore(d.DB)
		benefits = limits.NewPostgresBenefitSource(d.DB)
		inbox = notification.NewPostgresInbox(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory(partner.NewMemoryLinker())
		users = user.NewMemoryRepository()
		otpStore = otp.NewMemoryStore()
		benefits = limits.StaticBenefitSource{
			limits.BenefitDailyMovingLimit:   {Value: 1_000_000, Currency: ledger.Currency},
			limits.BenefitOneTimeMovingLimit: {Value: 500_000, Currency: ledger.Currency},
		}
		inbox = notification.NewMemoryInbox()
	}

	// Services and handlers
	resolver := limits.NewResolver(benefits)
	otpManager := otp.NewManager(otpStore, d.Cfg.OtpTTL, d.Cfg.OtpCooldown)
	notifier := notification.NewLoggerNotifier(d.Logger)
	loc := d.Cfg.DayLocation()

	sendingSvc := sending.NewService(users, ledgerBackend, resolver, otpManager, notifier, inbox, loc, d.Logger)
	withdrawSvc := withdraw.NewService(users, ledgerBackend, resolver, otpManager, notifier, inbox, loc, d.Logger)

	sendingHandler := sending.NewHandler(sendingSvc)
	withdrawHandler := withdraw.NewHandler(withdrawSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// All funds-movement routes require an authenticated caller.
	protected := api.Group("", middleware.Auth(d.Cfg.JWTSecret))

	idem := passthrough()
	if d.Cache != nil {
		idem = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}
	otpLimit := middleware.OtpRateLimit(d.Cache, 3)

	RegisterSendingRoutes(protected, sendingHandler, idem, otpLimit)
	RegisterWithdrawRoutes(protected, withdrawHandler, idem, otpLimit)

	return nil
}

func passthrough() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Next()
	}
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
