package handler

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/set-night/coinledger/internal/config"
	"github.com/set-night/coinledger/internal/domain"
	"github.com/set-night/coinledger/internal/middleware"
	"github.com/set-night/coinledger/internal/service"
	"github.com/set-night/coinledger/internal/telegram"
)

// Handler holds the dependencies of the HTTP endpoints.
type Handler struct {
	cfg       *config.Config
	webhooks  *service.WebhookService
	expire    *service.ExpireService
	coins     *service.CoinService
	campaigns *service.CampaignService
	notifier  *telegram.Notifier
	validate  *validator.Validate
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Cfg             *config.Config
	WebhookService  *service.WebhookService
	ExpireService   *service.ExpireService
	CoinService     *service.CoinService
	CampaignService *service.CampaignService
	Notifier        *telegram.Notifier
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		cfg:       deps.Cfg,
		webhooks:  deps.WebhookService,
		expire:    deps.ExpireService,
		coins:     deps.CoinService,
		campaigns: deps.CampaignService,
		notifier:  deps.Notifier,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// NewApp builds the fiber application with the shared middleware stack and
// every route registered.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "coinledger",
		ErrorHandler:          ErrorHandler,
		ReadTimeout:           config.ReadTimeout,
		WriteTimeout:          config.WriteTimeout,
		BodyLimit:             config.BodyLimit,
		DisableStartupMessage: true,
	})

	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logging())

	h.Register(app)
	return app
}

// Register mounts every route on app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/health", h.Health)

	api := app.Group("/api")
	api.Post("/webhook", h.Webhook)

	coin := api.Group("/coin")
	coin.Get("/balance/:userId", h.Balance)
	coin.Get("/history/:userId", h.History)

	api.Get("/campaigns", h.Campaigns)

	batch := api.Group("/batch",
		middleware.BatchToken(h.cfg.BatchToken),
		middleware.RateLimit(config.BatchRateLimitMax, config.BatchRateLimitWindow),
	)
	batch.Post("/expire-coins", h.ExpireCoins)
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// isClientError reports whether err was caused by the request itself.
func isClientError(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidUserID,
		domain.ErrInvalidAmount,
		domain.ErrInvalidCashbackCode,
		domain.ErrInvalidEntity,
		domain.ErrInvalidPagination,
		domain.ErrCampaignNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// fail renders a service error. Client errors become 400; anything else is
// logged, reported and hidden behind a generic 500.
func (h *Handler) fail(c *fiber.Ctx, err error, where string) error {
	if isClientError(err) {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}
	slog.Error("request failed", "route", where, "error", err)
	h.notifier.LogError(err, where)
	return errorJSON(c, fiber.StatusInternalServerError, "internal server error")
}

// ErrorHandler renders errors that escape handlers, such as unknown routes or
// oversized bodies, in the same shape as handler errors.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		slog.Error("unhandled error", "path", c.Path(), "error", err)
	}
	return errorJSON(c, code, message)
}
