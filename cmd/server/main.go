package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	coinledger "github.com/set-night/coinledger"
	"github.com/set-night/coinledger/internal/config"
	"github.com/set-night/coinledger/internal/domain"
	"github.com/set-night/coinledger/internal/handler"
	"github.com/set-night/coinledger/internal/repository"
	"github.com/set-night/coinledger/internal/repository/memory"
	"github.com/set-night/coinledger/internal/scheduler"
	"github.com/set-night/coinledger/internal/service"
	"github.com/set-night/coinledger/internal/telegram"
)

// storage is the set of ports the services are built from.
type storage struct {
	userCoins    domain.UserCoinRepository
	transactions domain.CoinTransactionRepository
	rewards      domain.RewardRepository
	campaigns    domain.CampaignRepository
	settings     domain.CoinSettingRepository
	tx           domain.TxManager
	close        func()
}

func main() {
	// Setup structured logging
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		slog.Error("failed to open storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer store.close()

	// Telegram operations log
	var notifier *telegram.Notifier
	if cfg.TelegramEnabled() {
		b, err := bot.New(cfg.TelegramBotToken)
		if err != nil {
			slog.Error("failed to create telegram bot", "error", err)
			os.Exit(1)
		}
		notifier = telegram.NewNotifier(b, cfg)
	} else {
		slog.Info("telegram notifications disabled")
	}

	// Initialize services
	policy := service.NewExpirationPolicy(store.settings)
	webhookService := service.NewWebhookService(store.campaigns, store.rewards, store.tx)
	expireService := service.NewExpireService(store.userCoins, policy, store.tx)
	coinService := service.NewCoinService(store.userCoins, store.transactions, policy)
	campaignService := service.NewCampaignService(store.campaigns)

	h := handler.New(handler.Deps{
		Cfg:             cfg,
		WebhookService:  webhookService,
		ExpireService:   expireService,
		CoinService:     coinService,
		CampaignService: campaignService,
		Notifier:        notifier,
	})
	app := handler.NewApp(h)

	// Scheduled expiration sweep
	if cfg.ExpireScheduleEnabled {
		sched, err := scheduler.Start(ctx, cfg, scheduler.NewExpireJob(expireService, notifier))
		if err != nil {
			slog.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := sched.Shutdown(); err != nil {
				slog.Error("scheduler shutdown", "error", err)
			}
		}()
	}

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		slog.Info("starting http server", "addr", addr, "storage", cfg.StorageDriver)
		if err := app.Listen(addr); err != nil {
			slog.Error("http server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	slog.Info("shutting down")
	if err := app.ShutdownWithTimeout(config.ShutdownTimeout); err != nil {
		slog.Error("http server shutdown", "error", err)
	}
	slog.Info("server stopped gracefully")
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		slog.Warn("using in-memory storage, data is lost on restart")
		store := memory.New()
		if err := seedDemoCampaign(store); err != nil {
			return nil, err
		}
		return &storage{
			userCoins:    store.UserCoins(),
			transactions: store.CoinTransactions(),
			rewards:      store.Rewards(),
			campaigns:    store.Campaigns(),
			settings:     store.Settings(),
			tx:           store.TxManager(),
			close:        func() {},
		}, nil
	}

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, err
	}

	// Run migrations
	migrationsFS, err := fs.Sub(coinledger.MigrationsFS, "migrations")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		pool.Close()
		return nil, err
	}

	return &storage{
		userCoins:    repository.NewUserCoinRepository(pool),
		transactions: repository.NewCoinTransactionRepository(pool),
		rewards:      repository.NewRewardRepository(pool),
		campaigns:    repository.NewCampaignRepository(pool),
		settings:     repository.NewCoinSettingRepository(pool),
		tx:           repository.NewTxManager(pool),
		close:        pool.Close,
	}, nil
}

// seedDemoCampaign registers a campaign so webhooks can be exercised locally.
func seedDemoCampaign(store *memory.Store) error {
	now := time.Now()
	_, err := store.SeedCampaign(domain.Campaign{
		ReceiptCampaignID:   "demo",
		ReceiptCampaignName: "Demo receipt campaign",
		IncentivePoints:     100,
		ServiceType:         "RECEIPT",
		Title:               "Demo campaign",
		IsPublished:         true,
		CreatedAt:           now,
		UpdatedAt:           now,
	})
	if err != nil {
		return fmt.Errorf("seed demo campaign: %w", err)
	}
	return nil
}
