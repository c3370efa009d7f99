package config

import "time"

const (
	// Coin expiration window used when coin_expire_days is missing or invalid
	DefaultCoinExpireDays = 180

	// History pagination
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100

	// Upper bound for one scheduled expiration sweep
	ExpireBatchTimeout = 30 * time.Minute

	// HTTP server
	ReadTimeout     = 10 * time.Second
	WriteTimeout    = 30 * time.Second
	ShutdownTimeout = 15 * time.Second
	BodyLimit       = 1 * 1024 * 1024

	// Manual batch trigger, per client IP
	BatchRateLimitMax    = 5
	BatchRateLimitWindow = time.Minute

	// Telegram notification send timeout
	TelegramSendTimeout = 10 * time.Second

	// Ledger descriptions
	RewardDescriptionFormat = "Participated in %s"
	ExpireDescription       = "Coins expired"
)
