package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/set-night/coinledger/internal/config"
	"github.com/set-night/coinledger/internal/domain"
)

// ExpirationPolicy resolves the expiration window. The balance query and the
// sweep share one policy so the displayed expiry matches the enforced one.
type ExpirationPolicy struct {
	settings domain.CoinSettingRepository
}

func NewExpirationPolicy(settings domain.CoinSettingRepository) *ExpirationPolicy {
	return &ExpirationPolicy{settings: settings}
}

// Days returns the configured window. A missing, malformed or non-positive
// setting falls back to the default; store errors are returned.
func (p *ExpirationPolicy) Days(ctx context.Context) (int, error) {
	setting, err := p.settings.FindByKey(ctx, domain.SettingCoinExpireDays)
	if err != nil {
		if errors.Is(err, domain.ErrSettingNotFound) {
			return config.DefaultCoinExpireDays, nil
		}
		return 0, fmt.Errorf("load expiration window: %w", err)
	}

	days, err := setting.AsInt()
	if err != nil {
		slog.Warn("invalid expiration window, using default",
			"value", setting.Value,
			"default", config.DefaultCoinExpireDays,
			"error", err,
		)
		return config.DefaultCoinExpireDays, nil
	}
	if days <= 0 {
		slog.Warn("non-positive expiration window, using default",
			"value", days,
			"default", config.DefaultCoinExpireDays,
		)
		return config.DefaultCoinExpireDays, nil
	}
	return days, nil
}
