package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/coinledger/internal/config"
	"github.com/set-night/coinledger/internal/domain"
)

type ExpireResult struct {
	RunID          string  `json:"runId"`
	UsersProcessed int     `json:"usersProcessed"`
	TotalExpired   int64   `json:"totalExpired"`
	UsersFailed    int     `json:"usersFailed"`
	FailedUserIDs  []int64 `json:"failedUserIds"`
	SkippedUsers   int     `json:"skippedUsers"`
	ElapsedMs      int64   `json:"elapsedMs"`
}

type ExpireService struct {
	userCoins domain.UserCoinRepository
	policy    *ExpirationPolicy
	tx        domain.TxManager
	now       func() time.Time
}

func NewExpireService(userCoins domain.UserCoinRepository, policy *ExpirationPolicy, tx domain.TxManager) *ExpireService {
	return &ExpireService{userCoins: userCoins, policy: policy, tx: tx, now: time.Now}
}

// Run zeroes every balance whose last credit is older than the expiration
// window. Each user is expired in its own transaction; a failing user is
// counted and logged and the sweep moves on.
func (s *ExpireService) Run(ctx context.Context) (*ExpireResult, error) {
	started := time.Now()
	result := &ExpireResult{
		RunID:         uuid.NewString(),
		FailedUserIDs: []int64{},
	}
	log := slog.With("run_id", result.RunID)

	days, err := s.policy.Days(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	cutoff := now.AddDate(0, 0, -days)
	candidates, err := s.userCoins.FindExpired(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("find expired balances: %w", err)
	}
	log.Info("expiration sweep started", "candidates", len(candidates), "expire_days", days, "cutoff", cutoff)

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			log.Warn("expiration sweep interrupted", "error", err)
			break
		}

		userID := candidate.UserID()
		expired, err := s.expireUser(ctx, userID, days, now)
		switch {
		case err != nil:
			log.Error("failed to expire coins", "user_id", userID, "error", err)
			result.UsersFailed++
			result.FailedUserIDs = append(result.FailedUserIDs, userID)
		case expired == 0:
			log.Debug("balance changed since scan, skipped", "user_id", userID)
			result.SkippedUsers++
		default:
			result.UsersProcessed++
			result.TotalExpired += expired
		}
	}

	result.ElapsedMs = time.Since(started).Milliseconds()
	log.Info("expiration sweep finished",
		"users_processed", result.UsersProcessed,
		"total_expired", result.TotalExpired,
		"users_failed", result.UsersFailed,
		"skipped_users", result.SkippedUsers,
		"elapsed_ms", result.ElapsedMs,
	)
	return result, nil
}

// expireUser returns the amount removed, or 0 when the fresh record no longer
// qualifies: it vanished, is already empty, or was credited since the scan.
func (s *ExpireService) expireUser(ctx context.Context, userID int64, days int, now time.Time) (int64, error) {
	var expired int64
	err := s.tx.Execute(ctx, func(ctx context.Context, uow *domain.UnitOfWork) error {
		coin, err := uow.UserCoins.FindByUserID(ctx, userID)
		if errors.Is(err, domain.ErrUserCoinNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load user coin: %w", err)
		}
		if coin.Balance() == 0 || !coin.IsExpired(days, now) {
			return nil
		}

		amount := coin.Expire(now)
		if err := uow.UserCoins.Save(ctx, coin); err != nil {
			return err
		}

		entry, err := domain.NewExpireTransaction(userID, -amount, coin.Balance(), config.ExpireDescription, now)
		if err != nil {
			return err
		}
		if err := uow.CoinTransactions.Create(ctx, entry); err != nil {
			return err
		}

		expired = amount
		return nil
	})
	if err != nil {
		return 0, err
	}
	return expired, nil
}
