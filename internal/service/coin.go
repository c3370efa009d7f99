package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/set-night/coinledger/internal/config"
	"github.com/set-night/coinledger/internal/domain"
)

type Balance struct {
	Balance      int64      `json:"balance"`
	LastEarnedAt *time.Time `json:"lastEarnedAt"`
	ExpiresAt    *time.Time `json:"expiresAt"`
}

type HistoryPage struct {
	Transactions []*domain.CoinTransaction
	Total        int
	Limit        int
	Offset       int
}

type CoinService struct {
	userCoins    domain.UserCoinRepository
	transactions domain.CoinTransactionRepository
	policy       *ExpirationPolicy
}

func NewCoinService(userCoins domain.UserCoinRepository, transactions domain.CoinTransactionRepository, policy *ExpirationPolicy) *CoinService {
	return &CoinService{userCoins: userCoins, transactions: transactions, policy: policy}
}

func (s *CoinService) GetBalance(ctx context.Context, userID int64) (*Balance, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidUserID, userID)
	}

	coin, err := s.userCoins.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserCoinNotFound) {
			return &Balance{}, nil
		}
		return nil, fmt.Errorf("get balance: %w", err)
	}

	days, err := s.policy.Days(ctx)
	if err != nil {
		return nil, err
	}

	return &Balance{
		Balance:      coin.Balance(),
		LastEarnedAt: coin.LastEarnedAt(),
		ExpiresAt:    coin.ExpiresAt(days),
	}, nil
}

// GetHistory returns one page of the ledger, newest first. Out-of-range
// paging fails with ErrInvalidPagination instead of being clamped.
func (s *CoinService) GetHistory(ctx context.Context, userID int64, limit, offset int) (*HistoryPage, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidUserID, userID)
	}
	if limit < 1 || limit > config.MaxHistoryLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d, got %d", domain.ErrInvalidPagination, config.MaxHistoryLimit, limit)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative, got %d", domain.ErrInvalidPagination, offset)
	}

	txs, total, err := s.transactions.FindByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return &HistoryPage{
		Transactions: txs,
		Total:        total,
		Limit:        limit,
		Offset:       offset,
	}, nil
}
