package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/set-night/coinledger/internal/domain"
)

// TxManager runs units of work on a read-committed pgx transaction.
type TxManager struct {
	db *pgxpool.Pool
}

func NewTxManager(db *pgxpool.Pool) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) Execute(ctx context.Context, fn func(ctx context.Context, uow *domain.UnitOfWork) error) error {
	tx, err := m.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// Rollback after Commit is a no-op; on any other exit path, including a
	// panic in fn, it returns the connection to the pool.
	defer tx.Rollback(ctx)

	uow := &domain.UnitOfWork{
		Rewards:          NewRewardRepository(tx),
		UserCoins:        newLockingUserCoinRepository(tx),
		CoinTransactions: NewCoinTransactionRepository(tx),
	}

	if err := fn(ctx, uow); err != nil {
		slog.Debug("transaction rolled back", "error", err)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

var (
	_ domain.UserCoinRepository        = (*UserCoinRepository)(nil)
	_ domain.CoinTransactionRepository = (*CoinTransactionRepository)(nil)
	_ domain.RewardRepository          = (*RewardRepository)(nil)
	_ domain.CampaignRepository        = (*CampaignRepository)(nil)
	_ domain.CoinSettingRepository     = (*CoinSettingRepository)(nil)
	_ domain.TxManager                 = (*TxManager)(nil)
)
