package domain

import (
	"context"
	"time"
)

type UserCoinRepository interface {
	// FindByUserID returns ErrUserCoinNotFound when the user never earned.
	// Inside a transaction the row is locked until commit.
	FindByUserID(ctx context.Context, userID int64) (*UserCoin, error)
	// Save inserts new records and updates stored ones.
	Save(ctx context.Context, coin *UserCoin) error
	// FindExpired lists balances last credited before cutoff that are still nonzero.
	FindExpired(ctx context.Context, cutoff time.Time) ([]*UserCoin, error)
}

type CoinTransactionRepository interface {
	// Create appends tx and fills in its ID.
	Create(ctx context.Context, tx *CoinTransaction) error
	// FindByUserID returns one page newest first and the total row count.
	FindByUserID(ctx context.Context, userID int64, limit, offset int) ([]*CoinTransaction, int, error)
	FindByRewardID(ctx context.Context, rewardID int64) (*CoinTransaction, error)
}

type RewardRepository interface {
	FindByMediaCashbackID(ctx context.Context, mediaCashbackID string) (*Reward, error)
	// Create fills in the reward ID. A duplicate cashback id fails with ErrAlreadyProcessed.
	Create(ctx context.Context, reward *Reward) error
	FindByUserID(ctx context.Context, userID int64) ([]*Reward, error)
}

type CampaignRepository interface {
	FindByID(ctx context.Context, id int64) (*Campaign, error)
	FindByReceiptCampaignID(ctx context.Context, receiptCampaignID string) (*Campaign, error)
	FindPublished(ctx context.Context, now time.Time) ([]*Campaign, error)
}

type CoinSettingRepository interface {
	FindByKey(ctx context.Context, key string) (*CoinSetting, error)
	Save(ctx context.Context, setting *CoinSetting) error
}

// UnitOfWork is a set of repositories bound to one database transaction.
type UnitOfWork struct {
	Rewards          RewardRepository
	UserCoins        UserCoinRepository
	CoinTransactions CoinTransactionRepository
}

// TxManager runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise; the connection is always released.
type TxManager interface {
	Execute(ctx context.Context, fn func(ctx context.Context, uow *UnitOfWork) error) error
}
