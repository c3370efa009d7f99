package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/set-night/coinledger/internal/domain"
)

type CoinTransactionRepository struct {
	db DBTX
}

func NewCoinTransactionRepository(db DBTX) *CoinTransactionRepository {
	return &CoinTransactionRepository{db: db}
}

const coinTransactionColumns = `id, user_id, amount, balance_after, transaction_type, reward_id, media_cashback_id, description, created_at`

func scanCoinTransaction(row pgx.Row) (*domain.CoinTransaction, error) {
	var (
		tx     domain.CoinTransaction
		txType int16
	)
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Amount,
		&tx.BalanceAfter,
		&txType,
		&tx.RewardID,
		&tx.MediaCashbackID,
		&tx.Description,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	tx.Type = domain.TransactionType(txType)
	return &tx, nil
}

func (r *CoinTransactionRepository) Create(ctx context.Context, tx *domain.CoinTransaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO coin_transactions (user_id, amount, balance_after, transaction_type, reward_id, media_cashback_id, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		tx.UserID, tx.Amount, tx.BalanceAfter, int16(tx.Type), tx.RewardID, tx.MediaCashbackID, tx.Description, tx.CreatedAt,
	).Scan(&tx.ID)
	if err != nil {
		return fmt.Errorf("insert coin transaction: %w", err)
	}
	return nil
}

func (r *CoinTransactionRepository) FindByUserID(ctx context.Context, userID int64, limit, offset int) ([]*domain.CoinTransaction, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM coin_transactions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count coin transactions: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+coinTransactionColumns+` FROM coin_transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query coin transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]*domain.CoinTransaction, 0, limit)
	for rows.Next() {
		tx, err := scanCoinTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan coin transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate coin transactions: %w", err)
	}
	return txs, total, nil
}

func (r *CoinTransactionRepository) FindByRewardID(ctx context.Context, rewardID int64) (*domain.CoinTransaction, error) {
	tx, err := scanCoinTransaction(r.db.QueryRow(ctx,
		`SELECT `+coinTransactionColumns+` FROM coin_transactions WHERE reward_id = $1`, rewardID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get coin transaction by reward %d: %w", rewardID, err)
	}
	return tx, nil
}
