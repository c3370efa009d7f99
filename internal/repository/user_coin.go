package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/set-night/coinledger/internal/domain"
)

type UserCoinRepository struct {
	db        DBTX
	forUpdate bool
}

func NewUserCoinRepository(db DBTX) *UserCoinRepository {
	return &UserCoinRepository{db: db}
}

// newLockingUserCoinRepository reads rows with FOR UPDATE so the balance
// cannot change under the transaction that loaded it.
func newLockingUserCoinRepository(tx pgx.Tx) *UserCoinRepository {
	return &UserCoinRepository{db: tx, forUpdate: true}
}

const userCoinColumns = `user_id, current_balance, last_earned_at, created_at, updated_at`

func scanUserCoin(row pgx.Row) (*domain.UserCoin, error) {
	var (
		userID       int64
		balance      int64
		lastEarnedAt *time.Time
		createdAt    time.Time
		updatedAt    time.Time
	)
	if err := row.Scan(&userID, &balance, &lastEarnedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return domain.RestoreUserCoin(userID, balance, lastEarnedAt, createdAt, updatedAt)
}

func (r *UserCoinRepository) FindByUserID(ctx context.Context, userID int64) (*domain.UserCoin, error) {
	query := `SELECT ` + userCoinColumns + ` FROM user_coins WHERE user_id = $1`
	if r.forUpdate {
		query += ` FOR UPDATE`
	}

	coin, err := scanUserCoin(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserCoinNotFound
		}
		return nil, fmt.Errorf("get user coin %d: %w", userID, err)
	}
	return coin, nil
}

func (r *UserCoinRepository) Save(ctx context.Context, coin *domain.UserCoin) error {
	if coin.IsNew() {
		_, err := r.db.Exec(ctx,
			`INSERT INTO user_coins (`+userCoinColumns+`) VALUES ($1, $2, $3, $4, $5)`,
			coin.UserID(), coin.Balance(), coin.LastEarnedAt(), coin.CreatedAt(), coin.UpdatedAt(),
		)
		if err != nil {
			return fmt.Errorf("insert user coin %d: %w", coin.UserID(), err)
		}
		coin.MarkPersisted()
		return nil
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE user_coins SET current_balance = $2, last_earned_at = $3, updated_at = $4 WHERE user_id = $1`,
		coin.UserID(), coin.Balance(), coin.LastEarnedAt(), coin.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("update user coin %d: %w", coin.UserID(), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update user coin %d: %w", coin.UserID(), domain.ErrUserCoinNotFound)
	}
	return nil
}

func (r *UserCoinRepository) FindExpired(ctx context.Context, cutoff time.Time) ([]*domain.UserCoin, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userCoinColumns+` FROM user_coins
		 WHERE last_earned_at < $1 AND current_balance > 0
		 ORDER BY user_id`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("query expired user coins: %w", err)
	}
	defer rows.Close()

	var coins []*domain.UserCoin
	for rows.Next() {
		coin, err := scanUserCoin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user coin: %w", err)
		}
		coins = append(coins, coin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired user coins: %w", err)
	}
	return coins, nil
}
