package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type TransactionType int16

const (
	TxTypeReward   TransactionType = 1
	TxTypeExchange TransactionType = 2
	TxTypeExpire   TransactionType = 3
)

func (t TransactionType) String() string {
	switch t {
	case TxTypeReward:
		return "REWARD"
	case TxTypeExchange:
		return "EXCHANGE"
	case TxTypeExpire:
		return "EXPIRE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int16(t))
	}
}

func (t TransactionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// CoinTransaction is one immutable ledger line. BalanceAfter is the user's
// balance right after Amount was applied.
type CoinTransaction struct {
	ID              int64
	UserID          int64
	Amount          int64
	BalanceAfter    int64
	Type            TransactionType
	RewardID        *int64
	MediaCashbackID *string
	Description     string
	CreatedAt       time.Time
}

// NewRewardTransaction records a credit coming from a honored webhook.
func NewRewardTransaction(userID, amount, balanceAfter, rewardID int64, mediaCashbackID, description string, now time.Time) (*CoinTransaction, error) {
	tx := &CoinTransaction{
		UserID:          userID,
		Amount:          amount,
		BalanceAfter:    balanceAfter,
		Type:            TxTypeReward,
		RewardID:        &rewardID,
		MediaCashbackID: &mediaCashbackID,
		Description:     description,
		CreatedAt:       now,
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return tx, nil
}

// NewExchangeTransaction records coins spent. amount must be negative.
func NewExchangeTransaction(userID, amount, balanceAfter int64, description string, now time.Time) (*CoinTransaction, error) {
	tx := &CoinTransaction{
		UserID:       userID,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Type:         TxTypeExchange,
		Description:  description,
		CreatedAt:    now,
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return tx, nil
}

// NewExpireTransaction records coins reclaimed by the expiration sweep.
func NewExpireTransaction(userID, amount, balanceAfter int64, description string, now time.Time) (*CoinTransaction, error) {
	tx := &CoinTransaction{
		UserID:       userID,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Type:         TxTypeExpire,
		Description:  description,
		CreatedAt:    now,
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return tx, nil
}

func (t *CoinTransaction) Validate() error {
	if t.UserID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidUserID, t.UserID)
	}
	if t.BalanceAfter < 0 {
		return fmt.Errorf("%w: balance after %d is negative", ErrInvalidEntity, t.BalanceAfter)
	}
	switch t.Type {
	case TxTypeReward:
		if t.Amount <= 0 {
			return fmt.Errorf("%w: reward amount must be positive, got %d", ErrInvalidAmount, t.Amount)
		}
	case TxTypeExchange, TxTypeExpire:
		if t.Amount >= 0 {
			return fmt.Errorf("%w: %s amount must be negative, got %d", ErrInvalidAmount, t.Type, t.Amount)
		}
		if t.RewardID != nil || t.MediaCashbackID != nil {
			return fmt.Errorf("%w: %s transaction cannot reference a reward", ErrInvalidEntity, t.Type)
		}
	default:
		return fmt.Errorf("%w: unknown transaction type %d", ErrInvalidEntity, int16(t.Type))
	}
	return nil
}
