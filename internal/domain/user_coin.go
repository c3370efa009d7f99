package domain

import (
	"fmt"
	"time"
)

// UserCoin is the coin balance of a single user. The balance never goes
// negative and every credit moves lastEarnedAt forward, which restarts the
// expiration window.
type UserCoin struct {
	userID       int64
	balance      int64
	lastEarnedAt *time.Time
	createdAt    time.Time
	updatedAt    time.Time
	persisted    bool
}

// NewUserCoin returns a zero-balance record for a user that has never earned.
func NewUserCoin(userID int64, now time.Time) (*UserCoin, error) {
	c := &UserCoin{
		userID:    userID,
		createdAt: now,
		updatedAt: now,
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// RestoreUserCoin rebuilds a stored record.
func RestoreUserCoin(userID, balance int64, lastEarnedAt *time.Time, createdAt, updatedAt time.Time) (*UserCoin, error) {
	c := &UserCoin{
		userID:       userID,
		balance:      balance,
		lastEarnedAt: lastEarnedAt,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
		persisted:    true,
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *UserCoin) validate() error {
	if c.userID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidUserID, c.userID)
	}
	if c.balance < 0 {
		return fmt.Errorf("%w: balance %d is negative", ErrInvalidEntity, c.balance)
	}
	return nil
}

// Credit adds a reward to the balance and refreshes lastEarnedAt.
func (c *UserCoin) Credit(amount int64, now time.Time) error {
	if amount <= 0 {
		return fmt.Errorf("%w: credit %d", ErrInvalidAmount, amount)
	}
	c.balance += amount
	earned := now
	c.lastEarnedAt = &earned
	c.updatedAt = now
	return nil
}

// Debit removes coins spent on an exchange. lastEarnedAt is left untouched.
func (c *UserCoin) Debit(amount int64, now time.Time) error {
	if amount <= 0 {
		return fmt.Errorf("%w: debit %d", ErrInvalidAmount, amount)
	}
	if c.balance < amount {
		return ErrInsufficientBalance
	}
	c.balance -= amount
	c.updatedAt = now
	return nil
}

// Expire zeroes the balance and returns the amount that was removed.
func (c *UserCoin) Expire(now time.Time) int64 {
	expired := c.balance
	c.balance = 0
	c.updatedAt = now
	return expired
}

// IsExpired reports whether the last credit is older than days.
func (c *UserCoin) IsExpired(days int, now time.Time) bool {
	if c.lastEarnedAt == nil || c.balance == 0 {
		return false
	}
	return now.After(c.lastEarnedAt.AddDate(0, 0, days))
}

// ExpiresAt is lastEarnedAt plus the window, or nil when nothing can expire.
func (c *UserCoin) ExpiresAt(days int) *time.Time {
	if c.lastEarnedAt == nil || c.balance == 0 {
		return nil
	}
	t := c.lastEarnedAt.AddDate(0, 0, days)
	return &t
}

func (c *UserCoin) UserID() int64            { return c.userID }
func (c *UserCoin) Balance() int64           { return c.balance }
func (c *UserCoin) LastEarnedAt() *time.Time { return c.lastEarnedAt }
func (c *UserCoin) CreatedAt() time.Time     { return c.createdAt }
func (c *UserCoin) UpdatedAt() time.Time     { return c.updatedAt }

// IsNew reports whether the record has not been stored yet.
func (c *UserCoin) IsNew() bool { return !c.persisted }

// MarkPersisted is called by repositories after the first insert.
func (c *UserCoin) MarkPersisted() { c.persisted = true }
