// Package memory is an in-process implementation of the ledger ports. It backs
// STORAGE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/set-night/coinledger/internal/domain"
)

var errDuplicateKey = errors.New("duplicate key")

type userCoinRow struct {
	userID       int64
	balance      int64
	lastEarnedAt *time.Time
	createdAt    time.Time
	updatedAt    time.Time
}

func (r userCoinRow) restore() (*domain.UserCoin, error) {
	return domain.RestoreUserCoin(r.userID, r.balance, r.lastEarnedAt, r.createdAt, r.updatedAt)
}

type state struct {
	userCoins        map[int64]userCoinRow
	rewards          map[int64]domain.Reward
	rewardByCashback map[string]int64
	transactions     []domain.CoinTransaction
	campaigns        map[int64]domain.Campaign
	settings         map[string]domain.CoinSetting

	nextRewardID      int64
	nextTransactionID int64
	nextCampaignID    int64
}

func newState() *state {
	return &state{
		userCoins:        make(map[int64]userCoinRow),
		rewards:          make(map[int64]domain.Reward),
		rewardByCashback: make(map[string]int64),
		campaigns:        make(map[int64]domain.Campaign),
		settings:         make(map[string]domain.CoinSetting),
	}
}

func (s *state) clone() *state {
	c := &state{
		userCoins:         make(map[int64]userCoinRow, len(s.userCoins)),
		rewards:           make(map[int64]domain.Reward, len(s.rewards)),
		rewardByCashback:  make(map[string]int64, len(s.rewardByCashback)),
		transactions:      make([]domain.CoinTransaction, len(s.transactions)),
		campaigns:         make(map[int64]domain.Campaign, len(s.campaigns)),
		settings:          make(map[string]domain.CoinSetting, len(s.settings)),
		nextRewardID:      s.nextRewardID,
		nextTransactionID: s.nextTransactionID,
		nextCampaignID:    s.nextCampaignID,
	}
	for k, v := range s.userCoins {
		c.userCoins[k] = v
	}
	for k, v := range s.rewards {
		c.rewards[k] = v
	}
	for k, v := range s.rewardByCashback {
		c.rewardByCashback[k] = v
	}
	copy(c.transactions, s.transactions)
	for k, v := range s.campaigns {
		c.campaigns[k] = v
	}
	for k, v := range s.settings {
		c.settings[k] = v
	}
	return c
}

// accessor gives repositories access to either the live state or the private
// copy owned by a running transaction.
type accessor interface {
	read(fn func(*state))
	write(fn func(*state) error) error
}

// Store holds the live state. Writes, including whole transactions, are
// serialised by txMu; mu guards the pointer swap and plain reads.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *state
}

// New returns an empty store seeded with the default coin settings.
func New() *Store {
	s := &Store{st: newState()}
	now := time.Now()
	desc := "Days after the last credit before a balance expires"
	s.st.settings[domain.SettingCoinExpireDays] = domain.CoinSetting{
		Key:         domain.SettingCoinExpireDays,
		Value:       "180",
		Description: &desc,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return s
}

func (s *Store) read(fn func(*state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.st)
}

func (s *Store) write(fn func(*state) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func (s *Store) UserCoins() *UserCoinRepository {
	return &UserCoinRepository{db: s}
}

func (s *Store) Rewards() *RewardRepository {
	return &RewardRepository{db: s}
}

func (s *Store) CoinTransactions() *CoinTransactionRepository {
	return &CoinTransactionRepository{db: s}
}

func (s *Store) Campaigns() *CampaignRepository {
	return &CampaignRepository{db: s}
}

func (s *Store) Settings() *CoinSettingRepository {
	return &CoinSettingRepository{db: s}
}

func (s *Store) TxManager() *TxManager {
	return &TxManager{store: s}
}

// SeedCampaign registers a campaign and assigns its ID. Receipt campaign ids
// are unique.
func (s *Store) SeedCampaign(c domain.Campaign) (*domain.Campaign, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	err := s.write(func(st *state) error {
		for _, existing := range st.campaigns {
			if existing.ReceiptCampaignID == c.ReceiptCampaignID {
				return fmt.Errorf("insert campaign %s: %w", c.ReceiptCampaignID, errDuplicateKey)
			}
		}
		st.nextCampaignID++
		c.ID = st.nextCampaignID
		st.campaigns[c.ID] = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// txState is the private copy a transaction works on. It is only touched by
// the goroutine running the unit of work.
type txState struct {
	st *state
}

func (t *txState) read(fn func(*state))              { fn(t.st) }
func (t *txState) write(fn func(*state) error) error { return fn(t.st) }

// TxManager runs each unit of work against a copy of the live state and
// publishes the copy only when the work succeeds.
type TxManager struct {
	store *Store
}

func (m *TxManager) Execute(ctx context.Context, fn func(ctx context.Context, uow *domain.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()

	m.store.mu.RLock()
	tx := &txState{st: m.store.st.clone()}
	m.store.mu.RUnlock()

	uow := &domain.UnitOfWork{
		Rewards:          &RewardRepository{db: tx},
		UserCoins:        &UserCoinRepository{db: tx},
		CoinTransactions: &CoinTransactionRepository{db: tx},
	}
	if err := fn(ctx, uow); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.store.mu.Lock()
	m.store.st = tx.st
	m.store.mu.Unlock()
	return nil
}
