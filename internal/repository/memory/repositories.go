package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/set-night/coinledger/internal/domain"
)

type UserCoinRepository struct {
	db accessor
}

func (r *UserCoinRepository) FindByUserID(_ context.Context, userID int64) (*domain.UserCoin, error) {
	var (
		row userCoinRow
		ok  bool
	)
	r.db.read(func(st *state) {
		row, ok = st.userCoins[userID]
	})
	if !ok {
		return nil, domain.ErrUserCoinNotFound
	}
	return row.restore()
}

func (r *UserCoinRepository) Save(_ context.Context, coin *domain.UserCoin) error {
	row := userCoinRow{
		userID:       coin.UserID(),
		balance:      coin.Balance(),
		lastEarnedAt: coin.LastEarnedAt(),
		createdAt:    coin.CreatedAt(),
		updatedAt:    coin.UpdatedAt(),
	}
	err := r.db.write(func(st *state) error {
		_, exists := st.userCoins[row.userID]
		switch {
		case coin.IsNew() && exists:
			return fmt.Errorf("insert user coin %d: %w", row.userID, errDuplicateKey)
		case !coin.IsNew() && !exists:
			return fmt.Errorf("update user coin %d: %w", row.userID, domain.ErrUserCoinNotFound)
		}
		st.userCoins[row.userID] = row
		return nil
	})
	if err != nil {
		return err
	}
	coin.MarkPersisted()
	return nil
}

func (r *UserCoinRepository) FindExpired(_ context.Context, cutoff time.Time) ([]*domain.UserCoin, error) {
	var rows []userCoinRow
	r.db.read(func(st *state) {
		for _, row := range st.userCoins {
			if row.lastEarnedAt != nil && row.lastEarnedAt.Before(cutoff) && row.balance > 0 {
				rows = append(rows, row)
			}
		}
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].userID < rows[j].userID })

	coins := make([]*domain.UserCoin, 0, len(rows))
	for _, row := range rows {
		coin, err := row.restore()
		if err != nil {
			return nil, err
		}
		coins = append(coins, coin)
	}
	return coins, nil
}

type CoinTransactionRepository struct {
	db accessor
}

func (r *CoinTransactionRepository) Create(_ context.Context, tx *domain.CoinTransaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	return r.db.write(func(st *state) error {
		st.nextTransactionID++
		tx.ID = st.nextTransactionID
		st.transactions = append(st.transactions, *tx)
		return nil
	})
}

func (r *CoinTransactionRepository) FindByUserID(_ context.Context, userID int64, limit, offset int) ([]*domain.CoinTransaction, int, error) {
	var matched []domain.CoinTransaction
	r.db.read(func(st *state) {
		for _, tx := range st.transactions {
			if tx.UserID == userID {
				matched = append(matched, tx)
			}
		}
	})
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	page := make([]*domain.CoinTransaction, 0, limit)
	for i := offset; i < total && len(page) < limit; i++ {
		tx := matched[i]
		page = append(page, &tx)
	}
	return page, total, nil
}

func (r *CoinTransactionRepository) FindByRewardID(_ context.Context, rewardID int64) (*domain.CoinTransaction, error) {
	var (
		found domain.CoinTransaction
		ok    bool
	)
	r.db.read(func(st *state) {
		for _, tx := range st.transactions {
			if tx.RewardID != nil && *tx.RewardID == rewardID {
				found, ok = tx, true
				return
			}
		}
	})
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return &found, nil
}

type RewardRepository struct {
	db accessor
}

func (r *RewardRepository) FindByMediaCashbackID(_ context.Context, mediaCashbackID string) (*domain.Reward, error) {
	var (
		reward domain.Reward
		ok     bool
	)
	r.db.read(func(st *state) {
		var id int64
		if id, ok = st.rewardByCashback[mediaCashbackID]; ok {
			reward = st.rewards[id]
		}
	})
	if !ok {
		return nil, domain.ErrRewardNotFound
	}
	return &reward, nil
}

func (r *RewardRepository) Create(_ context.Context, reward *domain.Reward) error {
	if err := reward.Validate(); err != nil {
		return err
	}
	return r.db.write(func(st *state) error {
		if _, dup := st.rewardByCashback[reward.MediaCashbackID]; dup {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyProcessed, reward.MediaCashbackID)
		}
		if _, ok := st.campaigns[reward.CampaignID]; !ok {
			return fmt.Errorf("insert reward: campaign %d: %w", reward.CampaignID, domain.ErrCampaignNotFound)
		}
		st.nextRewardID++
		reward.ID = st.nextRewardID
		st.rewards[reward.ID] = *reward
		st.rewardByCashback[reward.MediaCashbackID] = reward.ID
		return nil
	})
}

func (r *RewardRepository) FindByUserID(_ context.Context, userID int64) ([]*domain.Reward, error) {
	var rewards []*domain.Reward
	r.db.read(func(st *state) {
		for _, reward := range st.rewards {
			if reward.UserID == userID {
				reward := reward
				rewards = append(rewards, &reward)
			}
		}
	})
	sort.Slice(rewards, func(i, j int) bool {
		if !rewards[i].CreatedAt.Equal(rewards[j].CreatedAt) {
			return rewards[i].CreatedAt.After(rewards[j].CreatedAt)
		}
		return rewards[i].ID > rewards[j].ID
	})
	return rewards, nil
}

type CampaignRepository struct {
	db accessor
}

func (r *CampaignRepository) FindByID(_ context.Context, id int64) (*domain.Campaign, error) {
	var (
		c  domain.Campaign
		ok bool
	)
	r.db.read(func(st *state) {
		c, ok = st.campaigns[id]
	})
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}
	return &c, nil
}

func (r *CampaignRepository) FindByReceiptCampaignID(_ context.Context, receiptCampaignID string) (*domain.Campaign, error) {
	var found *domain.Campaign
	r.db.read(func(st *state) {
		for _, c := range st.campaigns {
			if c.ReceiptCampaignID == receiptCampaignID {
				c := c
				found = &c
				return
			}
		}
	})
	if found == nil {
		return nil, domain.ErrCampaignNotFound
	}
	return found, nil
}

func (r *CampaignRepository) FindPublished(_ context.Context, now time.Time) ([]*domain.Campaign, error) {
	var campaigns []*domain.Campaign
	r.db.read(func(st *state) {
		for _, c := range st.campaigns {
			if c.IsActive(now) {
				c := c
				campaigns = append(campaigns, &c)
			}
		}
	})
	sort.Slice(campaigns, func(i, j int) bool {
		if campaigns[i].DisplayOrder != campaigns[j].DisplayOrder {
			return campaigns[i].DisplayOrder < campaigns[j].DisplayOrder
		}
		return campaigns[i].CreatedAt.After(campaigns[j].CreatedAt)
	})
	return campaigns, nil
}

type CoinSettingRepository struct {
	db accessor
}

func (r *CoinSettingRepository) FindByKey(_ context.Context, key string) (*domain.CoinSetting, error) {
	var (
		s  domain.CoinSetting
		ok bool
	)
	r.db.read(func(st *state) {
		s, ok = st.settings[key]
	})
	if !ok {
		return nil, domain.ErrSettingNotFound
	}
	return &s, nil
}

func (r *CoinSettingRepository) Save(_ context.Context, setting *domain.CoinSetting) error {
	if err := setting.Validate(); err != nil {
		return err
	}
	return r.db.write(func(st *state) error {
		if existing, ok := st.settings[setting.Key]; ok {
			setting.CreatedAt = existing.CreatedAt
		}
		st.settings[setting.Key] = *setting
		return nil
	})
}

var (
	_ domain.UserCoinRepository        = (*UserCoinRepository)(nil)
	_ domain.CoinTransactionRepository = (*CoinTransactionRepository)(nil)
	_ domain.RewardRepository          = (*RewardRepository)(nil)
	_ domain.CampaignRepository        = (*CampaignRepository)(nil)
	_ domain.CoinSettingRepository     = (*CoinSettingRepository)(nil)
	_ domain.TxManager                 = (*TxManager)(nil)
)
