package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/set-night/coinledger/internal/domain"
	"github.com/set-night/coinledger/internal/repository/memory"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type fixture struct {
	store    *memory.Store
	campaign *domain.Campaign
	policy   *ExpirationPolicy
	webhook  *WebhookService
	expire   *ExpireService
	coins    *CoinService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	campaign, err := store.SeedCampaign(domain.Campaign{
		ReceiptCampaignID:   "rc-1",
		ReceiptCampaignName: "Receipt campaign",
		IncentivePoints:     100,
		ServiceType:         "RECEIPT",
		Title:               "Spring sale",
		IsPublished:         true,
		CreatedAt:           testNow,
		UpdatedAt:           testNow,
	})
	require.NoError(t, err)

	policy := NewExpirationPolicy(store.Settings())

	webhook := NewWebhookService(store.Campaigns(), store.Rewards(), store.TxManager())
	webhook.now = fixedClock(testNow)

	expire := NewExpireService(store.UserCoins(), policy, store.TxManager())
	expire.now = fixedClock(testNow)

	return &fixture{
		store:    store,
		campaign: campaign,
		policy:   policy,
		webhook:  webhook,
		expire:   expire,
		coins:    NewCoinService(store.UserCoins(), store.CoinTransactions(), policy),
	}
}

func webhookInput(userCode, cashbackID string, points int64) WebhookInput {
	return WebhookInput{
		MediaID:           "media-1",
		MediaUserCode:     userCode,
		MediaCashbackID:   cashbackID,
		MediaCashbackCode: "ABCDEFGHIJKLMNO",
		ReceiptCampaignID: "rc-1",
		IncentivePoints:   points,
		ParticipationAt:   testNow.Add(-time.Hour),
		ProcessedAt:       testNow.Add(-time.Minute),
	}
}

// seedBalance stores a balance last credited at earnedAt together with the
// matching ledger entry.
func (f *fixture) seedBalance(t *testing.T, userID, amount int64, earnedAt time.Time) {
	t.Helper()
	ctx := context.Background()

	coin, err := domain.NewUserCoin(userID, earnedAt)
	require.NoError(t, err)
	require.NoError(t, coin.Credit(amount, earnedAt))
	require.NoError(t, f.store.UserCoins().Save(ctx, coin))

	entry, err := domain.NewRewardTransaction(userID, amount, amount, userID, "seed", "seed", earnedAt)
	require.NoError(t, err)
	require.NoError(t, f.store.CoinTransactions().Create(ctx, entry))
}

func (f *fixture) setExpireDays(t *testing.T, value string) {
	t.Helper()
	setting, err := domain.NewCoinSetting(domain.SettingCoinExpireDays, value, nil, testNow)
	require.NoError(t, err)
	require.NoError(t, f.store.Settings().Save(context.Background(), setting))
}

func (f *fixture) balance(t *testing.T, userID int64) int64 {
	t.Helper()
	coin, err := f.store.UserCoins().FindByUserID(context.Background(), userID)
	if errors.Is(err, domain.ErrUserCoinNotFound) {
		return 0
	}
	require.NoError(t, err)
	return coin.Balance()
}

func (f *fixture) ledger(t *testing.T, userID int64) []*domain.CoinTransaction {
	t.Helper()
	txs, _, err := f.store.CoinTransactions().FindByUserID(context.Background(), userID, 10000, 0)
	require.NoError(t, err)
	return txs
}

func (f *fixture) ledgerSum(t *testing.T, userID int64) int64 {
	t.Helper()
	var sum int64
	for _, tx := range f.ledger(t, userID) {
		sum += tx.Amount
	}
	return sum
}

type settingsStub struct {
	setting *domain.CoinSetting
	err     error
}

func (s settingsStub) FindByKey(context.Context, string) (*domain.CoinSetting, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.setting, nil
}

func (s settingsStub) Save(context.Context, *domain.CoinSetting) error { return nil }
