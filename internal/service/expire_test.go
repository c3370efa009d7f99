package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/set-night/coinledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpireService_ExpiresOldBalance(t *testing.T) {
	f := newFixture(t)
	f.seedBalance(t, 12345, 500, testNow.AddDate(0, 0, -200))

	result, err := f.expire.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 1, result.UsersProcessed)
	assert.Equal(t, int64(500), result.TotalExpired)
	assert.Zero(t, result.UsersFailed)
	assert.Empty(t, result.FailedUserIDs)

	assert.Zero(t, f.balance(t, 12345))
	assert.Zero(t, f.ledgerSum(t, 12345))

	ledger := f.ledger(t, 12345)
	require.Len(t, ledger, 2)
	entry := ledger[0]
	assert.Equal(t, domain.TxTypeExpire, entry.Type)
	assert.Equal(t, int64(-500), entry.Amount)
	assert.Zero(t, entry.BalanceAfter)
	assert.Nil(t, entry.RewardID)
	assert.Equal(t, "Coins expired", entry.Description)
}

func TestExpireService_LeavesRecentBalances(t *testing.T) {
	f := newFixture(t)
	f.seedBalance(t, 1, 300, testNow.AddDate(0, 0, -179))
	f.seedBalance(t, 2, 400, testNow.AddDate(0, 0, -181))

	result, err := f.expire.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.UsersProcessed)
	assert.Equal(t, int64(400), result.TotalExpired)

	assert.Equal(t, int64(300), f.balance(t, 1))
	assert.Zero(t, f.balance(t, 2))
}

func TestExpireService_SecondRunIsNoop(t *testing.T) {
	f := newFixture(t)
	f.seedBalance(t, 1, 500, testNow.AddDate(0, 0, -200))
	f.seedBalance(t, 2, 70, testNow.AddDate(0, 0, -365))

	first, err := f.expire.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.UsersProcessed)
	assert.Equal(t, int64(570), first.TotalExpired)

	second, err := f.expire.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.UsersProcessed)
	assert.Zero(t, second.TotalExpired)
	assert.NotEqual(t, first.RunID, second.RunID)

	assert.Len(t, f.ledger(t, 1), 2)
	assert.Len(t, f.ledger(t, 2), 2)
}

// failingTx hands out a user-coin repository that fails for one user.
type failingTx struct {
	domain.TxManager
	failUser int64
}

func (m failingTx) Execute(ctx context.Context, fn func(ctx context.Context, uow *domain.UnitOfWork) error) error {
	return m.TxManager.Execute(ctx, func(ctx context.Context, uow *domain.UnitOfWork) error {
		uow.UserCoins = failingUserCoins{UserCoinRepository: uow.UserCoins, failUser: m.failUser}
		return fn(ctx, uow)
	})
}

type failingUserCoins struct {
	domain.UserCoinRepository
	failUser int64
}

func (r failingUserCoins) Save(ctx context.Context, coin *domain.UserCoin) error {
	if coin.UserID() == r.failUser {
		return errors.New("connection reset")
	}
	return r.UserCoinRepository.Save(ctx, coin)
}

func TestExpireService_FailureIsolation(t *testing.T) {
	f := newFixture(t)
	f.seedBalance(t, 1, 500, testNow.AddDate(0, 0, -200))
	f.seedBalance(t, 2, 300, testNow.AddDate(0, 0, -200))

	svc := NewExpireService(f.store.UserCoins(), f.policy, failingTx{TxManager: f.store.TxManager(), failUser: 1})
	svc.now = fixedClock(testNow)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.UsersProcessed)
	assert.Equal(t, int64(300), result.TotalExpired)
	assert.Equal(t, 1, result.UsersFailed)
	assert.Equal(t, []int64{1}, result.FailedUserIDs)

	assert.Equal(t, int64(500), f.balance(t, 1))
	assert.Len(t, f.ledger(t, 1), 1)
	assert.Zero(t, f.balance(t, 2))
}

// staleScan returns a fixed candidate list regardless of the current state.
type staleScan struct {
	domain.UserCoinRepository
	candidates []*domain.UserCoin
}

func (r staleScan) FindExpired(context.Context, time.Time) ([]*domain.UserCoin, error) {
	return r.candidates, nil
}

func TestExpireService_SkipsBalancesChangedSinceScan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := testNow.AddDate(0, 0, -200)

	// emptied by an earlier run
	emptied, err := domain.RestoreUserCoin(3, 0, &old, old, old)
	require.NoError(t, err)
	zero, err := domain.NewUserCoin(3, old)
	require.NoError(t, err)
	require.NoError(t, f.store.UserCoins().Save(ctx, zero))

	// credited after the scan
	f.seedBalance(t, 5, 500, old)
	_, err = f.webhook.Process(ctx, webhookInput("5", "cb-fresh", 100))
	require.NoError(t, err)

	stale := func(userID int64) *domain.UserCoin {
		coin, err := domain.RestoreUserCoin(userID, 500, &old, old, old)
		require.NoError(t, err)
		return coin
	}
	scan := staleScan{
		UserCoinRepository: f.store.UserCoins(),
		candidates:         []*domain.UserCoin{emptied, stale(4), stale(5)},
	}

	svc := NewExpireService(scan, f.policy, f.store.TxManager())
	svc.now = fixedClock(testNow)

	result, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.UsersProcessed)
	assert.Zero(t, result.UsersFailed)
	assert.Equal(t, 3, result.SkippedUsers)

	assert.Equal(t, int64(600), f.balance(t, 5))
	assert.Empty(t, f.ledger(t, 3))
	assert.Empty(t, f.ledger(t, 4))
}

func TestExpireService_UsesConfiguredWindow(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		wantExpired int64
	}{
		{"shorter window", "30", 400},
		{"malformed falls back to 180", "abc", 0},
		{"non-positive falls back to 180", "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.setExpireDays(t, tt.value)
			f.seedBalance(t, 1, 400, testNow.AddDate(0, 0, -40))

			result, err := f.expire.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantExpired, result.TotalExpired)
		})
	}
}

func TestExpireService_SettingsFailureAbortsRun(t *testing.T) {
	f := newFixture(t)
	policy := NewExpirationPolicy(settingsStub{err: errors.New("connection refused")})
	svc := NewExpireService(f.store.UserCoins(), policy, f.store.TxManager())

	_, err := svc.Run(context.Background())
	assert.Error(t, err)
}

func TestExpireService_CanceledContextStopsSweep(t *testing.T) {
	f := newFixture(t)
	f.seedBalance(t, 1, 500, testNow.AddDate(0, 0, -200))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.expire.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.UsersProcessed)
	assert.Equal(t, int64(500), f.balance(t, 1))
}
