package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/set-night/coinledger/internal/config"
	"github.com/set-night/coinledger/internal/domain"
	"github.com/set-night/coinledger/internal/middleware"
	"github.com/set-night/coinledger/internal/repository/memory"
	"github.com/set-night/coinledger/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBatchToken = "s3cret"

type testEnv struct {
	app   *fiber.App
	store *memory.Store
}

func newTestEnv(t *testing.T, tx domain.TxManager) *testEnv {
	t.Helper()

	store := memory.New()
	_, err := store.SeedCampaign(domain.Campaign{
		ReceiptCampaignID:   "rc-1",
		ReceiptCampaignName: "Receipt campaign",
		IncentivePoints:     100,
		ServiceType:         "RECEIPT",
		Title:               "Spring sale",
		IsPublished:         true,
		Tags:                []string{"food"},
		CreatedAt:           time.Now(),
		UpdatedAt:           time.Now(),
	})
	require.NoError(t, err)

	if tx == nil {
		tx = store.TxManager()
	}
	policy := service.NewExpirationPolicy(store.Settings())
	h := New(Deps{
		Cfg:             &config.Config{BatchToken: testBatchToken},
		WebhookService:  service.NewWebhookService(store.Campaigns(), store.Rewards(), tx),
		ExpireService:   service.NewExpireService(store.UserCoins(), policy, tx),
		CoinService:     service.NewCoinService(store.UserCoins(), store.CoinTransactions(), policy),
		CampaignService: service.NewCampaignService(store.Campaigns()),
	})
	return &testEnv{app: NewApp(h), store: store}
}

func (e *testEnv) do(t *testing.T, method, target, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func webhookBody(userCode, cashbackID, campaignID string) string {
	payload := map[string]any{
		"media_id":            "media-1",
		"media_user_code":     userCode,
		"media_cashback_id":   cashbackID,
		"media_cashback_code": "ABCDEFGHIJKLMNO",
		"receipt_campaign_id": campaignID,
		"company_name":        "ACME",
		"incentive_points":    100,
		"participation_at":    "2026-02-20T09:00:00Z",
		"processed_at":        "2026-02-20T09:30:00+09:00",
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func TestWebhook(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(t, http.MethodPost, "/api/webhook", webhookBody("12345", "cb-1", "rc-1"), nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", body["status"])

	status, body = env.do(t, http.MethodPost, "/api/webhook", webhookBody("12345", "cb-1", "rc-1"), nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "already_processed", body["status"])

	reward, err := env.store.Rewards().FindByMediaCashbackID(context.Background(), "cb-1")
	require.NoError(t, err)
	require.NotNil(t, reward.RawPayload)
	assert.Contains(t, *reward.RawPayload, `"media_cashback_id":"cb-1"`)
	require.NotNil(t, reward.CompanyName)
	assert.Equal(t, "ACME", *reward.CompanyName)
}

func TestWebhook_BadRequests(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"unknown campaign", webhookBody("12345", "cb-1", "rc-unknown")},
		{"non numeric user", webhookBody("abc", "cb-2", "rc-1")},
		{"negative user", webhookBody("-1", "cb-3", "rc-1")},
		{"zero user", webhookBody("0", "cb-4", "rc-1")},
		{"missing fields", `{"media_id":"m"}`},
		{"short cashback code", strings.Replace(webhookBody("1", "cb-5", "rc-1"), "ABCDEFGHIJKLMNO", "ABC", 1)},
		{"malformed json", `{"media_id":`},
		{"bad timestamp", strings.Replace(webhookBody("1", "cb-6", "rc-1"), "2026-02-20T09:00:00Z", "yesterday", 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(t, http.MethodPost, "/api/webhook", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.NotEmpty(t, body["error"])
		})
	}

	rewards, err := env.store.Rewards().FindByUserID(context.Background(), 12345)
	require.NoError(t, err)
	assert.Empty(t, rewards)
}

type brokenTx struct{}

func (brokenTx) Execute(context.Context, func(context.Context, *domain.UnitOfWork) error) error {
	return errors.New("connection refused")
}

func TestWebhook_StoreFailureIs500(t *testing.T) {
	env := newTestEnv(t, brokenTx{})

	status, body := env.do(t, http.MethodPost, "/api/webhook", webhookBody("12345", "cb-1", "rc-1"), nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", body["error"])
}

func TestBalanceAndHistory(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(t, http.MethodGet, "/api/coin/balance/12345", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["balance"])
	assert.Nil(t, body["lastEarnedAt"])
	assert.Nil(t, body["expiresAt"])

	status, _ = env.do(t, http.MethodPost, "/api/webhook", webhookBody("12345", "cb-1", "rc-1"), nil)
	require.Equal(t, http.StatusOK, status)

	status, body = env.do(t, http.MethodGet, "/api/coin/balance/12345", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(100), body["balance"])
	assert.NotNil(t, body["lastEarnedAt"])
	assert.NotNil(t, body["expiresAt"])

	status, body = env.do(t, http.MethodGet, "/api/coin/history/12345", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(config.DefaultHistoryLimit), body["limit"])
	assert.Equal(t, float64(0), body["offset"])

	txs, ok := body["transactions"].([]any)
	require.True(t, ok)
	require.Len(t, txs, 1)
	entry := txs[0].(map[string]any)
	assert.Equal(t, "1", entry["id"])
	assert.Equal(t, float64(100), entry["amount"])
	assert.Equal(t, float64(100), entry["balanceAfter"])
	assert.Equal(t, "REWARD", entry["transactionType"])
	assert.Equal(t, "Participated in Spring sale", entry["description"])
}

func TestBalanceAndHistory_BadRequests(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, target := range []string{
		"/api/coin/balance/abc",
		"/api/coin/balance/0",
		"/api/coin/history/-4",
		"/api/coin/history/12345?limit=0",
		"/api/coin/history/12345?limit=101",
		"/api/coin/history/12345?limit=ten",
		"/api/coin/history/12345?offset=-1",
		"/api/coin/history/12345?offset=x",
	} {
		t.Run(target, func(t *testing.T) {
			status, body := env.do(t, http.MethodGet, target, "", nil)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestExpireCoins(t *testing.T) {
	env := newTestEnv(t, nil)
	auth := map[string]string{middleware.BatchTokenHeader: testBatchToken}

	status, body := env.do(t, http.MethodPost, "/api/batch/expire-coins", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "batch token missing", body["error"])

	status, _ = env.do(t, http.MethodPost, "/api/batch/expire-coins", "", map[string]string{middleware.BatchTokenHeader: "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = env.do(t, http.MethodPost, "/api/batch/expire-coins", "", auth)
	require.Equal(t, http.StatusOK, status)
	for _, key := range []string{"runId", "usersProcessed", "totalExpired", "usersFailed", "failedUserIds", "skippedUsers", "elapsedMs"} {
		assert.Contains(t, body, key)
	}
	assert.Equal(t, []any{}, body["failedUserIds"])
}

func TestCampaignsAndHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(t, http.MethodGet, "/api/campaigns", "", nil)
	require.Equal(t, http.StatusOK, status)
	campaigns, ok := body["campaigns"].([]any)
	require.True(t, ok)
	require.Len(t, campaigns, 1)
	first := campaigns[0].(map[string]any)
	assert.Equal(t, "rc-1", first["receiptCampaignId"])
	assert.Equal(t, []any{"food"}, first["tags"])

	status, body = env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, body["error"])
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "req-123", resp.Header.Get(middleware.RequestIDHeader))

	resp, err = env.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
}
