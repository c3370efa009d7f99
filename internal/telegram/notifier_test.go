package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/coinledger/internal/config"
	"github.com/set-night/coinledger/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []*bot.SendMessageParams
	err  error
}

func (s *recordingSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, params)
	return &models.Message{}, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		LogTelegramChatID:   -100123,
		LogTopicError:       11,
		LogTopicExpireBatch: 22,
	}
}

func TestNotifier_LogExpireResult(t *testing.T) {
	sender := &recordingSender{}
	n := newNotifier(sender, testConfig())

	n.LogExpireResult(&service.ExpireResult{
		RunID:          "run-1",
		UsersProcessed: 3,
		TotalExpired:   1500,
		UsersFailed:    1,
		FailedUserIDs:  []int64{42},
		SkippedUsers:   2,
		ElapsedMs:      1250,
	})

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, int64(-100123), msg.ChatID)
	assert.Equal(t, 22, msg.MessageThreadID)
	assert.Equal(t, models.ParseModeMarkdownV1, msg.ParseMode)

	text := msg.Text
	assert.Contains(t, text, "⚠️ *Coin Expiration*")
	assert.Contains(t, text, "*Run:* `run-1`")
	assert.Contains(t, text, "*Expired coins:* 1500")
	assert.Contains(t, text, "*Failed users:* `42`")
	assert.Contains(t, text, "*Elapsed:* 1.25s")
}

func TestNotifier_LogError(t *testing.T) {
	sender := &recordingSender{}
	n := newNotifier(sender, testConfig())

	n.LogError(errors.New("pq: `boom`"), "webhook cb-1")

	require.Len(t, sender.sent, 1)
	assert.Equal(t, 11, sender.sent[0].MessageThreadID)
	text := sender.sent[0].Text
	assert.Contains(t, text, "*Context:* webhook cb-1")
	assert.Contains(t, text, "`pq: 'boom'`")
}

func TestNotifier_Disabled(t *testing.T) {
	var nilNotifier *Notifier
	assert.NotPanics(t, func() {
		nilNotifier.LogError(errors.New("boom"), "test")
		nilNotifier.LogExpireResult(&service.ExpireResult{})
	})

	sender := &recordingSender{}
	cfg := testConfig()
	cfg.LogTelegramChatID = 0
	newNotifier(sender, cfg).LogError(errors.New("boom"), "test")
	assert.Empty(t, sender.sent)
}

func TestNotifier_SendFailureIsSwallowed(t *testing.T) {
	sender := &recordingSender{err: errors.New("network down")}
	n := newNotifier(sender, testConfig())

	assert.NotPanics(t, func() {
		n.LogError(errors.New("boom"), "test")
	})
	assert.Len(t, sender.sent, 1)
}

func TestFormatError(t *testing.T) {
	at := time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC)
	got := formatError(errors.New("boom"), "expire batch", at)
	assert.Equal(t, "❌ *Error*\n\n*Context:* expire batch\n*Error:* `boom`\n*Time:* 2026-02-20 10:00:00", got)
}

func TestTruncate(t *testing.T) {
	short := strings.Repeat("a", MaxMessageLen)
	assert.Equal(t, short, truncate(short))

	long := strings.Repeat("ж", MaxMessageLen+10)
	got := truncate(long)
	assert.Len(t, []rune(got), MaxMessageLen)
	assert.True(t, strings.HasSuffix(got, truncatedSuffix))
}
