package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/coinledger/internal/config"
	"github.com/set-night/coinledger/internal/service"
)

// MaxMessageLen is the Telegram limit for one text message, in runes.
const MaxMessageLen = 4096

const truncatedSuffix = "\n\n... (truncated)"

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type LogType string

const (
	LogTypeError       LogType = "error"
	LogTypeExpireBatch LogType = "expireBatch"
)

// Notifier posts operational reports to topics of a Telegram log chat.
// A nil *Notifier is valid and drops every message.
type Notifier struct {
	sender messageSender
	chatID int64
	topics map[LogType]int
}

func NewNotifier(b *bot.Bot, cfg *config.Config) *Notifier {
	return newNotifier(b, cfg)
}

func newNotifier(sender messageSender, cfg *config.Config) *Notifier {
	return &Notifier{
		sender: sender,
		chatID: cfg.LogTelegramChatID,
		topics: map[LogType]int{
			LogTypeError:       cfg.LogTopicError,
			LogTypeExpireBatch: cfg.LogTopicExpireBatch,
		},
	}
}

func (n *Notifier) Log(logType LogType, message string) {
	if n == nil || n.chatID == 0 {
		return
	}

	params := &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      truncate(message),
		ParseMode: models.ParseModeMarkdownV1,
	}
	if topicID := n.topics[logType]; topicID != 0 {
		params.MessageThreadID = topicID
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.TelegramSendTimeout)
	defer cancel()

	if _, err := n.sender.SendMessage(ctx, params); err != nil {
		slog.Error("failed to send telegram log", "type", logType, "error", err)
	}
}

func (n *Notifier) LogError(err error, where string) {
	if n == nil {
		return
	}
	n.Log(LogTypeError, formatError(err, where, time.Now()))
}

func (n *Notifier) LogExpireResult(result *service.ExpireResult) {
	if n == nil || result == nil {
		return
	}
	n.Log(LogTypeExpireBatch, formatExpireResult(result))
}

func formatError(err error, where string, at time.Time) string {
	return fmt.Sprintf("❌ *Error*\n\n*Context:* %s\n*Error:* `%s`\n*Time:* %s",
		where, strings.ReplaceAll(err.Error(), "`", "'"), at.Format(time.DateTime))
}

func formatExpireResult(r *service.ExpireResult) string {
	icon := "🧹"
	if r.UsersFailed > 0 {
		icon = "⚠️"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s *Coin Expiration*\n\n", icon)
	fmt.Fprintf(&sb, "*Run:* `%s`\n", r.RunID)
	fmt.Fprintf(&sb, "*Expired users:* %d\n", r.UsersProcessed)
	fmt.Fprintf(&sb, "*Expired coins:* %d\n", r.TotalExpired)
	fmt.Fprintf(&sb, "*Skipped:* %d\n", r.SkippedUsers)
	fmt.Fprintf(&sb, "*Failed:* %d\n", r.UsersFailed)
	if len(r.FailedUserIDs) > 0 {
		ids := make([]string, len(r.FailedUserIDs))
		for i, id := range r.FailedUserIDs {
			ids[i] = fmt.Sprint(id)
		}
		fmt.Fprintf(&sb, "*Failed users:* `%s`\n", strings.Join(ids, ", "))
	}
	fmt.Fprintf(&sb, "*Elapsed:* %s", (time.Duration(r.ElapsedMs) * time.Millisecond).String())
	return sb.String()
}

func truncate(message string) string {
	runes := []rune(message)
	if len(runes) <= MaxMessageLen {
		return message
	}
	keep := MaxMessageLen - len([]rune(truncatedSuffix))
	return string(runes[:keep]) + truncatedSuffix
}
