package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/set-night/coinledger/internal/config"
	"github.com/set-night/coinledger/internal/domain"
)

// WebhookInput is a cashback notification from the media network that has
// already passed schema validation.
type WebhookInput struct {
	MediaID              string
	MediaUserCode        string
	MediaCashbackID      string
	MediaCashbackCode    string
	ReceiptCampaignID    string
	ReceiptCampaignName  *string
	ReceiptCampaignImage *string
	CompanyID            *string
	CompanyName          *string
	ServiceType          *string
	IncentivePoints      int64
	ParticipationAt      time.Time
	ProcessedAt          time.Time
	RawPayload           *string
}

type WebhookService struct {
	campaigns domain.CampaignRepository
	rewards   domain.RewardRepository
	tx        domain.TxManager
	now       func() time.Time
}

func NewWebhookService(campaigns domain.CampaignRepository, rewards domain.RewardRepository, tx domain.TxManager) *WebhookService {
	return &WebhookService{campaigns: campaigns, rewards: rewards, tx: tx, now: time.Now}
}

// Process honours one notification at most once. It returns ErrCampaignNotFound
// for unknown campaigns and ErrAlreadyProcessed for a cashback id that was
// already rewarded, including a duplicate that races past the pre-check.
func (s *WebhookService) Process(ctx context.Context, in WebhookInput) (*domain.Reward, error) {
	userID, err := parseUserCode(in.MediaUserCode)
	if err != nil {
		return nil, err
	}

	campaign, err := s.campaigns.FindByReceiptCampaignID(ctx, in.ReceiptCampaignID)
	if err != nil {
		if errors.Is(err, domain.ErrCampaignNotFound) {
			slog.Error("campaign not registered", "receipt_campaign_id", in.ReceiptCampaignID)
			return nil, fmt.Errorf("%w: %s", domain.ErrCampaignNotFound, in.ReceiptCampaignID)
		}
		return nil, fmt.Errorf("find campaign: %w", err)
	}

	now := s.now()
	if !campaign.IsActive(now) {
		slog.Warn("reward for inactive campaign",
			"receipt_campaign_id", in.ReceiptCampaignID,
			"campaign_id", campaign.ID,
		)
	}

	// Fast path only; the unique constraint on the cashback id is the real guard.
	if _, err := s.rewards.FindByMediaCashbackID(ctx, in.MediaCashbackID); err == nil {
		slog.Warn("duplicate webhook", "media_cashback_id", in.MediaCashbackID)
		return nil, fmt.Errorf("%w: %s", domain.ErrAlreadyProcessed, in.MediaCashbackID)
	} else if !errors.Is(err, domain.ErrRewardNotFound) {
		return nil, fmt.Errorf("check reward: %w", err)
	}

	reward, err := domain.NewReward(domain.Reward{
		UserID:               userID,
		CampaignID:           campaign.ID,
		MediaID:              in.MediaID,
		MediaUserCode:        in.MediaUserCode,
		MediaCashbackID:      in.MediaCashbackID,
		MediaCashbackCode:    in.MediaCashbackCode,
		ReceiptCampaignID:    in.ReceiptCampaignID,
		ReceiptCampaignName:  in.ReceiptCampaignName,
		ReceiptCampaignImage: in.ReceiptCampaignImage,
		CompanyID:            in.CompanyID,
		CompanyName:          in.CompanyName,
		ServiceType:          in.ServiceType,
		IncentivePoints:      in.IncentivePoints,
		ParticipationAt:      in.ParticipationAt,
		ProcessedAt:          in.ProcessedAt,
		RawPayload:           in.RawPayload,
	}, now)
	if err != nil {
		return nil, err
	}

	var balance int64
	err = s.tx.Execute(ctx, func(ctx context.Context, uow *domain.UnitOfWork) error {
		if err := uow.Rewards.Create(ctx, reward); err != nil {
			return err
		}

		coin, err := uow.UserCoins.FindByUserID(ctx, userID)
		if errors.Is(err, domain.ErrUserCoinNotFound) {
			coin, err = domain.NewUserCoin(userID, now)
		}
		if err != nil {
			return fmt.Errorf("load user coin: %w", err)
		}

		if err := coin.Credit(reward.IncentivePoints, now); err != nil {
			return err
		}
		if err := uow.UserCoins.Save(ctx, coin); err != nil {
			return err
		}

		entry, err := domain.NewRewardTransaction(
			userID,
			reward.IncentivePoints,
			coin.Balance(),
			reward.ID,
			reward.MediaCashbackID,
			fmt.Sprintf(config.RewardDescriptionFormat, campaign.Title),
			now,
		)
		if err != nil {
			return err
		}
		if err := uow.CoinTransactions.Create(ctx, entry); err != nil {
			return err
		}

		balance = coin.Balance()
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyProcessed) {
			slog.Warn("duplicate webhook rejected by store", "media_cashback_id", in.MediaCashbackID)
			return nil, err
		}
		return nil, fmt.Errorf("process webhook %s: %w", in.MediaCashbackID, err)
	}

	slog.Info("reward granted",
		"user_id", userID,
		"media_cashback_id", in.MediaCashbackID,
		"points", reward.IncentivePoints,
		"balance", balance,
	)
	return reward, nil
}

func parseUserCode(code string) (int64, error) {
	id, err := strconv.ParseInt(code, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: media user code %q", domain.ErrInvalidUserID, code)
	}
	return id, nil
}
