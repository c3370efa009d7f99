package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/set-night/coinledger/internal/domain"
)

type RewardRepository struct {
	db DBTX
}

func NewRewardRepository(db DBTX) *RewardRepository {
	return &RewardRepository{db: db}
}

const rewardColumns = `id, user_id, campaign_id, media_id, media_user_code, media_cashback_id, media_cashback_code,
	receipt_campaign_id, receipt_campaign_name, receipt_campaign_image, company_id, company_name, service_type,
	incentive_points, participation_at, processed_at, raw_payload, created_at`

func scanReward(row pgx.Row) (*domain.Reward, error) {
	var r domain.Reward
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.CampaignID,
		&r.MediaID,
		&r.MediaUserCode,
		&r.MediaCashbackID,
		&r.MediaCashbackCode,
		&r.ReceiptCampaignID,
		&r.ReceiptCampaignName,
		&r.ReceiptCampaignImage,
		&r.CompanyID,
		&r.CompanyName,
		&r.ServiceType,
		&r.IncentivePoints,
		&r.ParticipationAt,
		&r.ProcessedAt,
		&r.RawPayload,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *RewardRepository) FindByMediaCashbackID(ctx context.Context, mediaCashbackID string) (*domain.Reward, error) {
	reward, err := scanReward(r.db.QueryRow(ctx,
		`SELECT `+rewardColumns+` FROM rewards WHERE media_cashback_id = $1`, mediaCashbackID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRewardNotFound
		}
		return nil, fmt.Errorf("get reward by cashback id: %w", err)
	}
	return reward, nil
}

func (r *RewardRepository) Create(ctx context.Context, reward *domain.Reward) error {
	if err := reward.Validate(); err != nil {
		return err
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO rewards (user_id, campaign_id, media_id, media_user_code, media_cashback_id, media_cashback_code,
			receipt_campaign_id, receipt_campaign_name, receipt_campaign_image, company_id, company_name, service_type,
			incentive_points, participation_at, processed_at, raw_payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 RETURNING id`,
		reward.UserID, reward.CampaignID, reward.MediaID, reward.MediaUserCode, reward.MediaCashbackID, reward.MediaCashbackCode,
		reward.ReceiptCampaignID, reward.ReceiptCampaignName, reward.ReceiptCampaignImage, reward.CompanyID, reward.CompanyName, reward.ServiceType,
		reward.IncentivePoints, reward.ParticipationAt, reward.ProcessedAt, reward.RawPayload, reward.CreatedAt,
	).Scan(&reward.ID)
	if err != nil {
		if isUniqueViolation(err, rewardCashbackIDConstraint) {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyProcessed, reward.MediaCashbackID)
		}
		return fmt.Errorf("insert reward: %w", err)
	}
	return nil
}

func (r *RewardRepository) FindByUserID(ctx context.Context, userID int64) ([]*domain.Reward, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+rewardColumns+` FROM rewards WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query rewards: %w", err)
	}
	defer rows.Close()

	var rewards []*domain.Reward
	for rows.Next() {
		reward, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, reward)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rewards: %w", err)
	}
	return rewards, nil
}
