package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/set-night/coinledger/internal/domain"
)

type CampaignRepository struct {
	db DBTX
}

func NewCampaignRepository(db DBTX) *CampaignRepository {
	return &CampaignRepository{db: db}
}

const campaignColumns = `id, receipt_campaign_id, receipt_campaign_name, receipt_campaign_image, company_name, company_id,
	incentive_points, service_type, is_all_receipt_campaign, mission_type, mission_open_at, mission_close_at, price_text,
	title, description, image_url, display_order, is_published, published_at, unpublished_at, editor_comment, tags,
	created_at, updated_at, created_by, updated_by`

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var c domain.Campaign
	err := row.Scan(
		&c.ID,
		&c.ReceiptCampaignID,
		&c.ReceiptCampaignName,
		&c.ReceiptCampaignImage,
		&c.CompanyName,
		&c.CompanyID,
		&c.IncentivePoints,
		&c.ServiceType,
		&c.IsAllReceiptCampaign,
		&c.MissionType,
		&c.MissionOpenAt,
		&c.MissionCloseAt,
		&c.PriceText,
		&c.Title,
		&c.Description,
		&c.ImageURL,
		&c.DisplayOrder,
		&c.IsPublished,
		&c.PublishedAt,
		&c.UnpublishedAt,
		&c.EditorComment,
		&c.Tags,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.CreatedBy,
		&c.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) findOne(ctx context.Context, where string, arg any) (*domain.Campaign, error) {
	c, err := scanCampaign(r.db.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCampaignNotFound
		}
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (r *CampaignRepository) FindByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	return r.findOne(ctx, `id = $1`, id)
}

func (r *CampaignRepository) FindByReceiptCampaignID(ctx context.Context, receiptCampaignID string) (*domain.Campaign, error) {
	return r.findOne(ctx, `receipt_campaign_id = $1`, receiptCampaignID)
}

func (r *CampaignRepository) FindPublished(ctx context.Context, now time.Time) ([]*domain.Campaign, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+campaignColumns+` FROM campaigns
		 WHERE is_published
		   AND (published_at IS NULL OR published_at <= $1)
		   AND (unpublished_at IS NULL OR unpublished_at > $1)
		 ORDER BY display_order ASC, created_at DESC`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("query published campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaigns: %w", err)
	}
	return campaigns, nil
}
