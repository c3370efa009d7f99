package domain

import (
	"fmt"
	"strings"
	"time"
)

// Campaign is curated metadata for a receipt campaign of the media network.
// It is maintained by the curation workflow; the ledger only reads it.
type Campaign struct {
	ID                   int64
	ReceiptCampaignID    string
	ReceiptCampaignName  string
	ReceiptCampaignImage *string
	CompanyName          *string
	CompanyID            *string
	IncentivePoints      int64
	ServiceType          string
	IsAllReceiptCampaign bool
	MissionType          *string
	MissionOpenAt        *time.Time
	MissionCloseAt       *time.Time
	PriceText            *string

	Title         string
	Description   *string
	ImageURL      *string
	DisplayOrder  int
	IsPublished   bool
	PublishedAt   *time.Time
	UnpublishedAt *time.Time
	EditorComment *string
	Tags          []string

	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy *int64
	UpdatedBy *int64
}

func (c *Campaign) Validate() error {
	if strings.TrimSpace(c.ReceiptCampaignID) == "" {
		return fmt.Errorf("%w: receipt campaign id is required", ErrInvalidEntity)
	}
	if c.IncentivePoints <= 0 {
		return fmt.Errorf("%w: incentive points %d", ErrInvalidAmount, c.IncentivePoints)
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidEntity)
	}
	return nil
}

// IsActive reports whether the campaign is published and inside its window.
func (c *Campaign) IsActive(now time.Time) bool {
	if !c.IsPublished {
		return false
	}
	if c.PublishedAt != nil && now.Before(*c.PublishedAt) {
		return false
	}
	if c.UnpublishedAt != nil && !now.Before(*c.UnpublishedAt) {
		return false
	}
	return true
}
