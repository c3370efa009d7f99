package service

import (
	"context"
	"fmt"
	"time"

	"github.com/set-night/coinledger/internal/domain"
)

type CampaignService struct {
	campaigns domain.CampaignRepository
	now       func() time.Time
}

func NewCampaignService(campaigns domain.CampaignRepository) *CampaignService {
	return &CampaignService{campaigns: campaigns, now: time.Now}
}

// ListActive returns published campaigns inside their window, ordered for display.
func (s *CampaignService) ListActive(ctx context.Context) ([]*domain.Campaign, error) {
	campaigns, err := s.campaigns.FindPublished(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	if campaigns == nil {
		campaigns = []*domain.Campaign{}
	}
	return campaigns, nil
}
