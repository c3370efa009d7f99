package domain

import (
	"fmt"
	"strings"
	"time"
)

// MediaCashbackCodeLen is the fixed length of the incentive code issued by the media network.
const MediaCashbackCodeLen = 15

// Reward is the proof that one webhook notification was honored.
// MediaCashbackID is the idempotency key and is unique across all rewards.
type Reward struct {
	ID                   int64
	UserID               int64
	CampaignID           int64
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
	CreatedAt            time.Time
}

func (r *Reward) Validate() error {
	if r.UserID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidUserID, r.UserID)
	}
	if r.IncentivePoints <= 0 {
		return fmt.Errorf("%w: incentive points %d", ErrInvalidAmount, r.IncentivePoints)
	}
	if strings.TrimSpace(r.MediaCashbackID) == "" {
		return fmt.Errorf("%w: media cashback id is required", ErrInvalidEntity)
	}
	if len([]rune(r.MediaCashbackCode)) != MediaCashbackCodeLen {
		return fmt.Errorf("%w: got %q", ErrInvalidCashbackCode, r.MediaCashbackCode)
	}
	if r.CampaignID <= 0 {
		return fmt.Errorf("%w: campaign id is required", ErrInvalidEntity)
	}
	return nil
}

// NewReward validates r and stamps its creation time. ID is assigned by the store.
func NewReward(r Reward, now time.Time) (*Reward, error) {
	r.ID = 0
	r.CreatedAt = now
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}
