package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/set-night/coinledger/internal/domain"
	"github.com/set-night/coinledger/internal/service"
)

// webhookRequest is the cashback notification body sent by the media network.
type webhookRequest struct {
	MediaID              string    `json:"media_id" validate:"required,max=36"`
	MediaUserCode        string    `json:"media_user_code" validate:"required,number,max=255"`
	MediaCashbackID      string    `json:"media_cashback_id" validate:"required,max=36"`
	MediaCashbackCode    string    `json:"media_cashback_code" validate:"required,len=15"`
	ReceiptCampaignID    string    `json:"receipt_campaign_id" validate:"required,max=36"`
	ReceiptCampaignName  *string   `json:"receipt_campaign_name" validate:"omitempty,max=255"`
	ReceiptCampaignImage *string   `json:"receipt_campaign_image" validate:"omitempty,max=500"`
	CompanyID            *string   `json:"company_id" validate:"omitempty,max=36"`
	CompanyName          *string   `json:"company_name" validate:"omitempty,max=255"`
	ServiceType          *string   `json:"service_type" validate:"omitempty,max=20"`
	IncentivePoints      int64     `json:"incentive_points" validate:"required,gt=0"`
	ParticipationAt      time.Time `json:"participation_at" validate:"required"`
	ProcessedAt          time.Time `json:"processed_at" validate:"required"`
}

func (r *webhookRequest) toInput(raw string) service.WebhookInput {
	return service.WebhookInput{
		MediaID:              r.MediaID,
		MediaUserCode:        r.MediaUserCode,
		MediaCashbackID:      r.MediaCashbackID,
		MediaCashbackCode:    r.MediaCashbackCode,
		ReceiptCampaignID:    r.ReceiptCampaignID,
		ReceiptCampaignName:  r.ReceiptCampaignName,
		ReceiptCampaignImage: r.ReceiptCampaignImage,
		CompanyID:            r.CompanyID,
		CompanyName:          r.CompanyName,
		ServiceType:          r.ServiceType,
		IncentivePoints:      r.IncentivePoints,
		ParticipationAt:      r.ParticipationAt,
		ProcessedAt:          r.ProcessedAt,
		RawPayload:           &raw,
	}
}

// Webhook ingests one cashback notification. Duplicates answer 200 so the
// media network stops redelivering; only unexpected failures answer 500.
func (h *Handler) Webhook(c *fiber.Ctx) error {
	var req webhookRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, validationMessage(err))
	}

	slog.Info("webhook received",
		"media_user_code", req.MediaUserCode,
		"media_cashback_id", req.MediaCashbackID,
	)

	_, err := h.webhooks.Process(c.UserContext(), req.toInput(string(c.Body())))
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"status": "success"})
	case errors.Is(err, domain.ErrAlreadyProcessed):
		return c.JSON(fiber.Map{"status": "already_processed"})
	default:
		return h.fail(c, err, "webhook "+req.MediaCashbackID)
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
