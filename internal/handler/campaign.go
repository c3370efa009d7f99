package handler

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/set-night/coinledger/internal/domain"
)

type campaignResponse struct {
	ID                string     `json:"id"`
	ReceiptCampaignID string     `json:"receiptCampaignId"`
	Title             string     `json:"title"`
	Description       *string    `json:"description"`
	ImageURL          *string    `json:"imageUrl"`
	CompanyName       *string    `json:"companyName"`
	IncentivePoints   int64      `json:"incentivePoints"`
	ServiceType       string     `json:"serviceType"`
	PriceText         *string    `json:"priceText"`
	MissionType       *string    `json:"missionType"`
	MissionOpenAt     *time.Time `json:"missionOpenAt"`
	MissionCloseAt    *time.Time `json:"missionCloseAt"`
	DisplayOrder      int        `json:"displayOrder"`
	Tags              []string   `json:"tags"`
	UnpublishedAt     *time.Time `json:"unpublishedAt"`
}

func toCampaignResponse(c *domain.Campaign) campaignResponse {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return campaignResponse{
		ID:                strconv.FormatInt(c.ID, 10),
		ReceiptCampaignID: c.ReceiptCampaignID,
		Title:             c.Title,
		Description:       c.Description,
		ImageURL:          c.ImageURL,
		CompanyName:       c.CompanyName,
		IncentivePoints:   c.IncentivePoints,
		ServiceType:       c.ServiceType,
		PriceText:         c.PriceText,
		MissionType:       c.MissionType,
		MissionOpenAt:     c.MissionOpenAt,
		MissionCloseAt:    c.MissionCloseAt,
		DisplayOrder:      c.DisplayOrder,
		Tags:              tags,
		UnpublishedAt:     c.UnpublishedAt,
	}
}

func (h *Handler) Campaigns(c *fiber.Ctx) error {
	campaigns, err := h.campaigns.ListActive(c.UserContext())
	if err != nil {
		return h.fail(c, err, "campaigns")
	}

	resp := make([]campaignResponse, 0, len(campaigns))
	for _, campaign := range campaigns {
		resp = append(resp, toCampaignResponse(campaign))
	}
	return c.JSON(fiber.Map{"campaigns": resp})
}
