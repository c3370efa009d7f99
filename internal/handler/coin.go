package handler

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/set-night/coinledger/internal/config"
	"github.com/set-night/coinledger/internal/domain"
)

type historyItem struct {
	ID              string                 `json:"id"`
	Amount          int64                  `json:"amount"`
	BalanceAfter    int64                  `json:"balanceAfter"`
	TransactionType domain.TransactionType `json:"transactionType"`
	Description     string                 `json:"description"`
	CreatedAt       time.Time              `json:"createdAt"`
}

type historyResponse struct {
	Transactions []historyItem `json:"transactions"`
	Total        int           `json:"total"`
	Limit        int           `json:"limit"`
	Offset       int           `json:"offset"`
}

func parseUserID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("userId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter.
func queryInt(c *fiber.Ctx, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (h *Handler) Balance(c *fiber.Ctx) error {
	userID, ok := parseUserID(c)
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid user id")
	}

	balance, err := h.coins.GetBalance(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err, "coin balance")
	}
	return c.JSON(balance)
}

func (h *Handler) History(c *fiber.Ctx) error {
	userID, ok := parseUserID(c)
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid user id")
	}
	limit, ok := queryInt(c, "limit", config.DefaultHistoryLimit)
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "limit must be an integer")
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "offset must be an integer")
	}

	page, err := h.coins.GetHistory(c.UserContext(), userID, limit, offset)
	if err != nil {
		return h.fail(c, err, "coin history")
	}

	resp := historyResponse{
		Transactions: make([]historyItem, 0, len(page.Transactions)),
		Total:        page.Total,
		Limit:        page.Limit,
		Offset:       page.Offset,
	}
	for _, tx := range page.Transactions {
		resp.Transactions = append(resp.Transactions, historyItem{
			ID:              strconv.FormatInt(tx.ID, 10),
			Amount:          tx.Amount,
			BalanceAfter:    tx.BalanceAfter,
			TransactionType: tx.Type,
			Description:     tx.Description,
			CreatedAt:       tx.CreatedAt,
		})
	}
	return c.JSON(resp)
}
