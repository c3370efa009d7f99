package domain

import "errors"

var (
	ErrInvalidUserID       = errors.New("invalid user id")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidCashbackCode = errors.New("media cashback code must be 15 characters")
	ErrInvalidEntity       = errors.New("invalid entity")
	ErrSettingConversion   = errors.New("setting value conversion failed")
	ErrInvalidPagination   = errors.New("invalid pagination")
	ErrCampaignNotFound    = errors.New("campaign not registered")
	ErrAlreadyProcessed    = errors.New("webhook already processed")
	ErrUserCoinNotFound    = errors.New("user coin not found")
	ErrRewardNotFound      = errors.New("reward not found")
	ErrSettingNotFound     = errors.New("setting not found")
	ErrTransactionNotFound = errors.New("coin transaction not found")
)
