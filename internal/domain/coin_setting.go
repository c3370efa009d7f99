package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SettingCoinExpireDays holds the expiration window in days.
const SettingCoinExpireDays = "coin_expire_days"

type CoinSetting struct {
	Key         string
	Value       string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewCoinSetting(key, value string, description *string, now time.Time) (*CoinSetting, error) {
	s := &CoinSetting{
		Key:         key,
		Value:       value,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CoinSetting) Validate() error {
	if strings.TrimSpace(s.Key) == "" {
		return fmt.Errorf("%w: setting key is required", ErrInvalidEntity)
	}
	if strings.TrimSpace(s.Value) == "" {
		return fmt.Errorf("%w: value for %q is required", ErrInvalidEntity, s.Key)
	}
	return nil
}

func (s *CoinSetting) UpdateValue(value string, now time.Time) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: value for %q is required", ErrInvalidEntity, s.Key)
	}
	s.Value = value
	s.UpdatedAt = now
	return nil
}

func (s *CoinSetting) AsNumber() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s.Value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q=%q is not a number", ErrSettingConversion, s.Key, s.Value)
	}
	return d, nil
}

// AsInt accepts integral numbers only ("180" and "180.0" but not "180.5").
func (s *CoinSetting) AsInt() (int, error) {
	d, err := s.AsNumber()
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("%w: %q=%q is not an integer", ErrSettingConversion, s.Key, s.Value)
	}
	return int(d.IntPart()), nil
}

func (s *CoinSetting) AsBool() (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s.Value)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q=%q is not a boolean", ErrSettingConversion, s.Key, s.Value)
}
