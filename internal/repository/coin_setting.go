package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/set-night/coinledger/internal/domain"
)

type CoinSettingRepository struct {
	db DBTX
}

func NewCoinSettingRepository(db DBTX) *CoinSettingRepository {
	return &CoinSettingRepository{db: db}
}

func (r *CoinSettingRepository) FindByKey(ctx context.Context, key string) (*domain.CoinSetting, error) {
	var s domain.CoinSetting
	err := r.db.QueryRow(ctx,
		`SELECT key, value, description, created_at, updated_at FROM coin_settings WHERE key = $1`, key,
	).Scan(&s.Key, &s.Value, &s.Description, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSettingNotFound
		}
		return nil, fmt.Errorf("get setting %q: %w", key, err)
	}
	return &s, nil
}

func (r *CoinSettingRepository) Save(ctx context.Context, setting *domain.CoinSetting) error {
	if err := setting.Validate(); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO coin_settings (key, value, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (key) DO UPDATE
		 SET value = EXCLUDED.value, description = EXCLUDED.description, updated_at = EXCLUDED.updated_at`,
		setting.Key, setting.Value, setting.Description, setting.CreatedAt, setting.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save setting %q: %w", setting.Key, err)
	}
	return nil
}
