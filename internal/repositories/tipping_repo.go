package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/eventhub/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TippingConfigRepo struct {
	pool *pgxpool.Pool
}

func NewTippingConfigRepo(pool *pgxpool.Pool) *TippingConfigRepo {
	return &TippingConfigRepo{pool: pool}
}

// Save replaces the whole document in one statement.
func (r *TippingConfigRepo) Save(ctx context.Context, wallet string, cfg *models.TippingConfig) error {
	stored := cfg.Clone()
	stored.UpdatedAt = nil
	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO tipping_configs (wallet, config, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (wallet) DO UPDATE SET
			config = EXCLUDED.config,
			updated_at = now()
	`, strings.ToLower(wallet), data)
	return err
}

func (r *TippingConfigRepo) Get(ctx context.Context, wallet string) (*models.TippingConfig, error) {
	var data []byte
	var cfg models.TippingConfig
	err := r.pool.QueryRow(ctx, `
		SELECT config, updated_at FROM tipping_configs WHERE wallet = $1
	`, strings.ToLower(wallet)).Scan(&data, &cfg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	updatedAt := cfg.UpdatedAt
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.UpdatedAt = updatedAt
	return &cfg, nil
}

func (r *TippingConfigRepo) Delete(ctx context.Context, wallet string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tipping_configs WHERE wallet = $1`, strings.ToLower(wallet))
	return err
}
