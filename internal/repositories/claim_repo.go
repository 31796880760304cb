package repositories

import (
	"context"
	"errors"

	"github.com/eventhub/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ClaimRepo struct {
	pool *pgxpool.Pool
}

func NewClaimRepo(pool *pgxpool.Pool) *ClaimRepo {
	return &ClaimRepo{pool: pool}
}

func (r *ClaimRepo) Upsert(ctx context.Context, c *models.ReceiverClaim) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO receiver_claims (external_id, receiver_address, claimed_by)
		VALUES ($1, $2, NULLIF($3, ''))
		ON CONFLICT (external_id) DO UPDATE SET
			receiver_address = EXCLUDED.receiver_address,
			claimed_by = EXCLUDED.claimed_by,
			updated_at = now()
		RETURNING updated_at
	`, c.ExternalID, c.ReceiverAddress, c.ClaimedBy).Scan(&c.UpdatedAt)
}

func (r *ClaimRepo) Get(ctx context.Context, externalID string) (*models.ReceiverClaim, error) {
	var c models.ReceiverClaim
	err := r.pool.QueryRow(ctx, `
		SELECT external_id, receiver_address, COALESCE(claimed_by, ''), updated_at
		FROM receiver_claims WHERE external_id = $1
	`, externalID).Scan(&c.ExternalID, &c.ReceiverAddress, &c.ClaimedBy, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ClaimRepo) List(ctx context.Context) ([]models.ReceiverClaim, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT external_id, receiver_address, COALESCE(claimed_by, ''), updated_at
		FROM receiver_claims ORDER BY external_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	claims := []models.ReceiverClaim{}
	for rows.Next() {
		var c models.ReceiverClaim
		if err := rows.Scan(&c.ExternalID, &c.ReceiverAddress, &c.ClaimedBy, &c.UpdatedAt); err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}
