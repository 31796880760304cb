package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/eventhub/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NonceRepo struct {
	pool *pgxpool.Pool
}

func NewNonceRepo(pool *pgxpool.Pool) *NonceRepo {
	return &NonceRepo{pool: pool}
}

func (r *NonceRepo) Create(ctx context.Context, wallet string, ttl time.Duration) (*models.AuthNonce, error) {
	// Spent and stale challenges are never read again.
	if _, err := r.pool.Exec(ctx, `DELETE FROM auth_nonces WHERE used = true OR expires_at < now()`); err != nil {
		return nil, err
	}

	n := &models.AuthNonce{
		Nonce:         generateNonce(16),
		WalletAddress: strings.ToLower(wallet),
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO auth_nonces (nonce, wallet_address, expires_at)
		VALUES ($1, $2, now() + make_interval(secs => $3))
		RETURNING created_at, expires_at
	`, n.Nonce, n.WalletAddress, ttl.Seconds()).Scan(&n.CreatedAt, &n.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (r *NonceRepo) Consume(ctx context.Context, nonce, wallet string) (*models.AuthNonce, error) {
	var n models.AuthNonce
	err := r.pool.QueryRow(ctx, `
		UPDATE auth_nonces
		SET used = true
		WHERE nonce = $1 AND wallet_address = $2 AND used = false AND expires_at > now()
		RETURNING nonce, wallet_address, created_at, expires_at, used
	`, nonce, strings.ToLower(wallet)).Scan(&n.Nonce, &n.WalletAddress, &n.CreatedAt, &n.ExpiresAt, &n.Used)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNonceInvalid
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}
