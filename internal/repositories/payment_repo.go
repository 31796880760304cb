package repositories

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/eventhub/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

func (r *PaymentRepo) Record(ctx context.Context, rec *models.PaymentRecord) error {
	token, err := json.Marshal(rec.Token)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO payment_records (event_id, tx_hash, amount, token, paid_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO UPDATE SET
			tx_hash = EXCLUDED.tx_hash,
			amount = EXCLUDED.amount,
			token = EXCLUDED.token,
			paid_at = EXCLUDED.paid_at,
			recorded_at = now()
		RETURNING recorded_at
	`, rec.EventID, rec.TxHash, rec.Amount, token, rec.Timestamp).Scan(&rec.RecordedAt)
}

func (r *PaymentRepo) RecordIfAbsent(ctx context.Context, rec *models.PaymentRecord) (bool, error) {
	token, err := json.Marshal(rec.Token)
	if err != nil {
		return false, err
	}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO payment_records (event_id, tx_hash, amount, token, paid_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO NOTHING
		RETURNING recorded_at
	`, rec.EventID, rec.TxHash, rec.Amount, token, rec.Timestamp).Scan(&rec.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *PaymentRepo) Get(ctx context.Context, eventID int64) (*models.PaymentRecord, error) {
	rec, err := scanPayment(r.pool.QueryRow(ctx, `
		SELECT event_id, tx_hash, amount, token, paid_at, recorded_at
		FROM payment_records WHERE event_id = $1
	`, eventID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

func (r *PaymentRepo) Exists(ctx context.Context, eventID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM payment_records WHERE event_id = $1)`, eventID).Scan(&exists)
	return exists, err
}

func (r *PaymentRepo) ListByEventIDs(ctx context.Context, ids []int64) (map[int64]models.PaymentRecord, error) {
	out := make(map[int64]models.PaymentRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT event_id, tx_hash, amount, token, paid_at, recorded_at
		FROM payment_records WHERE event_id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out[rec.EventID] = *rec
	}
	return out, rows.Err()
}

func scanPayment(row pgx.Row) (*models.PaymentRecord, error) {
	var rec models.PaymentRecord
	var token []byte
	if err := row.Scan(&rec.EventID, &rec.TxHash, &rec.Amount, &token, &rec.Timestamp, &rec.RecordedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(token, &rec.Token); err != nil {
		return nil, err
	}
	return &rec, nil
}
