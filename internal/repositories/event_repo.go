package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/eventhub/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `id, platform, action, actor, target, timestamp, wallet_address, status,
	signature, provider_receipt, metadata, tx_hash, tip_amount, tip_token,
	created_at, updated_at, verified_at, paid_at, COALESCE(fingerprint, '')`

const uniqueViolation = "23505"

type EventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

func (r *EventRepo) Add(ctx context.Context, e *models.Event) (*models.Event, error) {
	metadata, err := marshalNullable(e.Metadata, len(e.Metadata) == 0)
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO events (platform, action, actor, target, timestamp, wallet_address, status,
		                    signature, provider_receipt, metadata, verified_at, fingerprint)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''))
		RETURNING `+eventColumns,
		e.Platform, e.Action, e.Actor, e.Target, e.Timestamp, e.WalletAddress, e.Status,
		e.Signature, e.ProviderReceipt, metadata, e.VerifiedAt, e.Fingerprint,
	)
	stored, err := scanEvent(row)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return nil, ErrDuplicate
	}
	return stored, err
}

func (r *EventRepo) GetByFingerprint(ctx context.Context, fingerprint string) (*models.Event, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE fingerprint = $1`, fingerprint)
	e, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

func (r *EventRepo) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

func (r *EventRepo) Update(ctx context.Context, id int64, patch models.EventPatch) (*models.Event, error) {
	e, err := r.update(ctx, id, nil, patch)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// UpdateIfStatus applies patch only while the row still has the expected
// status; the WHERE clause makes the check and the write one statement.
func (r *EventRepo) UpdateIfStatus(ctx context.Context, id int64, expected string, patch models.EventPatch) (*models.Event, error) {
	e, err := r.update(ctx, id, &expected, patch)
	if !errors.Is(err, pgx.ErrNoRows) {
		return e, err
	}
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return current, ErrStatusMismatch
}

func (r *EventRepo) update(ctx context.Context, id int64, expected *string, p models.EventPatch) (*models.Event, error) {
	sets := []string{"updated_at = now()"}
	args := []any{}
	argIdx := 1

	add := func(expr string, v any) {
		sets = append(sets, fmt.Sprintf(expr, argIdx))
		args = append(args, v)
		argIdx++
	}

	if p.Status != nil {
		add("status = $%d", *p.Status)
	}
	if p.Signature != nil {
		add("signature = $%d", *p.Signature)
	}
	if len(p.Metadata) > 0 {
		data, err := json.Marshal(p.Metadata)
		if err != nil {
			return nil, err
		}
		add("metadata = COALESCE(metadata, '{}'::jsonb) || $%d::jsonb", data)
	}
	if p.TxHash != nil {
		add("tx_hash = $%d", *p.TxHash)
	}
	if p.TipAmount != nil {
		add("tip_amount = $%d", *p.TipAmount)
	}
	if p.TipToken != nil {
		data, err := json.Marshal(p.TipToken)
		if err != nil {
			return nil, err
		}
		add("tip_token = $%d::jsonb", data)
	}
	if p.VerifiedAt != nil {
		add("verified_at = $%d", *p.VerifiedAt)
	}
	if p.PaidAt != nil {
		add("paid_at = $%d", *p.PaidAt)
	}

	query := fmt.Sprintf("UPDATE events SET %s WHERE id = $%d", strings.Join(sets, ", "), argIdx)
	args = append(args, id)
	argIdx++
	if expected != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *expected)
	}
	query += " RETURNING " + eventColumns

	return scanEvent(r.pool.QueryRow(ctx, query, args...))
}

func (r *EventRepo) GetAll(ctx context.Context) ([]models.Event, error) {
	return r.List(ctx, EventFilter{})
}

func (r *EventRepo) GetByStatus(ctx context.Context, status string) ([]models.Event, error) {
	return r.List(ctx, EventFilter{Status: &status})
}

func (r *EventRepo) GetByWallet(ctx context.Context, wallet string) ([]models.Event, error) {
	return r.List(ctx, EventFilter{Wallet: &wallet})
}

// eventWhere renders the filter predicates and returns the next free
// placeholder index. Limit and Offset are left to the caller.
func eventWhere(f EventFilter) (string, []any, int) {
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *f.Status)
		argIdx++
	}
	if f.Wallet != nil {
		where = append(where, fmt.Sprintf("lower(wallet_address) = lower($%d)", argIdx))
		args = append(args, *f.Wallet)
		argIdx++
	}
	if f.Action != nil {
		where = append(where, fmt.Sprintf("action = $%d", argIdx))
		args = append(args, *f.Action)
		argIdx++
	}

	if len(where) == 0 {
		return "", args, argIdx
	}
	return " WHERE " + strings.Join(where, " AND "), args, argIdx
}

func (r *EventRepo) List(ctx context.Context, f EventFilter) ([]models.Event, error) {
	where, args, argIdx := eventWhere(f)
	query := `SELECT ` + eventColumns + ` FROM events` + where
	query += " ORDER BY id ASC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, f.Limit)
		argIdx++
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, f.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Count ignores Limit and Offset.
func (r *EventRepo) Count(ctx context.Context, f EventFilter) (int, error) {
	where, args, _ := eventWhere(f)
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM events`+where, args...).Scan(&n)
	return n, err
}

func (r *EventRepo) Stats(ctx context.Context) (models.EventStats, error) {
	stats := models.NewEventStats()
	rows, err := r.pool.Query(ctx, `
		SELECT platform, action, status, count(*)
		FROM events
		GROUP BY platform, action, status
	`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var platform, action, status string
		var n int
		if err := rows.Scan(&platform, &action, &status, &n); err != nil {
			return stats, err
		}
		stats.Total += n
		stats.ByPlatform[platform] += n
		stats.ByAction[action] += n
		stats.ByStatus[status] += n
	}
	return stats, rows.Err()
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	var metadata, tipToken []byte
	err := row.Scan(&e.ID, &e.Platform, &e.Action, &e.Actor, &e.Target, &e.Timestamp, &e.WalletAddress, &e.Status,
		&e.Signature, &e.ProviderReceipt, &metadata, &e.TxHash, &e.TipAmount, &tipToken,
		&e.CreatedAt, &e.UpdatedAt, &e.VerifiedAt, &e.PaidAt, &e.Fingerprint)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of event %d: %w", e.ID, err)
		}
	}
	if len(tipToken) > 0 {
		var t models.Token
		if err := json.Unmarshal(tipToken, &t); err != nil {
			return nil, fmt.Errorf("decode tip token of event %d: %w", e.ID, err)
		}
		e.TipToken = &t
	}
	return &e, nil
}

func marshalNullable(v any, isNull bool) ([]byte, error) {
	if isNull {
		return nil, nil
	}
	return json.Marshal(v)
}
