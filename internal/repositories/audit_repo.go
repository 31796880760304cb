package repositories

import (
	"context"
	"encoding/json"

	"github.com/eventhub/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) Log(ctx context.Context, entry models.AuditLog) error {
	meta, err := marshalNullable(entry.Meta, len(entry.Meta) == 0)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO audit_log (event_id, actor_type, actor_id, action, meta)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.EventID, entry.ActorType, entry.ActorID, entry.Action, meta)
	return err
}

func (r *AuditRepo) GetByEvent(ctx context.Context, eventID int64, limit, offset int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_id, actor_type, actor_id, action, meta, created_at
		FROM audit_log WHERE event_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3
	`, eventID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []models.AuditLog{}
	for rows.Next() {
		var l models.AuditLog
		var meta []byte
		if err := rows.Scan(&l.ID, &l.EventID, &l.ActorType, &l.ActorID, &l.Action, &meta, &l.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &l.Meta); err != nil {
				return nil, err
			}
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
