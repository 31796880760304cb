package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/eventhub/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned for lookups of unknown keys.
	ErrNotFound = errors.New("not found")
	// ErrStatusMismatch is returned by UpdateIfStatus when the stored status
	// differs from the expected one. The current event is returned alongside.
	ErrStatusMismatch = errors.New("status mismatch")
	// ErrNonceInvalid covers unknown, used and expired login nonces.
	ErrNonceInvalid = errors.New("nonce invalid or expired")
	// ErrDuplicate is returned by EventStore.Add when an event with the same
	// fingerprint is already stored.
	ErrDuplicate = errors.New("duplicate event")
)

// EventStore owns Event records. It does not enforce transition legality;
// UpdateIfStatus is the compare-and-swap primitive the lifecycle builds on.
type EventStore interface {
	Add(ctx context.Context, e *models.Event) (*models.Event, error)
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (*models.Event, error)
	Update(ctx context.Context, id int64, patch models.EventPatch) (*models.Event, error)
	UpdateIfStatus(ctx context.Context, id int64, expected string, patch models.EventPatch) (*models.Event, error)
	GetAll(ctx context.Context) ([]models.Event, error)
	GetByStatus(ctx context.Context, status string) ([]models.Event, error)
	GetByWallet(ctx context.Context, wallet string) ([]models.Event, error)
	List(ctx context.Context, f EventFilter) ([]models.Event, error)
	Count(ctx context.Context, f EventFilter) (int, error)
	Stats(ctx context.Context) (models.EventStats, error)
}

type EventFilter struct {
	Status *string
	Wallet *string
	Action *string
	Limit  int
	Offset int
}

// TippingConfigStore owns TippingConfig records keyed by lower-cased wallet.
type TippingConfigStore interface {
	Save(ctx context.Context, wallet string, cfg *models.TippingConfig) error
	Get(ctx context.Context, wallet string) (*models.TippingConfig, error)
	Delete(ctx context.Context, wallet string) error
}

// PaymentLedger owns PaymentRecord records keyed by event id.
type PaymentLedger interface {
	Record(ctx context.Context, rec *models.PaymentRecord) error
	// RecordIfAbsent writes rec unless a record for the event exists and
	// reports whether it wrote. The check and the write are atomic.
	RecordIfAbsent(ctx context.Context, rec *models.PaymentRecord) (bool, error)
	Get(ctx context.Context, eventID int64) (*models.PaymentRecord, error)
	Exists(ctx context.Context, eventID int64) (bool, error)
	ListByEventIDs(ctx context.Context, ids []int64) (map[int64]models.PaymentRecord, error)
}

// ClaimStore owns receiver claims keyed by external creator id.
type ClaimStore interface {
	Upsert(ctx context.Context, claim *models.ReceiverClaim) error
	Get(ctx context.Context, externalID string) (*models.ReceiverClaim, error)
	List(ctx context.Context) ([]models.ReceiverClaim, error)
}

// NonceStore holds wallet login challenges.
type NonceStore interface {
	Create(ctx context.Context, wallet string, ttl time.Duration) (*models.AuthNonce, error)
	Consume(ctx context.Context, nonce, wallet string) (*models.AuthNonce, error)
}

// AuditStore keeps the per-event history of lifecycle steps.
type AuditStore interface {
	Log(ctx context.Context, entry models.AuditLog) error
	GetByEvent(ctx context.Context, eventID int64, limit, offset int) ([]models.AuditLog, error)
}

// Stores bundles the repositories a deployment wires into the services.
type Stores struct {
	Events   EventStore
	Configs  TippingConfigStore
	Payments PaymentLedger
	Claims   ClaimStore
	Nonces   NonceStore
	Audit    AuditStore
}

// NewPostgresStores wires every store to the same pool.
func NewPostgresStores(pool *pgxpool.Pool) Stores {
	return Stores{
		Events:   NewEventRepo(pool),
		Configs:  NewTippingConfigRepo(pool),
		Payments: NewPaymentRepo(pool),
		Claims:   NewClaimRepo(pool),
		Nonces:   NewNonceRepo(pool),
		Audit:    NewAuditRepo(pool),
	}
}
