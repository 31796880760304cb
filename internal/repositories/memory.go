package repositories

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eventhub/backend/internal/models"
)

// NewMemoryStores returns process-local stores. Data is lost on restart.
func NewMemoryStores(now func() time.Time) Stores {
	if now == nil {
		now = time.Now
	}
	return Stores{
		Events:   NewMemoryEventRepo(now),
		Configs:  NewMemoryTippingConfigRepo(now),
		Payments: NewMemoryPaymentRepo(now),
		Claims:   NewMemoryClaimRepo(now),
		Nonces:   NewMemoryNonceRepo(now),
		Audit:    NewMemoryAuditRepo(now),
	}
}

// --- Events ---

type MemoryEventRepo struct {
	mu            sync.RWMutex
	now           func() time.Time
	events        []*models.Event
	index         map[int64]int
	byFingerprint map[string]int64
}

func NewMemoryEventRepo(now func() time.Time) *MemoryEventRepo {
	return &MemoryEventRepo{
		now:           now,
		index:         make(map[int64]int),
		byFingerprint: make(map[string]int64),
	}
}

func (r *MemoryEventRepo) Add(_ context.Context, e *models.Event) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.Fingerprint != "" {
		if _, ok := r.byFingerprint[e.Fingerprint]; ok {
			return nil, ErrDuplicate
		}
	}

	stored := e.Clone()
	stored.ID = int64(len(r.events) + 1)
	stored.CreatedAt = r.now()
	r.events = append(r.events, stored)
	r.index[stored.ID] = len(r.events) - 1
	if stored.Fingerprint != "" {
		r.byFingerprint[stored.Fingerprint] = stored.ID
	}
	return stored.Clone(), nil
}

func (r *MemoryEventRepo) GetByFingerprint(ctx context.Context, fingerprint string) (*models.Event, error) {
	r.mu.RLock()
	id, ok := r.byFingerprint[fingerprint]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryEventRepo) GetByID(_ context.Context, id int64) (*models.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.events[i].Clone(), nil
}

func (r *MemoryEventRepo) Update(_ context.Context, id int64, patch models.EventPatch) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	patch.Apply(r.events[i], r.now())
	return r.events[i].Clone(), nil
}

func (r *MemoryEventRepo) UpdateIfStatus(_ context.Context, id int64, expected string, patch models.EventPatch) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.events[i].Status != expected {
		return r.events[i].Clone(), ErrStatusMismatch
	}
	patch.Apply(r.events[i], r.now())
	return r.events[i].Clone(), nil
}

func (r *MemoryEventRepo) GetAll(ctx context.Context) ([]models.Event, error) {
	return r.List(ctx, EventFilter{})
}

func (r *MemoryEventRepo) GetByStatus(ctx context.Context, status string) ([]models.Event, error) {
	return r.List(ctx, EventFilter{Status: &status})
}

func (r *MemoryEventRepo) GetByWallet(ctx context.Context, wallet string) ([]models.Event, error) {
	return r.List(ctx, EventFilter{Wallet: &wallet})
}

// List filters in insertion order. Limit <= 0 means no limit.
func (r *MemoryEventRepo) List(_ context.Context, f EventFilter) ([]models.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.Event{}
	skipped := 0
	for _, e := range r.events {
		if !f.matches(e) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, *e.Clone())
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

// Count ignores Limit and Offset.
func (r *MemoryEventRepo) Count(_ context.Context, f EventFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, e := range r.events {
		if f.matches(e) {
			n++
		}
	}
	return n, nil
}

func (f EventFilter) matches(e *models.Event) bool {
	if f.Status != nil && e.Status != *f.Status {
		return false
	}
	if f.Wallet != nil && !e.BelongsTo(*f.Wallet) {
		return false
	}
	if f.Action != nil && e.Action != *f.Action {
		return false
	}
	return true
}

func (r *MemoryEventRepo) Stats(_ context.Context) (models.EventStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := models.NewEventStats()
	for _, e := range r.events {
		stats.Add(e)
	}
	return stats, nil
}

// --- Tipping configs ---

type MemoryTippingConfigRepo struct {
	mu      sync.RWMutex
	now     func() time.Time
	configs map[string]*models.TippingConfig
}

func NewMemoryTippingConfigRepo(now func() time.Time) *MemoryTippingConfigRepo {
	return &MemoryTippingConfigRepo{now: now, configs: make(map[string]*models.TippingConfig)}
}

// Save swaps in a private copy, so readers see either the old or the new config.
func (r *MemoryTippingConfigRepo) Save(_ context.Context, wallet string, cfg *models.TippingConfig) error {
	stored := cfg.Clone()
	now := r.now()
	stored.UpdatedAt = &now

	r.mu.Lock()
	r.configs[strings.ToLower(wallet)] = stored
	r.mu.Unlock()
	return nil
}

func (r *MemoryTippingConfigRepo) Get(_ context.Context, wallet string) (*models.TippingConfig, error) {
	r.mu.RLock()
	cfg, ok := r.configs[strings.ToLower(wallet)]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return cfg.Clone(), nil
}

func (r *MemoryTippingConfigRepo) Delete(_ context.Context, wallet string) error {
	r.mu.Lock()
	delete(r.configs, strings.ToLower(wallet))
	r.mu.Unlock()
	return nil
}

// --- Payments ---

type MemoryPaymentRepo struct {
	mu      sync.RWMutex
	now     func() time.Time
	records map[int64]models.PaymentRecord
}

func NewMemoryPaymentRepo(now func() time.Time) *MemoryPaymentRepo {
	return &MemoryPaymentRepo{now: now, records: make(map[int64]models.PaymentRecord)}
}

func (r *MemoryPaymentRepo) Record(_ context.Context, rec *models.PaymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.RecordedAt = r.now()
	r.records[rec.EventID] = *rec
	return nil
}

func (r *MemoryPaymentRepo) RecordIfAbsent(_ context.Context, rec *models.PaymentRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.EventID]; ok {
		return false, nil
	}
	rec.RecordedAt = r.now()
	r.records[rec.EventID] = *rec
	return true, nil
}

func (r *MemoryPaymentRepo) Get(_ context.Context, eventID int64) (*models.PaymentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (r *MemoryPaymentRepo) Exists(_ context.Context, eventID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.records[eventID]
	return ok, nil
}

func (r *MemoryPaymentRepo) ListByEventIDs(_ context.Context, ids []int64) (map[int64]models.PaymentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int64]models.PaymentRecord, len(ids))
	for _, id := range ids {
		if rec, ok := r.records[id]; ok {
			out[id] = rec
		}
	}
	return out, nil
}

// --- Receiver claims ---

type MemoryClaimRepo struct {
	mu     sync.RWMutex
	now    func() time.Time
	claims map[string]models.ReceiverClaim
}

func NewMemoryClaimRepo(now func() time.Time) *MemoryClaimRepo {
	return &MemoryClaimRepo{now: now, claims: make(map[string]models.ReceiverClaim)}
}

func (r *MemoryClaimRepo) Upsert(_ context.Context, claim *models.ReceiverClaim) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	claim.UpdatedAt = r.now()
	r.claims[claim.ExternalID] = *claim
	return nil
}

func (r *MemoryClaimRepo) Get(_ context.Context, externalID string) (*models.ReceiverClaim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.claims[externalID]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *MemoryClaimRepo) List(_ context.Context) ([]models.ReceiverClaim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ReceiverClaim, 0, len(r.claims))
	for _, c := range r.claims {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out, nil
}

// --- Login nonces ---

type MemoryNonceRepo struct {
	mu     sync.Mutex
	now    func() time.Time
	nonces map[string]*models.AuthNonce
}

func NewMemoryNonceRepo(now func() time.Time) *MemoryNonceRepo {
	return &MemoryNonceRepo{now: now, nonces: make(map[string]*models.AuthNonce)}
}

func (r *MemoryNonceRepo) Create(_ context.Context, wallet string, ttl time.Duration) (*models.AuthNonce, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for k, n := range r.nonces {
		if n.Used || now.After(n.ExpiresAt) {
			delete(r.nonces, k)
		}
	}

	n := &models.AuthNonce{
		Nonce:         generateNonce(16),
		WalletAddress: strings.ToLower(wallet),
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}
	r.nonces[n.Nonce] = n
	out := *n
	return &out, nil
}

func (r *MemoryNonceRepo) Consume(_ context.Context, nonce, wallet string) (*models.AuthNonce, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nonces[nonce]
	if !ok || n.Used || r.now().After(n.ExpiresAt) || n.WalletAddress != strings.ToLower(wallet) {
		return nil, ErrNonceInvalid
	}
	n.Used = true
	out := *n
	return &out, nil
}

// --- Audit ---

type MemoryAuditRepo struct {
	mu      sync.RWMutex
	now     func() time.Time
	entries []models.AuditLog
}

func NewMemoryAuditRepo(now func() time.Time) *MemoryAuditRepo {
	return &MemoryAuditRepo{now: now}
}

func (r *MemoryAuditRepo) Log(_ context.Context, entry models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = int64(len(r.entries) + 1)
	entry.CreatedAt = r.now()
	r.entries = append(r.entries, entry)
	return nil
}

// GetByEvent returns the newest entries first.
func (r *MemoryAuditRepo) GetByEvent(_ context.Context, eventID int64, limit, offset int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.AuditLog{}
	skipped := 0
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].EventID != eventID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, r.entries[i])
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func generateNonce(bytes int) string {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return hex.EncodeToString(b)
}
