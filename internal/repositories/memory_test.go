package repositories

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/eventhub/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func sampleEvent(wallet, status string) *models.Event {
	return &models.Event{
		EventFields: models.EventFields{
			Platform:      "soundcloud",
			Action:        models.ActionLike,
			Actor:         "wallet:" + wallet,
			Target:        "track:1",
			Timestamp:     1700000000000,
			WalletAddress: wallet,
		},
		Status:   status,
		Metadata: map[string]string{"source": "test"},
	}
}

func TestMemoryEventRepo_AddAssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	repo := NewMemoryEventRepo(clock.Now)

	first, err := repo.Add(ctx, sampleEvent("0xabc", models.EventStatusObserved))
	require.NoError(t, err)
	second, err := repo.Add(ctx, sampleEvent("0xabc", models.EventStatusObserved))
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, clock.Now(), first.CreatedAt)

	n, err := repo.Count(ctx, EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMemoryEventRepo_DuplicateFingerprint(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEventRepo(time.Now)

	e := sampleEvent("0xabc", models.EventStatusVerified)
	e.Fingerprint = "0xf1"
	first, err := repo.Add(ctx, e)
	require.NoError(t, err)

	_, err = repo.Add(ctx, e)
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := repo.GetByFingerprint(ctx, "0xf1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = repo.GetByFingerprint(ctx, "0xf2")
	assert.ErrorIs(t, err, ErrNotFound)

	// events without a fingerprint never collide
	_, err = repo.Add(ctx, sampleEvent("0xabc", models.EventStatusObserved))
	require.NoError(t, err)
	_, err = repo.Add(ctx, sampleEvent("0xabc", models.EventStatusObserved))
	require.NoError(t, err)

	n, err := repo.Count(ctx, EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMemoryEventRepo_CountFollowsFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEventRepo(time.Now)

	for _, status := range []string{models.EventStatusObserved, models.EventStatusObserved, models.EventStatusVerified} {
		_, err := repo.Add(ctx, sampleEvent("0xabc", status))
		require.NoError(t, err)
	}
	_, err := repo.Add(ctx, sampleEvent("0xdef", models.EventStatusObserved))
	require.NoError(t, err)

	observed := models.EventStatusObserved
	wallet := "0xABC"
	n, err := repo.Count(ctx, EventFilter{Status: &observed, Wallet: &wallet, Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.Count(ctx, EventFilter{Status: &observed})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMemoryEventRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEventRepo(time.Now)

	added, err := repo.Add(ctx, sampleEvent("0xabc", models.EventStatusObserved))
	require.NoError(t, err)
	added.Metadata["source"] = "mutated"
	added.Status = models.EventStatusPaid

	got, err := repo.GetByID(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, "test", got.Metadata["source"])
	assert.Equal(t, models.EventStatusObserved, got.Status)
}

func TestMemoryEventRepo_GetUnknown(t *testing.T) {
	repo := NewMemoryEventRepo(time.Now)
	_, err := repo.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Update(context.Background(), 42, models.EventPatch{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryEventRepo_UpdateMergesMetadata(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	repo := NewMemoryEventRepo(clock.Now)

	e, err := repo.Add(ctx, sampleEvent("0xabc", models.EventStatusObserved))
	require.NoError(t, err)

	clock.Advance(time.Minute)
	updated, err := repo.Update(ctx, e.ID, models.EventPatch{Metadata: map[string]string{"creatorId": "42"}})
	require.NoError(t, err)

	assert.Equal(t, "test", updated.Metadata["source"])
	assert.Equal(t, "42", updated.Metadata["creatorId"])
	require.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, clock.Now(), *updated.UpdatedAt)
}

func TestMemoryEventRepo_UpdateIfStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEventRepo(time.Now)
	e, err := repo.Add(ctx, sampleEvent("0xabc", models.EventStatusObserved))
	require.NoError(t, err)

	verified := models.EventStatusVerified
	got, err := repo.UpdateIfStatus(ctx, e.ID, models.EventStatusObserved, models.EventPatch{Status: &verified})
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusVerified, got.Status)

	// The second swap sees the new status and must not apply.
	paid := models.EventStatusPaid
	got, err = repo.UpdateIfStatus(ctx, e.ID, models.EventStatusObserved, models.EventPatch{Status: &paid})
	assert.ErrorIs(t, err, ErrStatusMismatch)
	require.NotNil(t, got)
	assert.Equal(t, models.EventStatusVerified, got.Status)
}

func TestMemoryEventRepo_UpdateIfStatusSingleWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEventRepo(time.Now)
	e, err := repo.Add(ctx, sampleEvent("0xabc", models.EventStatusObserved))
	require.NoError(t, err)

	verified := models.EventStatusVerified
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.UpdateIfStatus(ctx, e.ID, models.EventStatusObserved, models.EventPatch{Status: &verified})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestMemoryEventRepo_ListFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEventRepo(time.Now)

	_, _ = repo.Add(ctx, sampleEvent("0xAAA", models.EventStatusObserved))
	_, _ = repo.Add(ctx, sampleEvent("0xbbb", models.EventStatusVerified))
	follow := sampleEvent("0xaaa", models.EventStatusVerified)
	follow.Action = models.ActionFollow
	_, _ = repo.Add(ctx, follow)

	byWallet, err := repo.GetByWallet(ctx, "0xaaa")
	require.NoError(t, err)
	assert.Len(t, byWallet, 2)

	byStatus, err := repo.GetByStatus(ctx, models.EventStatusVerified)
	require.NoError(t, err)
	assert.Len(t, byStatus, 2)

	action := models.ActionFollow
	byAction, err := repo.List(ctx, EventFilter{Action: &action})
	require.NoError(t, err)
	require.Len(t, byAction, 1)
	assert.Equal(t, int64(3), byAction[0].ID)

	page, err := repo.List(ctx, EventFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(2), page[0].ID)

	none, err := repo.GetByWallet(ctx, "0xccc")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemoryEventRepo_Stats(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEventRepo(time.Now)
	_, _ = repo.Add(ctx, sampleEvent("0xaaa", models.EventStatusObserved))
	_, _ = repo.Add(ctx, sampleEvent("0xaaa", models.EventStatusVerified))

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.ByPlatform["soundcloud"])
	assert.Equal(t, 2, stats.ByAction[models.ActionLike])
	assert.Equal(t, 1, stats.ByStatus[models.EventStatusObserved])
}

func TestMemoryTippingConfigRepo(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	repo := NewMemoryTippingConfigRepo(clock.Now)

	_, err := repo.Get(ctx, "0xabc")
	assert.ErrorIs(t, err, ErrNotFound)

	cfg := models.DefaultTippingConfig()
	require.NoError(t, repo.Save(ctx, "0xABC", cfg))
	cfg.Rules[models.ActionLike] = models.TipRule{Enabled: true, Amount: "9"}

	got, err := repo.Get(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "0.10", got.Rules[models.ActionLike].Amount)
	require.NotNil(t, got.UpdatedAt)
	assert.Equal(t, clock.Now(), *got.UpdatedAt)

	require.NoError(t, repo.Delete(ctx, "0xAbC"))
	_, err = repo.Get(ctx, "0xabc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryPaymentRepo_RecordIfAbsent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPaymentRepo(time.Now)

	rec := &models.PaymentRecord{EventID: 7, TxHash: "0x01", Amount: "0.1"}
	wrote, err := repo.RecordIfAbsent(ctx, rec)
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = repo.RecordIfAbsent(ctx, &models.PaymentRecord{EventID: 7, TxHash: "0x02"})
	require.NoError(t, err)
	assert.False(t, wrote)

	got, err := repo.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "0x01", got.TxHash)

	exists, err := repo.Exists(ctx, 8)
	require.NoError(t, err)
	assert.False(t, exists)

	byID, err := repo.ListByEventIDs(ctx, []int64{7, 8})
	require.NoError(t, err)
	assert.Len(t, byID, 1)
	assert.Contains(t, byID, int64(7))
}

func TestMemoryClaimRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryClaimRepo(time.Now)

	require.NoError(t, repo.Upsert(ctx, &models.ReceiverClaim{ExternalID: "soundcloud:b", ReceiverAddress: "0x1"}))
	require.NoError(t, repo.Upsert(ctx, &models.ReceiverClaim{ExternalID: "soundcloud:a", ReceiverAddress: "0x2"}))
	require.NoError(t, repo.Upsert(ctx, &models.ReceiverClaim{ExternalID: "soundcloud:b", ReceiverAddress: "0x3"}))

	got, err := repo.Get(ctx, "soundcloud:b")
	require.NoError(t, err)
	assert.Equal(t, "0x3", got.ReceiverAddress)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "soundcloud:a", list[0].ExternalID)

	_, err = repo.Get(ctx, "soundcloud:zzz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryNonceRepo(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	repo := NewMemoryNonceRepo(clock.Now)

	n, err := repo.Create(ctx, "0xABC", time.Minute)
	require.NoError(t, err)
	assert.Len(t, n.Nonce, 32)

	_, err = repo.Consume(ctx, n.Nonce, "0xdef")
	assert.ErrorIs(t, err, ErrNonceInvalid, "wrong wallet")

	_, err = repo.Consume(ctx, n.Nonce, "0xabc")
	require.NoError(t, err)

	_, err = repo.Consume(ctx, n.Nonce, "0xabc")
	assert.ErrorIs(t, err, ErrNonceInvalid, "reused")

	expiring, err := repo.Create(ctx, "0xabc", time.Minute)
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)
	_, err = repo.Consume(ctx, expiring.Nonce, "0xabc")
	assert.ErrorIs(t, err, ErrNonceInvalid, "expired")
}

func TestMemoryAuditRepo_NewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAuditRepo(time.Now)

	require.NoError(t, repo.Log(ctx, models.AuditLog{EventID: 1, Action: "event_created"}))
	require.NoError(t, repo.Log(ctx, models.AuditLog{EventID: 2, Action: "event_created"}))
	require.NoError(t, repo.Log(ctx, models.AuditLog{EventID: 1, Action: "status_verified"}))

	logs, err := repo.GetByEvent(ctx, 1, 0, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "status_verified", logs[0].Action)

	logs, err = repo.GetByEvent(ctx, 1, 1, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "event_created", logs[0].Action)
}
