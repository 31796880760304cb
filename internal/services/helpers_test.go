package services

import (
	"crypto/ecdsa"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/eventhub/backend/internal/config"
	"github.com/eventhub/backend/internal/events"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/repositories"
	"github.com/eventhub/backend/internal/verify"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testWallet struct {
	key     *ecdsa.PrivateKey
	address string
}

func newTestWallet(t *testing.T) testWallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return testWallet{key: key, address: crypto.PubkeyToAddress(key.PublicKey).Hex()}
}

func (w testWallet) sign(t *testing.T, message string) string {
	t.Helper()
	sig, err := verify.Sign(message, w.key)
	require.NoError(t, err)
	return sig
}

func (w testWallet) signEvent(t *testing.T, f models.EventFields) string {
	return w.sign(t, verify.BuildMessage(f))
}

type testEnv struct {
	clock     *testClock
	stores    repositories.Stores
	cfg       *config.Config
	events    *EventService
	tipping   *TippingService
	receivers *ReceiverService
	auth      *AuthService
}

const defaultRecipient = "0x000000000000000000000000000000000000dEaD"

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	clock := &testClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	stores := repositories.NewMemoryStores(clock.Now)
	cfg := &config.Config{
		TipRecipientAddress: defaultRecipient,
		JWTSecret:           "test-secret",
		JWTExpiration:       time.Hour,
		AuthNonceTTL:        time.Minute,
	}
	for _, m := range mutate {
		m(cfg)
	}

	log := zap.NewNop()
	bus := events.NewLocalBus(16, log)
	eventSvc := NewEventService(stores, bus, nil, log)
	eventSvc.now = clock.Now
	receivers := NewReceiverService(stores, log)
	tipping := NewTippingService(stores, eventSvc, receivers, bus, cfg, log)
	tipping.now = clock.Now

	return &testEnv{
		clock:     clock,
		stores:    stores,
		cfg:       cfg,
		events:    eventSvc,
		tipping:   tipping,
		receivers: receivers,
		auth:      NewAuthService(stores, cfg, log),
	}
}

func enabledConfig(likeAmount string, cooldown int64) *models.TippingConfig {
	cfg := models.DefaultTippingConfig()
	cfg.Enabled = true
	cfg.Rules[models.ActionLike] = models.TipRule{Enabled: true, Amount: likeAmount}
	cfg.Limits.CooldownSec = cooldown
	return cfg
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
