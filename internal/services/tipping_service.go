package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eventhub/backend/internal/apperr"
	"github.com/eventhub/backend/internal/config"
	"github.com/eventhub/backend/internal/events"
	"github.com/eventhub/backend/internal/metrics"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/repositories"
	"github.com/eventhub/backend/internal/verify"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TippingService owns per-wallet tipping configs and the quote/pay flow.
type TippingService struct {
	eventSvc         *EventService
	eventRepo        repositories.EventStore
	configRepo       repositories.TippingConfigStore
	paymentRepo      repositories.PaymentLedger
	receivers        *ReceiverService
	publisher        events.Publisher
	defaultRecipient string
	enforceBudget    bool
	now              func() time.Time
	log              *zap.Logger
}

func NewTippingService(
	stores repositories.Stores,
	eventSvc *EventService,
	receivers *ReceiverService,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *TippingService {
	return &TippingService{
		eventSvc:         eventSvc,
		eventRepo:        stores.Events,
		configRepo:       stores.Configs,
		paymentRepo:      stores.Payments,
		receivers:        receivers,
		publisher:        publisher,
		defaultRecipient: cfg.TipRecipientAddress,
		enforceBudget:    cfg.EnforceDailyBudget,
		now:              time.Now,
		log:              log,
	}
}

type QuoteInput struct {
	EventID int64
	// CreatorID overrides the creator id recorded on the event.
	CreatorID string
}

type RecordPaymentInput struct {
	EventID int64
	TxHash  string
	Amount  string
	Token   *models.Token
}

// SaveConfig replaces the wallet's config wholesale.
func (s *TippingService) SaveConfig(ctx context.Context, wallet string, cfg *models.TippingConfig) (*models.TippingConfig, error) {
	if !verify.IsValidAddress(wallet) {
		return nil, apperr.Validation("invalid wallet address %q", wallet)
	}
	if cfg == nil {
		return nil, apperr.Validation("missing required fields: config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, apperr.Validation("invalid config: %v", err)
	}

	if err := s.configRepo.Save(ctx, wallet, cfg); err != nil {
		return nil, apperr.Internal(fmt.Errorf("save tipping config: %w", err))
	}
	saved, err := s.configRepo.Get(ctx, wallet)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("reload tipping config: %w", err))
	}

	s.log.Info("tipping config saved",
		zap.String("wallet", verify.NormalizeAddress(wallet)),
		zap.Bool("enabled", saved.Enabled),
	)
	return saved, nil
}

// GetConfig returns the stored config, or the disabled default when the
// wallet never saved one. stored reports which of the two it is.
func (s *TippingService) GetConfig(ctx context.Context, wallet string) (cfg *models.TippingConfig, stored bool, err error) {
	if !verify.IsValidAddress(wallet) {
		return nil, false, apperr.Validation("invalid wallet address %q", wallet)
	}
	cfg, err = s.configRepo.Get(ctx, wallet)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.DefaultTippingConfig(), false, nil
	}
	if err != nil {
		return nil, false, apperr.Internal(fmt.Errorf("get tipping config: %w", err))
	}
	return cfg, true, nil
}

func (s *TippingService) DeleteConfig(ctx context.Context, wallet string) error {
	if !verify.IsValidAddress(wallet) {
		return apperr.Validation("invalid wallet address %q", wallet)
	}
	if err := s.configRepo.Delete(ctx, wallet); err != nil {
		return apperr.Internal(fmt.Errorf("delete tipping config: %w", err))
	}
	return nil
}

// Quote decides whether a verified event should be tipped. The checks run
// in a fixed order and the first failing one becomes the reason.
func (s *TippingService) Quote(ctx context.Context, in QuoteInput) (*models.Quote, error) {
	if in.EventID <= 0 {
		return nil, apperr.Validation("missing required fields: eventId")
	}
	e, err := s.eventSvc.Get(ctx, in.EventID)
	if err != nil {
		return nil, err
	}

	q := &models.Quote{EventID: e.ID, DailyBudgetEnforced: s.enforceBudget}
	refuse := func(outcome, reason string) (*models.Quote, error) {
		q.Reason = reason
		metrics.Lifecycle().RecordQuote(outcome)
		return q, nil
	}

	if e.Status != models.EventStatusVerified {
		return refuse("status", fmt.Sprintf("event status is '%s', must be 'verified' to tip", e.Status))
	}

	paid, err := s.paymentRepo.Exists(ctx, e.ID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("check payment %d: %w", e.ID, err))
	}
	if paid {
		return refuse("already_paid", "already paid")
	}

	cfg, err := s.configRepo.Get(ctx, e.WalletAddress)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.Internal(fmt.Errorf("get tipping config: %w", err))
	}
	if cfg == nil || !cfg.Enabled {
		return refuse("disabled", "tipping not enabled for this wallet")
	}

	rule, ok := cfg.Rules[e.Action]
	if !ok || !rule.Enabled {
		return refuse("rule", fmt.Sprintf("tipping not enabled for action: %s", e.Action))
	}
	amount, err := models.ParseAmount(rule.Amount)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("stored rule %s of %s: %w", e.Action, e.WalletAddress, err))
	}

	needHistory := cfg.Limits.CooldownSec > 0 || (s.enforceBudget && cfg.Limits.HasDailyBudget())
	if needHistory {
		now := s.now()
		history, err := s.paidHistory(ctx, e)
		if err != nil {
			return nil, err
		}

		if cfg.Limits.CooldownSec > 0 {
			window := time.Duration(cfg.Limits.CooldownSec) * time.Second
			for _, p := range history {
				if p.action == e.Action && now.Sub(p.paidAt) < window {
					return refuse("cooldown", fmt.Sprintf("cooldown active for %s, wait %ds between tips", e.Action, cfg.Limits.CooldownSec))
				}
			}
		}

		if s.enforceBudget && cfg.Limits.HasDailyBudget() {
			budget, _ := models.ParseAmount(cfg.Limits.DailyBudget)
			spent := dailySpent(history, now)
			if spent.Add(amount).GreaterThan(budget) {
				return refuse("budget", fmt.Sprintf("daily budget exceeded: spent %s of %s", spent.String(), budget.String()))
			}
		}
	}

	recipient, source, err := s.resolveRecipient(ctx, e, in.CreatorID)
	if err != nil {
		return nil, err
	}

	token := cfg.Token
	q.ShouldTip = true
	q.Token = &token
	q.Amount = rule.Amount
	q.Recipient = recipient
	q.RecipientSource = source
	q.IdempotencyKey = fmt.Sprintf("tip_%d_%d", e.ID, s.now().UnixMilli())
	metrics.Lifecycle().RecordQuote("tip")
	return q, nil
}

// RecordPayment stores the executor's result and moves the event to paid.
// Repeating the call for a paid event returns it unchanged.
func (s *TippingService) RecordPayment(ctx context.Context, in RecordPaymentInput) (*models.Event, error) {
	var missing []string
	if in.EventID <= 0 {
		missing = append(missing, "eventId")
	}
	if strings.TrimSpace(in.TxHash) == "" {
		missing = append(missing, "txHash")
	}
	if strings.TrimSpace(in.Amount) == "" {
		missing = append(missing, "amount")
	}
	if in.Token == nil {
		missing = append(missing, "token")
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("missing required fields: %s", strings.Join(missing, ", "))
	}
	if _, err := models.ParseAmount(in.Amount); err != nil {
		return nil, apperr.Validation("%v", err)
	}

	unlock := s.eventSvc.locks.Lock(in.EventID)
	defer unlock()

	e, err := s.eventSvc.get(ctx, in.EventID)
	if err != nil {
		return nil, err
	}

	switch e.Status {
	case models.EventStatusPaid:
		metrics.Lifecycle().RecordPayment("duplicate")
		s.log.Info("payment already recorded", zap.Int64("event_id", e.ID), zap.String("tx_hash", in.TxHash))
		return e, nil
	case models.EventStatusVerified:
	default:
		return nil, apperr.Conflict(e.Status, "event %d is %s, must be verified to record a payment", e.ID, e.Status)
	}

	rec := &models.PaymentRecord{
		EventID:   e.ID,
		TxHash:    in.TxHash,
		Amount:    in.Amount,
		Token:     *in.Token,
		Timestamp: s.now(),
	}
	wrote, err := s.paymentRepo.RecordIfAbsent(ctx, rec)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("record payment %d: %w", e.ID, err))
	}
	if !wrote {
		// A record without the paid status means an earlier call stopped
		// between the two writes; finish it with the stored record.
		rec, err = s.paymentRepo.Get(ctx, e.ID)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("get payment %d: %w", e.ID, err))
		}
		s.log.Warn("completing payment from existing ledger record", zap.Int64("event_id", e.ID), zap.String("tx_hash", rec.TxHash))
	}

	updated, err := s.eventSvc.markPaidLocked(ctx, e, PaymentPatch{
		TxHash: rec.TxHash,
		Amount: rec.Amount,
		Token:  rec.Token,
		PaidAt: rec.Timestamp,
	})
	if apperr.Is(err, apperr.KindConflict) && apperr.CurrentStatus(err) == models.EventStatusPaid {
		// Another replica finished the same payment.
		metrics.Lifecycle().RecordPayment("duplicate")
		return s.eventSvc.get(ctx, e.ID)
	}
	if err != nil {
		return nil, err
	}

	metrics.Lifecycle().RecordPayment("recorded")
	s.eventSvc.publish(ctx, events.PaymentRecorded, updated, map[string]any{
		"txHash": rec.TxHash,
		"amount": rec.Amount,
		"token":  rec.Token.Symbol,
	})
	s.log.Info("payment recorded",
		zap.Int64("event_id", updated.ID),
		zap.String("tx_hash", rec.TxHash),
		zap.String("amount", rec.Amount),
	)
	return updated, nil
}

type paidEntry struct {
	action string
	amount decimal.Decimal
	paidAt time.Time
}

// paidHistory lists the other paid events of e's wallet with the payment
// timestamp taken from the ledger.
func (s *TippingService) paidHistory(ctx context.Context, e *models.Event) ([]paidEntry, error) {
	status := models.EventStatusPaid
	wallet := e.WalletAddress
	paid, err := s.eventRepo.List(ctx, repositories.EventFilter{Status: &status, Wallet: &wallet})
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list paid events: %w", err))
	}

	ids := make([]int64, 0, len(paid))
	for _, p := range paid {
		if p.ID != e.ID {
			ids = append(ids, p.ID)
		}
	}
	records, err := s.paymentRepo.ListByEventIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list payments: %w", err))
	}

	out := make([]paidEntry, 0, len(ids))
	for _, p := range paid {
		if p.ID == e.ID {
			continue
		}
		entry := paidEntry{action: p.Action}
		if rec, ok := records[p.ID]; ok {
			entry.paidAt = rec.Timestamp
			entry.amount, _ = models.ParseAmount(rec.Amount)
		} else {
			if p.PaidAt != nil {
				entry.paidAt = *p.PaidAt
			}
			if p.TipAmount != nil {
				entry.amount, _ = models.ParseAmount(*p.TipAmount)
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

// dailySpent sums payments made since UTC midnight of now.
func dailySpent(history []paidEntry, now time.Time) decimal.Decimal {
	y, m, d := now.UTC().Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	spent := decimal.Zero
	for _, p := range history {
		if !p.paidAt.Before(midnight) {
			spent = spent.Add(p.amount)
		}
	}
	return spent
}

// resolveRecipient picks a claimed payout address for the event's creator,
// falling back to the configured default.
func (s *TippingService) resolveRecipient(ctx context.Context, e *models.Event, creatorID string) (string, string, error) {
	if creatorID == "" {
		creatorID = e.Metadata["creatorId"]
	}
	if creatorID == "" && strings.HasPrefix(e.Target, "user:") {
		creatorID = strings.TrimPrefix(e.Target, "user:")
	}
	if creatorID != "" && s.receivers != nil {
		claim, ok, err := s.receivers.lookup(ctx, creatorID)
		if err != nil {
			return "", "", err
		}
		if ok {
			return claim.ReceiverAddress, models.RecipientSourceClaim, nil
		}
	}
	return s.defaultRecipient, models.RecipientSourceDefault, nil
}
