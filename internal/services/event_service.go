package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eventhub/backend/internal/apperr"
	"github.com/eventhub/backend/internal/events"
	"github.com/eventhub/backend/internal/metrics"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/repositories"
	"github.com/eventhub/backend/internal/verify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreatorResolver maps a platform track id to the creator's external id.
type CreatorResolver interface {
	ResolveTrackCreator(ctx context.Context, trackID string) (string, error)
}

type EventService struct {
	eventRepo repositories.EventStore
	auditRepo repositories.AuditStore
	publisher events.Publisher
	resolver  CreatorResolver
	locks     *keyedMutex
	now       func() time.Time
	log       *zap.Logger
}

// NewEventService wires the lifecycle. resolver may be nil.
func NewEventService(
	stores repositories.Stores,
	publisher events.Publisher,
	resolver CreatorResolver,
	log *zap.Logger,
) *EventService {
	return &EventService{
		eventRepo: stores.Events,
		auditRepo: stores.Audit,
		publisher: publisher,
		resolver:  resolver,
		locks:     newKeyedMutex(),
		now:       time.Now,
		log:       log,
	}
}

type SubmitEventInput struct {
	Platform      string
	Action        string
	Actor         string
	Target        string
	Timestamp     int64
	WalletAddress string
	Signature     string
	Metadata      map[string]string
}

func (in SubmitEventInput) fields() models.EventFields {
	return models.EventFields{
		Platform:      in.Platform,
		Action:        in.Action,
		Actor:         in.Actor,
		Target:        in.Target,
		Timestamp:     in.Timestamp,
		WalletAddress: in.WalletAddress,
	}
}

// ObservedActionInput is a platform report that carries no signature yet.
type ObservedActionInput struct {
	Platform          string
	Action            string
	TargetID          string
	WalletAddress     string
	ExternalAccountID string
}

// PaymentPatch carries the fields stamped on an event when it is paid.
type PaymentPatch struct {
	TxHash string
	Amount string
	Token  models.Token
	PaidAt time.Time
}

// SubmitSigned stores a self-reported action directly as verified.
// Field validation runs before any signature work.
func (s *EventService) SubmitSigned(ctx context.Context, in SubmitEventInput) (*models.Event, error) {
	f := in.fields()
	if err := validateFields(f); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Signature) == "" {
		return nil, apperr.Validation("missing required fields: signature")
	}

	if !verify.Verify(verify.BuildMessage(f), in.Signature, f.WalletAddress) {
		s.authFailed("submit", 0, f.WalletAddress)
		return nil, apperr.Authentication("signature verification failed")
	}

	now := s.now()
	sig := in.Signature
	e, err := s.add(ctx, &models.Event{
		EventFields: f,
		Status:      models.EventStatusVerified,
		Signature:   &sig,
		Fingerprint: verify.Fingerprint(f),
		Metadata:    in.Metadata,
		VerifiedAt:  &now,
	})
	if err != nil {
		return nil, err
	}

	s.created(ctx, e, models.AuditActorWallet)
	return e, nil
}

// SubmitObserved records a platform action without a signature. The event
// always starts as observed and gets a fresh provider receipt.
func (s *EventService) SubmitObserved(ctx context.Context, in ObservedActionInput) (*models.Event, error) {
	var missing []string
	if strings.TrimSpace(in.Platform) == "" {
		missing = append(missing, "platform")
	}
	if strings.TrimSpace(in.Action) == "" {
		missing = append(missing, "action")
	}
	if strings.TrimSpace(in.TargetID) == "" {
		missing = append(missing, "targetId")
	}
	if strings.TrimSpace(in.WalletAddress) == "" {
		missing = append(missing, "walletAddress")
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("missing required fields: %s", strings.Join(missing, ", "))
	}
	if !verify.IsValidAddress(in.WalletAddress) {
		return nil, apperr.Validation("invalid wallet address %q", in.WalletAddress)
	}

	actor := models.WalletActor(in.WalletAddress, in.Platform, in.ExternalAccountID)
	if err := actor.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}

	now := s.now()
	receipt := providerReceipt(in.Platform, in.Action, now)
	metadata := map[string]string{}
	if in.ExternalAccountID != "" {
		metadata[in.Platform+"UserId"] = in.ExternalAccountID
	}
	if s.resolver != nil && in.Action == models.ActionLike {
		creator, err := s.resolver.ResolveTrackCreator(ctx, in.TargetID)
		if err != nil {
			s.log.Warn("creator resolution failed",
				zap.String("platform", in.Platform),
				zap.String("target_id", in.TargetID),
				zap.Error(err),
			)
		} else if creator != "" {
			metadata["creatorId"] = creator
		}
	}

	e, err := s.add(ctx, &models.Event{
		EventFields: models.EventFields{
			Platform:      in.Platform,
			Action:        in.Action,
			Actor:         actor.Canonical(),
			Target:        observedTarget(in.Action, in.TargetID),
			Timestamp:     now.UnixMilli(),
			WalletAddress: in.WalletAddress,
		},
		Status:          models.EventStatusObserved,
		ProviderReceipt: &receipt,
		Metadata:        metadata,
	})
	if err != nil {
		return nil, err
	}

	s.created(ctx, e, models.AuditActorSystem)
	return e, nil
}

// add stores a new event. A signed tuple that is already stored is a
// conflict carrying the status of the existing event.
func (s *EventService) add(ctx context.Context, e *models.Event) (*models.Event, error) {
	if !models.IsValidInitialStatus(e.Status) {
		return nil, apperr.Internal(fmt.Errorf("event cannot start as %q", e.Status))
	}
	stored, err := s.eventRepo.Add(ctx, e)
	if errors.Is(err, repositories.ErrDuplicate) {
		existing, getErr := s.eventRepo.GetByFingerprint(ctx, e.Fingerprint)
		if getErr != nil {
			return nil, apperr.Internal(fmt.Errorf("load duplicate event: %w", getErr))
		}
		s.log.Warn("replayed event rejected",
			zap.Int64("event_id", existing.ID),
			zap.String("wallet", e.WalletAddress),
		)
		return nil, apperr.Conflict(existing.Status, "action already recorded as event %d", existing.ID)
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("add event: %w", err))
	}
	return stored, nil
}

// Confirm moves an observed event to verified. The signature is checked
// against the message rebuilt from the stored fields.
func (s *EventService) Confirm(ctx context.Context, eventID int64, signature string) (*models.Event, error) {
	if eventID <= 0 {
		return nil, apperr.Validation("eventId must be a positive integer")
	}
	if strings.TrimSpace(signature) == "" {
		return nil, apperr.Validation("missing required fields: signature")
	}

	unlock := s.locks.Lock(eventID)
	defer unlock()

	e, err := s.get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.Status != models.EventStatusObserved {
		return nil, apperr.Conflict(e.Status, "event %d is already %s", e.ID, e.Status)
	}

	if !verify.Verify(verify.BuildMessage(e.Fields()), signature, e.WalletAddress) {
		s.authFailed("confirm", e.ID, e.WalletAddress)
		return nil, apperr.Authentication("signature verification failed")
	}

	now := s.now()
	actorID := strings.ToLower(e.WalletAddress)
	return s.transition(ctx, e, models.EventStatusVerified, models.EventPatch{
		Signature:  &signature,
		VerifiedAt: &now,
	}, models.AuditActorWallet, &actorID)
}

// MarkPaid moves a verified event to paid.
func (s *EventService) MarkPaid(ctx context.Context, eventID int64, p PaymentPatch) (*models.Event, error) {
	unlock := s.locks.Lock(eventID)
	defer unlock()

	e, err := s.get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.markPaidLocked(ctx, e, p)
}

// markPaidLocked expects the caller to hold the event's lock.
func (s *EventService) markPaidLocked(ctx context.Context, e *models.Event, p PaymentPatch) (*models.Event, error) {
	if e.Status != models.EventStatusVerified {
		return nil, apperr.Conflict(e.Status, "event %d is %s, must be verified to be paid", e.ID, e.Status)
	}
	token := p.Token
	return s.transition(ctx, e, models.EventStatusPaid, models.EventPatch{
		TxHash:    &p.TxHash,
		TipAmount: &p.Amount,
		TipToken:  &token,
		PaidAt:    &p.PaidAt,
	}, models.AuditActorPayment, nil)
}

// transition validates and applies a status change with a storage-level
// compare-and-swap, then writes the audit entry and publishes the change.
func (s *EventService) transition(ctx context.Context, e *models.Event, newStatus string, patch models.EventPatch, actorType string, actorID *string) (*models.Event, error) {
	if !models.IsValidTransition(e.Status, newStatus) {
		return nil, apperr.Conflict(e.Status, "invalid transition from %s to %s", e.Status, newStatus)
	}

	oldStatus := e.Status
	patch.Status = &newStatus
	updated, err := s.eventRepo.UpdateIfStatus(ctx, e.ID, oldStatus, patch)
	if errors.Is(err, repositories.ErrStatusMismatch) {
		return nil, apperr.Conflict(updated.Status, "event %d is already %s", e.ID, updated.Status)
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.NotFound("event %d not found", e.ID)
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("update event %d: %w", e.ID, err))
	}

	metrics.Lifecycle().RecordTransition(oldStatus, newStatus)
	s.audit(ctx, models.AuditLog{
		EventID:   e.ID,
		ActorType: actorType,
		ActorID:   actorID,
		Action:    fmt.Sprintf("status_%s_to_%s", oldStatus, newStatus),
		Meta:      map[string]any{"old_status": oldStatus, "new_status": newStatus},
	})
	s.publish(ctx, events.EventStatusChanged, updated, map[string]any{
		"oldStatus": oldStatus,
		"newStatus": newStatus,
	})

	s.log.Info("event status changed",
		zap.Int64("event_id", e.ID),
		zap.String("from", oldStatus),
		zap.String("to", newStatus),
	)
	return updated, nil
}

func (s *EventService) Get(ctx context.Context, eventID int64) (*models.Event, error) {
	return s.get(ctx, eventID)
}

func validateFilter(f repositories.EventFilter) error {
	if f.Status != nil && !models.IsValidEventStatus(*f.Status) {
		return apperr.Validation("invalid status %q", *f.Status)
	}
	if f.Wallet != nil && !verify.IsValidAddress(*f.Wallet) {
		return apperr.Validation("invalid wallet address %q", *f.Wallet)
	}
	if f.Limit < 0 || f.Offset < 0 {
		return apperr.Validation("limit and offset must not be negative")
	}
	return nil
}

func (s *EventService) List(ctx context.Context, f repositories.EventFilter) ([]models.Event, error) {
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	list, err := s.eventRepo.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list events: %w", err))
	}
	return list, nil
}

// Count returns how many events match f. Limit and Offset are ignored.
func (s *EventService) Count(ctx context.Context, f repositories.EventFilter) (int, error) {
	if err := validateFilter(f); err != nil {
		return 0, err
	}
	n, err := s.eventRepo.Count(ctx, f)
	if err != nil {
		return 0, apperr.Internal(fmt.Errorf("count events: %w", err))
	}
	return n, nil
}

func (s *EventService) Stats(ctx context.Context) (models.EventStats, error) {
	stats, err := s.eventRepo.Stats(ctx)
	if err != nil {
		return stats, apperr.Internal(fmt.Errorf("event stats: %w", err))
	}
	return stats, nil
}

// History returns the audit trail of an event, newest first.
func (s *EventService) History(ctx context.Context, eventID int64, limit, offset int) ([]models.AuditLog, error) {
	if _, err := s.get(ctx, eventID); err != nil {
		return nil, err
	}
	logs, err := s.auditRepo.GetByEvent(ctx, eventID, limit, offset)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("event history: %w", err))
	}
	return logs, nil
}

func (s *EventService) get(ctx context.Context, eventID int64) (*models.Event, error) {
	e, err := s.eventRepo.GetByID(ctx, eventID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.NotFound("event %d not found", eventID)
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("get event %d: %w", eventID, err))
	}
	return e, nil
}

func (s *EventService) created(ctx context.Context, e *models.Event, actorType string) {
	metrics.Lifecycle().RecordCreated(e.Platform, e.Status)

	var actorID *string
	if actorType == models.AuditActorWallet {
		w := strings.ToLower(e.WalletAddress)
		actorID = &w
	}
	s.audit(ctx, models.AuditLog{
		EventID:   e.ID,
		ActorType: actorType,
		ActorID:   actorID,
		Action:    "event_created",
		Meta:      map[string]any{"status": e.Status, "platform": e.Platform, "action": e.Action},
	})
	s.publish(ctx, events.EventCreated, e, nil)

	s.log.Info("event created",
		zap.Int64("event_id", e.ID),
		zap.String("platform", e.Platform),
		zap.String("action", e.Action),
		zap.String("status", e.Status),
	)
}

// audit failures never fail the operation that already committed.
func (s *EventService) audit(ctx context.Context, entry models.AuditLog) {
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		s.log.Error("audit log failed", zap.Int64("event_id", entry.EventID), zap.String("action", entry.Action), zap.Error(err))
	}
}

func (s *EventService) publish(ctx context.Context, eventType string, e *models.Event, extra map[string]any) {
	if s.publisher == nil {
		return
	}
	payload := map[string]any{
		"eventId":       e.ID,
		"walletAddress": strings.ToLower(e.WalletAddress),
		"status":        e.Status,
		"platform":      e.Platform,
		"action":        e.Action,
	}
	for k, v := range extra {
		payload[k] = v
	}
	if err := s.publisher.Publish(ctx, events.StreamLifecycle, events.Event{Type: eventType, Payload: payload}); err != nil {
		s.log.Warn("publish failed", zap.String("type", eventType), zap.Int64("event_id", e.ID), zap.Error(err))
	}
}

func (s *EventService) authFailed(op string, eventID int64, wallet string) {
	metrics.Lifecycle().RecordAuthFailure(op)
	s.log.Warn("signature rejected",
		zap.String("operation", op),
		zap.Int64("event_id", eventID),
		zap.String("wallet", wallet),
	)
}

func validateFields(f models.EventFields) error {
	var missing []string
	for _, field := range []struct{ name, value string }{
		{"platform", f.Platform},
		{"action", f.Action},
		{"actor", f.Actor},
		{"target", f.Target},
		{"walletAddress", f.WalletAddress},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return apperr.Validation("missing required fields: %s", strings.Join(missing, ", "))
	}
	if f.Timestamp <= 0 {
		return apperr.Validation("timestamp must be a positive number")
	}
	if !verify.IsValidAddress(f.WalletAddress) {
		return apperr.Validation("invalid wallet address %q", f.WalletAddress)
	}
	return nil
}

func observedTarget(action, targetID string) string {
	switch action {
	case models.ActionLike:
		return "track:" + targetID
	case models.ActionFollow:
		return "user:" + targetID
	default:
		return targetID
	}
}

func providerReceipt(platform, action string, now time.Time) string {
	prefix := strings.ToLower(platform)
	if prefix == "soundcloud" {
		prefix = "sc"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%d_%s", prefix, strings.ToLower(action), now.UnixMilli(), suffix)
}
