package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eventhub/backend/internal/apperr"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/repositories"
	"github.com/eventhub/backend/internal/verify"
	"go.uber.org/zap"
)

// ReceiverService keeps the creator id -> payout address registry.
type ReceiverService struct {
	claimRepo repositories.ClaimStore
	log       *zap.Logger
}

func NewReceiverService(stores repositories.Stores, log *zap.Logger) *ReceiverService {
	return &ReceiverService{claimRepo: stores.Claims, log: log}
}

type ClaimInput struct {
	ExternalID      string
	ReceiverAddress string
	ClaimedBy       string
}

// Claim registers or replaces the payout address for an external id.
func (s *ReceiverService) Claim(ctx context.Context, in ClaimInput) (*models.ReceiverClaim, error) {
	externalID := strings.TrimSpace(in.ExternalID)
	if externalID == "" || in.ReceiverAddress == "" {
		return nil, apperr.Validation("missing required fields: externalId, receiverAddress")
	}
	if !verify.IsValidAddress(in.ReceiverAddress) {
		return nil, apperr.Validation("invalid receiver address %q", in.ReceiverAddress)
	}

	claim := &models.ReceiverClaim{
		ExternalID:      externalID,
		ReceiverAddress: in.ReceiverAddress,
		ClaimedBy:       strings.ToLower(in.ClaimedBy),
	}
	if err := s.claimRepo.Upsert(ctx, claim); err != nil {
		return nil, apperr.Internal(fmt.Errorf("save claim: %w", err))
	}

	s.log.Info("receiver claim saved",
		zap.String("external_id", claim.ExternalID),
		zap.String("receiver", claim.ReceiverAddress),
		zap.String("claimed_by", claim.ClaimedBy),
	)
	return claim, nil
}

// Resolve returns the claim for externalID or a NotFound error meaning
// "no claim, use the default recipient".
func (s *ReceiverService) Resolve(ctx context.Context, externalID string) (*models.ReceiverClaim, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, apperr.Validation("externalId is required")
	}
	claim, ok, err := s.lookup(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("no claim for %s", externalID)
	}
	return claim, nil
}

func (s *ReceiverService) List(ctx context.Context) ([]models.ReceiverClaim, error) {
	claims, err := s.claimRepo.List(ctx)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list claims: %w", err))
	}
	return claims, nil
}

func (s *ReceiverService) lookup(ctx context.Context, externalID string) (*models.ReceiverClaim, bool, error) {
	claim, err := s.claimRepo.Get(ctx, strings.TrimSpace(externalID))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperr.Internal(fmt.Errorf("get claim: %w", err))
	}
	return claim, true, nil
}
