package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eventhub/backend/internal/apperr"
	"github.com/eventhub/backend/internal/auth"
	"github.com/eventhub/backend/internal/config"
	"github.com/eventhub/backend/internal/metrics"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/repositories"
	"github.com/eventhub/backend/internal/verify"
	"go.uber.org/zap"
)

// AuthService issues session tokens to wallets that sign a one-shot nonce.
type AuthService struct {
	nonceRepo repositories.NonceStore
	jwtSecret string
	jwtTTL    time.Duration
	nonceTTL  time.Duration
	log       *zap.Logger
}

func NewAuthService(stores repositories.Stores, cfg *config.Config, log *zap.Logger) *AuthService {
	return &AuthService{
		nonceRepo: stores.Nonces,
		jwtSecret: cfg.JWTSecret,
		jwtTTL:    cfg.JWTExpiration,
		nonceTTL:  cfg.AuthNonceTTL,
		log:       log,
	}
}

type LoginChallenge struct {
	Nonce   *models.AuthNonce
	Message string
}

type LoginResult struct {
	Token  string
	Wallet string
}

// CreateChallenge returns a fresh nonce and the exact message to sign.
func (s *AuthService) CreateChallenge(ctx context.Context, wallet string) (*LoginChallenge, error) {
	if !verify.IsValidAddress(wallet) {
		return nil, apperr.Validation("invalid wallet address %q", wallet)
	}
	n, err := s.nonceRepo.Create(ctx, wallet, s.nonceTTL)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("create nonce: %w", err))
	}
	return &LoginChallenge{
		Nonce:   n,
		Message: verify.LoginMessage(verify.NormalizeAddress(wallet), n.Nonce),
	}, nil
}

// Login consumes the nonce before checking the signature, so a rejected
// attempt cannot be replayed with another signature.
func (s *AuthService) Login(ctx context.Context, wallet, nonce, signature string) (*LoginResult, error) {
	if !verify.IsValidAddress(wallet) {
		return nil, apperr.Validation("invalid wallet address %q", wallet)
	}
	if nonce == "" || signature == "" {
		return nil, apperr.Validation("missing required fields: nonce, signature")
	}

	if _, err := s.nonceRepo.Consume(ctx, nonce, wallet); err != nil {
		if errors.Is(err, repositories.ErrNonceInvalid) {
			metrics.Lifecycle().RecordAuthFailure("login_nonce")
			return nil, apperr.Authentication("login challenge invalid or expired")
		}
		return nil, apperr.Internal(fmt.Errorf("consume nonce: %w", err))
	}

	normalized := verify.NormalizeAddress(wallet)
	if !verify.Verify(verify.LoginMessage(normalized, nonce), signature, wallet) {
		metrics.Lifecycle().RecordAuthFailure("login")
		s.log.Warn("login signature rejected", zap.String("wallet", normalized))
		return nil, apperr.Authentication("signature verification failed")
	}

	token, err := auth.GenerateJWT(s.jwtSecret, normalized, s.jwtTTL)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("generate jwt: %w", err))
	}
	s.log.Info("wallet logged in", zap.String("wallet", normalized))
	return &LoginResult{Token: token, Wallet: normalized}, nil
}
