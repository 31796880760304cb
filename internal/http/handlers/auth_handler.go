package handlers

import (
	"github.com/eventhub/backend/internal/http/dto"
	"github.com/eventhub/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *services.AuthService
	log         *zap.Logger
}

func NewAuthHandler(authService *services.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

// Nonce hands out a login challenge for the wallet to sign.
func (h *AuthHandler) Nonce(c *fiber.Ctx) error {
	var req dto.NonceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	ch, err := h.authService.CreateChallenge(c.UserContext(), req.WalletAddress)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NonceResponse{
		Nonce:     ch.Nonce.Nonce,
		Message:   ch.Message,
		ExpiresAt: ch.Nonce.ExpiresAt,
	})
}

func (h *AuthHandler) WalletLogin(c *fiber.Ctx) error {
	var req dto.WalletLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.WalletAddress == "" || req.Nonce == "" || req.Signature == "" {
		return badRequest(c, "walletAddress, nonce and signature are required")
	}

	res, err := h.authService.Login(c.UserContext(), req.WalletAddress, req.Nonce, req.Signature)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.AuthResponse{Token: res.Token, Wallet: res.Wallet})
}
