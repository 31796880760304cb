package handlers

import (
	"strings"

	"github.com/eventhub/backend/internal/http/dto"
	"github.com/eventhub/backend/internal/middleware"
	"github.com/eventhub/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type TippingHandler struct {
	tippingService *services.TippingService
	log            *zap.Logger
}

func NewTippingHandler(tippingService *services.TippingService, log *zap.Logger) *TippingHandler {
	return &TippingHandler{tippingService: tippingService, log: log}
}

func (h *TippingHandler) GetConfig(c *fiber.Ctx) error {
	wallet := c.Query("walletAddress")
	if wallet == "" {
		return badRequest(c, "walletAddress query parameter is required")
	}

	cfg, stored, err := h.tippingService.GetConfig(c.UserContext(), wallet)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.TippingConfigResponse{
		WalletAddress: wallet,
		Config:        cfg,
		IsDefault:     !stored,
	}})
}

// SaveConfig only lets the logged-in wallet write its own config.
func (h *TippingHandler) SaveConfig(c *fiber.Ctx) error {
	var req dto.SaveTippingConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Config == nil {
		return badRequest(c, "config is required")
	}

	wallet := middleware.GetWallet(c)
	if req.WalletAddress == "" {
		req.WalletAddress = wallet
	}
	if !strings.EqualFold(req.WalletAddress, wallet) {
		return forbidden(c, "cannot modify another wallet's tipping config")
	}

	cfg, err := h.tippingService.SaveConfig(c.UserContext(), req.WalletAddress, req.Config)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.TippingConfigResponse{
		WalletAddress: req.WalletAddress,
		Config:        cfg,
	}})
}

func (h *TippingHandler) DeleteConfig(c *fiber.Ctx) error {
	if err := h.tippingService.DeleteConfig(c.UserContext(), middleware.GetWallet(c)); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *TippingHandler) Quote(c *fiber.Ctx) error {
	var req dto.QuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.EventID <= 0 {
		return badRequest(c, "eventId is required")
	}

	q, err := h.tippingService.Quote(c.UserContext(), services.QuoteInput{
		EventID:   req.EventID,
		CreatorID: req.CreatorID,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: q})
}

func (h *TippingHandler) RecordPayment(c *fiber.Ctx) error {
	var req dto.RecordPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	e, err := h.tippingService.RecordPayment(c.UserContext(), services.RecordPaymentInput{
		EventID: req.EventID,
		TxHash:  req.TxHash,
		Amount:  req.Amount,
		Token:   req.Token,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.NewEventView(e)})
}
