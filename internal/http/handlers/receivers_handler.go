package handlers

import (
	"github.com/eventhub/backend/internal/apperr"
	"github.com/eventhub/backend/internal/http/dto"
	"github.com/eventhub/backend/internal/middleware"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ReceiverHandler struct {
	receiverService *services.ReceiverService
	log             *zap.Logger
}

func NewReceiverHandler(receiverService *services.ReceiverService, log *zap.Logger) *ReceiverHandler {
	return &ReceiverHandler{receiverService: receiverService, log: log}
}

func (h *ReceiverHandler) Claim(c *fiber.Ctx) error {
	var req dto.ClaimReceiverRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	claim, err := h.receiverService.Claim(c.UserContext(), services.ClaimInput{
		ExternalID:      req.ID(),
		ReceiverAddress: req.ReceiverAddress,
		ClaimedBy:       middleware.GetWallet(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: claim})
}

// Resolve answers 404 with source "default" when nobody claimed the id, so
// payers know to fall back to the platform recipient.
func (h *ReceiverHandler) Resolve(c *fiber.Ctx) error {
	externalID := c.Query("externalId")
	if externalID == "" {
		externalID = c.Query("soundcloudUserId")
	}
	if externalID == "" {
		return badRequest(c, "externalId query parameter is required")
	}

	claim, err := h.receiverService.Resolve(c.UserContext(), externalID)
	if apperr.Is(err, apperr.KindNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ResolveReceiverResponse{
			ExternalID: externalID,
			Source:     models.RecipientSourceDefault,
		})
	}
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ResolveReceiverResponse{
		ExternalID:      claim.ExternalID,
		ReceiverAddress: &claim.ReceiverAddress,
		Source:          models.RecipientSourceClaim,
	})
}

func (h *ReceiverHandler) List(c *fiber.Ctx) error {
	claims, err := h.receiverService.List(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.ReceiverListResponse{
		Claims: claims,
		Total:  len(claims),
	}})
}
