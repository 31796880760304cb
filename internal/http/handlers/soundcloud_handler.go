package handlers

import (
	"github.com/eventhub/backend/internal/http/dto"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const platformSoundCloud = "soundcloud"

// SoundCloudHandler accepts actions observed by the SoundCloud integration.
// Events are stored unsigned and must be confirmed by the wallet.
type SoundCloudHandler struct {
	eventService *services.EventService
	log          *zap.Logger
}

func NewSoundCloudHandler(eventService *services.EventService, log *zap.Logger) *SoundCloudHandler {
	return &SoundCloudHandler{eventService: eventService, log: log}
}

func (h *SoundCloudHandler) Like(c *fiber.Ctx) error {
	return h.observe(c, models.ActionLike)
}

func (h *SoundCloudHandler) Follow(c *fiber.Ctx) error {
	return h.observe(c, models.ActionFollow)
}

func (h *SoundCloudHandler) observe(c *fiber.Ctx, action string) error {
	var req dto.ObservedActionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	e, err := h.eventService.SubmitObserved(c.UserContext(), services.ObservedActionInput{
		Platform:          platformSoundCloud,
		Action:            action,
		TargetID:          req.TargetID,
		WalletAddress:     req.WalletAddress,
		ExternalAccountID: req.SoundcloudUserID,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: dto.NewEventView(e)})
}
