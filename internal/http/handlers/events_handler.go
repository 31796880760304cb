package handlers

import (
	"strconv"
	"strings"

	"github.com/eventhub/backend/internal/http/dto"
	"github.com/eventhub/backend/internal/repositories"
	"github.com/eventhub/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type EventHandler struct {
	eventService *services.EventService
	log          *zap.Logger
}

func NewEventHandler(eventService *services.EventService, log *zap.Logger) *EventHandler {
	return &EventHandler{eventService: eventService, log: log}
}

func (h *EventHandler) SubmitEvent(c *fiber.Ctx) error {
	var req dto.SubmitEventRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	e, err := h.eventService.SubmitSigned(c.UserContext(), services.SubmitEventInput{
		Platform:      req.Platform,
		Action:        req.Action,
		Actor:         req.Actor,
		Target:        req.Target,
		Timestamp:     req.Timestamp,
		WalletAddress: req.WalletAddress,
		Signature:     req.Signature,
		Metadata:      req.Metadata,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: dto.NewEventView(e)})
}

func (h *EventHandler) ListEvents(c *fiber.Ctx) error {
	var f repositories.EventFilter
	if s := c.Query("status"); s != "" {
		f.Status = &s
	}
	if w := c.Query("wallet"); w != "" {
		f.Wallet = &w
	}
	if a := c.Query("action"); a != "" {
		a = strings.ToUpper(a)
		f.Action = &a
	}
	f.Limit = c.QueryInt("limit", 0)
	f.Offset = c.QueryInt("offset", 0)

	list, err := h.eventService.List(c.UserContext(), f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	total, err := h.eventService.Count(c.UserContext(), f)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.EventListResponse{
		Count:  len(list),
		Total:  total,
		Events: dto.NewEventViews(list),
	}})
}

func (h *EventHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.eventService.Stats(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: stats})
}

func (h *EventHandler) GetEvent(c *fiber.Ctx) error {
	id, err := eventID(c)
	if err != nil {
		return badRequest(c, "invalid event id")
	}
	e, err := h.eventService.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.NewEventView(e)})
}

func (h *EventHandler) GetHistory(c *fiber.Ctx) error {
	id, err := eventID(c)
	if err != nil {
		return badRequest(c, "invalid event id")
	}
	logs, err := h.eventService.History(c.UserContext(), id, c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: logs})
}

func (h *EventHandler) ConfirmEvent(c *fiber.Ctx) error {
	id, err := eventID(c)
	if err != nil {
		return badRequest(c, "invalid event id")
	}
	var req dto.ConfirmEventRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	e, err := h.eventService.Confirm(c.UserContext(), id, req.Signature)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.NewEventView(e)})
}

func eventID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err == nil && id <= 0 {
		err = strconv.ErrRange
	}
	return id, err
}
