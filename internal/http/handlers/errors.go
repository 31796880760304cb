package handlers

import (
	"github.com/eventhub/backend/internal/apperr"
	"github.com/eventhub/backend/internal/http/dto"
	"github.com/eventhub/backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindAuthentication:
		return fiber.StatusUnauthorized
	case apperr.KindConflict:
		return fiber.StatusConflict
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindExternal:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError renders a service error. Internal causes are logged, never sent.
func writeError(c *fiber.Ctx, log *zap.Logger, err error) error {
	kind := apperr.KindOf(err)
	reqID, _ := c.Locals(middleware.CtxRequestID).(string)

	resp := dto.ErrorResponse{
		Error:         err.Error(),
		Kind:          string(kind),
		CurrentStatus: apperr.CurrentStatus(err),
		RequestID:     reqID,
	}

	switch kind {
	case apperr.KindInternal:
		log.Error("request failed", zap.String("request_id", reqID), zap.String("path", c.Path()), zap.Error(err))
		resp.Error = "internal error"
	case apperr.KindAuthentication:
		log.Warn("authentication rejected", zap.String("request_id", reqID), zap.String("path", c.Path()), zap.String("ip", c.IP()))
	case apperr.KindExternal:
		log.Warn("external dependency failed", zap.String("request_id", reqID), zap.Error(err))
	}

	return c.Status(statusForKind(kind)).JSON(resp)
}

func badRequest(c *fiber.Ctx, msg string) error {
	reqID, _ := c.Locals(middleware.CtxRequestID).(string)
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error:     msg,
		Kind:      string(apperr.KindValidation),
		RequestID: reqID,
	})
}

func forbidden(c *fiber.Ctx, msg string) error {
	reqID, _ := c.Locals(middleware.CtxRequestID).(string)
	return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
		Error:     msg,
		Kind:      "forbidden",
		RequestID: reqID,
	})
}
