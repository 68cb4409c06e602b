package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/timberline-supply/storefront/internal/quote"
	"github.com/timberline-supply/storefront/pkg/model"
)

// QuoteSubmitter is the orchestrator surface the handler needs.
type QuoteSubmitter interface {
	Submit(ctx context.Context, req *model.QuoteRequest) (*quote.Result, error)
}

// QuoteHandler handles quote submission requests.
type QuoteHandler struct {
	logger  *zap.Logger
	service QuoteSubmitter
}

// NewQuoteHandler creates a QuoteHandler.
func NewQuoteHandler(logger *zap.Logger, service QuoteSubmitter) *QuoteHandler {
	return &QuoteHandler{logger: logger, service: service}
}

// SubmitOrder handles a storefront quote submission.
// POST /submit-order
func (h *QuoteHandler) SubmitOrder(c *fiber.Ctx) error {
	var req model.QuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request body",
		})
	}

	res, err := h.service.Submit(c.UserContext(), &req)
	if err != nil {
		switch {
		case errors.Is(err, quote.ErrEmptySubmission):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		case errors.Is(err, quote.ErrDuplicateSubmission):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		default:
			// Fatal gateway failure: the order was never created.
			h.logger.Error("api.submit_failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   "order could not be created",
			})
		}
	}

	return c.Status(fiber.StatusOK).JSON(res)
}
