package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dojo-go-api/internal/dto"
	"github.com/noah-isme/dojo-go-api/internal/service"
	"github.com/noah-isme/dojo-go-api/internal/utils"
	"github.com/noah-isme/dojo-go-api/pkg/ai"
)

// ReviewHandler exposes the staff review endpoints.
type ReviewHandler struct {
	service service.ReviewService
	logger  zerolog.Logger
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(service service.ReviewService, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  logger.With().Str("component", "review_handler").Logger(),
	}
}

// Register wires the handler endpoints into the staff router group.
func (h *ReviewHandler) Register(router fiber.Router) {
	router.Patch("/submissions/:id/review", h.review)
	router.Post("/submissions/:id/feedback-draft", h.draftFeedback)
}

func (h *ReviewHandler) review(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ReviewRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.Review(c.Context(), id, payload, reviewActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission reviewed", submission)
}

func (h *ReviewHandler) draftFeedback(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	draft, err := h.service.DraftFeedback(c.Context(), id, reviewActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "feedback drafted", draft)
}

func (h *ReviewHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrSubmissionForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrInvalidBonus):
		return utils.SendError(c, fiber.StatusBadRequest, "bonus must be positive")
	case errors.Is(err, ai.ErrNotConfigured):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "ai assistant unavailable")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("review operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
