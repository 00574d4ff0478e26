package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dojo-go-api/internal/dto"
	"github.com/noah-isme/dojo-go-api/internal/service"
	"github.com/noah-isme/dojo-go-api/internal/utils"
)

// EconomyHandler exposes the points balance, daily spin, and gamble endpoints.
type EconomyHandler struct {
	service   service.EconomyService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewEconomyHandler constructs the handler.
func NewEconomyHandler(service service.EconomyService, validator *validator.Validate, logger zerolog.Logger) *EconomyHandler {
	return &EconomyHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "economy_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group.
func (h *EconomyHandler) Register(router fiber.Router) {
	router.Get("/balance", h.balance)
	router.Post("/spin", h.spin)
	router.Post("/gamble", h.gamble)
}

func (h *EconomyHandler) balance(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	balance, err := h.service.Balance(c.Context(), studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "balance retrieved", dto.BalanceResponse{
		StudentID: studentID,
		Balance:   balance,
	})
}

func (h *EconomyHandler) spin(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	result, err := h.service.DailySpin(c.Context(), studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	requestLogger(h.logger, c).Info().
		Uint("student_id", studentID).
		Int64("delta", result.Delta).
		Msg("daily spin")

	return utils.SendSuccess(c, "spin complete", result)
}

func (h *EconomyHandler) gamble(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var payload dto.GambleRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Gamble(c.Context(), studentID, payload.Amount)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "gamble resolved", result)
}

func (h *EconomyHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.Is(err, service.ErrInsufficientFunds):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "insufficient points")
	case errors.Is(err, service.ErrAlreadySpunToday):
		return utils.SendError(c, fiber.StatusConflict, "already spun today")
	case errors.Is(err, service.ErrInvalidAmount):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid amount")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("economy operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
