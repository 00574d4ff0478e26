package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dojo-go-api/internal/dto"
	"github.com/noah-isme/dojo-go-api/internal/service"
	"github.com/noah-isme/dojo-go-api/internal/session"
	"github.com/noah-isme/dojo-go-api/internal/utils"
)

// SessionHandler exposes per-task working session endpoints.
type SessionHandler struct {
	service   service.SessionService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(service service.SessionService, validator *validator.Validate, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "session_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Post("/tasks/:id/session", h.open)
	router.Delete("/tasks/:id/session", h.reset)
	router.Get("/tasks/:id/session", h.get)
}

func (h *SessionHandler) open(c *fiber.Ctx) error {
	taskID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var payload dto.SessionOpenRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	state, err := h.service.Open(c.Context(), studentID, taskID, session.Mode(payload.Mode), payload.Bet)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "session opened", dto.NewSessionResponse(taskID, state))
}

func (h *SessionHandler) reset(c *fiber.Ctx) error {
	taskID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	if err := h.service.Reset(c.Context(), studentID, taskID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "session reset", nil)
}

func (h *SessionHandler) get(c *fiber.Ctx) error {
	taskID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	state, ok := h.service.Get(studentID, taskID)
	if !ok {
		return utils.SendError(c, fiber.StatusNotFound, "no open session")
	}

	return utils.SendSuccess(c, "session retrieved", dto.NewSessionResponse(taskID, state))
}

func (h *SessionHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "task not found")
	case errors.Is(err, service.ErrSessionExists):
		return utils.SendError(c, fiber.StatusConflict, "session already open")
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "no open session")
	case errors.Is(err, service.ErrInsufficientFunds):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "insufficient points")
	case errors.Is(err, service.ErrInvalidAmount):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid bet")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("session operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
