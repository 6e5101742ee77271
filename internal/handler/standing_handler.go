package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ipes/ipes-go-api/internal/middleware"
	"github.com/ipes/ipes-go-api/internal/service"
	"github.com/ipes/ipes-go-api/internal/utils"
)

// StandingHandler serves a student's academic standing.
type StandingHandler struct {
	service   service.StandingService
	validator *utils.Validator
	logger    zerolog.Logger
}

// NewStandingHandler constructs the handler.
func NewStandingHandler(service service.StandingService, validator *utils.Validator, logger zerolog.Logger) *StandingHandler {
	return &StandingHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "standing_handler").Logger(),
	}
}

// Register attaches the route to a "/students/:studentId" group.
func (h *StandingHandler) Register(router fiber.Router) {
	router.Get("/standing", h.get)
}

func (h *StandingHandler) get(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student id")
	}

	standing, err := h.service.Get(c.UserContext(), actor, studentID)
	if err != nil {
		return sendServiceError(c, h.logger, h.validator, err, "failed to load standing")
	}

	return utils.SendSuccess(c, "academic standing", standing)
}
