package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ipes/ipes-go-api/internal/dto"
	"github.com/ipes/ipes-go-api/internal/middleware"
	"github.com/ipes/ipes-go-api/internal/service"
	"github.com/ipes/ipes-go-api/internal/utils"
)

// EquivalenceHandler grants subjects by equivalence.
type EquivalenceHandler struct {
	service   service.EquivalenceService
	validator *utils.Validator
	logger    zerolog.Logger
}

// NewEquivalenceHandler constructs the handler.
func NewEquivalenceHandler(service service.EquivalenceService, validator *utils.Validator, logger zerolog.Logger) *EquivalenceHandler {
	return &EquivalenceHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "equivalence_handler").Logger(),
	}
}

// Register attaches the route to a "/students/:studentId" group. Guards run before the
// handler, so staff checks can be added per route.
func (h *EquivalenceHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	handlers := append(append([]fiber.Handler{}, guards...), h.grant)
	router.Post("/equivalences", handlers...)
}

func (h *EquivalenceHandler) grant(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student id")
	}

	var payload dto.EquivalenceRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	equivalence, err := h.service.Grant(c.UserContext(), actor, studentID, payload)
	if err != nil {
		return sendServiceError(c, h.logger, h.validator, err, "failed to grant equivalence")
	}

	return utils.Respond(c, fiber.StatusCreated, equivalence, "equivalence granted", nil)
}
