package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ipes/ipes-go-api/internal/dto"
	"github.com/ipes/ipes-go-api/internal/middleware"
	"github.com/ipes/ipes-go-api/internal/service"
	"github.com/ipes/ipes-go-api/internal/utils"
)

// ExamRegistrationHandler commits exam board registrations and records outcomes.
type ExamRegistrationHandler struct {
	service   service.ExamRegistrationService
	validator *utils.Validator
	logger    zerolog.Logger
}

// NewExamRegistrationHandler constructs the handler.
func NewExamRegistrationHandler(service service.ExamRegistrationService, validator *utils.Validator, logger zerolog.Logger) *ExamRegistrationHandler {
	return &ExamRegistrationHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "exam_registration_handler").Logger(),
	}
}

// RegisterStudentRoutes attaches the registration route to a "/students/:studentId" group.
func (h *ExamRegistrationHandler) RegisterStudentRoutes(router fiber.Router) {
	router.Post("/exam-registrations", h.register)
}

// RegisterStaffRoutes attaches the outcome route to an "/exam-registrations" group.
func (h *ExamRegistrationHandler) RegisterStaffRoutes(router fiber.Router) {
	router.Patch("/:id/outcome", h.recordOutcome)
}

func (h *ExamRegistrationHandler) register(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student id")
	}

	var payload dto.ExamRegistrationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Register(c.UserContext(), actor, studentID, payload)
	if err != nil {
		return sendServiceError(c, h.logger, h.validator, err, "failed to register for exam")
	}

	switch {
	case !result.Eligibility.Allowed:
		return utils.Respond(c, fiber.StatusUnprocessableEntity, result, "exam registration denied", nil)
	case result.Created:
		return utils.Respond(c, fiber.StatusCreated, result, "exam registration created", nil)
	default:
		return utils.SendSuccess(c, "exam registration already exists", result)
	}
}

func (h *ExamRegistrationHandler) recordOutcome(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	registrationID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid exam registration id")
	}

	var payload dto.ExamOutcomeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	registration, err := h.service.RecordOutcome(c.UserContext(), actor, registrationID, payload)
	if err != nil {
		return sendServiceError(c, h.logger, h.validator, err, "failed to record exam outcome")
	}

	return utils.SendSuccess(c, "exam outcome recorded", registration)
}
