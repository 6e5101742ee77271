package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ipes/ipes-go-api/internal/dto"
	"github.com/ipes/ipes-go-api/internal/middleware"
	"github.com/ipes/ipes-go-api/internal/service"
	"github.com/ipes/ipes-go-api/internal/utils"
)

// EnrollmentHandler commits subject enrollments.
type EnrollmentHandler struct {
	service   service.EnrollmentService
	validator *utils.Validator
	logger    zerolog.Logger
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(service service.EnrollmentService, validator *utils.Validator, logger zerolog.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "enrollment_handler").Logger(),
	}
}

// Register attaches the routes to a "/students/:studentId" group.
func (h *EnrollmentHandler) Register(router fiber.Router) {
	router.Post("/enrollments", h.enroll)
}

func (h *EnrollmentHandler) enroll(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student id")
	}

	var payload dto.EnrollmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Enroll(c.UserContext(), actor, studentID, payload)
	if err != nil {
		return sendServiceError(c, h.logger, h.validator, err, "failed to enroll student")
	}

	switch {
	case !result.Eligibility.Allowed:
		return utils.Respond(c, fiber.StatusUnprocessableEntity, result, "enrollment denied", nil)
	case result.Created:
		requestLogger(h.logger, c).Info().
			Uint("student_id", studentID).
			Uint("subject_id", payload.SubjectID).
			Int("academic_year", payload.AcademicYear).
			Msg("enrollment created")
		return utils.Respond(c, fiber.StatusCreated, result, "enrollment created", nil)
	default:
		return utils.SendSuccess(c, "enrollment already exists", result)
	}
}
