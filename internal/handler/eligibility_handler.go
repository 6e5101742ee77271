package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ipes/ipes-go-api/internal/middleware"
	"github.com/ipes/ipes-go-api/internal/service"
	"github.com/ipes/ipes-go-api/internal/utils"
)

// EligibilityHandler exposes the read-only eligibility queries of a student.
type EligibilityHandler struct {
	service   service.EligibilityService
	validator *utils.Validator
	logger    zerolog.Logger
}

// NewEligibilityHandler constructs the handler.
func NewEligibilityHandler(service service.EligibilityService, validator *utils.Validator, logger zerolog.Logger) *EligibilityHandler {
	return &EligibilityHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "eligibility_handler").Logger(),
	}
}

// Register attaches the routes to a "/students/:studentId" group.
func (h *EligibilityHandler) Register(router fiber.Router) {
	router.Get("/subjects/:subjectId/enrollment-eligibility", h.enrollment)
	router.Get("/subjects/:subjectId/correlativities", h.correlativities)
	router.Get("/exam-boards/:boardId/eligibility", h.exam)
	router.Get("/regularities/:regularityId/validity", h.validity)
}

func (h *EligibilityHandler) enrollment(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student id")
	}
	subjectID, err := parseUintParam(c, "subjectId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid subject id")
	}
	year, err := parseQueryInt(c, "year")
	if err != nil || year == 0 {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", map[string]string{"year": "year is required"})
	}

	verdict, err := h.service.EnrollmentEligibility(c.UserContext(), actor, studentID, subjectID, year)
	if err != nil {
		return sendServiceError(c, h.logger, h.validator, err, "failed to evaluate enrollment eligibility")
	}

	return utils.SendSuccess(c, "enrollment eligibility evaluated", verdict)
}

func (h *EligibilityHandler) exam(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student id")
	}
	boardID, err := parseUintParam(c, "boardId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid exam board id")
	}

	verdict, err := h.service.ExamEligibility(c.UserContext(), actor, studentID, boardID)
	if err != nil {
		return sendServiceError(c, h.logger, h.validator, err, "failed to evaluate exam eligibility")
	}

	return utils.SendSuccess(c, "exam eligibility evaluated", verdict)
}

func (h *EligibilityHandler) correlativities(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student id")
	}
	subjectID, err := parseUintParam(c, "subjectId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid subject id")
	}

	resolution, err := h.service.ResolveCorrelativities(c.UserContext(), actor, studentID, subjectID, c.Query("kind"))
	if err != nil {
		return sendServiceError(c, h.logger, h.validator, err, "failed to resolve correlativities")
	}

	return utils.SendSuccess(c, "correlativities resolved", resolution)
}

func (h *EligibilityHandler) validity(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student id")
	}
	regularityID, err := parseUintParam(c, "regularityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid regularity id")
	}

	validity, err := h.service.RegularityValidity(c.UserContext(), actor, studentID, regularityID)
	if err != nil {
		return sendServiceError(c, h.logger, h.validator, err, "failed to compute regularity validity")
	}

	return utils.SendSuccess(c, "regularity validity", validity)
}
