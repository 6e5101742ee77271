package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ipes/ipes-go-api/internal/middleware"
	"github.com/ipes/ipes-go-api/internal/service"
	"github.com/ipes/ipes-go-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(c.Params(key)), 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid " + key)
	}
	return uint(parsed), nil
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func unauthorized(c *fiber.Ctx) error {
	return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// sendServiceError maps service errors onto HTTP statuses. Unknown errors are logged and
// answered with a generic 500.
func sendServiceError(c *fiber.Ctx, logger zerolog.Logger, v *utils.Validator, err error, fallback string) error {
	var domainErr *service.ValidationError
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", v.Details(err))
	case errors.As(err, &domainErr):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", map[string]string{domainErr.Field: domainErr.Message})
	case errors.Is(err, service.ErrForbidden):
		return utils.Fail(c, fiber.StatusForbidden, err.Error(), nil)
	case errors.Is(err, service.ErrStudentNotFound),
		errors.Is(err, service.ErrSubjectNotFound),
		errors.Is(err, service.ErrExamBoardNotFound),
		errors.Is(err, service.ErrRegularityNotFound),
		errors.Is(err, service.ErrExamRegistrationNotFound):
		return utils.Fail(c, fiber.StatusNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrAlreadyApproved):
		return utils.Fail(c, fiber.StatusConflict, err.Error(), nil)
	case errors.Is(err, service.ErrUnsupportedUpload):
		return utils.Fail(c, fiber.StatusUnsupportedMediaType, err.Error(), nil)
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.Fail(c, fiber.StatusRequestEntityTooLarge, err.Error(), nil)
	}

	requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg(fallback)
	return utils.Fail(c, fiber.StatusInternalServerError, fallback, nil)
}
