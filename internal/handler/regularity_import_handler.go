package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ipes/ipes-go-api/internal/middleware"
	"github.com/ipes/ipes-go-api/internal/service"
	"github.com/ipes/ipes-go-api/internal/utils"
)

// RegularityImportHandler accepts CSV uploads of course closing records.
type RegularityImportHandler struct {
	service   service.RegularityImportService
	validator *utils.Validator
	logger    zerolog.Logger
}

// NewRegularityImportHandler constructs the handler.
func NewRegularityImportHandler(service service.RegularityImportService, validator *utils.Validator, logger zerolog.Logger) *RegularityImportHandler {
	return &RegularityImportHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "regularity_import_handler").Logger(),
	}
}

// Register attaches the route to a "/regularities" group.
func (h *RegularityImportHandler) Register(router fiber.Router) {
	router.Post("/import", h.importCSV)
}

func (h *RegularityImportHandler) importCSV(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "unable to read file")
	}
	defer file.Close()

	result, err := h.service.Import(c.UserContext(), actor, file)
	if err != nil {
		return sendServiceError(c, h.logger, h.validator, err, "failed to import regularities")
	}

	requestLogger(h.logger, c).Info().
		Str("file", fileHeader.Filename).
		Int("imported", result.Imported).
		Int("failed", result.Failed).
		Msg("regularities imported")

	return utils.SendSuccess(c, "regularities imported", result)
}
