package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/studiora/studiora-api/internal/dto"
	"github.com/studiora/studiora-api/internal/service"
	"github.com/studiora/studiora-api/internal/utils"
)

// ModuleHandler manages module endpoints.
type ModuleHandler struct {
	service service.ModuleService
	logger  zerolog.Logger
}

// NewModuleHandler builds a module handler instance.
func NewModuleHandler(service service.ModuleService, logger zerolog.Logger) *ModuleHandler {
	return &ModuleHandler{
		service: service,
		logger:  logger.With().Str("component", "module_handler").Logger(),
	}
}

// Register attaches module routes to the provided router group.
func (h *ModuleHandler) Register(router fiber.Router) {
	router.Get("", h.listAll)
	router.Get("/:id", h.get)
	router.Post("/:id/complete", h.complete)
}

// RegisterCourseRoutes attaches the course-scoped module routes.
func (h *ModuleHandler) RegisterCourseRoutes(router fiber.Router) {
	router.Post("/:courseID/modules/generate", h.generate)
	router.Get("/:courseID/modules", h.listByCourse)
}

func (h *ModuleHandler) generate(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	modules, err := h.service.Generate(c.Context(), courseID, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "modules generated", modules)
}

func (h *ModuleHandler) listByCourse(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	modules, err := h.service.ListByCourse(c.Context(), courseID, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "modules retrieved", modules)
}

func (h *ModuleHandler) listAll(c *fiber.Ctx) error {
	filter := dto.ModuleListFilter{Search: c.Query("search")}

	var err error
	if filter.Page, err = parseQueryInt(c, "page"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	if filter.PageSize, err = parseQueryInt(c, "page_size"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}

	modules, meta, err := h.service.ListAll(c.Context(), userIDFromContext(c), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "modules retrieved", fiber.Map{"modules": modules, "meta": meta})
}

func (h *ModuleHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	module, err := h.service.Get(c.Context(), id, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "module retrieved", module)
}

func (h *ModuleHandler) complete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	module, err := h.service.Complete(c.Context(), id, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "module completed", module)
}

func (h *ModuleHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrModuleNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "module not found")
	case errors.Is(err, service.ErrModuleAlreadyCompleted):
		return utils.SendError(c, fiber.StatusConflict, "module already completed")
	case errors.Is(err, service.ErrNoUnprocessedMaterials):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "no unprocessed materials available")
	case errors.Is(err, service.ErrNoExtractedText):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "failed to extract text from materials")
	case errors.Is(err, service.ErrInvalidAIPayload):
		return utils.SendError(c, fiber.StatusBadGateway, "module generation failed")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
