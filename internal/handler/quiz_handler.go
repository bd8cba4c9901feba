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

// QuizHandler manages quiz, attempt, and report endpoints.
type QuizHandler struct {
	service service.QuizService
	logger  zerolog.Logger
}

// NewQuizHandler builds a quiz handler instance.
func NewQuizHandler(service service.QuizService, logger zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		service: service,
		logger:  logger.With().Str("component", "quiz_handler").Logger(),
	}
}

// Register attaches quiz routes to the provided router group.
func (h *QuizHandler) Register(router fiber.Router) {
	router.Get("", h.listByUser)
	router.Get("/:id", h.get)
	router.Post("/:id/submit", h.submit)
	router.Get("/:id/report", h.report)
}

// RegisterModuleRoutes attaches the module-scoped quiz routes.
func (h *QuizHandler) RegisterModuleRoutes(router fiber.Router) {
	router.Post("/:moduleID/quizzes/generate", h.generate)
	router.Get("/:moduleID/quizzes", h.listByModule)
	router.Post("/:moduleID/topics/:topicID/quiz", h.generateForTopic)
}

// RegisterCourseRoutes attaches the course-scoped quiz routes.
func (h *QuizHandler) RegisterCourseRoutes(router fiber.Router) {
	router.Get("/:courseID/quizzes", h.listByCourse)
}

func (h *QuizHandler) generate(c *fiber.Ctx) error {
	moduleID, err := parseUintParam(c, "moduleID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	quiz, err := h.service.Generate(c.Context(), moduleID, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "quiz generated", quiz)
}

func (h *QuizHandler) generateForTopic(c *fiber.Ctx) error {
	moduleID, err := parseUintParam(c, "moduleID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	topicID, err := parseUintParam(c, "topicID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	quiz, err := h.service.GenerateForTopic(c.Context(), moduleID, topicID, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "adaptive quiz generated", quiz)
}

func (h *QuizHandler) listByModule(c *fiber.Ctx) error {
	moduleID, err := parseUintParam(c, "moduleID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	quizzes, err := h.service.ListByModule(c.Context(), moduleID, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "quizzes retrieved", quizzes)
}

func (h *QuizHandler) listByCourse(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	quizzes, err := h.service.ListByCourse(c.Context(), courseID, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "quizzes retrieved", quizzes)
}

func (h *QuizHandler) listByUser(c *fiber.Ctx) error {
	var filter dto.QuizListFilter

	var err error
	if filter.Page, err = parseQueryInt(c, "page"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	if filter.PageSize, err = parseQueryInt(c, "page_size"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}

	quizzes, meta, err := h.service.ListByUser(c.Context(), userIDFromContext(c), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "quizzes retrieved", fiber.Map{"quizzes": quizzes, "meta": meta})
}

func (h *QuizHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	quiz, err := h.service.Get(c.Context(), id, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "quiz retrieved", quiz)
}

func (h *QuizHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.QuizSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	payload.UserID = userIDFromContext(c)

	result, err := h.service.Submit(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "quiz attempt recorded", result)
}

func (h *QuizHandler) report(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := h.service.GetReport(c.Context(), id, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "report retrieved", report)
}

func (h *QuizHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "course not found")
	case errors.Is(err, service.ErrModuleNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "module not found")
	case errors.Is(err, service.ErrQuizNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "quiz not found")
	case errors.Is(err, service.ErrReportNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "report not found")
	case errors.Is(err, service.ErrTopicNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "recommendation topic not found")
	case errors.Is(err, service.ErrTopicAlreadyGenerated):
		return utils.SendError(c, fiber.StatusConflict, "quiz already generated for topic")
	case errors.Is(err, service.ErrQuizLimitReached):
		return utils.SendError(c, fiber.StatusConflict, "maximum number of quizzes reached")
	case errors.Is(err, service.ErrConcurrentSubmission):
		return utils.SendError(c, fiber.StatusConflict, "concurrent submission, please retry")
	case errors.Is(err, service.ErrInvalidAIPayload):
		return utils.SendError(c, fiber.StatusBadGateway, "quiz generation failed")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
