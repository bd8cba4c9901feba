package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/studiora/studiora-api/internal/dto"
	"github.com/studiora/studiora-api/internal/models"
	"github.com/studiora/studiora-api/internal/repository"
	"github.com/studiora/studiora-api/pkg/ai"
	"github.com/studiora/studiora-api/pkg/extract"
)

// ModuleService generates and serves course modules.
type ModuleService interface {
	Generate(ctx context.Context, courseID, userID uint) ([]dto.ModuleResponse, error)
	Get(ctx context.Context, id, userID uint) (dto.ModuleResponse, error)
	ListByCourse(ctx context.Context, courseID, userID uint) ([]dto.ModuleResponse, error)
	ListAll(ctx context.Context, userID uint, filter dto.ModuleListFilter) ([]dto.ModuleResponse, dto.PageMeta, error)
	Complete(ctx context.Context, id, userID uint) (dto.ModuleResponse, error)
}

type moduleService struct {
	modules    repository.ModuleRepository
	courses    repository.CourseRepository
	materials  repository.MaterialRepository
	generator  ai.Generator
	extractor  extract.Extractor
	aggregator GradeAggregator
	validator  *validator.Validate
	logger     zerolog.Logger
	now        func() time.Time
}

// NewModuleService constructs a ModuleService instance.
func NewModuleService(moduleRepo repository.ModuleRepository, courseRepo repository.CourseRepository, materialRepo repository.MaterialRepository, generator ai.Generator, extractor extract.Extractor, aggregator GradeAggregator, validate *validator.Validate, logger zerolog.Logger) ModuleService {
	return &moduleService{
		modules:    moduleRepo,
		courses:    courseRepo,
		materials:  materialRepo,
		generator:  generator,
		extractor:  extractor,
		aggregator: aggregator,
		validator:  validate,
		logger:     logger.With().Str("component", "module_service").Logger(),
		now:        time.Now,
	}
}

// Generate drains the course's unprocessed materials into new modules.
// Materials that yield no text are skipped but still marked processed, so a
// broken link cannot wedge the queue. New modules continue the existing
// sequence; repeated calls append rather than replace.
func (s *moduleService) Generate(ctx context.Context, courseID, userID uint) ([]dto.ModuleResponse, error) {
	course, err := s.ownedCourse(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}

	pending, err := s.materials.ListUnprocessed(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, ErrNoUnprocessedMaterials
	}

	var texts []string
	var processedIDs []uint
	for _, material := range pending {
		processedIDs = append(processedIDs, material.ID)
		if !material.Extractable() {
			continue
		}

		text, err := s.extractor.ExtractText(ctx, material)
		if err != nil {
			s.logger.Warn().Err(err).Uint("material_id", material.ID).Msg("material text extraction failed, skipping")
			continue
		}
		texts = append(texts, fmt.Sprintf("--- %s ---\n%s", material.Title, text))
	}

	if len(texts) == 0 {
		return nil, ErrNoExtractedText
	}

	existing, err := s.modules.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	existingTitles := make([]string, 0, len(existing))
	for _, module := range existing {
		existingTitles = append(existingTitles, module.Title)
	}

	prompt := buildModulePrompt(course, strings.Join(texts, "\n\n"), existingTitles)
	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate modules: %w", err)
	}

	payload, err := ai.ExtractJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAIPayload, err)
	}

	var generated []generatedModule
	if err := validatePayload(moduleListSchema, payload, &generated); err != nil {
		return nil, err
	}

	sequence := len(existing)
	created := make([]models.Module, 0, len(generated))
	for _, item := range generated {
		sequence++
		module := models.Module{
			CourseID:    courseID,
			Title:       item.Title,
			Description: item.Description,
			KeyPoints:   item.KeyPoints,
			Sequence:    sequence,
			Timeline:    item.Timeline,
			Status:      models.StatusNew,
		}
		if err := s.modules.Create(ctx, &module); err != nil {
			return nil, err
		}
		created = append(created, module)
	}

	if err := s.materials.MarkProcessed(ctx, processedIDs); err != nil {
		return nil, err
	}

	if err := s.aggregator.RecalculateCourseGrade(ctx, courseID); err != nil {
		s.logger.Error().Err(err).Uint("course_id", courseID).Msg("failed to refresh course summary after module generation")
	}

	s.logger.Info().Uint("course_id", courseID).Int("modules", len(created)).Msg("modules generated")

	return dto.NewModuleResponseSlice(created, s.now()), nil
}

func (s *moduleService) Get(ctx context.Context, id, userID uint) (dto.ModuleResponse, error) {
	module, err := s.ownedModule(ctx, id, userID)
	if err != nil {
		return dto.ModuleResponse{}, err
	}

	if module.Refresh(s.now()) {
		if err := s.modules.UpdateStatus(ctx, module.ID, module.Status); err != nil {
			return dto.ModuleResponse{}, err
		}
	}

	return dto.NewModuleResponse(module, s.now()), nil
}

func (s *moduleService) ListByCourse(ctx context.Context, courseID, userID uint) ([]dto.ModuleResponse, error) {
	if _, err := s.ownedCourse(ctx, courseID, userID); err != nil {
		return nil, err
	}

	modules, err := s.modules.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for i := range modules {
		if modules[i].Refresh(now) {
			if err := s.modules.UpdateStatus(ctx, modules[i].ID, modules[i].Status); err != nil {
				return nil, err
			}
		}
	}

	return dto.NewModuleResponseSlice(modules, now), nil
}

func (s *moduleService) ListAll(ctx context.Context, userID uint, filter dto.ModuleListFilter) ([]dto.ModuleResponse, dto.PageMeta, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, dto.PageMeta{}, err
	}

	courses, _, err := s.courses.ListByUser(ctx, userID, repository.CourseFilter{})
	if err != nil {
		return nil, dto.PageMeta{}, err
	}

	courseIDs := make([]uint, 0, len(courses))
	for _, course := range courses {
		courseIDs = append(courseIDs, course.ID)
	}

	modules, total, err := s.modules.ListByCourses(ctx, courseIDs, repository.ModuleFilter{
		Search:   filter.Search,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
	if err != nil {
		return nil, dto.PageMeta{}, err
	}

	now := s.now()
	for i := range modules {
		if modules[i].Refresh(now) {
			if err := s.modules.UpdateStatus(ctx, modules[i].ID, modules[i].Status); err != nil {
				return nil, dto.PageMeta{}, err
			}
		}
	}

	meta := dto.PageMeta{Page: filter.Page, PageSize: filter.PageSize, Total: total}
	if meta.Page <= 0 {
		meta.Page = 1
	}

	return dto.NewModuleResponseSlice(modules, now), meta, nil
}

// Complete marks the module completed exactly once, then refreshes the
// course summary. When this was the last open module the course itself is
// completed.
func (s *moduleService) Complete(ctx context.Context, id, userID uint) (dto.ModuleResponse, error) {
	module, err := s.ownedModule(ctx, id, userID)
	if err != nil {
		return dto.ModuleResponse{}, err
	}

	completed, err := s.modules.MarkCompleted(ctx, id)
	if err != nil {
		return dto.ModuleResponse{}, err
	}
	if !completed {
		return dto.ModuleResponse{}, ErrModuleAlreadyCompleted
	}

	module.Status = models.StatusCompleted
	module.IsCompleted = true

	if err := s.aggregator.RecalculateCourseGrade(ctx, module.CourseID); err != nil {
		s.logger.Error().Err(err).Uint("course_id", module.CourseID).Msg("failed to refresh course summary after module completion")
	}

	if err := s.completeCourseIfDone(ctx, module.CourseID); err != nil {
		s.logger.Error().Err(err).Uint("course_id", module.CourseID).Msg("failed to check course completion")
	}

	s.logger.Info().Uint("module_id", id).Msg("module completed")

	return dto.NewModuleResponse(module, s.now()), nil
}

func (s *moduleService) completeCourseIfDone(ctx context.Context, courseID uint) error {
	modules, err := s.modules.ListByCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if len(modules) == 0 {
		return nil
	}

	for _, module := range modules {
		if !module.IsCompleted {
			return nil
		}
	}

	return s.courses.UpdateStatus(ctx, courseID, models.StatusCompleted)
}

func (s *moduleService) ownedCourse(ctx context.Context, courseID, userID uint) (models.Course, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Course{}, ErrCourseNotFound
		}
		return models.Course{}, err
	}
	if course.UserID != userID {
		return models.Course{}, ErrCourseNotFound
	}
	return course, nil
}

func (s *moduleService) ownedModule(ctx context.Context, moduleID, userID uint) (models.Module, error) {
	module, err := s.modules.GetByID(ctx, moduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Module{}, ErrModuleNotFound
		}
		return models.Module{}, err
	}
	if _, err := s.ownedCourse(ctx, module.CourseID, userID); err != nil {
		return models.Module{}, ErrModuleNotFound
	}
	return module, nil
}
