package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/studiora/studiora-api/internal/dto"
	"github.com/studiora/studiora-api/internal/models"
	"github.com/studiora/studiora-api/internal/repository"
)

// FileUploader pushes an uploaded file to blob storage and returns its
// public URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// CourseService orchestrates course lifecycle and material intake.
type CourseService interface {
	Create(ctx context.Context, payload dto.CourseCreateRequest, files []*multipart.FileHeader) (dto.CourseResponse, error)
	Get(ctx context.Context, id, userID uint) (dto.CourseResponse, error)
	List(ctx context.Context, userID uint, filter dto.CourseListFilter) ([]dto.CourseResponse, dto.PageMeta, error)
	Update(ctx context.Context, id, userID uint, payload dto.CourseUpdateRequest) (dto.CourseResponse, error)
	Delete(ctx context.Context, id, userID uint) error
}

type courseService struct {
	courses   repository.CourseRepository
	materials repository.MaterialRepository
	uploader  FileUploader
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	cache     *redis.Client
	cacheTTL  time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCourseService constructs a CourseService instance.
func NewCourseService(courseRepo repository.CourseRepository, materialRepo repository.MaterialRepository, uploader FileUploader, validate *validator.Validate, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) CourseService {
	return &courseService{
		courses:   courseRepo,
		materials: materialRepo,
		uploader:  uploader,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		cache:     cache,
		cacheTTL:  cacheTTL,
		logger:    logger.With().Str("component", "course_service").Logger(),
		now:       time.Now,
	}
}

func (s *courseService) Create(ctx context.Context, payload dto.CourseCreateRequest, files []*multipart.FileHeader) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	course := models.Course{
		UserID:      payload.UserID,
		Title:       strings.TrimSpace(s.sanitizer.Sanitize(payload.Title)),
		Description: strings.TrimSpace(s.sanitizer.Sanitize(payload.Description)),
		Goal:        strings.TrimSpace(s.sanitizer.Sanitize(payload.Goal)),
		Timeline:    payload.Timeline,
		Status:      models.StatusNew,
		QuizConfig: models.QuizConfig{
			QuizTypes:         payload.QuizConfig.QuizTypes,
			NumberOfQuestions: payload.QuizConfig.NumberOfQuestions,
			DifficultyLevel:   payload.QuizConfig.DifficultyLevel,
			IsTimed:           payload.QuizConfig.IsTimed,
			TimeDuration:      payload.QuizConfig.TimeDuration,
		},
	}

	if course.Title == "" {
		return dto.CourseResponse{}, fmt.Errorf("course title is required")
	}

	if err := s.courses.Create(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	materialCount := 0
	for _, file := range files {
		material, err := s.storeFileMaterial(ctx, course.ID, file)
		if err != nil {
			return dto.CourseResponse{}, err
		}
		course.Materials = append(course.Materials, material)
		materialCount++
	}

	for _, link := range payload.Links {
		title := strings.TrimSpace(link.Title)
		if title == "" {
			title = "Untitled Link"
		}
		material := models.Material{
			CourseID: course.ID,
			Title:    title,
			Type:     models.MaterialTypeLink,
			FileURL:  link.FileURL,
		}
		if err := s.materials.Create(ctx, &material); err != nil {
			return dto.CourseResponse{}, err
		}
		course.Materials = append(course.Materials, material)
		materialCount++
	}

	if materialCount > 0 {
		if err := s.courses.UpdateMaterialCount(ctx, course.ID, materialCount); err != nil {
			return dto.CourseResponse{}, err
		}
		course.MaterialCount = materialCount
	}

	s.logger.Info().Uint("course_id", course.ID).Int("materials", materialCount).Msg("course created")

	return dto.NewCourseResponse(course, s.now()), nil
}

// Get returns the course, deriving its status lazily. A derived change is
// persisted before responding; the cached representation is only served
// when it is still consistent with that policy.
func (s *courseService) Get(ctx context.Context, id, userID uint) (dto.CourseResponse, error) {
	if cached, ok := s.readCache(ctx, id, userID); ok {
		return cached, nil
	}

	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrCourseNotFound
		}
		return dto.CourseResponse{}, err
	}

	if course.UserID != userID {
		return dto.CourseResponse{}, ErrCourseNotFound
	}

	if course.Refresh(s.now()) {
		if err := s.courses.UpdateStatus(ctx, course.ID, course.Status); err != nil {
			return dto.CourseResponse{}, err
		}
	}

	response := dto.NewCourseResponse(course, s.now())
	s.writeCache(ctx, id, userID, response)

	return response, nil
}

func (s *courseService) List(ctx context.Context, userID uint, filter dto.CourseListFilter) ([]dto.CourseResponse, dto.PageMeta, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, dto.PageMeta{}, err
	}

	repoFilter := repository.CourseFilter{
		Search:   filter.Search,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}

	courses, total, err := s.courses.ListByUser(ctx, userID, repoFilter)
	if err != nil {
		return nil, dto.PageMeta{}, err
	}

	now := s.now()
	for i := range courses {
		if courses[i].Refresh(now) {
			if err := s.courses.UpdateStatus(ctx, courses[i].ID, courses[i].Status); err != nil {
				return nil, dto.PageMeta{}, err
			}
		}
	}

	meta := dto.PageMeta{Page: filter.Page, PageSize: filter.PageSize, Total: total}
	if meta.Page <= 0 {
		meta.Page = 1
	}

	return dto.NewCourseResponseSlice(courses, now), meta, nil
}

func (s *courseService) Update(ctx context.Context, id, userID uint, payload dto.CourseUpdateRequest) (dto.CourseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CourseResponse{}, err
	}

	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseResponse{}, ErrCourseNotFound
		}
		return dto.CourseResponse{}, err
	}

	if course.UserID != userID {
		return dto.CourseResponse{}, ErrCourseNotFound
	}

	if payload.Title != nil {
		course.Title = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Title))
	}
	if payload.Description != nil {
		course.Description = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Description))
	}
	if payload.Goal != nil {
		course.Goal = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Goal))
	}
	if payload.Timeline != nil {
		course.Timeline = *payload.Timeline
	}

	if err := s.courses.Update(ctx, &course); err != nil {
		return dto.CourseResponse{}, err
	}

	s.dropCache(ctx, id)
	s.logger.Info().Uint("course_id", id).Msg("course updated")

	return dto.NewCourseResponse(course, s.now()), nil
}

func (s *courseService) Delete(ctx context.Context, id, userID uint) error {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		return err
	}

	if course.UserID != userID {
		return ErrCourseNotFound
	}

	if err := s.courses.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		return err
	}

	s.dropCache(ctx, id)
	s.logger.Info().Uint("course_id", id).Msg("course deleted with cascade")

	return nil
}

func (s *courseService) storeFileMaterial(ctx context.Context, courseID uint, file *multipart.FileHeader) (models.Material, error) {
	materialType, err := detectMaterialType(file)
	if err != nil {
		return models.Material{}, err
	}

	reader, err := file.Open()
	if err != nil {
		return models.Material{}, fmt.Errorf("failed to open material file: %w", err)
	}
	defer reader.Close()

	url, err := s.uploader.Upload(ctx, file.Filename, reader)
	if err != nil {
		return models.Material{}, fmt.Errorf("failed to upload material: %w", err)
	}

	material := models.Material{
		CourseID: courseID,
		Title:    file.Filename,
		Type:     materialType,
		FileURL:  url,
	}
	if err := s.materials.Create(ctx, &material); err != nil {
		return models.Material{}, err
	}

	return material, nil
}

func detectMaterialType(file *multipart.FileHeader) (models.MaterialType, error) {
	reader, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open material file: %w", err)
	}
	defer reader.Close()

	mime, err := mimetype.DetectReader(reader)
	if err != nil {
		return "", fmt.Errorf("failed to detect material type: %w", err)
	}

	switch {
	case mime.Is("application/pdf"):
		return models.MaterialTypePDF, nil
	case strings.HasPrefix(mime.String(), "audio/"):
		return models.MaterialTypeAudio, nil
	case strings.HasPrefix(mime.String(), "video/"):
		return models.MaterialTypeVideo, nil
	}

	return "", fmt.Errorf("unsupported material type: %s", mime.String())
}

func (s *courseService) readCache(ctx context.Context, courseID, userID uint) (dto.CourseResponse, bool) {
	if s.cache == nil {
		return dto.CourseResponse{}, false
	}

	cached, err := s.cache.Get(ctx, courseCacheKey(courseID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read course cache")
		}
		return dto.CourseResponse{}, false
	}

	var response courseCacheEntry
	if err := json.Unmarshal([]byte(cached), &response); err != nil {
		return dto.CourseResponse{}, false
	}
	if response.UserID != userID {
		return dto.CourseResponse{}, false
	}

	return response.Course, true
}

type courseCacheEntry struct {
	UserID uint               `json:"user_id"`
	Course dto.CourseResponse `json:"course"`
}

func (s *courseService) writeCache(ctx context.Context, courseID, userID uint, response dto.CourseResponse) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(courseCacheEntry{UserID: userID, Course: response})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, courseCacheKey(courseID), payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store course cache")
	}
}

func (s *courseService) dropCache(ctx context.Context, courseID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, courseCacheKey(courseID)).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to drop course cache")
	}
}
