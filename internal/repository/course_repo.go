package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/studiora/studiora-api/internal/models"
)

// CourseFilter describes pagination & search options for course listings.
type CourseFilter struct {
	Search   string
	Page     int
	PageSize int
}

// SummaryUpdate carries the learning summary fields written back by the
// grade aggregator. All four fields are written in one UPDATE. KeepGrade
// leaves the stored grade untouched, so it stays null until the first
// completed attempt exists.
type SummaryUpdate struct {
	TotalModules            int
	CompletedModules        int
	FirstIncompleteModuleID *uint
	CourseGrade             *float64
	KeepGrade               bool
}

// CourseRepository defines persistence operations for courses.
type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	GetByID(ctx context.Context, id uint) (models.Course, error)
	ListByUser(ctx context.Context, userID uint, filter CourseFilter) ([]models.Course, int64, error)
	Update(ctx context.Context, course *models.Course) error
	UpdateStatus(ctx context.Context, id uint, status models.Status) error
	UpdateSummary(ctx context.Context, id uint, update SummaryUpdate) error
	UpdateMaterialCount(ctx context.Context, id uint, count int) error
	Delete(ctx context.Context, id uint) error
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository instantiates a GORM-backed repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).Preload("Materials").First(&course, id).Error; err != nil {
		return models.Course{}, err
	}
	return course, nil
}

func (r *courseRepository) ListByUser(ctx context.Context, userID uint, filter CourseFilter) ([]models.Course, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Course{}).Where("user_id = ?", userID)

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(title) LIKE ?", pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at DESC")
	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var courses []models.Course
	if err := query.Find(&courses).Error; err != nil {
		return nil, 0, err
	}

	return courses, total, nil
}

func (r *courseRepository) Update(ctx context.Context, course *models.Course) error {
	return r.db.WithContext(ctx).Save(course).Error
}

func (r *courseRepository) UpdateStatus(ctx context.Context, id uint, status models.Status) error {
	return r.db.WithContext(ctx).Model(&models.Course{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *courseRepository) UpdateSummary(ctx context.Context, id uint, update SummaryUpdate) error {
	fields := map[string]interface{}{
		"summary_total_modules":              update.TotalModules,
		"summary_completed_modules":          update.CompletedModules,
		"summary_first_incomplete_module_id": update.FirstIncompleteModuleID,
	}
	if !update.KeepGrade {
		fields["summary_course_grade"] = update.CourseGrade
	}

	return r.db.WithContext(ctx).Model(&models.Course{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *courseRepository) UpdateMaterialCount(ctx context.Context, id uint, count int) error {
	return r.db.WithContext(ctx).Model(&models.Course{}).
		Where("id = ?", id).
		Update("material_count", count).Error
}

// Delete removes the course and everything under it: modules, quizzes,
// attempts, reports, recommendation topics and materials.
func (r *courseRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var moduleIDs []uint
		if err := tx.Model(&models.Module{}).Where("course_id = ?", id).Pluck("id", &moduleIDs).Error; err != nil {
			return err
		}

		if len(moduleIDs) > 0 {
			var quizIDs []uint
			if err := tx.Model(&models.Quiz{}).Where("module_id IN ?", moduleIDs).Pluck("id", &quizIDs).Error; err != nil {
				return err
			}

			if len(quizIDs) > 0 {
				if err := tx.Where("quiz_id IN ?", quizIDs).Delete(&models.QuizAttempt{}).Error; err != nil {
					return err
				}
			}

			var reportIDs []uint
			if err := tx.Model(&models.QuizReport{}).Where("module_id IN ?", moduleIDs).Pluck("id", &reportIDs).Error; err != nil {
				return err
			}
			if len(reportIDs) > 0 {
				if err := tx.Where("report_id IN ?", reportIDs).Delete(&models.RecommendationTopic{}).Error; err != nil {
					return err
				}
				if err := tx.Where("id IN ?", reportIDs).Delete(&models.QuizReport{}).Error; err != nil {
					return err
				}
			}

			if err := tx.Where("module_id IN ?", moduleIDs).Delete(&models.Quiz{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", moduleIDs).Delete(&models.Module{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("course_id = ?", id).Delete(&models.Material{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Course{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
