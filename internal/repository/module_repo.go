package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/studiora/studiora-api/internal/models"
)

// ModuleFilter describes pagination & search options for module listings.
type ModuleFilter struct {
	Search   string
	Page     int
	PageSize int
}

// ModuleRepository defines persistence operations for modules.
type ModuleRepository interface {
	Create(ctx context.Context, module *models.Module) error
	GetByID(ctx context.Context, id uint) (models.Module, error)
	ListByCourse(ctx context.Context, courseID uint) ([]models.Module, error)
	ListByCourses(ctx context.Context, courseIDs []uint, filter ModuleFilter) ([]models.Module, int64, error)
	CountByCourse(ctx context.Context, courseID uint) (int64, error)
	Update(ctx context.Context, module *models.Module) error
	UpdateStatus(ctx context.Context, id uint, status models.Status) error
	UpdateGrade(ctx context.Context, id uint, grade int) error
	MarkCompleted(ctx context.Context, id uint) (bool, error)
}

type moduleRepository struct {
	db *gorm.DB
}

// NewModuleRepository instantiates a GORM-backed repository.
func NewModuleRepository(db *gorm.DB) ModuleRepository {
	return &moduleRepository{db: db}
}

func (r *moduleRepository) Create(ctx context.Context, module *models.Module) error {
	return r.db.WithContext(ctx).Create(module).Error
}

func (r *moduleRepository) GetByID(ctx context.Context, id uint) (models.Module, error) {
	var module models.Module
	if err := r.db.WithContext(ctx).First(&module, id).Error; err != nil {
		return models.Module{}, err
	}
	return module, nil
}

func (r *moduleRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Module, error) {
	var modules []models.Module
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("sequence ASC").
		Find(&modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}

func (r *moduleRepository) ListByCourses(ctx context.Context, courseIDs []uint, filter ModuleFilter) ([]models.Module, int64, error) {
	if len(courseIDs) == 0 {
		return []models.Module{}, 0, nil
	}

	query := r.db.WithContext(ctx).Model(&models.Module{}).Where("course_id IN ?", courseIDs)
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(title) LIKE ?", pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("course_id ASC, sequence ASC")
	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var modules []models.Module
	if err := query.Find(&modules).Error; err != nil {
		return nil, 0, err
	}

	return modules, total, nil
}

func (r *moduleRepository) CountByCourse(ctx context.Context, courseID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Module{}).
		Where("course_id = ?", courseID).
		Count(&count).Error
	return count, err
}

func (r *moduleRepository) Update(ctx context.Context, module *models.Module) error {
	return r.db.WithContext(ctx).Save(module).Error
}

func (r *moduleRepository) UpdateStatus(ctx context.Context, id uint, status models.Status) error {
	return r.db.WithContext(ctx).Model(&models.Module{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *moduleRepository) UpdateGrade(ctx context.Context, id uint, grade int) error {
	return r.db.WithContext(ctx).Model(&models.Module{}).
		Where("id = ?", id).
		Update("grade", grade).Error
}

// MarkCompleted flips the module to completed. The conditional update keeps
// the transition one-way; it reports false when the module was already
// completed.
func (r *moduleRepository) MarkCompleted(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Module{}).
		Where("id = ? AND is_completed = ?", id, false).
		Updates(map[string]interface{}{
			"is_completed": true,
			"status":       models.StatusCompleted,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
