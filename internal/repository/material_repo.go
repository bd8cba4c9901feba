package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/studiora/studiora-api/internal/models"
)

// MaterialRepository defines persistence operations for course materials.
type MaterialRepository interface {
	Create(ctx context.Context, material *models.Material) error
	ListByCourse(ctx context.Context, courseID uint) ([]models.Material, error)
	ListUnprocessed(ctx context.Context, courseID uint) ([]models.Material, error)
	MarkProcessed(ctx context.Context, ids []uint) error
	CountByCourse(ctx context.Context, courseID uint) (int64, error)
}

type materialRepository struct {
	db *gorm.DB
}

// NewMaterialRepository instantiates a GORM-backed repository.
func NewMaterialRepository(db *gorm.DB) MaterialRepository {
	return &materialRepository{db: db}
}

func (r *materialRepository) Create(ctx context.Context, material *models.Material) error {
	return r.db.WithContext(ctx).Create(material).Error
}

func (r *materialRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Material, error) {
	var materials []models.Material
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&materials).Error; err != nil {
		return nil, err
	}
	return materials, nil
}

func (r *materialRepository) ListUnprocessed(ctx context.Context, courseID uint) ([]models.Material, error) {
	var materials []models.Material
	if err := r.db.WithContext(ctx).
		Where("course_id = ? AND processed = ?", courseID, false).
		Order("created_at ASC").
		Find(&materials).Error; err != nil {
		return nil, err
	}
	return materials, nil
}

func (r *materialRepository) MarkProcessed(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Material{}).
		Where("id IN ?", ids).
		Update("processed", true).Error
}

func (r *materialRepository) CountByCourse(ctx context.Context, courseID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Material{}).
		Where("course_id = ?", courseID).
		Count(&count).Error
	return count, err
}
