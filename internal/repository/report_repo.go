package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/studiora/studiora-api/internal/models"
)

// ReportRepository defines persistence operations for quiz reports and
// their recommendation topics.
type ReportRepository interface {
	Create(ctx context.Context, report *models.QuizReport) error
	Update(ctx context.Context, report *models.QuizReport) error
	UpdateStatus(ctx context.Context, id uint, status models.ReportStatus) error
	LatestByQuizAndUser(ctx context.Context, quizID, userID uint) (models.QuizReport, error)
	FindByTopic(ctx context.Context, moduleID, userID, topicID uint) (models.QuizReport, error)
	ReplaceTopics(ctx context.Context, reportID uint, topics []models.RecommendationTopic) error
	ClaimTopic(ctx context.Context, topicID, quizID uint) (bool, error)
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository instantiates a GORM-backed repository.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.QuizReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *reportRepository) Update(ctx context.Context, report *models.QuizReport) error {
	return r.db.WithContext(ctx).Save(report).Error
}

func (r *reportRepository) UpdateStatus(ctx context.Context, id uint, status models.ReportStatus) error {
	return r.db.WithContext(ctx).Model(&models.QuizReport{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *reportRepository) LatestByQuizAndUser(ctx context.Context, quizID, userID uint) (models.QuizReport, error) {
	var report models.QuizReport
	err := r.db.WithContext(ctx).
		Preload("Topics").
		Where("quiz_id = ? AND user_id = ?", quizID, userID).
		Order("generated_at DESC").
		First(&report).Error
	if err != nil {
		return models.QuizReport{}, err
	}
	return report, nil
}

// FindByTopic locates the report for the given user and module that owns
// the topic.
func (r *reportRepository) FindByTopic(ctx context.Context, moduleID, userID, topicID uint) (models.QuizReport, error) {
	var report models.QuizReport
	err := r.db.WithContext(ctx).
		Preload("Topics").
		Joins("JOIN recommendation_topics ON recommendation_topics.report_id = quiz_reports.id").
		Where("quiz_reports.module_id = ? AND quiz_reports.user_id = ? AND recommendation_topics.id = ?", moduleID, userID, topicID).
		First(&report).Error
	if err != nil {
		return models.QuizReport{}, err
	}
	return report, nil
}

func (r *reportRepository) ReplaceTopics(ctx context.Context, reportID uint, topics []models.RecommendationTopic) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("report_id = ?", reportID).Delete(&models.RecommendationTopic{}).Error; err != nil {
			return err
		}
		for i := range topics {
			topics[i].ReportID = reportID
			if err := tx.Create(&topics[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ClaimTopic marks the topic as generated and binds the quiz in a single
// conditional update. It reports false when another caller already claimed
// the topic; the gate check and the flag flip cannot be interleaved.
func (r *reportRepository) ClaimTopic(ctx context.Context, topicID, quizID uint) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.RecommendationTopic{}).
		Where("id = ? AND is_quiz_generated = ? AND quiz_id IS NULL", topicID, false).
		Updates(map[string]interface{}{
			"is_quiz_generated": true,
			"quiz_id":           quizID,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
