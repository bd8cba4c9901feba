package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/studiora/studiora-api/internal/models"
)

// ErrAttemptConflict is returned when the serialised attempt append keeps
// colliding with concurrent submissions to the same quiz.
var ErrAttemptConflict = errors.New("concurrent attempt append conflict")

const attemptAppendRetries = 3

// QuizFilter describes pagination options for quiz listings.
type QuizFilter struct {
	Page     int
	PageSize int
}

// QuizRepository defines persistence operations for quizzes and attempts.
type QuizRepository interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	GetByID(ctx context.Context, id uint) (models.Quiz, error)
	ListByModule(ctx context.Context, moduleID uint) ([]models.Quiz, error)
	ListByModules(ctx context.Context, moduleIDs []uint, filter QuizFilter) ([]models.Quiz, int64, error)
	CountByModule(ctx context.Context, moduleID uint) (int64, error)
	Delete(ctx context.Context, id uint) error
	AppendAttempt(ctx context.Context, quizID uint, attempt *models.QuizAttempt) error
	ListAttempts(ctx context.Context, quizID uint) ([]models.QuizAttempt, error)
	LatestCompletedAttempt(ctx context.Context, quizID uint) (models.QuizAttempt, error)
}

type quizRepository struct {
	db *gorm.DB
}

// NewQuizRepository instantiates a GORM-backed repository.
func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	return r.db.WithContext(ctx).Create(quiz).Error
}

func (r *quizRepository) GetByID(ctx context.Context, id uint) (models.Quiz, error) {
	var quiz models.Quiz
	if err := r.db.WithContext(ctx).First(&quiz, id).Error; err != nil {
		return models.Quiz{}, err
	}
	return quiz, nil
}

func (r *quizRepository) ListByModule(ctx context.Context, moduleID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	if err := r.db.WithContext(ctx).
		Where("module_id = ?", moduleID).
		Order("created_at DESC").
		Find(&quizzes).Error; err != nil {
		return nil, err
	}
	return quizzes, nil
}

func (r *quizRepository) ListByModules(ctx context.Context, moduleIDs []uint, filter QuizFilter) ([]models.Quiz, int64, error) {
	if len(moduleIDs) == 0 {
		return []models.Quiz{}, 0, nil
	}

	query := r.db.WithContext(ctx).Model(&models.Quiz{}).Where("module_id IN ?", moduleIDs)

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

	var quizzes []models.Quiz
	if err := query.Find(&quizzes).Error; err != nil {
		return nil, 0, err
	}

	return quizzes, total, nil
}

func (r *quizRepository) CountByModule(ctx context.Context, moduleID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Quiz{}).
		Where("module_id = ?", moduleID).
		Count(&count).Error
	return count, err
}

func (r *quizRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quiz_id = ?", id).Delete(&models.QuizAttempt{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Quiz{}, id).Error
	})
}

// AppendAttempt assigns the next attempt number and inserts the attempt.
// The quiz row is locked for the duration of the transaction so concurrent
// submissions to the same quiz are serialised; the unique index on
// (quiz_id, attempt_number) backs the lock up, and the insert is retried a
// bounded number of times before giving up with ErrAttemptConflict.
func (r *quizRepository) AppendAttempt(ctx context.Context, quizID uint, attempt *models.QuizAttempt) error {
	var lastErr error

	for i := 0; i < attemptAppendRetries; i++ {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var quiz models.Quiz
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&quiz, quizID).Error; err != nil {
				return err
			}

			var count int64
			if err := tx.Model(&models.QuizAttempt{}).Where("quiz_id = ?", quizID).Count(&count).Error; err != nil {
				return err
			}

			attempt.QuizID = quizID
			attempt.AttemptNumber = int(count) + 1
			return tx.Create(attempt).Error
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		lastErr = err
		attempt.ID = 0
	}

	return errors.Join(ErrAttemptConflict, lastErr)
}

func (r *quizRepository) ListAttempts(ctx context.Context, quizID uint) ([]models.QuizAttempt, error) {
	var attempts []models.QuizAttempt
	if err := r.db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("attempt_number ASC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

// LatestCompletedAttempt returns the completed attempt with the highest
// attempt number. Attempts are append-only, so this is the newest completed
// entry.
func (r *quizRepository) LatestCompletedAttempt(ctx context.Context, quizID uint) (models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	err := r.db.WithContext(ctx).
		Where("quiz_id = ? AND is_completed = ?", quizID, true).
		Order("attempt_number DESC").
		First(&attempt).Error
	if err != nil {
		return models.QuizAttempt{}, err
	}
	return attempt, nil
}
