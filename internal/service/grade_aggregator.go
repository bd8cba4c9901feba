package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/studiora/studiora-api/internal/repository"
)

// GradeAggregator recalculates module and course grades bottom-up from
// quiz attempts. Module grades average the latest completed attempt
// percentage of each quiz; course grades divide summed raw marks by summed
// max scores. The two conventions differ on purpose: percentages make
// quizzes of different sizes comparable within a module, raw marks weight
// larger quizzes more heavily across the course.
type GradeAggregator interface {
	RecalculateModuleGrade(ctx context.Context, moduleID uint) error
	RecalculateCourseGrade(ctx context.Context, courseID uint) error
}

type gradeAggregator struct {
	quizzes repository.QuizRepository
	modules repository.ModuleRepository
	courses repository.CourseRepository
	cache   *redis.Client
	logger  zerolog.Logger
}

// NewGradeAggregator constructs the aggregator. The redis client is
// optional; when present, cached course responses are invalidated after
// each summary write.
func NewGradeAggregator(quizRepo repository.QuizRepository, moduleRepo repository.ModuleRepository, courseRepo repository.CourseRepository, cache *redis.Client, logger zerolog.Logger) GradeAggregator {
	return &gradeAggregator{
		quizzes: quizRepo,
		modules: moduleRepo,
		courses: courseRepo,
		cache:   cache,
		logger:  logger.With().Str("component", "grade_aggregator").Logger(),
	}
}

// RecalculateModuleGrade averages the latest completed attempt percentage
// across the module's quizzes. When no quiz has a completed attempt the
// stored grade is deliberately left untouched.
func (a *gradeAggregator) RecalculateModuleGrade(ctx context.Context, moduleID uint) error {
	quizzes, err := a.quizzes.ListByModule(ctx, moduleID)
	if err != nil {
		return fmt.Errorf("list quizzes for module %d: %w", moduleID, err)
	}

	var totalPercentage float64
	var completedQuizzes int

	for _, quiz := range quizzes {
		attempt, err := a.quizzes.LatestCompletedAttempt(ctx, quiz.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return fmt.Errorf("latest attempt for quiz %d: %w", quiz.ID, err)
		}

		value, err := parsePercentage(attempt.Percentage)
		if err != nil {
			a.logger.Warn().Err(err).Uint("quiz_id", quiz.ID).Msg("skipping attempt with malformed percentage")
			continue
		}

		totalPercentage += value
		completedQuizzes++
	}

	if completedQuizzes == 0 {
		return nil
	}

	grade := int(math.Round(totalPercentage / float64(completedQuizzes)))
	if err := a.modules.UpdateGrade(ctx, moduleID, grade); err != nil {
		return fmt.Errorf("update module %d grade: %w", moduleID, err)
	}

	a.logger.Info().Uint("module_id", moduleID).Int("grade", grade).Msg("module grade recalculated")

	return nil
}

// RecalculateCourseGrade refreshes the course learning summary: module
// counts, the first incomplete module, and the overall grade computed from
// raw marks of every quiz's latest completed attempt. All summary fields
// are written in a single update. When no attempt exists anywhere under the
// course the stored grade is kept, so it stays null until the first
// submission.
func (a *gradeAggregator) RecalculateCourseGrade(ctx context.Context, courseID uint) error {
	modules, err := a.modules.ListByCourse(ctx, courseID)
	if err != nil {
		return fmt.Errorf("list modules for course %d: %w", courseID, err)
	}

	if len(modules) == 0 {
		return nil
	}

	var totalObtained, totalMax int
	var completedModules int
	var firstIncomplete *uint

	for _, module := range modules {
		if module.IsCompleted {
			completedModules++
		} else if firstIncomplete == nil {
			id := module.ID
			firstIncomplete = &id
		}

		quizzes, err := a.quizzes.ListByModule(ctx, module.ID)
		if err != nil {
			return fmt.Errorf("list quizzes for module %d: %w", module.ID, err)
		}

		for _, quiz := range quizzes {
			attempt, err := a.quizzes.LatestCompletedAttempt(ctx, quiz.ID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return fmt.Errorf("latest attempt for quiz %d: %w", quiz.ID, err)
			}

			totalObtained += attempt.ObtainedMarks
			totalMax += quiz.MaxScore
		}
	}

	update := repository.SummaryUpdate{
		TotalModules:            len(modules),
		CompletedModules:        completedModules,
		FirstIncompleteModuleID: firstIncomplete,
		KeepGrade:               totalMax == 0,
	}
	if totalMax > 0 {
		grade := math.Round(float64(totalObtained)/float64(totalMax)*10000) / 100
		update.CourseGrade = &grade
	}

	if err := a.courses.UpdateSummary(ctx, courseID, update); err != nil {
		return fmt.Errorf("update course %d summary: %w", courseID, err)
	}

	a.invalidateCourseCache(ctx, courseID)

	a.logger.Info().Uint("course_id", courseID).Int("completed_modules", completedModules).Msg("course summary recalculated")

	return nil
}

func (a *gradeAggregator) invalidateCourseCache(ctx context.Context, courseID uint) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Del(ctx, courseCacheKey(courseID)).Err(); err != nil {
		a.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to invalidate course cache")
	}
}

func courseCacheKey(courseID uint) string {
	return fmt.Sprintf("course:%d", courseID)
}

func parsePercentage(raw string) (float64, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(raw), "%")
	if trimmed == "" {
		return 0, fmt.Errorf("empty percentage")
	}
	return strconv.ParseFloat(trimmed, 64)
}

// formatPercentage renders a ratio as the canonical two-decimal attempt
// percentage string.
func formatPercentage(obtained, total int) string {
	if total <= 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(obtained)/float64(total)*100)
}
