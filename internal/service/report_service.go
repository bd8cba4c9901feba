package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/studiora/studiora-api/internal/models"
	"github.com/studiora/studiora-api/internal/observability"
	"github.com/studiora/studiora-api/internal/repository"
	"github.com/studiora/studiora-api/pkg/ai"
)

// SubjectReportCompleted is published after a report finishes, successfully
// or not.
const SubjectReportCompleted = "studiora.reports.completed"

const defaultNarrativeTimeout = 60 * time.Second

// ReportService builds adaptive quiz reports. The numeric part of a report
// is written synchronously in pending state; the AI narrative fills it in
// from a background goroutine so submissions never wait on the model.
type ReportService interface {
	ReportBuilder
	// Wait blocks until in-flight narrative generation finishes. Used on
	// shutdown.
	Wait()
}

type reportService struct {
	reports   repository.ReportRepository
	quizzes   repository.QuizRepository
	generator ai.Generator
	events    *nats.Conn
	timeout   time.Duration
	logger    zerolog.Logger
	now       func() time.Time
	wg        sync.WaitGroup
}

// NewReportService constructs a ReportService. The NATS connection is
// optional; without it completion events are skipped.
func NewReportService(reportRepo repository.ReportRepository, quizRepo repository.QuizRepository, generator ai.Generator, events *nats.Conn, narrativeTimeout time.Duration, logger zerolog.Logger) ReportService {
	if narrativeTimeout <= 0 {
		narrativeTimeout = defaultNarrativeTimeout
	}
	return &reportService{
		reports:   reportRepo,
		quizzes:   quizRepo,
		generator: generator,
		events:    events,
		timeout:   narrativeTimeout,
		logger:    logger.With().Str("component", "report_service").Logger(),
		now:       time.Now,
	}
}

// BuildForAttempt writes the pending report and schedules the narrative.
func (s *reportService) BuildForAttempt(ctx context.Context, quiz models.Quiz, module models.Module, courseName string, attempt models.QuizAttempt, userID uint) error {
	correct := 0
	var wrongQuestions []string
	for _, record := range attempt.Answers {
		if record.IsCorrect {
			correct++
			continue
		}
		if question, ok := quiz.QuestionByID(record.QuestionID); ok && question.AutoGradable() {
			wrongQuestions = append(wrongQuestions, question.QuestionText)
		}
	}

	percentage := 0.0
	if quiz.TotalQuestions > 0 {
		percentage = float64(attempt.ObtainedMarks) / float64(quiz.TotalQuestions) * 100
	}

	trend, err := s.buildTrend(ctx, quiz.ID)
	if err != nil {
		return fmt.Errorf("build attempt trend: %w", err)
	}

	report := models.QuizReport{
		UserID:           userID,
		QuizID:           quiz.ID,
		ModuleID:         module.ID,
		ModuleName:       module.Title,
		CourseName:       courseName,
		QuizTitle:        quiz.Title,
		AttemptNumber:    attempt.AttemptNumber,
		Percentage:       percentage,
		CorrectAnswers:   correct,
		IncorrectAnswers: quiz.TotalQuestions - correct,
		TotalQuestions:   quiz.TotalQuestions,
		Trend:            trend,
		Status:           models.ReportStatusPending,
		GeneratedAt:      s.now(),
	}

	if err := s.reports.Create(ctx, &report); err != nil {
		return fmt.Errorf("create pending report: %w", err)
	}

	// The narrative must outlive the request; only its deadline is fresh.
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.completeReport(detached, report, wrongQuestions)
	}()

	return nil
}

func (s *reportService) Wait() {
	s.wg.Wait()
}

// buildTrend collects the percentage history of completed attempts.
func (s *reportService) buildTrend(ctx context.Context, quizID uint) ([]models.TrendPoint, error) {
	attempts, err := s.quizzes.ListAttempts(ctx, quizID)
	if err != nil {
		return nil, err
	}

	trend := make([]models.TrendPoint, 0, len(attempts))
	for _, attempt := range attempts {
		if !attempt.IsCompleted {
			continue
		}
		trend = append(trend, models.TrendPoint{
			AttemptNumber: attempt.AttemptNumber,
			Percentage:    attempt.Percentage,
		})
	}

	return trend, nil
}

// completeReport runs the model and flips the report to completed, or to
// failed when the narrative cannot be produced. Failure never loses the
// numeric part of the report.
func (s *reportService) completeReport(ctx context.Context, report models.QuizReport, wrongQuestions []string) {
	insight, err := s.generateInsight(ctx, report, wrongQuestions)
	if err != nil {
		s.logger.Error().Err(err).Uint("report_id", report.ID).Msg("report narrative failed")
		if err := s.reports.UpdateStatus(ctx, report.ID, models.ReportStatusFailed); err != nil {
			s.logger.Error().Err(err).Uint("report_id", report.ID).Msg("failed to mark report failed")
		}
		s.publishCompleted(report.ID, report.UserID, models.ReportStatusFailed)
		return
	}

	report.AISummary = insight.Summary
	report.StrongestArea = insight.StrongestArea
	report.WeakestArea = insight.WeakestArea
	report.GoodAt = insight.GoodAt
	report.StruggledWith = insight.StruggledWith
	report.StudyMaterials = insight.StudyMaterials
	report.Status = models.ReportStatusCompleted

	if err := s.reports.Update(ctx, &report); err != nil {
		s.logger.Error().Err(err).Uint("report_id", report.ID).Msg("failed to store completed report")
		return
	}

	topics := make([]models.RecommendationTopic, 0, len(insight.Topics))
	for _, topic := range insight.Topics {
		topics = append(topics, models.RecommendationTopic{
			Title:       topic.Title,
			Description: topic.Description,
		})
	}
	if err := s.reports.ReplaceTopics(ctx, report.ID, topics); err != nil {
		s.logger.Error().Err(err).Uint("report_id", report.ID).Msg("failed to store recommendation topics")
	}

	s.publishCompleted(report.ID, report.UserID, models.ReportStatusCompleted)

	s.logger.Info().Uint("report_id", report.ID).Int("topics", len(topics)).Msg("report completed")
}

func (s *reportService) generateInsight(ctx context.Context, report models.QuizReport, wrongQuestions []string) (generatedInsight, error) {
	raw, err := s.generator.Generate(ctx, buildReportPrompt(report, wrongQuestions))
	if err != nil {
		return generatedInsight{}, fmt.Errorf("generate report narrative: %w", err)
	}

	payload, err := ai.ExtractJSON(raw)
	if err != nil {
		return generatedInsight{}, fmt.Errorf("%w: %v", ErrInvalidAIPayload, err)
	}

	var insight generatedInsight
	if err := validatePayload(reportInsightSchema, payload, &insight); err != nil {
		return generatedInsight{}, err
	}

	return insight, nil
}

type reportCompletedEvent struct {
	ReportID uint                `json:"report_id"`
	UserID   uint                `json:"user_id"`
	Status   models.ReportStatus `json:"status"`
}

// publishCompleted counts the outcome and emits the completion event;
// delivery is best-effort.
func (s *reportService) publishCompleted(reportID, userID uint, status models.ReportStatus) {
	observability.Reports().WithLabelValues(string(status)).Inc()

	if s.events == nil {
		return
	}

	payload, err := json.Marshal(reportCompletedEvent{ReportID: reportID, UserID: userID, Status: status})
	if err != nil {
		return
	}
	if err := s.events.Publish(SubjectReportCompleted, payload); err != nil {
		s.logger.Warn().Err(err).Uint("report_id", reportID).Msg("failed to publish report event")
	}
}
