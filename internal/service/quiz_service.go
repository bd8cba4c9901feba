package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/studiora/studiora-api/internal/dto"
	"github.com/studiora/studiora-api/internal/models"
	"github.com/studiora/studiora-api/internal/observability"
	"github.com/studiora/studiora-api/internal/repository"
	"github.com/studiora/studiora-api/pkg/ai"
)

// maxQuizzesPerModule caps regeneration; the cap counts adaptive quizzes
// attached to the module as well.
const maxQuizzesPerModule = 5

// ReportBuilder creates the adaptive report for a freshly recorded attempt.
// Implementations run the AI narrative out of band.
type ReportBuilder interface {
	BuildForAttempt(ctx context.Context, quiz models.Quiz, module models.Module, courseName string, attempt models.QuizAttempt, userID uint) error
}

// QuizService generates quizzes, records attempts, and guards the adaptive
// quiz gate.
type QuizService interface {
	Generate(ctx context.Context, moduleID, userID uint) (dto.QuizResponse, error)
	Get(ctx context.Context, id, userID uint) (dto.QuizResponse, error)
	ListByModule(ctx context.Context, moduleID, userID uint) ([]dto.QuizResponse, error)
	ListByCourse(ctx context.Context, courseID, userID uint) ([]dto.QuizResponse, error)
	ListByUser(ctx context.Context, userID uint, filter dto.QuizListFilter) ([]dto.QuizResponse, dto.PageMeta, error)
	Submit(ctx context.Context, quizID uint, payload dto.QuizSubmitRequest) (dto.AttemptResult, error)
	GetReport(ctx context.Context, quizID, userID uint) (dto.ReportResponse, error)
	GenerateForTopic(ctx context.Context, moduleID, topicID, userID uint) (dto.QuizResponse, error)
}

type quizService struct {
	quizzes    repository.QuizRepository
	modules    repository.ModuleRepository
	courses    repository.CourseRepository
	reports    repository.ReportRepository
	generator  ai.Generator
	reporter   ReportBuilder
	aggregator GradeAggregator
	validator  *validator.Validate
	logger     zerolog.Logger
	now        func() time.Time
}

// NewQuizService constructs a QuizService instance.
func NewQuizService(quizRepo repository.QuizRepository, moduleRepo repository.ModuleRepository, courseRepo repository.CourseRepository, reportRepo repository.ReportRepository, generator ai.Generator, reporter ReportBuilder, aggregator GradeAggregator, validate *validator.Validate, logger zerolog.Logger) QuizService {
	return &quizService{
		quizzes:    quizRepo,
		modules:    moduleRepo,
		courses:    courseRepo,
		reports:    reportRepo,
		generator:  generator,
		reporter:   reporter,
		aggregator: aggregator,
		validator:  validate,
		logger:     logger.With().Str("component", "quiz_service").Logger(),
		now:        time.Now,
	}
}

// Generate creates one new quiz for the module using the course quiz
// configuration. At most maxQuizzesPerModule quizzes may exist per module.
func (s *quizService) Generate(ctx context.Context, moduleID, userID uint) (dto.QuizResponse, error) {
	module, course, err := s.ownedModule(ctx, moduleID, userID)
	if err != nil {
		return dto.QuizResponse{}, err
	}

	count, err := s.quizzes.CountByModule(ctx, moduleID)
	if err != nil {
		return dto.QuizResponse{}, err
	}
	if count >= maxQuizzesPerModule {
		return dto.QuizResponse{}, ErrQuizLimitReached
	}

	quiz, err := s.generateQuiz(ctx, buildQuizPrompt(module, course.QuizConfig), moduleID, course.QuizConfig)
	if err != nil {
		return dto.QuizResponse{}, err
	}

	s.logger.Info().Uint("module_id", moduleID).Uint("quiz_id", quiz.ID).Msg("quiz generated")

	return dto.NewQuizResponse(quiz), nil
}

func (s *quizService) Get(ctx context.Context, id, userID uint) (dto.QuizResponse, error) {
	quiz, _, _, err := s.ownedQuiz(ctx, id, userID)
	if err != nil {
		return dto.QuizResponse{}, err
	}

	attempts, err := s.quizzes.ListAttempts(ctx, id)
	if err != nil {
		return dto.QuizResponse{}, err
	}
	quiz.Attempts = attempts

	return dto.NewQuizResponse(quiz), nil
}

func (s *quizService) ListByModule(ctx context.Context, moduleID, userID uint) ([]dto.QuizResponse, error) {
	if _, _, err := s.ownedModule(ctx, moduleID, userID); err != nil {
		return nil, err
	}

	quizzes, err := s.quizzes.ListByModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}

	return dto.NewQuizResponseSlice(quizzes), nil
}

func (s *quizService) ListByCourse(ctx context.Context, courseID, userID uint) ([]dto.QuizResponse, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	if course.UserID != userID {
		return nil, ErrCourseNotFound
	}

	modules, err := s.modules.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	moduleIDs := make([]uint, 0, len(modules))
	for _, module := range modules {
		moduleIDs = append(moduleIDs, module.ID)
	}

	quizzes, _, err := s.quizzes.ListByModules(ctx, moduleIDs, repository.QuizFilter{})
	if err != nil {
		return nil, err
	}

	return dto.NewQuizResponseSlice(quizzes), nil
}

func (s *quizService) ListByUser(ctx context.Context, userID uint, filter dto.QuizListFilter) ([]dto.QuizResponse, dto.PageMeta, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, dto.PageMeta{}, err
	}

	courses, _, err := s.courses.ListByUser(ctx, userID, repository.CourseFilter{})
	if err != nil {
		return nil, dto.PageMeta{}, err
	}

	var moduleIDs []uint
	for _, course := range courses {
		modules, err := s.modules.ListByCourse(ctx, course.ID)
		if err != nil {
			return nil, dto.PageMeta{}, err
		}
		for _, module := range modules {
			moduleIDs = append(moduleIDs, module.ID)
		}
	}

	quizzes, total, err := s.quizzes.ListByModules(ctx, moduleIDs, repository.QuizFilter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
	if err != nil {
		return nil, dto.PageMeta{}, err
	}

	meta := dto.PageMeta{Page: filter.Page, PageSize: filter.PageSize, Total: total}
	if meta.Page <= 0 {
		meta.Page = 1
	}

	return dto.NewQuizResponseSlice(quizzes), meta, nil
}

// Submit grades the answers, appends the attempt, and kicks off the report
// and grade recalculation. Answers are matched to questions by id; questions
// without an answer count as wrong, answers without a question are dropped.
// Only MCQ and True/False answers can earn marks; the percentage is taken
// over the full question count.
func (s *quizService) Submit(ctx context.Context, quizID uint, payload dto.QuizSubmitRequest) (dto.AttemptResult, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AttemptResult{}, err
	}

	quiz, module, course, err := s.ownedQuiz(ctx, quizID, payload.UserID)
	if err != nil {
		return dto.AttemptResult{}, err
	}

	answersByQuestion := make(map[string]string, len(payload.UserAnswers))
	for _, answer := range payload.UserAnswers {
		answersByQuestion[answer.QuestionID] = answer.Answer
	}

	var obtained int
	records := make([]models.AnswerRecord, 0, len(quiz.Questions))
	for _, question := range quiz.Questions {
		answer, answered := answersByQuestion[question.ID]
		record := models.AnswerRecord{QuestionID: question.ID, Answer: answer}

		if answered && question.AutoGradable() &&
			strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(question.CorrectAnswer)) {
			record.IsCorrect = true
			obtained++
		}

		records = append(records, record)
	}

	attempt := models.QuizAttempt{
		ObtainedMarks: obtained,
		Percentage:    formatPercentage(obtained, quiz.TotalQuestions),
		IsCompleted:   true,
		TimeTaken:     payload.TimeTaken,
		SubmittedAt:   s.now(),
		Answers:       records,
	}

	if err := s.quizzes.AppendAttempt(ctx, quizID, &attempt); err != nil {
		if errors.Is(err, repository.ErrAttemptConflict) {
			observability.QuizAttempts().WithLabelValues("conflict").Inc()
			return dto.AttemptResult{}, ErrConcurrentSubmission
		}
		return dto.AttemptResult{}, err
	}
	observability.QuizAttempts().WithLabelValues("recorded").Inc()

	if s.reporter != nil {
		if err := s.reporter.BuildForAttempt(ctx, quiz, module, course.Title, attempt, payload.UserID); err != nil {
			s.logger.Error().Err(err).Uint("quiz_id", quizID).Msg("failed to start attempt report")
		}
	}

	if err := s.aggregator.RecalculateModuleGrade(ctx, quiz.ModuleID); err != nil {
		s.logger.Error().Err(err).Uint("module_id", quiz.ModuleID).Msg("failed to recalculate module grade")
	}
	if err := s.aggregator.RecalculateCourseGrade(ctx, module.CourseID); err != nil {
		s.logger.Error().Err(err).Uint("course_id", module.CourseID).Msg("failed to recalculate course grade")
	}

	s.logger.Info().
		Uint("quiz_id", quizID).
		Int("attempt_number", attempt.AttemptNumber).
		Int("obtained_marks", obtained).
		Msg("quiz attempt recorded")

	return dto.AttemptResult{
		AttemptNumber:  attempt.AttemptNumber,
		ObtainedMarks:  obtained,
		TotalQuestions: quiz.TotalQuestions,
		Percentage:     attempt.Percentage,
		TimeTaken:      payload.TimeTaken,
	}, nil
}

func (s *quizService) GetReport(ctx context.Context, quizID, userID uint) (dto.ReportResponse, error) {
	if _, _, _, err := s.ownedQuiz(ctx, quizID, userID); err != nil {
		return dto.ReportResponse{}, err
	}

	report, err := s.reports.LatestByQuizAndUser(ctx, quizID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReportResponse{}, ErrReportNotFound
		}
		return dto.ReportResponse{}, err
	}

	return dto.NewReportResponse(report), nil
}

// GenerateForTopic creates the one-and-only adaptive quiz for a
// recommendation topic. The quiz is generated first, then bound to the topic
// with a single conditional update; when a concurrent caller wins the claim,
// the losing quiz is deleted and the caller gets ErrTopicAlreadyGenerated.
// The topic is never locked across the AI call.
func (s *quizService) GenerateForTopic(ctx context.Context, moduleID, topicID, userID uint) (dto.QuizResponse, error) {
	report, err := s.reports.FindByTopic(ctx, moduleID, userID, topicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuizResponse{}, ErrTopicNotFound
		}
		return dto.QuizResponse{}, err
	}

	var topic models.RecommendationTopic
	found := false
	for _, candidate := range report.Topics {
		if candidate.ID == topicID {
			topic = candidate
			found = true
			break
		}
	}
	if !found {
		return dto.QuizResponse{}, ErrTopicNotFound
	}
	if topic.IsQuizGenerated {
		return dto.QuizResponse{}, ErrTopicAlreadyGenerated
	}

	_, course, err := s.ownedModule(ctx, moduleID, userID)
	if err != nil {
		return dto.QuizResponse{}, err
	}

	quiz, err := s.generateQuiz(ctx, buildTopicQuizPrompt(topic, course.QuizConfig), moduleID, course.QuizConfig)
	if err != nil {
		return dto.QuizResponse{}, err
	}

	claimed, err := s.reports.ClaimTopic(ctx, topicID, quiz.ID)
	if err != nil {
		return dto.QuizResponse{}, err
	}
	if !claimed {
		if err := s.quizzes.Delete(ctx, quiz.ID); err != nil {
			s.logger.Error().Err(err).Uint("quiz_id", quiz.ID).Msg("failed to delete unclaimed adaptive quiz")
		}
		return dto.QuizResponse{}, ErrTopicAlreadyGenerated
	}

	s.logger.Info().Uint("topic_id", topicID).Uint("quiz_id", quiz.ID).Msg("adaptive quiz generated")

	return dto.NewQuizResponse(quiz), nil
}

// generateQuiz runs the model, validates the payload, and persists the quiz.
func (s *quizService) generateQuiz(ctx context.Context, prompt string, moduleID uint, config models.QuizConfig) (models.Quiz, error) {
	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return models.Quiz{}, fmt.Errorf("generate quiz: %w", err)
	}

	payload, err := ai.ExtractJSON(raw)
	if err != nil {
		return models.Quiz{}, fmt.Errorf("%w: %v", ErrInvalidAIPayload, err)
	}

	var generated generatedQuiz
	if err := validatePayload(quizSchema, payload, &generated); err != nil {
		return models.Quiz{}, err
	}

	questions := buildQuestions(generated.Questions, config.QuizTypes)
	if len(questions) == 0 {
		return models.Quiz{}, fmt.Errorf("%w: no usable questions", ErrInvalidAIPayload)
	}

	quiz := models.Quiz{
		ModuleID:       moduleID,
		Title:          generated.Title,
		Description:    generated.Description,
		Questions:      questions,
		TotalQuestions: len(questions),
		MaxScore:       len(questions),
		QuizConfig:     config,
	}
	if config.IsTimed && config.TimeDuration > 0 {
		limit := config.TimeDuration
		quiz.TimeLimit = &limit
	}

	if err := s.quizzes.Create(ctx, &quiz); err != nil {
		return models.Quiz{}, err
	}

	return quiz, nil
}

// buildQuestions assigns stable ids, drops questions whose type was not
// requested, and shuffles MCQ options so the correct answer is not always
// first.
func buildQuestions(generated []generatedQuestion, allowedTypes []string) []models.Question {
	allowed := make(map[string]bool, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[t] = true
	}

	questions := make([]models.Question, 0, len(generated))
	for _, item := range generated {
		if len(allowed) > 0 && !allowed[item.QuestionType] {
			continue
		}

		options := append([]string(nil), item.Options...)
		if item.QuestionType == models.QuestionTypeMCQ {
			rand.Shuffle(len(options), func(i, j int) {
				options[i], options[j] = options[j], options[i]
			})
		}
		if item.QuestionType == models.QuestionTypeTrueFalse && len(options) == 0 {
			options = []string{"True", "False"}
		}

		questions = append(questions, models.Question{
			ID:            uuid.NewString(),
			QuestionText:  item.QuestionText,
			Options:       options,
			CorrectAnswer: item.CorrectAnswer,
			QuestionType:  item.QuestionType,
		})
	}

	return questions
}

func (s *quizService) ownedModule(ctx context.Context, moduleID, userID uint) (models.Module, models.Course, error) {
	module, err := s.modules.GetByID(ctx, moduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Module{}, models.Course{}, ErrModuleNotFound
		}
		return models.Module{}, models.Course{}, err
	}

	course, err := s.courses.GetByID(ctx, module.CourseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Module{}, models.Course{}, ErrModuleNotFound
		}
		return models.Module{}, models.Course{}, err
	}
	if course.UserID != userID {
		return models.Module{}, models.Course{}, ErrModuleNotFound
	}

	return module, course, nil
}

func (s *quizService) ownedQuiz(ctx context.Context, quizID, userID uint) (models.Quiz, models.Module, models.Course, error) {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Quiz{}, models.Module{}, models.Course{}, ErrQuizNotFound
		}
		return models.Quiz{}, models.Module{}, models.Course{}, err
	}

	module, course, err := s.ownedModule(ctx, quiz.ModuleID, userID)
	if err != nil {
		return models.Quiz{}, models.Module{}, models.Course{}, ErrQuizNotFound
	}

	return quiz, module, course, nil
}
