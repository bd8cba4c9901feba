package dto

import (
	"time"

	"github.com/studiora/studiora-api/internal/models"
)

// UserAnswer is one answer in a quiz submission.
type UserAnswer struct {
	QuestionID string `json:"question_id" validate:"required"`
	Answer     string `json:"answer"`
}

// QuizSubmitRequest is the payload for submitting a quiz attempt.
type QuizSubmitRequest struct {
	UserID      uint         `json:"-" validate:"required"`
	UserAnswers []UserAnswer `json:"user_answers" validate:"required,dive"`
	TimeTaken   int          `json:"time_taken" validate:"gte=0"`
}

// AttemptResult summarises a graded submission.
type AttemptResult struct {
	AttemptNumber  int    `json:"attempt_number"`
	ObtainedMarks  int    `json:"obtained_marks"`
	TotalQuestions int    `json:"total_questions"`
	Percentage     string `json:"percentage"`
	TimeTaken      int    `json:"time_taken"`
}

// QuestionResponse is the outward representation of a quiz question. The
// correct answer is never exposed.
type QuestionResponse struct {
	ID           string   `json:"id"`
	QuestionText string   `json:"question_text"`
	Options      []string `json:"options,omitempty"`
	QuestionType string   `json:"question_type"`
}

// AttemptResponse is the outward representation of a recorded attempt.
type AttemptResponse struct {
	AttemptNumber int                   `json:"attempt_number"`
	ObtainedMarks int                   `json:"obtained_marks"`
	Percentage    string                `json:"percentage"`
	IsCompleted   bool                  `json:"is_completed"`
	TimeTaken     int                   `json:"time_taken"`
	SubmittedAt   time.Time             `json:"submitted_at"`
	Answers       []models.AnswerRecord `json:"answers"`
}

// QuizResponse is the outward representation of a quiz.
type QuizResponse struct {
	ID             uint               `json:"id"`
	ModuleID       uint               `json:"module_id"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	Questions      []QuestionResponse `json:"questions"`
	TotalQuestions int                `json:"total_questions"`
	MaxScore       int                `json:"max_score"`
	TimeLimit      *int               `json:"time_limit"`
	CreatedAt      time.Time          `json:"created_at"`
	Attempts       []AttemptResponse  `json:"attempts,omitempty"`
}

// NewQuizResponse maps a quiz model.
func NewQuizResponse(quiz models.Quiz) QuizResponse {
	response := QuizResponse{
		ID:             quiz.ID,
		ModuleID:       quiz.ModuleID,
		Title:          quiz.Title,
		Description:    quiz.Description,
		TotalQuestions: quiz.TotalQuestions,
		MaxScore:       quiz.MaxScore,
		TimeLimit:      quiz.TimeLimit,
		CreatedAt:      quiz.CreatedAt,
	}

	for _, question := range quiz.Questions {
		response.Questions = append(response.Questions, QuestionResponse{
			ID:           question.ID,
			QuestionText: question.QuestionText,
			Options:      question.Options,
			QuestionType: question.QuestionType,
		})
	}

	for _, attempt := range quiz.Attempts {
		response.Attempts = append(response.Attempts, NewAttemptResponse(attempt))
	}

	return response
}

// NewAttemptResponse maps an attempt model.
func NewAttemptResponse(attempt models.QuizAttempt) AttemptResponse {
	return AttemptResponse{
		AttemptNumber: attempt.AttemptNumber,
		ObtainedMarks: attempt.ObtainedMarks,
		Percentage:    attempt.Percentage,
		IsCompleted:   attempt.IsCompleted,
		TimeTaken:     attempt.TimeTaken,
		SubmittedAt:   attempt.SubmittedAt,
		Answers:       attempt.Answers,
	}
}

// NewQuizResponseSlice maps a list of quizzes.
func NewQuizResponseSlice(quizzes []models.Quiz) []QuizResponse {
	responses := make([]QuizResponse, 0, len(quizzes))
	for _, quiz := range quizzes {
		responses = append(responses, NewQuizResponse(quiz))
	}
	return responses
}

// QuizListFilter describes quiz listing parameters.
type QuizListFilter struct {
	Page     int `validate:"omitempty,gte=0"`
	PageSize int `validate:"omitempty,gte=0,lte=100"`
}
