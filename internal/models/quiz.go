package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Question is a single generated quiz question. Questions live inside the
// quiz's JSON column; IDs are assigned at generation time and stay stable
// for the quiz's lifetime.
type Question struct {
	ID            string   `json:"id"`
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer"`
	QuestionType  string   `json:"question_type"`
}

// AutoGradable reports whether the question type contributes to automatic
// scoring. Open-ended and coding answers are recorded but never counted.
func (q Question) AutoGradable() bool {
	return q.QuestionType == QuestionTypeMCQ || q.QuestionType == QuestionTypeTrueFalse
}

// Quiz is an AI-generated assessment attached to a module. Attempts are
// stored in their own table and appended through the repository so attempt
// numbers stay strictly increasing.
type Quiz struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	ModuleID       uint           `gorm:"not null;index" json:"module_id"`
	Title          string         `gorm:"size:255;not null" json:"title"`
	Description    string         `gorm:"type:text" json:"description"`
	QuestionsRaw   datatypes.JSON `gorm:"column:questions;type:json" json:"-"`
	TotalQuestions int            `gorm:"not null" json:"total_questions"`
	MaxScore       int            `gorm:"not null" json:"max_score"`
	TimeLimit      *int           `json:"time_limit"`
	QuizConfig     QuizConfig     `gorm:"embedded;embeddedPrefix:config_" json:"quiz_config"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Questions      []Question     `gorm:"-" json:"questions"`
	Attempts       []QuizAttempt  `json:"attempts,omitempty"`
}

// BeforeSave serialises questions into the JSON column.
func (q *Quiz) BeforeSave(tx *gorm.DB) error {
	raw, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("encode quiz questions: %w", err)
	}
	q.QuestionsRaw = raw
	return nil
}

// AfterFind hydrates questions from the JSON column.
func (q *Quiz) AfterFind(tx *gorm.DB) error {
	if len(q.QuestionsRaw) == 0 {
		q.Questions = []Question{}
		return nil
	}
	if err := json.Unmarshal(q.QuestionsRaw, &q.Questions); err != nil {
		return fmt.Errorf("decode quiz questions: %w", err)
	}
	return nil
}

// QuestionByID returns the question with the given id, if present.
func (q Quiz) QuestionByID(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// AnswerRecord captures how a single question was answered in an attempt.
type AnswerRecord struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
	IsCorrect  bool   `json:"is_correct"`
}

// QuizAttempt is one graded submission of a quiz. Attempts are immutable
// once created; the unique index on (quiz_id, attempt_number) backs up the
// serialised append in the repository.
type QuizAttempt struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	QuizID        uint           `gorm:"not null;uniqueIndex:idx_quiz_attempt_number" json:"quiz_id"`
	AttemptNumber int            `gorm:"not null;uniqueIndex:idx_quiz_attempt_number" json:"attempt_number"`
	ObtainedMarks int            `gorm:"not null" json:"obtained_marks"`
	Percentage    string         `gorm:"size:16;not null" json:"percentage"`
	IsCompleted   bool           `gorm:"default:false" json:"is_completed"`
	TimeTaken     int            `gorm:"default:0" json:"time_taken"`
	AnswersRaw    datatypes.JSON `gorm:"column:answers;type:json" json:"-"`
	SubmittedAt   time.Time      `json:"submitted_at"`
	Answers       []AnswerRecord `gorm:"-" json:"answers"`
}

// BeforeSave serialises the answer list.
func (a *QuizAttempt) BeforeSave(tx *gorm.DB) error {
	raw, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("encode attempt answers: %w", err)
	}
	a.AnswersRaw = raw
	return nil
}

// AfterFind hydrates the answer list.
func (a *QuizAttempt) AfterFind(tx *gorm.DB) error {
	if len(a.AnswersRaw) == 0 {
		a.Answers = []AnswerRecord{}
		return nil
	}
	if err := json.Unmarshal(a.AnswersRaw, &a.Answers); err != nil {
		return fmt.Errorf("decode attempt answers: %w", err)
	}
	return nil
}
