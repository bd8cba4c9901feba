package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Allowed quiz question types and difficulty levels for course quiz configs.
const (
	QuestionTypeMCQ       = "MCQ"
	QuestionTypeOpenEnded = "Open-ended"
	QuestionTypeTrueFalse = "True/False"
	QuestionTypeCoding    = "Coding"

	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// QuizConfig captures how quizzes should be generated for a course.
type QuizConfig struct {
	QuizTypesRaw      string   `gorm:"column:quiz_types;type:text" json:"-"`
	NumberOfQuestions int      `gorm:"default:10" json:"number_of_questions"`
	DifficultyLevel   string   `gorm:"size:16;default:Easy" json:"difficulty_level"`
	IsTimed           bool     `gorm:"default:false" json:"is_timed"`
	TimeDuration      int      `gorm:"default:30" json:"time_duration"`
	QuizTypes         []string `gorm:"-" json:"quiz_types"`
}

// LearningSummary is a course's aggregated progress snapshot.
type LearningSummary struct {
	TotalModules            int      `gorm:"default:0" json:"total_modules"`
	CompletedModules        int      `gorm:"default:0" json:"completed_modules"`
	FirstIncompleteModuleID *uint    `json:"first_incomplete_module_id"`
	CourseGrade             *float64 `json:"course_grade"`
}

// Course is a user's study plan generated from uploaded materials.
type Course struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	Title         string          `gorm:"size:255;not null" json:"title"`
	Description   string          `gorm:"type:text" json:"description"`
	Goal          string          `gorm:"size:255" json:"goal"`
	Timeline      int             `gorm:"not null" json:"timeline"`
	Status        Status          `gorm:"size:16;not null;default:new" json:"status"`
	MaterialCount int             `gorm:"default:0" json:"material_count"`
	QuizConfig    QuizConfig      `gorm:"embedded;embeddedPrefix:quiz_config_" json:"quiz_config"`
	Summary       LearningSummary `gorm:"embedded;embeddedPrefix:summary_" json:"learning_summary"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Materials     []Material      `json:"materials,omitempty"`
	Modules       []Module        `json:"modules,omitempty"`
}

// BeforeSave encodes the quiz type list and normalises the status.
func (c *Course) BeforeSave(tx *gorm.DB) error {
	c.QuizConfig.QuizTypesRaw = encodeList(c.QuizConfig.QuizTypes)
	if c.Status == "" {
		c.Status = StatusNew
	}
	return nil
}

// AfterFind hydrates the quiz type list after loading from DB.
func (c *Course) AfterFind(tx *gorm.DB) error {
	c.QuizConfig.QuizTypes = decodeList(c.QuizConfig.QuizTypesRaw)
	return nil
}

// DueAt returns the course deadline, or the zero time when it cannot be
// computed.
func (c Course) DueAt() time.Time {
	if c.Timeline <= 0 || c.CreatedAt.IsZero() {
		return time.Time{}
	}
	return c.CreatedAt.AddDate(0, 0, c.Timeline)
}

// DaysLeft returns whole days remaining before the deadline, negative when
// overdue. Computed on read, never stored.
func (c Course) DaysLeft(now time.Time) int {
	due := c.DueAt()
	if due.IsZero() {
		return 0
	}
	return int(due.Sub(now).Hours() / 24)
}

// Refresh derives the status for the given instant and applies it. It
// returns true when the stored status should be persisted again.
func (c *Course) Refresh(now time.Time) bool {
	derived := DeriveStatus(c.Status, c.CreatedAt, c.Timeline, now)
	if derived == c.Status {
		return false
	}
	c.Status = derived
	return true
}

func encodeList(values []string) string {
	if len(values) == 0 {
		return ""
	}
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		cleaned = append(cleaned, trimmed)
	}
	if len(cleaned) == 0 {
		return ""
	}
	return "|" + strings.Join(cleaned, "|") + "|"
}

func decodeList(raw string) []string {
	raw = strings.Trim(raw, "|")
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, "|")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, trimmed)
	}
	return values
}
