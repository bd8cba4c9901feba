package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReportStatus tracks the asynchronous lifecycle of a quiz report.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusCompleted ReportStatus = "completed"
	ReportStatusFailed    ReportStatus = "failed"
)

// TrendPoint is one historical attempt result included in a report.
type TrendPoint struct {
	AttemptNumber int    `json:"attempt_number"`
	Percentage    string `json:"percentage"`
}

// StudyMaterial is an AI-suggested external resource.
type StudyMaterial struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// QuizReport is the AI-narrated performance report created for each
// submitted attempt. The numeric stats are filled in synchronously; the
// narrative fields arrive when the AI call completes.
type QuizReport struct {
	ID               uint                  `gorm:"primaryKey" json:"id"`
	UserID           uint                  `gorm:"not null;index" json:"user_id"`
	QuizID           uint                  `gorm:"not null;index" json:"quiz_id"`
	ModuleID         uint                  `gorm:"not null;index" json:"module_id"`
	ModuleName       string                `gorm:"size:255" json:"module_name"`
	CourseName       string                `gorm:"size:255" json:"course_name"`
	QuizTitle        string                `gorm:"size:255" json:"quiz_title"`
	AttemptNumber    int                   `gorm:"not null" json:"attempt_number"`
	Percentage       float64               `json:"percentage"`
	CorrectAnswers   int                   `json:"correct_answers"`
	IncorrectAnswers int                   `json:"incorrect_answers"`
	TotalQuestions   int                   `json:"total_questions"`
	StrongestArea    string                `gorm:"size:255" json:"strongest_area"`
	WeakestArea      string                `gorm:"size:255" json:"weakest_area"`
	GoodAt           string                `gorm:"size:255" json:"good_at"`
	StruggledWithRaw datatypes.JSON        `gorm:"column:struggled_with;type:json" json:"-"`
	TrendRaw         datatypes.JSON        `gorm:"column:trend;type:json" json:"-"`
	MaterialsRaw     datatypes.JSON        `gorm:"column:study_materials;type:json" json:"-"`
	AISummary        string                `gorm:"type:text" json:"ai_summary"`
	Status           ReportStatus          `gorm:"size:16;not null;default:pending" json:"status"`
	GeneratedAt      time.Time             `json:"generated_at"`
	StruggledWith    []string              `gorm:"-" json:"struggled_with"`
	Trend            []TrendPoint          `gorm:"-" json:"trend"`
	StudyMaterials   []StudyMaterial       `gorm:"-" json:"study_materials"`
	Topics           []RecommendationTopic `gorm:"foreignKey:ReportID" json:"topics,omitempty"`
}

// BeforeSave serialises the JSON columns.
func (r *QuizReport) BeforeSave(tx *gorm.DB) error {
	var err error
	if r.StruggledWithRaw, err = json.Marshal(r.StruggledWith); err != nil {
		return fmt.Errorf("encode struggled_with: %w", err)
	}
	if r.TrendRaw, err = json.Marshal(r.Trend); err != nil {
		return fmt.Errorf("encode trend: %w", err)
	}
	if r.MaterialsRaw, err = json.Marshal(r.StudyMaterials); err != nil {
		return fmt.Errorf("encode study_materials: %w", err)
	}
	return nil
}

// AfterFind hydrates the JSON columns.
func (r *QuizReport) AfterFind(tx *gorm.DB) error {
	if len(r.StruggledWithRaw) > 0 {
		if err := json.Unmarshal(r.StruggledWithRaw, &r.StruggledWith); err != nil {
			return fmt.Errorf("decode struggled_with: %w", err)
		}
	}
	if len(r.TrendRaw) > 0 {
		if err := json.Unmarshal(r.TrendRaw, &r.Trend); err != nil {
			return fmt.Errorf("decode trend: %w", err)
		}
	}
	if len(r.MaterialsRaw) > 0 {
		if err := json.Unmarshal(r.MaterialsRaw, &r.StudyMaterials); err != nil {
			return fmt.Errorf("decode study_materials: %w", err)
		}
	}
	return nil
}

// RecommendationTopic is an AI-identified weak area attached to a report.
// At most one remediation quiz may ever be generated per topic; the claim
// is a single conditional update keyed on is_quiz_generated = false.
type RecommendationTopic struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ReportID        uint      `gorm:"not null;index" json:"report_id"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	Description     string    `gorm:"type:text" json:"description"`
	IsQuizGenerated bool      `gorm:"default:false" json:"is_quiz_generated"`
	QuizID          *uint     `json:"quiz_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
