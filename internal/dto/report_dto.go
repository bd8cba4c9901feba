package dto

import (
	"time"

	"github.com/studiora/studiora-api/internal/models"
)

// TopicResponse is the outward representation of a recommendation topic.
type TopicResponse struct {
	ID              uint   `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	IsQuizGenerated bool   `json:"is_quiz_generated"`
	QuizID          *uint  `json:"quiz_id"`
}

// ReportResponse is the outward representation of a quiz report.
type ReportResponse struct {
	ID               uint                   `json:"id"`
	QuizID           uint                   `json:"quiz_id"`
	ModuleID         uint                   `json:"module_id"`
	ModuleName       string                 `json:"module_name"`
	CourseName       string                 `json:"course_name"`
	QuizTitle        string                 `json:"quiz_title"`
	AttemptNumber    int                    `json:"attempt_number"`
	Percentage       float64                `json:"percentage"`
	CorrectAnswers   int                    `json:"correct_answers"`
	IncorrectAnswers int                    `json:"incorrect_answers"`
	TotalQuestions   int                    `json:"total_questions"`
	StrongestArea    string                 `json:"strongest_area"`
	WeakestArea      string                 `json:"weakest_area"`
	GoodAt           string                 `json:"good_at"`
	StruggledWith    []string               `json:"struggled_with"`
	Trend            []models.TrendPoint    `json:"trend"`
	AISummary        string                 `json:"ai_summary"`
	StudyMaterials   []models.StudyMaterial `json:"study_materials"`
	Topics           []TopicResponse        `json:"topics"`
	Status           models.ReportStatus    `json:"status"`
	GeneratedAt      time.Time              `json:"generated_at"`
}

// NewReportResponse maps a quiz report model.
func NewReportResponse(report models.QuizReport) ReportResponse {
	response := ReportResponse{
		ID:               report.ID,
		QuizID:           report.QuizID,
		ModuleID:         report.ModuleID,
		ModuleName:       report.ModuleName,
		CourseName:       report.CourseName,
		QuizTitle:        report.QuizTitle,
		AttemptNumber:    report.AttemptNumber,
		Percentage:       report.Percentage,
		CorrectAnswers:   report.CorrectAnswers,
		IncorrectAnswers: report.IncorrectAnswers,
		TotalQuestions:   report.TotalQuestions,
		StrongestArea:    report.StrongestArea,
		WeakestArea:      report.WeakestArea,
		GoodAt:           report.GoodAt,
		StruggledWith:    report.StruggledWith,
		Trend:            report.Trend,
		AISummary:        report.AISummary,
		StudyMaterials:   report.StudyMaterials,
		Status:           report.Status,
		GeneratedAt:      report.GeneratedAt,
	}

	for _, topic := range report.Topics {
		response.Topics = append(response.Topics, TopicResponse{
			ID:              topic.ID,
			Title:           topic.Title,
			Description:     topic.Description,
			IsQuizGenerated: topic.IsQuizGenerated,
			QuizID:          topic.QuizID,
		})
	}

	return response
}
