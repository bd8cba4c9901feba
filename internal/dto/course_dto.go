package dto

import (
	"fmt"
	"time"

	"github.com/studiora/studiora-api/internal/models"
)

// QuizConfigPayload is the quiz generation configuration supplied at course
// creation.
type QuizConfigPayload struct {
	QuizTypes         []string `json:"quiz_types" validate:"required,min=1,dive,oneof=MCQ Open-ended True/False Coding"`
	NumberOfQuestions int      `json:"number_of_questions" validate:"required,gt=0"`
	DifficultyLevel   string   `json:"difficulty_level" validate:"required,oneof=Easy Medium Hard"`
	IsTimed           bool     `json:"is_timed"`
	TimeDuration      int      `json:"time_duration" validate:"required_if=IsTimed true,omitempty,gt=0"`
}

// LinkMaterialPayload attaches an external resource to a course.
type LinkMaterialPayload struct {
	Title   string `json:"title"`
	FileURL string `json:"file_url" validate:"required,url"`
}

// CourseCreateRequest is the payload for creating a course.
type CourseCreateRequest struct {
	UserID      uint                  `json:"-" validate:"required"`
	Title       string                `json:"title" validate:"required,max=255"`
	Description string                `json:"description"`
	Goal        string                `json:"goal" validate:"max=255"`
	Timeline    int                   `json:"timeline" validate:"required,gt=0"`
	QuizConfig  QuizConfigPayload     `json:"quiz_config" validate:"required"`
	Links       []LinkMaterialPayload `json:"links" validate:"omitempty,dive"`
}

// CourseUpdateRequest carries optional course mutations.
type CourseUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	Goal        *string `json:"goal" validate:"omitempty,max=255"`
	Timeline    *int    `json:"timeline" validate:"omitempty,gt=0"`
}

// CourseListFilter describes course listing parameters.
type CourseListFilter struct {
	Search   string `validate:"omitempty,max=255"`
	Page     int    `validate:"omitempty,gte=0"`
	PageSize int    `validate:"omitempty,gte=0,lte=100"`
}

// LearningSummaryResponse is the aggregated progress snapshot of a course.
type LearningSummaryResponse struct {
	TotalModules            int      `json:"total_modules"`
	CompletedModules        int      `json:"completed_modules"`
	FirstIncompleteModuleID *uint    `json:"first_incomplete_module_id"`
	CourseGrade             *float64 `json:"course_grade"`
}

// CourseResponse is the outward representation of a course.
type CourseResponse struct {
	ID              uint                    `json:"id"`
	Title           string                  `json:"title"`
	Description     string                  `json:"description"`
	Goal            string                  `json:"goal"`
	Timeline        int                     `json:"timeline"`
	Status          models.Status           `json:"status"`
	MaterialCount   int                     `json:"material_count"`
	QuizConfig      QuizConfigPayload       `json:"quiz_config"`
	LearningSummary LearningSummaryResponse `json:"learning_summary"`
	DaysLeft        int                     `json:"days_left"`
	TimeLeft        string                  `json:"time_left"`
	CreatedAt       time.Time               `json:"created_at"`
	Materials       []MaterialResponse      `json:"materials,omitempty"`
}

// MaterialResponse is the outward representation of a course material.
type MaterialResponse struct {
	ID        uint                `json:"id"`
	Title     string              `json:"title"`
	Type      models.MaterialType `json:"type"`
	FileURL   string              `json:"file_url"`
	Processed bool                `json:"processed"`
}

// NewMaterialResponse maps a material model.
func NewMaterialResponse(material models.Material) MaterialResponse {
	return MaterialResponse{
		ID:        material.ID,
		Title:     material.Title,
		Type:      material.Type,
		FileURL:   material.FileURL,
		Processed: material.Processed,
	}
}

// NewCourseResponse maps a course model; derived time fields are computed
// for the supplied instant, never read from storage.
func NewCourseResponse(course models.Course, now time.Time) CourseResponse {
	response := CourseResponse{
		ID:            course.ID,
		Title:         course.Title,
		Description:   course.Description,
		Goal:          course.Goal,
		Timeline:      course.Timeline,
		Status:        course.Status,
		MaterialCount: course.MaterialCount,
		QuizConfig: QuizConfigPayload{
			QuizTypes:         course.QuizConfig.QuizTypes,
			NumberOfQuestions: course.QuizConfig.NumberOfQuestions,
			DifficultyLevel:   course.QuizConfig.DifficultyLevel,
			IsTimed:           course.QuizConfig.IsTimed,
			TimeDuration:      course.QuizConfig.TimeDuration,
		},
		LearningSummary: LearningSummaryResponse{
			TotalModules:            course.Summary.TotalModules,
			CompletedModules:        course.Summary.CompletedModules,
			FirstIncompleteModuleID: course.Summary.FirstIncompleteModuleID,
			CourseGrade:             course.Summary.CourseGrade,
		},
		DaysLeft:  course.DaysLeft(now),
		CreatedAt: course.CreatedAt,
	}

	if due := course.DueAt(); !due.IsZero() {
		response.TimeLeft = formatTimeLeft(due.Sub(now))
	}

	for _, material := range course.Materials {
		response.Materials = append(response.Materials, NewMaterialResponse(material))
	}

	return response
}

// NewCourseResponseSlice maps a list of courses.
func NewCourseResponseSlice(courses []models.Course, now time.Time) []CourseResponse {
	responses := make([]CourseResponse, 0, len(courses))
	for _, course := range courses {
		responses = append(responses, NewCourseResponse(course, now))
	}
	return responses
}

func formatTimeLeft(remaining time.Duration) string {
	if remaining <= 0 {
		return "overdue"
	}

	days := int(remaining.Hours()) / 24
	hours := int(remaining.Hours()) % 24
	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	return fmt.Sprintf("%dh", hours)
}
