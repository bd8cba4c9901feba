package dto

import (
	"time"

	"github.com/studiora/studiora-api/internal/models"
)

// ModuleListFilter describes module listing parameters.
type ModuleListFilter struct {
	Search   string `validate:"omitempty,max=255"`
	Page     int    `validate:"omitempty,gte=0"`
	PageSize int    `validate:"omitempty,gte=0,lte=100"`
}

// ModuleResponse is the outward representation of a module.
type ModuleResponse struct {
	ID          uint          `json:"id"`
	CourseID    uint          `json:"course_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	KeyPoints   []string      `json:"key_points"`
	Sequence    int           `json:"sequence"`
	Timeline    int           `json:"timeline"`
	Status      models.Status `json:"status"`
	IsCompleted bool          `json:"is_completed"`
	Grade       *int          `json:"grade"`
	DaysLeft    int           `json:"days_left"`
	CreatedAt   time.Time     `json:"created_at"`
}

// NewModuleResponse maps a module model; DaysLeft is computed for the
// supplied instant.
func NewModuleResponse(module models.Module, now time.Time) ModuleResponse {
	return ModuleResponse{
		ID:          module.ID,
		CourseID:    module.CourseID,
		Title:       module.Title,
		Description: module.Description,
		KeyPoints:   module.KeyPoints,
		Sequence:    module.Sequence,
		Timeline:    module.Timeline,
		Status:      module.Status,
		IsCompleted: module.IsCompleted,
		Grade:       module.Grade,
		DaysLeft:    module.DaysLeft(now),
		CreatedAt:   module.CreatedAt,
	}
}

// NewModuleResponseSlice maps a list of modules.
func NewModuleResponseSlice(modules []models.Module, now time.Time) []ModuleResponse {
	responses := make([]ModuleResponse, 0, len(modules))
	for _, module := range modules {
		responses = append(responses, NewModuleResponse(module, now))
	}
	return responses
}

// PageMeta carries pagination metadata for list responses.
type PageMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}
