package models

import "time"

// MaterialType identifies what kind of study material was attached.
type MaterialType string

const (
	MaterialTypePDF   MaterialType = "pdf"
	MaterialTypeAudio MaterialType = "audio"
	MaterialTypeVideo MaterialType = "video"
	MaterialTypeLink  MaterialType = "link"
)

// Material is an uploaded file or external link attached to a course.
// Unprocessed materials are the input queue for module generation.
type Material struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	CourseID  uint         `gorm:"not null;index" json:"course_id"`
	Title     string       `gorm:"size:255;not null" json:"title"`
	Type      MaterialType `gorm:"size:16;not null" json:"type"`
	FileURL   string       `gorm:"size:512;not null" json:"file_url"`
	Processed bool         `gorm:"default:false;index" json:"processed"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Extractable reports whether module generation can pull text out of this
// material. Video is stored for reference only.
func (m Material) Extractable() bool {
	switch m.Type {
	case MaterialTypePDF, MaterialTypeAudio, MaterialTypeLink:
		return true
	}
	return false
}
