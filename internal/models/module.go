package models

import (
	"time"

	"gorm.io/gorm"
)

// Module is a content unit within a course, generated from extracted
// material text. Its grade is the average of its quizzes' latest completed
// attempt percentages.
type Module struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CourseID     uint      `gorm:"not null;index" json:"course_id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	KeyPointsRaw string    `gorm:"column:key_points;type:text" json:"-"`
	Sequence     int       `gorm:"not null;index" json:"sequence"`
	Timeline     int       `gorm:"not null;default:0" json:"timeline"`
	Status       Status    `gorm:"size:16;not null;default:new" json:"status"`
	IsCompleted  bool      `gorm:"default:false" json:"is_completed"`
	Grade        *int      `json:"grade"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	KeyPoints    []string  `gorm:"-" json:"key_points"`
	Quizzes      []Quiz    `json:"quizzes,omitempty"`
}

// BeforeSave encodes key points and keeps the completion flag and status in
// sync.
func (m *Module) BeforeSave(tx *gorm.DB) error {
	m.KeyPointsRaw = encodeList(m.KeyPoints)
	if m.Status == "" {
		m.Status = StatusNew
	}
	if m.Status == StatusCompleted {
		m.IsCompleted = true
	}
	return nil
}

// AfterFind hydrates key points after loading from DB.
func (m *Module) AfterFind(tx *gorm.DB) error {
	m.KeyPoints = decodeList(m.KeyPointsRaw)
	return nil
}

// DueAt returns the module deadline, or the zero time when it cannot be
// computed.
func (m Module) DueAt() time.Time {
	if m.Timeline <= 0 || m.CreatedAt.IsZero() {
		return time.Time{}
	}
	return m.CreatedAt.AddDate(0, 0, m.Timeline)
}

// DaysLeft returns whole days remaining before the module deadline,
// negative when overdue.
func (m Module) DaysLeft(now time.Time) int {
	due := m.DueAt()
	if due.IsZero() {
		return 0
	}
	return int(due.Sub(now).Hours() / 24)
}

// Refresh derives the status for the given instant and applies it,
// reporting whether it changed.
func (m *Module) Refresh(now time.Time) bool {
	derived := DeriveStatus(m.Status, m.CreatedAt, m.Timeline, now)
	if derived == m.Status {
		return false
	}
	m.Status = derived
	return true
}
