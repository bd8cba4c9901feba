package models

import "time"

// Status tracks where a course or module sits in its learning lifecycle.
type Status string

const (
	// StatusNew marks an entity that has been created but not started.
	StatusNew Status = "new"
	// StatusOnTrack marks an entity with active learning progress.
	StatusOnTrack Status = "on-track"
	// StatusLate marks an entity whose deadline has passed without completion.
	StatusLate Status = "late"
	// StatusCompleted marks a finished entity. Completed is terminal.
	StatusCompleted Status = "completed"
)

// Valid reports whether the status is one of the known lifecycle values.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusOnTrack, StatusLate, StatusCompleted:
		return true
	}
	return false
}

// DeriveStatus returns the status an entity should carry at the given
// instant. Completed never changes. An entity still in new or on-track
// becomes late once createdAt + timeline days is behind now. When the
// timeline is non-positive or createdAt is unset the due date cannot be
// computed and the current status is returned unchanged.
func DeriveStatus(current Status, createdAt time.Time, timelineDays int, now time.Time) Status {
	if current == StatusCompleted {
		return current
	}
	if timelineDays <= 0 || createdAt.IsZero() {
		return current
	}
	if current != StatusNew && current != StatusOnTrack {
		return current
	}

	dueAt := createdAt.AddDate(0, 0, timelineDays)
	if now.After(dueAt) {
		return StatusLate
	}
	return current
}
