package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		current  Status
		created  time.Time
		timeline int
		now      time.Time
		want     Status
	}{
		{
			name:     "new before deadline stays new",
			current:  StatusNew,
			created:  base,
			timeline: 7,
			now:      base.AddDate(0, 0, 3),
			want:     StatusNew,
		},
		{
			name:     "new past deadline becomes late",
			current:  StatusNew,
			created:  base,
			timeline: 7,
			now:      base.AddDate(0, 0, 8),
			want:     StatusLate,
		},
		{
			name:     "on-track past deadline becomes late",
			current:  StatusOnTrack,
			created:  base,
			timeline: 7,
			now:      base.AddDate(0, 0, 8),
			want:     StatusLate,
		},
		{
			name:     "exactly at the deadline is not late",
			current:  StatusOnTrack,
			created:  base,
			timeline: 7,
			now:      base.AddDate(0, 0, 7),
			want:     StatusOnTrack,
		},
		{
			name:     "completed is terminal",
			current:  StatusCompleted,
			created:  base,
			timeline: 7,
			now:      base.AddDate(0, 0, 30),
			want:     StatusCompleted,
		},
		{
			name:     "late stays late",
			current:  StatusLate,
			created:  base,
			timeline: 7,
			now:      base.AddDate(0, 0, 30),
			want:     StatusLate,
		},
		{
			name:     "zero timeline never derives",
			current:  StatusNew,
			created:  base,
			timeline: 0,
			now:      base.AddDate(0, 0, 30),
			want:     StatusNew,
		},
		{
			name:     "unset creation date never derives",
			current:  StatusOnTrack,
			created:  time.Time{},
			timeline: 7,
			now:      base.AddDate(0, 0, 30),
			want:     StatusOnTrack,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DeriveStatus(tc.current, tc.created, tc.timeline, tc.now))
		})
	}
}

func TestStatusValid(t *testing.T) {
	for _, status := range []Status{StatusNew, StatusOnTrack, StatusLate, StatusCompleted} {
		require.True(t, status.Valid())
	}
	require.False(t, Status("archived").Valid())
	require.False(t, Status("").Valid())
}

func TestCourseRefresh(t *testing.T) {
	created := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	course := Course{Status: StatusNew, Timeline: 7, CreatedAt: created}

	require.False(t, course.Refresh(created.AddDate(0, 0, 3)))
	require.Equal(t, StatusNew, course.Status)

	require.True(t, course.Refresh(created.AddDate(0, 0, 10)))
	require.Equal(t, StatusLate, course.Status)

	// Already late: nothing left to persist.
	require.False(t, course.Refresh(created.AddDate(0, 0, 20)))
}

func TestCourseDaysLeft(t *testing.T) {
	created := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	course := Course{Timeline: 7, CreatedAt: created}

	require.Equal(t, 4, course.DaysLeft(created.AddDate(0, 0, 3)))
	require.Equal(t, -3, course.DaysLeft(created.AddDate(0, 0, 10)))
	require.Equal(t, 0, Course{}.DaysLeft(created))
}

func TestModuleDueAt(t *testing.T) {
	created := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	module := Module{Timeline: 5, CreatedAt: created}

	require.Equal(t, created.AddDate(0, 0, 5), module.DueAt())
	require.True(t, Module{Timeline: 5}.DueAt().IsZero())
	require.True(t, Module{CreatedAt: created}.DueAt().IsZero())
}

func TestQuizTypeListRoundTrip(t *testing.T) {
	encoded := encodeList([]string{"MCQ", " True/False ", ""})
	require.Equal(t, "|MCQ|True/False|", encoded)
	require.Equal(t, []string{"MCQ", "True/False"}, decodeList(encoded))
	require.Empty(t, decodeList(""))
}
