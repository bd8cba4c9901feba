package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/studiora/studiora-api/internal/dto"
	"github.com/studiora/studiora-api/internal/models"
)

type courseFixture struct {
	courses   *memoryCourseRepo
	materials *memoryMaterialRepo
	uploader  *stubUploader
	service   CourseService
}

func newCourseFixture(t *testing.T, cache *redis.Client) *courseFixture {
	t.Helper()

	f := &courseFixture{
		courses:   newMemoryCourseRepo(),
		materials: newMemoryMaterialRepo(),
		uploader:  &stubUploader{},
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	f.service = NewCourseService(f.courses, f.materials, f.uploader, validate, cache, time.Minute, testLogger())

	return f
}

func validCreateRequest(userID uint) dto.CourseCreateRequest {
	return dto.CourseCreateRequest{
		UserID:   userID,
		Title:    "Go Fundamentals",
		Goal:     "Learn the language",
		Timeline: 30,
		QuizConfig: dto.QuizConfigPayload{
			QuizTypes:         []string{"MCQ", "True/False"},
			NumberOfQuestions: 5,
			DifficultyLevel:   "Medium",
		},
	}
}

func TestCreateCourseSanitizesInput(t *testing.T) {
	f := newCourseFixture(t, nil)

	payload := validCreateRequest(1)
	payload.Title = "  <b>Go</b> Fundamentals "
	payload.Description = `<script>alert("x")</script>Intro to Go`

	response, err := f.service.Create(context.Background(), payload, nil)
	require.NoError(t, err)
	require.Equal(t, "Go Fundamentals", response.Title)
	require.Equal(t, "Intro to Go", response.Description)
	require.Equal(t, models.StatusNew, response.Status)
	require.Equal(t, 0, response.MaterialCount)
}

func TestCreateCourseStoresLinkMaterials(t *testing.T) {
	f := newCourseFixture(t, nil)

	payload := validCreateRequest(1)
	payload.Links = []dto.LinkMaterialPayload{
		{Title: "Tour of Go", FileURL: "https://example.com/tour"},
		{Title: "  ", FileURL: "https://example.com/blog"},
	}

	response, err := f.service.Create(context.Background(), payload, nil)
	require.NoError(t, err)
	require.Equal(t, 2, response.MaterialCount)
	require.Len(t, response.Materials, 2)
	require.Equal(t, "Tour of Go", response.Materials[0].Title)
	require.Equal(t, "Untitled Link", response.Materials[1].Title)

	pending, err := f.materials.ListUnprocessed(context.Background(), response.ID)
	require.NoError(t, err)
	require.Len(t, pending, 2)
}

func TestCreateCourseRejectsHTMLOnlyTitle(t *testing.T) {
	f := newCourseFixture(t, nil)

	payload := validCreateRequest(1)
	payload.Title = "<b></b>"

	_, err := f.service.Create(context.Background(), payload, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "title is required")
}

func TestCreateCourseValidatesPayload(t *testing.T) {
	f := newCourseFixture(t, nil)

	payload := validCreateRequest(1)
	payload.Timeline = 0

	_, err := f.service.Create(context.Background(), payload, nil)

	var verr validator.ValidationErrors
	require.ErrorAs(t, err, &verr)
}

func TestGetCourseChecksOwnership(t *testing.T) {
	f := newCourseFixture(t, nil)
	created, err := f.service.Create(context.Background(), validCreateRequest(1), nil)
	require.NoError(t, err)

	_, err = f.service.Get(context.Background(), created.ID, 2)
	require.ErrorIs(t, err, ErrCourseNotFound)

	_, err = f.service.Get(context.Background(), created.ID+100, 1)
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestGetCoursePersistsDerivedLateStatus(t *testing.T) {
	f := newCourseFixture(t, nil)
	created, err := f.service.Create(context.Background(), validCreateRequest(1), nil)
	require.NoError(t, err)

	course, err := f.courses.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	course.CreatedAt = time.Now().AddDate(0, 0, -40)
	require.NoError(t, f.courses.Update(context.Background(), &course))

	response, err := f.service.Get(context.Background(), created.ID, 1)
	require.NoError(t, err)
	require.Equal(t, models.StatusLate, response.Status)
	require.Negative(t, response.DaysLeft)
	require.Equal(t, "overdue", response.TimeLeft)

	stored, err := f.courses.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusLate, stored.Status)
}

func TestGetCourseServesCachedCopy(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	f := newCourseFixture(t, cache)

	created, err := f.service.Create(context.Background(), validCreateRequest(1), nil)
	require.NoError(t, err)

	first, err := f.service.Get(context.Background(), created.ID, 1)
	require.NoError(t, err)

	// Mutate storage behind the cache's back; the stale copy must win
	// until the entry expires or is invalidated.
	course, err := f.courses.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	course.Title = "Renamed"
	require.NoError(t, f.courses.Update(context.Background(), &course))

	second, err := f.service.Get(context.Background(), created.ID, 1)
	require.NoError(t, err)
	require.Equal(t, first.Title, second.Title)
}

func TestGetCourseCacheIsScopedToOwner(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	f := newCourseFixture(t, cache)

	created, err := f.service.Create(context.Background(), validCreateRequest(1), nil)
	require.NoError(t, err)

	_, err = f.service.Get(context.Background(), created.ID, 1)
	require.NoError(t, err)

	_, err = f.service.Get(context.Background(), created.ID, 2)
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestUpdateCourseInvalidatesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	f := newCourseFixture(t, cache)

	created, err := f.service.Create(context.Background(), validCreateRequest(1), nil)
	require.NoError(t, err)

	_, err = f.service.Get(context.Background(), created.ID, 1)
	require.NoError(t, err)

	title := "Advanced Go"
	_, err = f.service.Update(context.Background(), created.ID, 1, dto.CourseUpdateRequest{Title: &title})
	require.NoError(t, err)

	refreshed, err := f.service.Get(context.Background(), created.ID, 1)
	require.NoError(t, err)
	require.Equal(t, "Advanced Go", refreshed.Title)
}

func TestUpdateCourseAppliesPartialFields(t *testing.T) {
	f := newCourseFixture(t, nil)
	created, err := f.service.Create(context.Background(), validCreateRequest(1), nil)
	require.NoError(t, err)

	goal := "<i>Ship</i> a service"
	timeline := 45
	updated, err := f.service.Update(context.Background(), created.ID, 1, dto.CourseUpdateRequest{Goal: &goal, Timeline: &timeline})
	require.NoError(t, err)
	require.Equal(t, created.Title, updated.Title)
	require.Equal(t, "Ship a service", updated.Goal)
	require.Equal(t, 45, updated.Timeline)
}

func TestUpdateCourseChecksOwnership(t *testing.T) {
	f := newCourseFixture(t, nil)
	created, err := f.service.Create(context.Background(), validCreateRequest(1), nil)
	require.NoError(t, err)

	title := "Hijacked"
	_, err = f.service.Update(context.Background(), created.ID, 2, dto.CourseUpdateRequest{Title: &title})
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestDeleteCourse(t *testing.T) {
	f := newCourseFixture(t, nil)
	created, err := f.service.Create(context.Background(), validCreateRequest(1), nil)
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(context.Background(), created.ID, 1))
	require.ErrorIs(t, f.service.Delete(context.Background(), created.ID, 1), ErrCourseNotFound)
}

func TestListCoursesFiltersBySearch(t *testing.T) {
	f := newCourseFixture(t, nil)
	for _, title := range []string{"Go Fundamentals", "Rust Basics", "Go Concurrency"} {
		payload := validCreateRequest(1)
		payload.Title = title
		_, err := f.service.Create(context.Background(), payload, nil)
		require.NoError(t, err)
	}

	courses, meta, err := f.service.List(context.Background(), 1, dto.CourseListFilter{Search: "go"})
	require.NoError(t, err)
	require.Len(t, courses, 2)
	require.EqualValues(t, 2, meta.Total)
}
