package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/studiora/studiora-api/internal/models"
	"github.com/studiora/studiora-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type memoryCourseRepo struct {
	mu      sync.Mutex
	courses map[uint]models.Course
	nextID  uint
}

func newMemoryCourseRepo() *memoryCourseRepo {
	return &memoryCourseRepo{courses: make(map[uint]models.Course), nextID: 1}
}

func (m *memoryCourseRepo) Create(_ context.Context, course *models.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	course.ID = m.nextID
	course.CreatedAt = time.Now()
	course.UpdatedAt = time.Now()
	m.courses[course.ID] = *course
	m.nextID++
	return nil
}

func (m *memoryCourseRepo) GetByID(_ context.Context, id uint) (models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	course, ok := m.courses[id]
	if !ok {
		return models.Course{}, gorm.ErrRecordNotFound
	}
	return course, nil
}

func (m *memoryCourseRepo) ListByUser(_ context.Context, userID uint, filter repository.CourseFilter) ([]models.Course, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []models.Course
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	for _, course := range m.courses {
		if course.UserID != userID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(course.Title), search) {
			continue
		}
		results = append(results, course)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	total := int64(len(results))
	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		start := (page - 1) * filter.PageSize
		if start >= len(results) {
			return []models.Course{}, total, nil
		}
		end := start + filter.PageSize
		if end > len(results) {
			end = len(results)
		}
		results = results[start:end]
	}
	return results, total, nil
}

func (m *memoryCourseRepo) Update(_ context.Context, course *models.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[course.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	course.UpdatedAt = time.Now()
	m.courses[course.ID] = *course
	return nil
}

func (m *memoryCourseRepo) UpdateStatus(_ context.Context, id uint, status models.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	course, ok := m.courses[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	course.Status = status
	m.courses[id] = course
	return nil
}

func (m *memoryCourseRepo) UpdateSummary(_ context.Context, id uint, update repository.SummaryUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	course, ok := m.courses[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	course.Summary.TotalModules = update.TotalModules
	course.Summary.CompletedModules = update.CompletedModules
	course.Summary.FirstIncompleteModuleID = update.FirstIncompleteModuleID
	if !update.KeepGrade {
		course.Summary.CourseGrade = update.CourseGrade
	}
	m.courses[id] = course
	return nil
}

func (m *memoryCourseRepo) UpdateMaterialCount(_ context.Context, id uint, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	course, ok := m.courses[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	course.MaterialCount = count
	m.courses[id] = course
	return nil
}

func (m *memoryCourseRepo) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.courses, id)
	return nil
}

type memoryMaterialRepo struct {
	mu        sync.Mutex
	materials map[uint]models.Material
	nextID    uint
}

func newMemoryMaterialRepo() *memoryMaterialRepo {
	return &memoryMaterialRepo{materials: make(map[uint]models.Material), nextID: 1}
}

func (m *memoryMaterialRepo) Create(_ context.Context, material *models.Material) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	material.ID = m.nextID
	material.CreatedAt = time.Now()
	m.materials[material.ID] = *material
	m.nextID++
	return nil
}

func (m *memoryMaterialRepo) ListByCourse(_ context.Context, courseID uint) ([]models.Material, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []models.Material
	for _, material := range m.materials {
		if material.CourseID == courseID {
			results = append(results, material)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func (m *memoryMaterialRepo) ListUnprocessed(_ context.Context, courseID uint) ([]models.Material, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []models.Material
	for _, material := range m.materials {
		if material.CourseID == courseID && !material.Processed {
			results = append(results, material)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func (m *memoryMaterialRepo) MarkProcessed(_ context.Context, ids []uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		material, ok := m.materials[id]
		if !ok {
			continue
		}
		material.Processed = true
		m.materials[id] = material
	}
	return nil
}

func (m *memoryMaterialRepo) CountByCourse(_ context.Context, courseID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, material := range m.materials {
		if material.CourseID == courseID {
			count++
		}
	}
	return count, nil
}

type memoryModuleRepo struct {
	mu      sync.Mutex
	modules map[uint]models.Module
	nextID  uint
}

func newMemoryModuleRepo() *memoryModuleRepo {
	return &memoryModuleRepo{modules: make(map[uint]models.Module), nextID: 1}
}

func (m *memoryModuleRepo) Create(_ context.Context, module *models.Module) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	module.ID = m.nextID
	module.CreatedAt = time.Now()
	module.UpdatedAt = time.Now()
	if module.Status == "" {
		module.Status = models.StatusNew
	}
	m.modules[module.ID] = *module
	m.nextID++
	return nil
}

func (m *memoryModuleRepo) GetByID(_ context.Context, id uint) (models.Module, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	module, ok := m.modules[id]
	if !ok {
		return models.Module{}, gorm.ErrRecordNotFound
	}
	return module, nil
}

func (m *memoryModuleRepo) ListByCourse(_ context.Context, courseID uint) ([]models.Module, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []models.Module
	for _, module := range m.modules {
		if module.CourseID == courseID {
			results = append(results, module)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Sequence < results[j].Sequence })
	return results, nil
}

func (m *memoryModuleRepo) ListByCourses(_ context.Context, courseIDs []uint, filter repository.ModuleFilter) ([]models.Module, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := make(map[uint]bool, len(courseIDs))
	for _, id := range courseIDs {
		allowed[id] = true
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var results []models.Module
	for _, module := range m.modules {
		if !allowed[module.CourseID] {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(module.Title), search) {
			continue
		}
		results = append(results, module)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].CourseID != results[j].CourseID {
			return results[i].CourseID < results[j].CourseID
		}
		return results[i].Sequence < results[j].Sequence
	})
	total := int64(len(results))
	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		start := (page - 1) * filter.PageSize
		if start >= len(results) {
			return []models.Module{}, total, nil
		}
		end := start + filter.PageSize
		if end > len(results) {
			end = len(results)
		}
		results = results[start:end]
	}
	return results, total, nil
}

func (m *memoryModuleRepo) CountByCourse(_ context.Context, courseID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, module := range m.modules {
		if module.CourseID == courseID {
			count++
		}
	}
	return count, nil
}

func (m *memoryModuleRepo) Update(_ context.Context, module *models.Module) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.modules[module.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	module.UpdatedAt = time.Now()
	m.modules[module.ID] = *module
	return nil
}

func (m *memoryModuleRepo) UpdateStatus(_ context.Context, id uint, status models.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	module, ok := m.modules[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	module.Status = status
	if status == models.StatusCompleted {
		module.IsCompleted = true
	}
	m.modules[id] = module
	return nil
}

func (m *memoryModuleRepo) UpdateGrade(_ context.Context, id uint, grade int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	module, ok := m.modules[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	module.Grade = &grade
	m.modules[id] = module
	return nil
}

func (m *memoryModuleRepo) MarkCompleted(_ context.Context, id uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	module, ok := m.modules[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if module.IsCompleted {
		return false, nil
	}
	module.IsCompleted = true
	module.Status = models.StatusCompleted
	m.modules[id] = module
	return true, nil
}

type memoryQuizRepo struct {
	mu       sync.Mutex
	quizzes  map[uint]models.Quiz
	attempts map[uint][]models.QuizAttempt
	nextID   uint
}

func newMemoryQuizRepo() *memoryQuizRepo {
	return &memoryQuizRepo{
		quizzes:  make(map[uint]models.Quiz),
		attempts: make(map[uint][]models.QuizAttempt),
		nextID:   1,
	}
}

func (m *memoryQuizRepo) Create(_ context.Context, quiz *models.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	quiz.ID = m.nextID
	quiz.CreatedAt = time.Now()
	m.quizzes[quiz.ID] = *quiz
	m.nextID++
	return nil
}

func (m *memoryQuizRepo) GetByID(_ context.Context, id uint) (models.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	quiz, ok := m.quizzes[id]
	if !ok {
		return models.Quiz{}, gorm.ErrRecordNotFound
	}
	return quiz, nil
}

func (m *memoryQuizRepo) ListByModule(_ context.Context, moduleID uint) ([]models.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []models.Quiz
	for _, quiz := range m.quizzes {
		if quiz.ModuleID == moduleID {
			results = append(results, quiz)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func (m *memoryQuizRepo) ListByModules(_ context.Context, moduleIDs []uint, filter repository.QuizFilter) ([]models.Quiz, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := make(map[uint]bool, len(moduleIDs))
	for _, id := range moduleIDs {
		allowed[id] = true
	}
	var results []models.Quiz
	for _, quiz := range m.quizzes {
		if allowed[quiz.ModuleID] {
			results = append(results, quiz)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	total := int64(len(results))
	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		start := (page - 1) * filter.PageSize
		if start >= len(results) {
			return []models.Quiz{}, total, nil
		}
		end := start + filter.PageSize
		if end > len(results) {
			end = len(results)
		}
		results = results[start:end]
	}
	return results, total, nil
}

func (m *memoryQuizRepo) CountByModule(_ context.Context, moduleID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, quiz := range m.quizzes {
		if quiz.ModuleID == moduleID {
			count++
		}
	}
	return count, nil
}

func (m *memoryQuizRepo) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.quizzes, id)
	delete(m.attempts, id)
	return nil
}

func (m *memoryQuizRepo) AppendAttempt(_ context.Context, quizID uint, attempt *models.QuizAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[quizID]; !ok {
		return gorm.ErrRecordNotFound
	}
	attempt.QuizID = quizID
	attempt.AttemptNumber = len(m.attempts[quizID]) + 1
	attempt.ID = uint(len(m.attempts[quizID]) + 1)
	m.attempts[quizID] = append(m.attempts[quizID], *attempt)
	return nil
}

func (m *memoryQuizRepo) ListAttempts(_ context.Context, quizID uint) ([]models.QuizAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.QuizAttempt(nil), m.attempts[quizID]...), nil
}

func (m *memoryQuizRepo) LatestCompletedAttempt(_ context.Context, quizID uint) (models.QuizAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	attempts := m.attempts[quizID]
	for i := len(attempts) - 1; i >= 0; i-- {
		if attempts[i].IsCompleted {
			return attempts[i], nil
		}
	}
	return models.QuizAttempt{}, gorm.ErrRecordNotFound
}

type memoryReportRepo struct {
	mu      sync.Mutex
	reports map[uint]models.QuizReport
	topics  map[uint]models.RecommendationTopic
	nextID  uint
	topicID uint
}

func newMemoryReportRepo() *memoryReportRepo {
	return &memoryReportRepo{
		reports: make(map[uint]models.QuizReport),
		topics:  make(map[uint]models.RecommendationTopic),
		nextID:  1,
		topicID: 1,
	}
}

func (m *memoryReportRepo) Create(_ context.Context, report *models.QuizReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	report.ID = m.nextID
	m.reports[report.ID] = *report
	m.nextID++
	return nil
}

func (m *memoryReportRepo) Update(_ context.Context, report *models.QuizReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[report.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.reports[report.ID] = *report
	return nil
}

func (m *memoryReportRepo) UpdateStatus(_ context.Context, id uint, status models.ReportStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	report, ok := m.reports[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	report.Status = status
	m.reports[id] = report
	return nil
}

func (m *memoryReportRepo) LatestByQuizAndUser(_ context.Context, quizID, userID uint) (models.QuizReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.QuizReport
	for id := range m.reports {
		report := m.reports[id]
		if report.QuizID != quizID || report.UserID != userID {
			continue
		}
		if latest == nil || report.ID > latest.ID {
			copied := report
			latest = &copied
		}
	}
	if latest == nil {
		return models.QuizReport{}, gorm.ErrRecordNotFound
	}
	result := *latest
	result.Topics = m.topicsForReport(result.ID)
	return result, nil
}

func (m *memoryReportRepo) FindByTopic(_ context.Context, moduleID, userID, topicID uint) (models.QuizReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	topic, ok := m.topics[topicID]
	if !ok {
		return models.QuizReport{}, gorm.ErrRecordNotFound
	}
	report, ok := m.reports[topic.ReportID]
	if !ok || report.ModuleID != moduleID || report.UserID != userID {
		return models.QuizReport{}, gorm.ErrRecordNotFound
	}
	report.Topics = m.topicsForReport(report.ID)
	return report, nil
}

func (m *memoryReportRepo) ReplaceTopics(_ context.Context, reportID uint, topics []models.RecommendationTopic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, topic := range m.topics {
		if topic.ReportID == reportID {
			delete(m.topics, id)
		}
	}
	for i := range topics {
		topics[i].ID = m.topicID
		topics[i].ReportID = reportID
		m.topics[m.topicID] = topics[i]
		m.topicID++
	}
	return nil
}

func (m *memoryReportRepo) ClaimTopic(_ context.Context, topicID, quizID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	topic, ok := m.topics[topicID]
	if !ok {
		return false, nil
	}
	if topic.IsQuizGenerated || topic.QuizID != nil {
		return false, nil
	}
	topic.IsQuizGenerated = true
	topic.QuizID = &quizID
	m.topics[topicID] = topic
	return true, nil
}

func (m *memoryReportRepo) topicsForReport(reportID uint) []models.RecommendationTopic {
	var results []models.RecommendationTopic
	for _, topic := range m.topics {
		if topic.ReportID == reportID {
			results = append(results, topic)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results
}

type stubGenerator struct {
	mu        sync.Mutex
	responses []string
	calls     int
	err       error
}

func (s *stubGenerator) Generate(_ context.Context, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", nil
	}
	response := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return response, nil
}

type stubExtractor struct {
	text string
	err  error
}

func (s *stubExtractor) ExtractText(_ context.Context, _ models.Material) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

type stubUploader struct {
	uploads int
}

func (s *stubUploader) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	s.uploads++
	return "https://example.com/" + name, nil
}

type stubReporter struct {
	mu    sync.Mutex
	calls int
}

func (s *stubReporter) BuildForAttempt(_ context.Context, _ models.Quiz, _ models.Module, _ string, _ models.QuizAttempt, _ uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return nil
}
