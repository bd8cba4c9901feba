package service

import "errors"

var (
	// ErrCourseNotFound indicates a course could not be found.
	ErrCourseNotFound = errors.New("course not found")
	// ErrModuleNotFound indicates a module could not be found.
	ErrModuleNotFound = errors.New("module not found")
	// ErrQuizNotFound indicates a quiz could not be found.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrReportNotFound indicates no quiz report exists for the request.
	ErrReportNotFound = errors.New("quiz report not found")
	// ErrTopicNotFound indicates the recommendation topic does not exist in
	// any of the user's reports for the module.
	ErrTopicNotFound = errors.New("recommendation topic not found")
	// ErrTopicAlreadyGenerated indicates a remediation quiz has already been
	// generated for the topic. Terminal; retrying cannot succeed.
	ErrTopicAlreadyGenerated = errors.New("quiz already generated for topic")
	// ErrModuleAlreadyCompleted indicates the module completion transition
	// was attempted twice.
	ErrModuleAlreadyCompleted = errors.New("module already completed")
	// ErrQuizLimitReached indicates the per-module quiz cap is exhausted.
	ErrQuizLimitReached = errors.New("maximum number of quizzes reached for module")
	// ErrNoUnprocessedMaterials indicates module generation has nothing to
	// work with.
	ErrNoUnprocessedMaterials = errors.New("no unprocessed materials available")
	// ErrNoExtractedText indicates text extraction produced nothing usable.
	ErrNoExtractedText = errors.New("failed to extract text from materials")
	// ErrInvalidAIPayload indicates the AI returned content that could not
	// be parsed into the expected structure.
	ErrInvalidAIPayload = errors.New("invalid ai-generated payload")
	// ErrConcurrentSubmission indicates the attempt append lost its bounded
	// retry budget against concurrent submissions. Transient.
	ErrConcurrentSubmission = errors.New("concurrent quiz submission conflict")
)
