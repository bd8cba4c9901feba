package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/studiora/studiora-api/internal/models"
)

// Model responses are untrusted input. Every generated payload is checked
// against a schema before anything is persisted.
var (
	moduleListSchema = jsonschema.MustCompileString("module_list.json", `{
		"type": "array",
		"minItems": 1,
		"items": {
			"type": "object",
			"required": ["title", "description", "key_points", "timeline"],
			"properties": {
				"title": {"type": "string", "minLength": 1},
				"description": {"type": "string"},
				"key_points": {"type": "array", "items": {"type": "string"}},
				"timeline": {"type": "integer", "minimum": 1}
			}
		}
	}`)

	quizSchema = jsonschema.MustCompileString("quiz.json", `{
		"type": "object",
		"required": ["title", "questions"],
		"properties": {
			"title": {"type": "string", "minLength": 1},
			"description": {"type": "string"},
			"questions": {
				"type": "array",
				"minItems": 1,
				"items": {
					"type": "object",
					"required": ["question_text", "question_type"],
					"properties": {
						"question_text": {"type": "string", "minLength": 1},
						"options": {"type": "array", "items": {"type": "string"}},
						"correct_answer": {"type": "string"},
						"question_type": {"type": "string"}
					}
				}
			}
		}
	}`)

	reportInsightSchema = jsonschema.MustCompileString("report_insight.json", `{
		"type": "object",
		"required": ["summary"],
		"properties": {
			"summary": {"type": "string", "minLength": 1},
			"strongest_area": {"type": "string"},
			"weakest_area": {"type": "string"},
			"good_at": {"type": "string"},
			"struggled_with": {"type": "array", "items": {"type": "string"}},
			"study_materials": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["title"],
					"properties": {
						"title": {"type": "string"},
						"url": {"type": "string"},
						"description": {"type": "string"}
					}
				}
			},
			"topics": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["title"],
					"properties": {
						"title": {"type": "string"},
						"description": {"type": "string"}
					}
				}
			}
		}
	}`)
)

// validatePayload unmarshals raw JSON and checks it against the schema.
func validatePayload(schema *jsonschema.Schema, raw string, out interface{}) error {
	var generic interface{}
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAIPayload, err)
	}
	if err := schema.Validate(generic); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAIPayload, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAIPayload, err)
	}
	return nil
}

type generatedModule struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	KeyPoints   []string `json:"key_points"`
	Timeline    int      `json:"timeline"`
}

type generatedQuestion struct {
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	QuestionType  string   `json:"question_type"`
}

type generatedQuiz struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Questions   []generatedQuestion `json:"questions"`
}

type generatedInsight struct {
	Summary        string                 `json:"summary"`
	StrongestArea  string                 `json:"strongest_area"`
	WeakestArea    string                 `json:"weakest_area"`
	GoodAt         string                 `json:"good_at"`
	StruggledWith  []string               `json:"struggled_with"`
	StudyMaterials []models.StudyMaterial `json:"study_materials"`
	Topics         []generatedTopic       `json:"topics"`
}

type generatedTopic struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func buildModulePrompt(course models.Course, materialText string, existingTitles []string) string {
	var sb strings.Builder

	sb.WriteString("You are a curriculum designer. Break the following course material into sequential learning modules.\n\n")
	fmt.Fprintf(&sb, "Course title: %s\n", course.Title)
	if course.Goal != "" {
		fmt.Fprintf(&sb, "Learning goal: %s\n", course.Goal)
	}
	fmt.Fprintf(&sb, "Course timeline: %d days. The module timelines must sum to at most the course timeline.\n", course.Timeline)

	if len(existingTitles) > 0 {
		sb.WriteString("\nModules that already exist (do not repeat their content):\n")
		for _, title := range existingTitles {
			fmt.Fprintf(&sb, "- %s\n", title)
		}
	}

	sb.WriteString("\nMaterial:\n")
	sb.WriteString(materialText)

	sb.WriteString("\n\nRespond with a JSON array only, no prose. Each element: ")
	sb.WriteString(`{"title": string, "description": string, "key_points": [string], "timeline": integer days}.`)

	return sb.String()
}

func buildQuizPrompt(module models.Module, config models.QuizConfig) string {
	var sb strings.Builder

	sb.WriteString("You are a quiz author. Write a quiz for the following learning module.\n\n")
	fmt.Fprintf(&sb, "Module title: %s\n", module.Title)
	if module.Description != "" {
		fmt.Fprintf(&sb, "Module description: %s\n", module.Description)
	}
	if len(module.KeyPoints) > 0 {
		sb.WriteString("Key points:\n")
		for _, point := range module.KeyPoints {
			fmt.Fprintf(&sb, "- %s\n", point)
		}
	}

	fmt.Fprintf(&sb, "\nNumber of questions: %d\n", config.NumberOfQuestions)
	fmt.Fprintf(&sb, "Difficulty: %s\n", config.DifficultyLevel)
	fmt.Fprintf(&sb, "Allowed question types: %s\n", strings.Join(config.QuizTypes, ", "))
	sb.WriteString("MCQ questions need exactly 4 options; True/False questions use options [\"True\", \"False\"]. The correct_answer must match one option verbatim.\n")

	sb.WriteString("\nRespond with a JSON object only, no prose: ")
	sb.WriteString(`{"title": string, "description": string, "questions": [{"question_text": string, "options": [string], "correct_answer": string, "question_type": string}]}.`)

	return sb.String()
}

func buildTopicQuizPrompt(topic models.RecommendationTopic, config models.QuizConfig) string {
	var sb strings.Builder

	sb.WriteString("You are a quiz author. Write a remedial quiz focused on one topic a student struggled with.\n\n")
	fmt.Fprintf(&sb, "Topic: %s\n", topic.Title)
	if topic.Description != "" {
		fmt.Fprintf(&sb, "Why it matters: %s\n", topic.Description)
	}

	fmt.Fprintf(&sb, "\nNumber of questions: %d\n", config.NumberOfQuestions)
	fmt.Fprintf(&sb, "Difficulty: %s\n", config.DifficultyLevel)
	fmt.Fprintf(&sb, "Allowed question types: %s\n", strings.Join(config.QuizTypes, ", "))
	sb.WriteString("MCQ questions need exactly 4 options; True/False questions use options [\"True\", \"False\"]. The correct_answer must match one option verbatim.\n")

	sb.WriteString("\nRespond with a JSON object only, no prose: ")
	sb.WriteString(`{"title": string, "description": string, "questions": [{"question_text": string, "options": [string], "correct_answer": string, "question_type": string}]}.`)

	return sb.String()
}

func buildReportPrompt(report models.QuizReport, wrongQuestions []string) string {
	var sb strings.Builder

	sb.WriteString("You are a learning coach. Analyse a student's quiz attempt and produce an adaptive report.\n\n")
	fmt.Fprintf(&sb, "Quiz: %s (module %q, course %q)\n", report.QuizTitle, report.ModuleName, report.CourseName)
	fmt.Fprintf(&sb, "Attempt %d: %d of %d correct (%.2f%%)\n", report.AttemptNumber, report.CorrectAnswers, report.TotalQuestions, report.Percentage)

	if len(wrongQuestions) > 0 {
		sb.WriteString("\nQuestions answered incorrectly:\n")
		for _, question := range wrongQuestions {
			fmt.Fprintf(&sb, "- %s\n", question)
		}
	} else {
		sb.WriteString("\nEvery question was answered correctly.\n")
	}

	sb.WriteString("\nRespond with a JSON object only, no prose: ")
	sb.WriteString(`{"summary": string, "strongest_area": string, "weakest_area": string, "good_at": string, "struggled_with": [string], "study_materials": [{"title": string, "url": string, "description": string}], "topics": [{"title": string, "description": string}]}. `)
	sb.WriteString("Topics are 1-3 focus areas worth a follow-up quiz; leave the array empty when the score is above 90%.")

	return sb.String()
}
