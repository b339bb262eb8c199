// Package quiz serves the static multiple-choice question bank.
package quiz

import (
	_ "embed"
	"fmt"

	"socialgrid/internal/models"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 50
)

//go:embed questions.yml
var questionsYAML []byte

// Question is one multiple-choice question. CorrectAnswer indexes Options.
type Question struct {
	ID            int      `yaml:"id" json:"id"`
	Question      string   `yaml:"question" json:"question"`
	Options       []string `yaml:"options" json:"options"`
	CorrectAnswer int      `yaml:"correctAnswer" json:"-"`
	Explanation   string   `yaml:"explanation" json:"-"`
}

// Page is one page of questions, without answers.
type Page struct {
	Questions      []Question `json:"questions"`
	Page           int        `json:"page"`
	TotalPages     int        `json:"totalPages"`
	TotalQuestions int        `json:"totalQuestions"`
}

// Result is the outcome of checking a single answer.
type Result struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer int    `json:"correctAnswer"`
	Explanation   string `json:"explanation"`
}

// Bank holds questions in display order.
type Bank struct {
	questions []Question
	byID      map[int]int
}

// Load parses the embedded question file.
func Load() (*Bank, error) {
	return Parse(questionsYAML)
}

// Parse builds a Bank from YAML, rejecting duplicate ids and answers that do
// not index an option.
func Parse(data []byte) (*Bank, error) {
	var questions []Question
	if err := yaml.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}

	b := &Bank{questions: questions, byID: make(map[int]int, len(questions))}
	for i, q := range questions {
		if _, dup := b.byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %d", q.ID)
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return nil, fmt.Errorf("question %d: correct answer %d out of range", q.ID, q.CorrectAnswer)
		}
		b.byID[q.ID] = i
	}
	return b, nil
}

// Len returns the number of questions.
func (b *Bank) Len() int {
	return len(b.questions)
}

// Page returns the 1-based page of questions. perPage <= 0 selects
// DefaultPerPage. A page past the end yields no questions.
func (b *Bank) Page(page, perPage int) (*Page, error) {
	if page < 1 {
		return nil, models.NewValidationError("page must be 1 or greater")
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	total := len(b.questions)
	out := &Page{
		Questions:      []Question{},
		Page:           page,
		TotalPages:     (total + perPage - 1) / perPage,
		TotalQuestions: total,
	}

	start := (page - 1) * perPage
	if start >= total {
		return out, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	out.Questions = append(out.Questions, b.questions[start:end]...)
	return out, nil
}

// Check grades answer for question id. Nothing is recorded.
func (b *Bank) Check(id, answer int) (*Result, error) {
	i, ok := b.byID[id]
	if !ok {
		return nil, models.NewNotFoundError("Question", id)
	}
	q := b.questions[i]
	if answer < 0 || answer >= len(q.Options) {
		return nil, models.NewValidationError("answer must index one of the options")
	}
	return &Result{
		Correct:       answer == q.CorrectAnswer,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
	}, nil
}
