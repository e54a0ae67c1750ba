package domain

import (
	"fmt"
	"time"
)

// QuestionSource tags the provenance of a question record.
type QuestionSource string

const (
	// QuestionSourceStudent marks a question submitted through the chat endpoint.
	QuestionSourceStudent QuestionSource = "student"
	// QuestionSourceCorpus marks a reference-corpus entry used for similarity scoring.
	QuestionSourceCorpus QuestionSource = "corpus"
)

// Question represents a question record. Corpus entries carry an embedding
// produced once at ingestion time; it is immutable thereafter.
type Question struct {
	ID        string
	Text      string
	Source    QuestionSource
	Embedding []float32
	CreatedAt time.Time
}

// NewQuestion creates a new Question instance
func NewQuestion(id, text string, source QuestionSource, createdAt time.Time) *Question {
	return &Question{
		ID:        id,
		Text:      text,
		Source:    source,
		CreatedAt: createdAt,
	}
}

// ValidateQuestion validates a Question instance
func ValidateQuestion(q *Question) error {
	if q == nil {
		return fmt.Errorf("question cannot be nil")
	}

	if q.ID == "" {
		return fmt.Errorf("question ID is required")
	}

	if q.Text == "" {
		return fmt.Errorf("question Text is required")
	}

	if !isValidQuestionSource(q.Source) {
		return fmt.Errorf("question Source is invalid: %s", q.Source)
	}

	return nil
}

func isValidQuestionSource(s QuestionSource) bool {
	switch s {
	case QuestionSourceStudent, QuestionSourceCorpus:
		return true
	}
	return false
}
