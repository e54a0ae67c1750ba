package domain

import (
	"fmt"
	"time"
)

// EscalationStatus represents the lifecycle state of an escalated question
type EscalationStatus string

const (
	EscalationStatusPending  EscalationStatus = "pending"
	EscalationStatusAnswered EscalationStatus = "answered"
)

// Escalation represents a question routed to a teacher. The lifecycle is
// pending -> answered, single-fire; the only other exit is the bulk clear.
type Escalation struct {
	ID           string
	QuestionText string
	Confidence   float64
	Status       EscalationStatus
	Answer       string
	SubmittedAt  time.Time
	AnsweredAt   *time.Time
}

// NewEscalation creates a new Escalation in pending status
func NewEscalation(id, questionText string, confidence float64, submittedAt time.Time) *Escalation {
	return &Escalation{
		ID:           id,
		QuestionText: questionText,
		Confidence:   confidence,
		Status:       EscalationStatusPending,
		SubmittedAt:  submittedAt,
	}
}

// ValidateEscalation validates an Escalation instance
func ValidateEscalation(e *Escalation) error {
	if e == nil {
		return fmt.Errorf("escalation cannot be nil")
	}

	if e.ID == "" {
		return fmt.Errorf("escalation ID is required")
	}

	if e.QuestionText == "" {
		return fmt.Errorf("escalation QuestionText is required")
	}

	if !IsValidEscalationStatus(e.Status) {
		return fmt.Errorf("escalation Status is invalid: %s", e.Status)
	}

	if e.Status == EscalationStatusAnswered && e.Answer == "" {
		return fmt.Errorf("answered escalation must carry an answer")
	}

	return nil
}

// IsValidEscalationStatus checks if an EscalationStatus is valid
func IsValidEscalationStatus(s EscalationStatus) bool {
	switch s {
	case EscalationStatusPending, EscalationStatusAnswered:
		return true
	}
	return false
}
