package domain

import (
	"fmt"
	"time"
)

// Decision is the outcome of routing a student question.
type Decision string

const (
	// DecisionAutoAnswer routes the question to the document-grounded synthesizer.
	DecisionAutoAnswer Decision = "auto_answer"
	// DecisionEscalate routes the question to a human teacher.
	DecisionEscalate Decision = "escalate"
)

// AuditRecord is the append-only record of one routed question. It is written
// exactly once, after the content-based override has been resolved, so the
// persisted decision is always the final one.
type AuditRecord struct {
	ID            string
	QuestionText  string
	BestMatchID   string
	BestMatchText string
	Confidence    float64
	Decision      Decision
	Answer        string
	EscalationID  string
	CreatedAt     time.Time
}

// ValidateAuditRecord validates an AuditRecord instance
func ValidateAuditRecord(r *AuditRecord) error {
	if r == nil {
		return fmt.Errorf("audit record cannot be nil")
	}

	if r.ID == "" {
		return fmt.Errorf("audit record ID is required")
	}

	if r.QuestionText == "" {
		return fmt.Errorf("audit record QuestionText is required")
	}

	if !IsValidDecision(r.Decision) {
		return fmt.Errorf("audit record Decision is invalid: %s", r.Decision)
	}

	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("audit record Confidence must be in [0, 1], got %v", r.Confidence)
	}

	if r.Decision == DecisionEscalate && r.EscalationID == "" {
		return fmt.Errorf("audit record EscalationID is required for escalate decisions")
	}

	return nil
}

// IsValidDecision checks if a Decision is valid
func IsValidDecision(d Decision) bool {
	switch d {
	case DecisionAutoAnswer, DecisionEscalate:
		return true
	}
	return false
}
