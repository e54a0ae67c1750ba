package domain

import (
	"fmt"
	"time"
)

// EmbeddingJobStatus represents the status of an embedding job
type EmbeddingJobStatus string

const (
	EmbeddingJobStatusPending    EmbeddingJobStatus = "pending"
	EmbeddingJobStatusProcessing EmbeddingJobStatus = "processing"
	EmbeddingJobStatusCompleted  EmbeddingJobStatus = "completed"
	EmbeddingJobStatusFailed     EmbeddingJobStatus = "failed"
)

// EmbeddingJob represents an async embedding generation job for either a
// reference-corpus question or an uploaded document's chunks
type EmbeddingJob struct {
	ID          string
	QuestionID  string // Set for corpus question embeddings
	DocumentID  string // Set for document chunk embeddings
	Status      EmbeddingJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewEmbeddingJob creates a new EmbeddingJob instance in pending status
func NewEmbeddingJob(id, questionID, documentID string, createdAt time.Time) *EmbeddingJob {
	return &EmbeddingJob{
		ID:         id,
		QuestionID: questionID,
		DocumentID: documentID,
		Status:     EmbeddingJobStatusPending,
		CreatedAt:  createdAt,
	}
}

// ValidateEmbeddingJob validates an EmbeddingJob instance
func ValidateEmbeddingJob(j *EmbeddingJob) error {
	if j == nil {
		return fmt.Errorf("embedding job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("embedding job ID is required")
	}

	if j.QuestionID == "" && j.DocumentID == "" {
		return fmt.Errorf("embedding job must have either QuestionID or DocumentID")
	}

	if j.QuestionID != "" && j.DocumentID != "" {
		return fmt.Errorf("embedding job cannot have both QuestionID and DocumentID")
	}

	if !isValidEmbeddingJobStatus(j.Status) {
		return fmt.Errorf("embedding job Status is invalid: %s", j.Status)
	}

	if j.Retries < 0 {
		return fmt.Errorf("embedding job Retries cannot be negative")
	}

	return nil
}

// isValidEmbeddingJobStatus checks if an EmbeddingJobStatus is valid
func isValidEmbeddingJobStatus(s EmbeddingJobStatus) bool {
	switch s {
	case EmbeddingJobStatusPending, EmbeddingJobStatusProcessing,
		EmbeddingJobStatusCompleted, EmbeddingJobStatusFailed:
		return true
	}
	return false
}
