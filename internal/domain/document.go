package domain

import (
	"fmt"
	"time"
)

// Document represents a teacher-uploaded source document. Text extraction
// happens outside the service; the extracted text arrives with the upload and
// is chunked and embedded asynchronously. The original file lives in object
// storage under StorageKey.
type Document struct {
	ID         string
	Filename   string
	MimeType   string
	StorageKey string
	UploadedBy string
	CreatedAt  time.Time
}

// DocumentChunk is one embedded slice of a document's extracted text. The
// synthesizer retrieves chunks by vector similarity to ground its answers.
type DocumentChunk struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Content    string
	Embedding  []float32
	CreatedAt  time.Time
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.Filename == "" {
		return fmt.Errorf("document Filename is required")
	}

	if d.StorageKey == "" {
		return fmt.Errorf("document StorageKey is required")
	}

	return nil
}
