package service

import (
	"context"
	"fmt"
	"time"

	"github.com/eduquery-ai/eduquery/internal/domain"
)

// DocumentRepositoryInterface defines the repository interface for teacher
// documents and their chunk index
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]*domain.Document, error)
	Delete(ctx context.Context, id string) error
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error
	TopChunks(ctx context.Context, embedding []float32, limit int) ([]*RetrievedChunk, error)
}

// RetrievedChunk is a chunk selected for answer synthesis, scored by
// vector distance to the question.
type RetrievedChunk struct {
	ID         string
	DocumentID string
	Filename   string
	ChunkIndex int
	Content    string
	Score      float64
}

// FileStorage abstracts the object store holding document text.
type FileStorage interface {
	GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error)
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
}

// CreateDocumentInput describes a document being registered. The extracted
// text is uploaded by the client to the returned URL; text extraction from
// the original file happens outside this service.
type CreateDocumentInput struct {
	Filename   string
	MimeType   string
	UploadedBy string
}

// CreateDocumentOutput pairs the stored metadata with a presigned URL the
// client uploads the extracted text to.
type CreateDocumentOutput struct {
	Document  *domain.Document
	UploadURL string
}

// DocumentService manages teacher documents: metadata, stored text, and
// the embedded chunk index the synthesizer retrieves from.
type DocumentService struct {
	repo     DocumentRepositoryInterface
	jobRepo  EmbeddingJobRepositoryInterface
	storage  FileStorage
	txRunner TxRunner
	uuidGen  UUIDGenerator
}

func NewDocumentService(
	repo DocumentRepositoryInterface,
	jobRepo EmbeddingJobRepositoryInterface,
	storage FileStorage,
	txRunner TxRunner,
) *DocumentService {
	return NewDocumentServiceWithUUIDGen(repo, jobRepo, storage, txRunner, &DefaultUUIDGenerator{})
}

func NewDocumentServiceWithUUIDGen(
	repo DocumentRepositoryInterface,
	jobRepo EmbeddingJobRepositoryInterface,
	storage FileStorage,
	txRunner TxRunner,
	uuidGen UUIDGenerator,
) *DocumentService {
	return &DocumentService{
		repo:     repo,
		jobRepo:  jobRepo,
		storage:  storage,
		txRunner: txRunner,
		uuidGen:  uuidGen,
	}
}

// Create registers document metadata and returns a presigned upload URL for
// its extracted text. Call Ingest after the upload to build the chunk index.
func (s *DocumentService) Create(ctx context.Context, input CreateDocumentInput) (*CreateDocumentOutput, error) {
	if input.Filename == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "filename is required")
	}
	if input.UploadedBy == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "uploader is required")
	}

	mimeType := input.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	id := s.uuidGen.NewString()
	doc := &domain.Document{
		ID:         id,
		Filename:   input.Filename,
		MimeType:   mimeType,
		StorageKey: fmt.Sprintf("documents/%s/text", id),
		UploadedBy: input.UploadedBy,
		CreatedAt:  time.Now().UTC(),
	}
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, err
	}

	uploadURL, err := s.storage.GenerateUploadURL(ctx, doc.StorageKey, "text/plain; charset=utf-8")
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to create upload URL", err)
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, err
	}

	return &CreateDocumentOutput{Document: doc, UploadURL: uploadURL}, nil
}

// Ingest queues the embedding job that chunks and embeds the uploaded text.
// Safe to call again after re-uploading: the worker replaces the chunks.
func (s *DocumentService) Ingest(ctx context.Context, documentID string) (*domain.EmbeddingJob, error) {
	if documentID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "document ID is required")
	}

	if _, err := s.repo.GetByID(ctx, documentID); err != nil {
		return nil, err
	}

	job := domain.NewEmbeddingJob(s.uuidGen.NewString(), "", documentID, time.Now().UTC())
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *DocumentService) List(ctx context.Context) ([]*domain.Document, error) {
	return s.repo.List(ctx)
}

func (s *DocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	if id == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "document ID is required")
	}
	return s.repo.GetByID(ctx, id)
}

// DownloadURL returns a presigned URL for the stored text.
func (s *DocumentService) DownloadURL(ctx context.Context, id string) (string, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	url, err := s.storage.GenerateDownloadURL(ctx, doc.StorageKey)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to create download URL", err)
	}
	return url, nil
}

// Delete removes a document's row (chunks go with it via cascade) and its
// stored object. The object delete runs last so a storage failure leaves a
// retryable orphan instead of a dangling DB row.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.storage.DeleteObject(ctx, doc.StorageKey); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to delete stored document", err)
	}
	return nil
}

// DeleteAll removes every document and reports how many went away.
func (s *DocumentService) DeleteAll(ctx context.Context) (int, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, doc := range docs {
		if err := s.Delete(ctx, doc.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
