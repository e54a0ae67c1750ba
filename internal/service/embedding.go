package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eduquery-ai/eduquery/internal/domain"
)

// EmbeddingJobRepositoryInterface defines the repository interface for
// embedding job persistence
type EmbeddingJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
}

// EmbeddingService turns queued embedding jobs into stored vectors: one
// vector per reference question, one per document chunk. Called by the
// background worker, never by request handlers.
type EmbeddingService struct {
	client     EmbeddingClient
	corpusRepo CorpusRepositoryInterface
	docRepo    DocumentRepositoryInterface
	storage    FileStorage
	chunkCfg   ChunkConfig
	uuidGen    UUIDGenerator
}

func NewEmbeddingService(
	client EmbeddingClient,
	corpusRepo CorpusRepositoryInterface,
	docRepo DocumentRepositoryInterface,
	storage FileStorage,
) *EmbeddingService {
	return &EmbeddingService{
		client:     client,
		corpusRepo: corpusRepo,
		docRepo:    docRepo,
		storage:    storage,
		chunkCfg:   DefaultChunkConfig(),
		uuidGen:    &DefaultUUIDGenerator{},
	}
}

// ProcessQuestion embeds a reference question's text and stores the vector,
// making the entry visible to the scoring corpus.
func (s *EmbeddingService) ProcessQuestion(ctx context.Context, questionID string) error {
	question, err := s.corpusRepo.GetByID(ctx, questionID)
	if err != nil {
		return err
	}

	embedding, err := s.client.GenerateEmbedding(ctx, question.Text)
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	if err := s.corpusRepo.UpdateEmbedding(ctx, questionID, embedding); err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}

	return nil
}

// ProcessDocument reads a document's uploaded text, chunks it, embeds each
// chunk, and replaces the document's chunk index in one call.
func (s *EmbeddingService) ProcessDocument(ctx context.Context, documentID string) error {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	body, err := s.storage.GetObject(ctx, doc.StorageKey)
	if err != nil {
		return fmt.Errorf("failed to read document text: %w", err)
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return fmt.Errorf("document %s has no text to embed", documentID)
	}

	chunks := chunkText(text, s.chunkCfg)
	entries := make([]domain.DocumentChunk, 0, len(chunks))
	createdAt := time.Now().UTC()

	for i, chunk := range chunks {
		embedding, err := s.client.GenerateEmbedding(ctx, chunk)
		if err != nil {
			return fmt.Errorf("failed to generate chunk embedding: %w", err)
		}

		entries = append(entries, domain.DocumentChunk{
			ID:         s.uuidGen.NewString(),
			DocumentID: doc.ID,
			ChunkIndex: i,
			Content:    chunk,
			Embedding:  embedding,
			CreatedAt:  createdAt,
		})
	}

	if err := s.docRepo.ReplaceChunks(ctx, documentID, entries); err != nil {
		return fmt.Errorf("failed to update document chunks: %w", err)
	}

	return nil
}
