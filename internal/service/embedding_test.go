package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/eduquery-ai/eduquery/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingService_ProcessQuestion(t *testing.T) {
	ctx := context.Background()

	t.Run("embeds question text and stores the vector", func(t *testing.T) {
		client := new(MockEmbeddingClient)
		corpusRepo := new(MockCorpusRepository)

		corpusRepo.On("GetByID", mock.Anything, "question-1").Return(&domain.Question{
			ID:     "question-1",
			Text:   "What is gravity?",
			Source: domain.QuestionSourceCorpus,
		}, nil)
		client.On("GenerateEmbedding", mock.Anything, "What is gravity?").Return([]float32{0.1, 0.2}, nil)
		corpusRepo.On("UpdateEmbedding", mock.Anything, "question-1", []float32{0.1, 0.2}).Return(nil)

		svc := NewEmbeddingService(client, corpusRepo, new(MockDocumentRepository), new(MockFileStorage))

		require.NoError(t, svc.ProcessQuestion(ctx, "question-1"))
		corpusRepo.AssertExpectations(t)
	})

	t.Run("provider failure leaves the entry unembedded", func(t *testing.T) {
		client := new(MockEmbeddingClient)
		corpusRepo := new(MockCorpusRepository)

		corpusRepo.On("GetByID", mock.Anything, "question-1").Return(&domain.Question{
			ID: "question-1", Text: "What is gravity?", Source: domain.QuestionSourceCorpus,
		}, nil)
		client.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))

		svc := NewEmbeddingService(client, corpusRepo, new(MockDocumentRepository), new(MockFileStorage))

		require.Error(t, svc.ProcessQuestion(ctx, "question-1"))
		corpusRepo.AssertNotCalled(t, "UpdateEmbedding", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestEmbeddingService_ProcessDocument(t *testing.T) {
	ctx := context.Background()

	doc := &domain.Document{ID: "doc-1", Filename: "notes.pdf", StorageKey: "documents/doc-1/text"}

	t.Run("chunks uploaded text and embeds every chunk", func(t *testing.T) {
		client := new(MockEmbeddingClient)
		docRepo := new(MockDocumentRepository)
		storage := new(MockFileStorage)

		longText := strings.Repeat("Plants absorb sunlight through chlorophyll. ", 20)
		docRepo.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)
		storage.On("GetObject", mock.Anything, "documents/doc-1/text").Return([]byte(longText), nil)
		client.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.5}, nil)
		docRepo.On("ReplaceChunks", mock.Anything, "doc-1", mock.MatchedBy(func(chunks []domain.DocumentChunk) bool {
			if len(chunks) < 2 {
				return false
			}
			for i, c := range chunks {
				if c.DocumentID != "doc-1" || c.ChunkIndex != i || c.Content == "" {
					return false
				}
			}
			return true
		})).Return(nil)

		svc := NewEmbeddingService(client, new(MockCorpusRepository), docRepo, storage)

		require.NoError(t, svc.ProcessDocument(ctx, "doc-1"))
		docRepo.AssertExpectations(t)
	})

	t.Run("empty upload is an error", func(t *testing.T) {
		docRepo := new(MockDocumentRepository)
		storage := new(MockFileStorage)

		docRepo.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)
		storage.On("GetObject", mock.Anything, "documents/doc-1/text").Return([]byte("   \n"), nil)

		svc := NewEmbeddingService(new(MockEmbeddingClient), new(MockCorpusRepository), docRepo, storage)

		err := svc.ProcessDocument(ctx, "doc-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no text to embed")
	})
}

func TestChunkText(t *testing.T) {
	t.Run("short text is one chunk", func(t *testing.T) {
		chunks := chunkText("short note", DefaultChunkConfig())
		assert.Equal(t, []string{"short note"}, chunks)
	})

	t.Run("long text overlaps at word boundaries", func(t *testing.T) {
		text := strings.Repeat("alpha beta gamma delta ", 40)
		chunks := chunkText(text, DefaultChunkConfig())
		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			assert.LessOrEqual(t, len([]rune(c)), DefaultChunkConfig().MaxChars)
			assert.NotEqual(t, " ", c[:1])
		}
	})

	t.Run("blank input yields nothing", func(t *testing.T) {
		assert.Nil(t, chunkText("   ", DefaultChunkConfig()))
	})
}
