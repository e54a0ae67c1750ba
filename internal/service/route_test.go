package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eduquery-ai/eduquery/internal/domain"
	"github.com/eduquery-ai/eduquery/internal/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockSynthesizer is a mock implementation of AnswerSynthesizer
type MockSynthesizer struct {
	mock.Mock
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, question string, excerpts []string, auxContext string) (string, error) {
	args := m.Called(ctx, question, excerpts, auxContext)
	return args.String(0), args.Error(1)
}

func (m *MockSynthesizer) ContainsEscalationMarker(answer string) bool {
	args := m.Called(answer)
	return args.Bool(0)
}

// MockCorpusRepository is a mock implementation of CorpusRepositoryInterface
type MockCorpusRepository struct {
	mock.Mock
}

func (m *MockCorpusRepository) Create(ctx context.Context, q *domain.Question) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

func (m *MockCorpusRepository) GetByID(ctx context.Context, id string) (*domain.Question, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Question), args.Error(1)
}

func (m *MockCorpusRepository) FetchCorpus(ctx context.Context) ([]*domain.Question, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Question), args.Error(1)
}

func (m *MockCorpusRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*CorpusPageResult, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CorpusPageResult), args.Error(1)
}

func (m *MockCorpusRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

func (m *MockCorpusRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockDocumentRepository is a mock implementation of DocumentRepositoryInterface
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) List(ctx context.Context) ([]*domain.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentRepository) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error {
	args := m.Called(ctx, documentID, chunks)
	return args.Error(0)
}

func (m *MockDocumentRepository) TopChunks(ctx context.Context, embedding []float32, limit int) ([]*RetrievedChunk, error) {
	args := m.Called(ctx, embedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*RetrievedChunk), args.Error(1)
}

// MockEscalationRepository is a mock implementation of EscalationRepositoryInterface
type MockEscalationRepository struct {
	mock.Mock
}

func (m *MockEscalationRepository) Create(ctx context.Context, e *domain.Escalation) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockEscalationRepository) GetByID(ctx context.Context, id string) (*domain.Escalation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Escalation), args.Error(1)
}

func (m *MockEscalationRepository) Answer(ctx context.Context, id, answer string, answeredAt time.Time) error {
	args := m.Called(ctx, id, answer, answeredAt)
	return args.Error(0)
}

func (m *MockEscalationRepository) ListByStatus(ctx context.Context, status domain.EscalationStatus) ([]*domain.Escalation, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Escalation), args.Error(1)
}

func (m *MockEscalationRepository) List(ctx context.Context) ([]*domain.Escalation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Escalation), args.Error(1)
}

func (m *MockEscalationRepository) ClearAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockAuditRepository is a mock implementation of AuditRepositoryInterface
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Create(ctx context.Context, rec *domain.AuditRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockAuditRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*AuditPageResult, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AuditPageResult), args.Error(1)
}

// MockEmbeddingJobRepository is a mock implementation of EmbeddingJobRepositoryInterface
type MockEmbeddingJobRepository struct {
	mock.Mock
}

func (m *MockEmbeddingJobRepository) Create(ctx context.Context, job *domain.EmbeddingJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// MockUUIDGenerator returns a fixed sequence of IDs
type MockUUIDGenerator struct {
	callCount int
	uuids     []string
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.callCount < len(m.uuids) {
		id := m.uuids[m.callCount]
		m.callCount++
		return id
	}
	return "default-uuid"
}

// fakeTxRunner runs the transaction function directly against the mocks.
type fakeTxRunner struct {
	escalations *MockEscalationRepository
	audit       *MockAuditRepository
	corpus      *MockCorpusRepository
	jobs        *MockEmbeddingJobRepository
	documents   *MockDocumentRepository
	beginErr    error
}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	if f.beginErr != nil {
		return f.beginErr
	}
	return fn(f)
}

func (f *fakeTxRunner) Escalations() EscalationRepositoryInterface   { return f.escalations }
func (f *fakeTxRunner) Audit() AuditRepositoryInterface              { return f.audit }
func (f *fakeTxRunner) Corpus() CorpusRepositoryInterface            { return f.corpus }
func (f *fakeTxRunner) EmbeddingJobs() EmbeddingJobRepositoryInterface {
	return f.jobs
}
func (f *fakeTxRunner) Documents() DocumentRepositoryInterface { return f.documents }

func routeTestConfig() RouteConfig {
	return RouteConfig{
		ConfidenceThreshold: 0.8,
		RetrievalLimit:      4,
		ProviderTimeout:     time.Second,
		EmbedMaxRetries:     0,
	}
}

func testCorpus() []*domain.Question {
	return []*domain.Question{
		{ID: "ref-1", Text: "What is photosynthesis?", Source: domain.QuestionSourceCorpus, Embedding: []float32{1, 0, 0}},
		{ID: "ref-2", Text: "Explain cellular respiration", Source: domain.QuestionSourceCorpus, Embedding: []float32{0, 1, 0}},
	}
}

func TestRouteService_Route_AutoAnswer(t *testing.T) {
	ctx := context.Background()

	embedder := new(MockEmbeddingClient)
	synthesizer := new(MockSynthesizer)
	corpusRepo := new(MockCorpusRepository)
	docRepo := new(MockDocumentRepository)
	escalationRepo := new(MockEscalationRepository)
	auditRepo := new(MockAuditRepository)
	tx := &fakeTxRunner{escalations: escalationRepo, audit: auditRepo}

	// Identical to ref-1: similarity 1.0, well above the threshold.
	embedder.On("GenerateEmbedding", mock.Anything, "What is photosynthesis?").Return([]float32{1, 0, 0}, nil)
	corpusRepo.On("FetchCorpus", mock.Anything).Return(testCorpus(), nil)
	docRepo.On("TopChunks", mock.Anything, []float32{1, 0, 0}, 4).Return([]*RetrievedChunk{
		{ID: "chunk-1", Content: "Photosynthesis converts light into chemical energy."},
	}, nil)
	synthesizer.On("Synthesize", mock.Anything, "What is photosynthesis?",
		[]string{"Photosynthesis converts light into chemical energy."}, "What is photosynthesis?").
		Return("Photosynthesis is how plants make food from light.", nil)
	synthesizer.On("ContainsEscalationMarker", "Photosynthesis is how plants make food from light.").Return(false)
	auditRepo.On("Create", mock.Anything, mock.MatchedBy(func(rec *domain.AuditRecord) bool {
		return rec.Decision == domain.DecisionAutoAnswer &&
			rec.BestMatchID == "ref-1" &&
			rec.EscalationID == "" &&
			rec.Confidence > 0.99
	})).Return(nil)

	svc := NewRouteServiceWithUUIDGen(embedder, synthesizer, corpusRepo, docRepo, tx, routeTestConfig(),
		NewMockUUIDGenerator("audit-1"))

	result, err := svc.Route(ctx, "What is photosynthesis?")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionAutoAnswer, result.Decision)
	assert.Equal(t, "Photosynthesis is how plants make food from light.", result.Answer)
	assert.Equal(t, "What is photosynthesis?", result.BestMatchText)
	assert.Empty(t, result.EscalationID)
	assert.Equal(t, "audit-1", result.AuditID)

	escalationRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	auditRepo.AssertExpectations(t)
}

func TestRouteService_Route_EscalatesBelowThreshold(t *testing.T) {
	ctx := context.Background()

	embedder := new(MockEmbeddingClient)
	synthesizer := new(MockSynthesizer)
	corpusRepo := new(MockCorpusRepository)
	docRepo := new(MockDocumentRepository)
	escalationRepo := new(MockEscalationRepository)
	auditRepo := new(MockAuditRepository)
	tx := &fakeTxRunner{escalations: escalationRepo, audit: auditRepo}

	// Orthogonal to everything in the corpus: confidence 0.
	embedder.On("GenerateEmbedding", mock.Anything, "Who won the 1998 world cup?").Return([]float32{0, 0, 1}, nil)
	corpusRepo.On("FetchCorpus", mock.Anything).Return(testCorpus(), nil)
	escalationRepo.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.Escalation) bool {
		return e.Status == domain.EscalationStatusPending && e.QuestionText == "Who won the 1998 world cup?"
	})).Return(nil)
	auditRepo.On("Create", mock.Anything, mock.MatchedBy(func(rec *domain.AuditRecord) bool {
		return rec.Decision == domain.DecisionEscalate && rec.EscalationID == "escalation-1"
	})).Return(nil)

	svc := NewRouteServiceWithUUIDGen(embedder, synthesizer, corpusRepo, docRepo, tx, routeTestConfig(),
		NewMockUUIDGenerator("audit-1", "escalation-1"))

	result, err := svc.Route(ctx, "Who won the 1998 world cup?")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionEscalate, result.Decision)
	assert.Equal(t, EscalationNotice, result.Answer)
	assert.Equal(t, "escalation-1", result.EscalationID)

	// Below threshold the synthesizer must never fire.
	synthesizer.AssertNotCalled(t, "Synthesize", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	escalationRepo.AssertExpectations(t)
	auditRepo.AssertExpectations(t)
}

func TestRouteService_Route_MarkerOverridesAutoAnswer(t *testing.T) {
	ctx := context.Background()

	embedder := new(MockEmbeddingClient)
	synthesizer := new(MockSynthesizer)
	corpusRepo := new(MockCorpusRepository)
	docRepo := new(MockDocumentRepository)
	escalationRepo := new(MockEscalationRepository)
	auditRepo := new(MockAuditRepository)
	tx := &fakeTxRunner{escalations: escalationRepo, audit: auditRepo}

	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{1, 0, 0}, nil)
	corpusRepo.On("FetchCorpus", mock.Anything).Return(testCorpus(), nil)
	docRepo.On("TopChunks", mock.Anything, mock.Anything, 4).Return([]*RetrievedChunk{}, nil)
	synthesizer.On("Synthesize", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("This question will be answered by your teacher", nil)
	synthesizer.On("ContainsEscalationMarker", "This question will be answered by your teacher").Return(true)
	escalationRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	auditRepo.On("Create", mock.Anything, mock.MatchedBy(func(rec *domain.AuditRecord) bool {
		// The audit record carries the final decision, not the pre-decision,
		// and no synthesizer output.
		return rec.Decision == domain.DecisionEscalate && rec.Answer == "" && rec.EscalationID != ""
	})).Return(nil)

	svc := NewRouteServiceWithUUIDGen(embedder, synthesizer, corpusRepo, docRepo, tx, routeTestConfig(),
		NewMockUUIDGenerator("audit-1", "escalation-1"))

	result, err := svc.Route(ctx, "What is photosynthesis?")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionEscalate, result.Decision)
	assert.Equal(t, EscalationNotice, result.Answer)
	assert.NotEmpty(t, result.EscalationID)
	auditRepo.AssertExpectations(t)
}

func TestRouteService_Route_SynthesizerFailureDegradesToEscalate(t *testing.T) {
	ctx := context.Background()

	embedder := new(MockEmbeddingClient)
	synthesizer := new(MockSynthesizer)
	corpusRepo := new(MockCorpusRepository)
	docRepo := new(MockDocumentRepository)
	escalationRepo := new(MockEscalationRepository)
	auditRepo := new(MockAuditRepository)
	tx := &fakeTxRunner{escalations: escalationRepo, audit: auditRepo}

	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{1, 0, 0}, nil)
	corpusRepo.On("FetchCorpus", mock.Anything).Return(testCorpus(), nil)
	docRepo.On("TopChunks", mock.Anything, mock.Anything, 4).Return([]*RetrievedChunk{}, nil)
	synthesizer.On("Synthesize", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("model overloaded"))
	escalationRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	auditRepo.On("Create", mock.Anything, mock.MatchedBy(func(rec *domain.AuditRecord) bool {
		return rec.Decision == domain.DecisionEscalate
	})).Return(nil)

	svc := NewRouteServiceWithUUIDGen(embedder, synthesizer, corpusRepo, docRepo, tx, routeTestConfig(),
		NewMockUUIDGenerator("audit-1", "escalation-1"))

	result, err := svc.Route(ctx, "What is photosynthesis?")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionEscalate, result.Decision)
	assert.Equal(t, EscalationNotice, result.Answer)
}

func TestRouteService_Route_EmbeddingFailureFailsClosed(t *testing.T) {
	ctx := context.Background()

	embedder := new(MockEmbeddingClient)
	synthesizer := new(MockSynthesizer)
	corpusRepo := new(MockCorpusRepository)
	docRepo := new(MockDocumentRepository)
	escalationRepo := new(MockEscalationRepository)
	auditRepo := new(MockAuditRepository)
	tx := &fakeTxRunner{escalations: escalationRepo, audit: auditRepo}

	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))

	svc := NewRouteServiceWithUUIDGen(embedder, synthesizer, corpusRepo, docRepo, tx, routeTestConfig(),
		NewMockUUIDGenerator())

	_, err := svc.Route(ctx, "What is photosynthesis?")
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeEmbeddingProvider, domainErr.Code)

	// Fail closed: no decision of either kind is recorded.
	auditRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	escalationRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRouteService_Route_EmptyCorpusFailsWithoutDecision(t *testing.T) {
	ctx := context.Background()

	embedder := new(MockEmbeddingClient)
	synthesizer := new(MockSynthesizer)
	corpusRepo := new(MockCorpusRepository)
	docRepo := new(MockDocumentRepository)
	escalationRepo := new(MockEscalationRepository)
	auditRepo := new(MockAuditRepository)
	tx := &fakeTxRunner{escalations: escalationRepo, audit: auditRepo}

	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{1, 0, 0}, nil)
	corpusRepo.On("FetchCorpus", mock.Anything).Return([]*domain.Question{}, nil)

	svc := NewRouteServiceWithUUIDGen(embedder, synthesizer, corpusRepo, docRepo, tx, routeTestConfig(),
		NewMockUUIDGenerator("audit-1", "escalation-1"))

	_, err := svc.Route(ctx, "What is photosynthesis?")
	require.ErrorIs(t, err, domain.ErrEmptyCorpus)

	// A broken setup must not produce a decision of either kind.
	auditRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	escalationRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRouteService_Route_DimensionMismatchFailsWithoutDecision(t *testing.T) {
	ctx := context.Background()

	embedder := new(MockEmbeddingClient)
	synthesizer := new(MockSynthesizer)
	corpusRepo := new(MockCorpusRepository)
	docRepo := new(MockDocumentRepository)
	escalationRepo := new(MockEscalationRepository)
	auditRepo := new(MockAuditRepository)
	tx := &fakeTxRunner{escalations: escalationRepo, audit: auditRepo}

	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{1, 0, 0}, nil)
	corpusRepo.On("FetchCorpus", mock.Anything).Return([]*domain.Question{
		{ID: "ref-short", Text: "short vector", Embedding: []float32{1, 0}},
	}, nil)

	svc := NewRouteServiceWithUUIDGen(embedder, synthesizer, corpusRepo, docRepo, tx, routeTestConfig(),
		NewMockUUIDGenerator("audit-1", "escalation-1"))

	_, err := svc.Route(ctx, "What is photosynthesis?")
	require.ErrorIs(t, err, domain.ErrDimensionMismatch)

	auditRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	escalationRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRouteService_Route_AuditWriteFailureIsFatal(t *testing.T) {
	ctx := context.Background()

	embedder := new(MockEmbeddingClient)
	synthesizer := new(MockSynthesizer)
	corpusRepo := new(MockCorpusRepository)
	docRepo := new(MockDocumentRepository)
	escalationRepo := new(MockEscalationRepository)
	auditRepo := new(MockAuditRepository)
	tx := &fakeTxRunner{escalations: escalationRepo, audit: auditRepo}

	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0, 0, 1}, nil)
	corpusRepo.On("FetchCorpus", mock.Anything).Return(testCorpus(), nil)
	escalationRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	auditRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	svc := NewRouteServiceWithUUIDGen(embedder, synthesizer, corpusRepo, docRepo, tx, routeTestConfig(),
		NewMockUUIDGenerator("audit-1", "escalation-1"))

	_, err := svc.Route(ctx, "Who won the 1998 world cup?")
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeAuditWrite, domainErr.Code)
}

func TestRouteService_Route_EmptyQuestionRejected(t *testing.T) {
	svc := NewRouteServiceWithUUIDGen(new(MockEmbeddingClient), new(MockSynthesizer),
		new(MockCorpusRepository), new(MockDocumentRepository), &fakeTxRunner{}, routeTestConfig(),
		NewMockUUIDGenerator())

	_, err := svc.Route(context.Background(), "")
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

// Raising the threshold can only move a decision toward escalation.
func TestRouteService_Route_ThresholdMonotonicity(t *testing.T) {
	ctx := context.Background()

	decisionAt := func(threshold float64) domain.Decision {
		embedder := new(MockEmbeddingClient)
		synthesizer := new(MockSynthesizer)
		corpusRepo := new(MockCorpusRepository)
		docRepo := new(MockDocumentRepository)
		escalationRepo := new(MockEscalationRepository)
		auditRepo := new(MockAuditRepository)
		tx := &fakeTxRunner{escalations: escalationRepo, audit: auditRepo}

		// Similarity against ref-1 is cos(45°) ≈ 0.7071.
		embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{1, 1, 0}, nil)
		corpusRepo.On("FetchCorpus", mock.Anything).Return(testCorpus(), nil)
		docRepo.On("TopChunks", mock.Anything, mock.Anything, 4).Return([]*RetrievedChunk{}, nil)
		synthesizer.On("Synthesize", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("answer", nil)
		synthesizer.On("ContainsEscalationMarker", "answer").Return(false)
		escalationRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		auditRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		cfg := routeTestConfig()
		cfg.ConfidenceThreshold = threshold
		svc := NewRouteServiceWithUUIDGen(embedder, synthesizer, corpusRepo, docRepo, tx, cfg,
			NewMockUUIDGenerator("audit-1", "escalation-1"))

		result, err := svc.Route(ctx, "question")
		require.NoError(t, err)
		return result.Decision
	}

	assert.Equal(t, domain.DecisionAutoAnswer, decisionAt(0))
	assert.Equal(t, domain.DecisionAutoAnswer, decisionAt(0.5))
	assert.Equal(t, domain.DecisionEscalate, decisionAt(0.9))
}

// A zero threshold means every question clears the bar. Construction must
// keep it, and the knobs configured alongside it, intact.
func TestNewRouteService_ZeroThresholdIsPreserved(t *testing.T) {
	cfg := RouteConfig{
		ConfidenceThreshold: 0,
		RetrievalLimit:      2,
		ProviderTimeout:     time.Second,
		EmbedMaxRetries:     1,
	}
	svc := NewRouteServiceWithUUIDGen(new(MockEmbeddingClient), new(MockSynthesizer),
		new(MockCorpusRepository), new(MockDocumentRepository), &fakeTxRunner{}, cfg,
		NewMockUUIDGenerator())

	assert.Zero(t, svc.cfg.ConfidenceThreshold)
	assert.Equal(t, 2, svc.cfg.RetrievalLimit)
	assert.Equal(t, time.Second, svc.cfg.ProviderTimeout)
	assert.Equal(t, uint64(1), svc.cfg.EmbedMaxRetries)
}

func TestNewRouteService_DefaultsOperationalKnobs(t *testing.T) {
	svc := NewRouteServiceWithUUIDGen(new(MockEmbeddingClient), new(MockSynthesizer),
		new(MockCorpusRepository), new(MockDocumentRepository), &fakeTxRunner{},
		RouteConfig{ConfidenceThreshold: 0.5}, NewMockUUIDGenerator())

	assert.Equal(t, 0.5, svc.cfg.ConfidenceThreshold)
	assert.Equal(t, 4, svc.cfg.RetrievalLimit)
	assert.Equal(t, 30*time.Second, svc.cfg.ProviderTimeout)
}
