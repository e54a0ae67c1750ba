package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/eduquery-ai/eduquery/internal/domain"
	"github.com/eduquery-ai/eduquery/internal/similarity"
	"github.com/eduquery-ai/eduquery/internal/telemetry"
)

// EscalationNotice is the fixed message a student sees when their question
// is routed to a teacher, for any escalation path.
const EscalationNotice = "Your question has been submitted for review by the teacher. We'll get back to you shortly."

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// AnswerSynthesizer produces a document-grounded answer for a question.
type AnswerSynthesizer interface {
	Synthesize(ctx context.Context, question string, excerpts []string, auxContext string) (string, error)
	ContainsEscalationMarker(answer string) bool
}

// RouteConfig carries the routing policy knobs.
type RouteConfig struct {
	// ConfidenceThreshold is the minimum confidence for an automated
	// answer. Raising it only ever moves decisions toward escalation.
	ConfidenceThreshold float64
	// RetrievalLimit is the number of document chunks handed to the
	// synthesizer.
	RetrievalLimit int
	// ProviderTimeout bounds each embedding and synthesizer call.
	ProviderTimeout time.Duration
	// EmbedMaxRetries bounds the embedding retry loop.
	EmbedMaxRetries uint64
}

// DefaultRouteConfig returns the routing defaults used outside tests.
func DefaultRouteConfig() RouteConfig {
	return RouteConfig{
		ConfidenceThreshold: 0.8,
		RetrievalLimit:      4,
		ProviderTimeout:     30 * time.Second,
		EmbedMaxRetries:     3,
	}
}

// RouteResult is what the student-facing handler renders.
type RouteResult struct {
	Decision      domain.Decision
	Answer        string
	Confidence    float64
	BestMatchText string
	EscalationID  string
	AuditID       string
}

// RouteService decides whether a student question gets an automated answer
// or goes to a teacher, and records every decision in the audit log.
type RouteService struct {
	embedder    EmbeddingClient
	synthesizer AnswerSynthesizer
	corpusRepo  CorpusRepositoryInterface
	docRepo     DocumentRepositoryInterface
	txRunner    TxRunner
	uuidGen     UUIDGenerator
	cfg         RouteConfig
}

func NewRouteService(
	embedder EmbeddingClient,
	synthesizer AnswerSynthesizer,
	corpusRepo CorpusRepositoryInterface,
	docRepo DocumentRepositoryInterface,
	txRunner TxRunner,
	cfg RouteConfig,
) *RouteService {
	return NewRouteServiceWithUUIDGen(embedder, synthesizer, corpusRepo, docRepo, txRunner, cfg, &DefaultUUIDGenerator{})
}

func NewRouteServiceWithUUIDGen(
	embedder EmbeddingClient,
	synthesizer AnswerSynthesizer,
	corpusRepo CorpusRepositoryInterface,
	docRepo DocumentRepositoryInterface,
	txRunner TxRunner,
	cfg RouteConfig,
	uuidGen UUIDGenerator,
) *RouteService {
	// A zero threshold is a legal configuration meaning every question
	// clears the bar, so only the operational knobs get defaults.
	defaults := DefaultRouteConfig()
	if cfg.RetrievalLimit <= 0 {
		cfg.RetrievalLimit = defaults.RetrievalLimit
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = defaults.ProviderTimeout
	}
	return &RouteService{
		embedder:    embedder,
		synthesizer: synthesizer,
		corpusRepo:  corpusRepo,
		docRepo:     docRepo,
		txRunner:    txRunner,
		uuidGen:     uuidGen,
		cfg:         cfg,
	}
}

// Route runs the full decision pipeline for one student question.
//
// An embedding failure fails closed: nothing is logged and the caller gets
// a typed provider error. An empty corpus or a dimension mismatch likewise
// aborts before any decision is recorded. Once a pre-decision exists,
// synthesizer failures degrade to escalation instead of erroring, and the
// audit record is written exactly once with the final decision, in the same
// transaction as the escalation insert.
func (s *RouteService) Route(ctx context.Context, questionText string) (*RouteResult, error) {
	if questionText == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "question text is required")
	}

	ctx, span := telemetry.StartSpan(ctx, "RouteService.Route", telemetry.SpanAttributes{
		Operation: "route",
	})
	defer span.End()

	queryEmbedding, err := s.embedQuestion(ctx, questionText)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbeddingProvider,
			"We couldn't process your question right now. Please try again.", err)
	}

	corpus, err := s.corpusRepo.FetchCorpus(ctx)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	confidence, bestMatch, err := s.scoreAgainstCorpus(ctx, queryEmbedding, corpus)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	decision := domain.DecisionEscalate
	if confidence >= s.cfg.ConfidenceThreshold {
		decision = domain.DecisionAutoAnswer
	}

	var answer string
	if decision == domain.DecisionAutoAnswer {
		answer, err = s.synthesize(ctx, questionText, queryEmbedding, bestMatch)
		switch {
		case err != nil:
			// The student already earned an answer path; a broken
			// synthesizer must not turn that into an error.
			telemetry.CaptureError(ctx, err)
			decision = domain.DecisionEscalate
			answer = ""
		case s.synthesizer.ContainsEscalationMarker(answer):
			decision = domain.DecisionEscalate
			answer = ""
		}
	}

	result := &RouteResult{
		Decision:   decision,
		Answer:     answer,
		Confidence: confidence,
	}
	if bestMatch != nil {
		result.BestMatchText = bestMatch.Text
	}

	now := time.Now().UTC()
	auditRecord := &domain.AuditRecord{
		ID:           s.uuidGen.NewString(),
		QuestionText: questionText,
		Confidence:   confidence,
		Decision:     decision,
		Answer:       answer,
		CreatedAt:    now,
	}
	if bestMatch != nil {
		auditRecord.BestMatchID = bestMatch.ID
		auditRecord.BestMatchText = bestMatch.Text
	}

	var escalation *domain.Escalation
	if decision == domain.DecisionEscalate {
		escalation = domain.NewEscalation(s.uuidGen.NewString(), questionText, confidence, now)
		auditRecord.EscalationID = escalation.ID
		result.Answer = EscalationNotice
		result.EscalationID = escalation.ID
	}

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if escalation != nil {
			if err := repos.Escalations().Create(ctx, escalation); err != nil {
				return err
			}
		}
		return repos.Audit().Create(ctx, auditRecord)
	})
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeAuditWrite,
			"failed to record routing decision", err)
	}

	result.AuditID = auditRecord.ID
	return result, nil
}

func (s *RouteService) embedQuestion(ctx context.Context, text string) ([]float32, error) {
	var embedding []float32

	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
		defer cancel()

		vec, err := s.embedder.GenerateEmbedding(callCtx, text)
		if err != nil {
			return err
		}
		embedding = vec
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.cfg.EmbedMaxRetries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return embedding, nil
}

// scoreAgainstCorpus maps the question into [0,1] confidence against the
// corpus snapshot. An empty corpus and a dimension mismatch are
// configuration errors, not scores: both propagate so no decision is
// recorded against a broken setup.
func (s *RouteService) scoreAgainstCorpus(ctx context.Context, query []float32, corpus []*domain.Question) (float64, *domain.Question, error) {
	vectors := make([][]float32, len(corpus))
	for i, q := range corpus {
		vectors[i] = q.Embedding
	}

	scored, err := similarity.Score(query, vectors)
	if err != nil {
		return 0, nil, err
	}

	if scored.Degenerate {
		telemetry.AddBreadcrumb(ctx, "similarity",
			"degenerate similarity: zero-magnitude embedding scored as 0")
	}

	return similarity.Confidence(scored.Similarity), corpus[scored.BestIndex], nil
}

func (s *RouteService) synthesize(ctx context.Context, question string, queryEmbedding []float32, bestMatch *domain.Question) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()

	chunks, err := s.docRepo.TopChunks(callCtx, queryEmbedding, s.cfg.RetrievalLimit)
	if err != nil {
		return "", err
	}

	excerpts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		excerpts = append(excerpts, c.Content)
	}

	var auxContext string
	if bestMatch != nil {
		auxContext = bestMatch.Text
	}

	answer, err := s.synthesizer.Synthesize(callCtx, question, excerpts, auxContext)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeSynthesizer, "answer synthesis failed", err)
	}
	return answer, nil
}
