package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultChatModel is the model used for answer synthesis
	DefaultChatModel = openai.GPT4o
	// DefaultChatTemperature keeps answers close to the source documents
	DefaultChatTemperature = 0.1
)

// EscalationMarker is the phrase the synthesizer is instructed to emit when
// the uploaded documents do not cover a question. The routing policy scans
// answers for it to reclassify an auto-answer as an escalation.
const EscalationMarker = "This question will be answered by your teacher"

// systemPrompt grounds the model strictly in the retrieved document excerpts.
const systemPrompt = `You are a highly knowledgeable tutor, specializing in explaining the content of specific documents provided by the teacher. Help the student understand and learn from those documents, strictly using only the information provided therein. Guidelines:

- Use only information from the provided document excerpts to answer questions.
- If the question relates to information not covered in the excerpts, politely inform the student that "` + EscalationMarker + `".
- Cite specific sections from the excerpts when relevant to provide detailed and precise answers.
- Encourage the student to explore related concepts within the documents to enhance understanding.
- Maintain a professional tone and focus on educational support.`

// ChatAPI defines the interface for chat completion
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Synthesizer produces document-grounded answers via chat completion. The
// output is treated as a black box by callers; it may contain the
// EscalationMarker phrase.
type Synthesizer struct {
	api         ChatAPI
	model       string
	temperature float32
}

// SynthesizerConfig holds synthesizer construction options
type SynthesizerConfig struct {
	APIKey string
	Model  string
	// Temperature overrides DefaultChatTemperature when non-nil. A pointer
	// keeps an explicit zero distinct from unset.
	Temperature *float32
}

// NewSynthesizer creates a Synthesizer with default model settings
func NewSynthesizer(apiKey string) *Synthesizer {
	return NewSynthesizerWithConfig(SynthesizerConfig{APIKey: apiKey})
}

// NewSynthesizerWithConfig creates a Synthesizer with explicit configuration
func NewSynthesizerWithConfig(cfg SynthesizerConfig) *Synthesizer {
	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
	}
	temperature := float32(DefaultChatTemperature)
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	return &Synthesizer{
		api:         openai.NewClient(cfg.APIKey),
		model:       model,
		temperature: temperature,
	}
}

// Synthesize answers the question using the provided document excerpts and
// optional auxiliary context (the best-matched reference question). The raw
// model output is returned verbatim.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, excerpts []string, auxContext string) (string, error) {
	if question == "" {
		return "", ErrEmptyText
	}

	resp, err := s.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: s.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(question, excerpts, auxContext)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to synthesize answer: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

// ContainsEscalationMarker reports whether an answer signals that the
// documents do not cover the question. Matching is case-insensitive and keyed
// on the marker's "your teacher" core, mirroring how teachers phrase it.
func (s *Synthesizer) ContainsEscalationMarker(answer string) bool {
	return strings.Contains(strings.ToLower(answer), "your teacher")
}

func buildUserPrompt(question string, excerpts []string, auxContext string) string {
	var b strings.Builder

	b.WriteString("Context from Documents:\n")
	if len(excerpts) == 0 {
		b.WriteString("(no relevant excerpts found)\n")
	}
	for i, excerpt := range excerpts {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, excerpt)
	}

	if auxContext != "" {
		b.WriteString("\nSimilar previously answered question:\n")
		b.WriteString(auxContext)
		b.WriteString("\n")
	}

	b.WriteString("\nStudent's Question:\n")
	b.WriteString(question)

	return b.String()
}
