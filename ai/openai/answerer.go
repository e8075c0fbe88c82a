package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/89jobrien/code-chatter/ai"
)

const answerSystemPrompt = `You are a code assistant. Answer the question using only the provided code and documentation excerpts. If the excerpts do not contain the answer, say so instead of guessing.`

// Answerer implements ai.Answerer using OpenAI-compatible chat APIs.
type Answerer struct {
	llm       *openai.LLM
	maxTokens int
	logger    *slog.Logger
}

// newAnswerer is an internal constructor that returns the concrete type.
func newAnswerer(config *ai.Config) (*Answerer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	llm, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken("none"),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &Answerer{
		llm:       llm,
		maxTokens: config.MaxAnswerTokens,
		logger:    slog.Default().With("component", "openai-answerer"),
	}, nil
}

// NewAnswerer creates a new answerer using the provided configuration.
//
// Returns ai.Answerer interface to enforce abstraction.
func NewAnswerer(config *ai.Config) (ai.Answerer, error) {
	return newAnswerer(config)
}

// Answer generates an answer to question grounded in the given passages.
func (a *Answerer) Answer(ctx context.Context, question string, passages []string) (string, error) {
	a.logger.Debug("answering question", "question_length", len(question), "passages", len(passages))

	prompt := buildAnswerPrompt(question, passages)
	answer, err := llms.GenerateFromSinglePrompt(ctx, a.llm, prompt,
		llms.WithMaxTokens(a.maxTokens),
	)
	if err != nil {
		a.logger.Error("failed to generate answer", "err", err)
		return "", err
	}

	return strings.TrimSpace(answer), nil
}

// buildAnswerPrompt assembles the system instruction, numbered context
// excerpts and the question into a single prompt.
func buildAnswerPrompt(question string, passages []string) string {
	var sb strings.Builder
	sb.WriteString(answerSystemPrompt)
	sb.WriteString("\n\n")

	if len(passages) == 0 {
		sb.WriteString("No excerpts are available.\n")
	}
	for i, passage := range passages {
		fmt.Fprintf(&sb, "--- Excerpt %d ---\n%s\n\n", i+1, passage)
	}

	sb.WriteString("Question: ")
	sb.WriteString(question)
	return sb.String()
}
