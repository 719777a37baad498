// Package llm holds the chat-completion adapters: the grounded answer
// generator and the general-knowledge fallback agent.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/ternarybob/arbor"
	"pdfrag/config"
	"pdfrag/internal/domain"
)

const AnswerSystemPrompt = `You answer questions using only the document excerpts provided by the user.
Respond with a JSON object of the form {"content": string, "relevant": boolean}.
Set "relevant" to true and put the answer in "content" when the excerpts contain the answer.
Set "relevant" to false and leave "content" empty when they do not.`

const fallbackSystemPrompt = `You are a helpful assistant. Answer the question concisely from general knowledge.`

// chatClient is the slice of the go-openai client used here.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type completer struct {
	client      chatClient
	model       string
	temperature float32
	timeout     time.Duration
	logger      arbor.ILogger
}

func newCompleter(cfg config.LLMConfig, model string, logger arbor.ILogger) (completer, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return completer{}, fmt.Errorf("API key not found in environment variable: %s", cfg.APIKeyEnv)
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return completer{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: cfg.Temperature,
		timeout:     timeout,
		logger:      logger,
	}, nil
}

// complete runs one chat completion under the configured timeout. category
// is the sentinel that every failure is wrapped with.
func (c completer) complete(ctx context.Context, category error, messages []openai.ChatCompletionMessage, jsonOutput bool) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	}
	if jsonOutput {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(callCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w: no response within %s", category, domain.ErrUpstreamTimeout, c.timeout)
		}
		return "", fmt.Errorf("%w: %w", category, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", category)
	}

	c.logger.Debug().
		Str("model", c.model).
		Int("total_tokens", resp.Usage.TotalTokens).
		Dur("elapsed", time.Since(start)).
		Msg("Chat completion finished")

	return resp.Choices[0].Message.Content, nil
}

// AnswerGenerator asks the model to answer from retrieved chunks and to
// report whether they were relevant. It returns the raw JSON reply.
type AnswerGenerator struct {
	completer
}

func NewAnswerGenerator(cfg config.LLMConfig, logger arbor.ILogger) (*AnswerGenerator, error) {
	c, err := newCompleter(cfg, cfg.Model, logger)
	if err != nil {
		return nil, err
	}
	return &AnswerGenerator{completer: c}, nil
}

func (g *AnswerGenerator) Generate(ctx context.Context, query string, chunks []domain.RetrievalResult) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: AnswerSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: BuildAnswerPrompt(query, chunks)},
	}
	return g.complete(ctx, domain.ErrAnswerGeneration, messages, true)
}

// BuildAnswerPrompt lays out the excerpts in rank order followed by the
// question.
func BuildAnswerPrompt(query string, chunks []domain.RetrievalResult) string {
	var sb strings.Builder
	sb.WriteString("Document excerpts:\n")
	for i, c := range chunks {
		fmt.Fprintf(&sb, "\n[%d] (similarity %.3f)\n%s\n", i+1, c.Similarity, strings.TrimSpace(c.Text))
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(query)
	return sb.String()
}

// FallbackAgent answers from general knowledge.
type FallbackAgent struct {
	completer
}

func NewFallbackAgent(cfg config.LLMConfig, logger arbor.ILogger) (*FallbackAgent, error) {
	model := cfg.FallbackModel
	if model == "" {
		model = cfg.Model
	}
	c, err := newCompleter(cfg, model, logger)
	if err != nil {
		return nil, err
	}
	return &FallbackAgent{completer: c}, nil
}

func (a *FallbackAgent) Run(ctx context.Context, query string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: fallbackSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: query},
	}
	return a.complete(ctx, domain.ErrFallbackAgent, messages, false)
}
