// Package openai adapts the go-openai chat completion stream to the
// generation pipeline's provider contract. Any OpenAI-compatible endpoint
// works (Groq, OpenAI, vLLM) via the base URL.
package openai

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docstream/internal/metrics"
	"github.com/kailas-cloud/docstream/internal/usecase/generate"
)

// Provider streams chat completions.
type Provider struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	configured  bool
	logger      *zap.Logger
}

// Config holds the provider settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Logger      *zap.Logger
}

// NewProvider creates a chat completion provider. An empty API key yields an
// unconfigured provider; the pipeline checks Configured before streaming.
func NewProvider(cfg *Config) *Provider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Provider{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		configured:  cfg.APIKey != "",
		logger:      cfg.Logger,
	}
}

// Configured implements generate.Provider.
func (p *Provider) Configured() bool { return p.configured }

// Stream opens a streaming chat completion and returns its token sequence.
func (p *Provider) Stream(ctx context.Context, systemPrompt, userPrompt string) (generate.TokenStream, error) {
	s, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
		Stream:      true,
	})
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(p.model, "error").Inc()
		return nil, fmt.Errorf("create chat completion stream: %w", err)
	}

	metrics.LLMRequestsTotal.WithLabelValues(p.model, "success").Inc()
	return &tokenStream{stream: s, model: p.model}, nil
}

// tokenStream yields the content deltas of one completion stream.
type tokenStream struct {
	stream *openai.ChatCompletionStream
	model  string
}

// Recv returns the next content token, or io.EOF at end of stream. Responses
// without choices (keep-alives, usage frames) yield an empty token.
func (t *tokenStream) Recv() (string, error) {
	resp, err := t.stream.Recv()
	if err == io.EOF {
		return "", io.EOF
	}
	if err != nil {
		return "", fmt.Errorf("stream recv: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	metrics.LLMTokensStreamedTotal.WithLabelValues(t.model).Inc()
	return resp.Choices[0].Delta.Content, nil
}

// Close releases the underlying HTTP stream.
func (t *tokenStream) Close() {
	_ = t.stream.Close()
}
