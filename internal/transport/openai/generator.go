package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/osamaatef1/rag-service/internal/domain"
	"github.com/osamaatef1/rag-service/internal/metrics"
)

const systemPrompt = `You are a helpful assistant that answers questions based on the provided context.
Use only the information from the context to answer. If the context does not
contain enough information to answer the question, say so clearly instead of
guessing. Cite the numbered context passages you used.`

// Generator synthesizes answers over retrieved context using an
// OpenAI-compatible chat completions API.
type Generator struct {
	client      *openai.Client
	model       string
	provider    string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// GeneratorConfig holds the answer generation provider settings.
type GeneratorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Provider    string
	Temperature float64
	MaxTokens   int
	Logger      *zap.Logger
}

// NewGenerator creates an OpenAI-compatible chat completion provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		provider:    cfg.Provider,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}
}

// Generate implements domain.Generator: a single synchronous chat completion
// grounded in the retrieved snippets. Provider failures and timeouts wrap
// domain.ErrGeneration.
func (g *Generator) Generate(
	ctx context.Context, query string, snippets []domain.ContextSnippet,
) (domain.GenerationResult, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(query, snippets)},
		},
	}

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, req)

	latency := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.GenerationResult{}, fmt.Errorf("generation canceled: %w: %w", ctxErr, domain.ErrGeneration)
		}
		return domain.GenerationResult{}, fmt.Errorf("chat completion: %w: %w", err, domain.ErrGeneration)
	}

	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		return domain.GenerationResult{}, fmt.Errorf("empty completion response: %w", domain.ErrGeneration)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.provider, g.model).Observe(latency.Seconds())

	return domain.GenerationResult{
		Answer:   resp.Choices[0].Message.Content,
		Provider: g.provider,
		Model:    g.model,
		Latency:  latency,
	}, nil
}

// buildPrompt renders numbered context passages with provenance ahead of the
// question. With no snippets the model is told the context is empty so it
// declines instead of hallucinating.
func buildPrompt(query string, snippets []domain.ContextSnippet) string {
	var b strings.Builder

	b.WriteString("Context:\n")
	if len(snippets) == 0 {
		b.WriteString("(no relevant documents were found)\n")
	}
	for i, s := range snippets {
		if s.Source != "" {
			fmt.Fprintf(&b, "[%d] (Source: %s) %s\n\n", i+1, s.Source, s.Text)
		} else {
			fmt.Fprintf(&b, "[%d] %s\n\n", i+1, s.Text)
		}
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	return b.String()
}
