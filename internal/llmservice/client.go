package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/sairam-f/agentic-rag/internal/config"
)

// Service is the embedding/generation capability the pipeline depends on.
// Tests substitute a fake; production wires a langchaingo-backed Client.
type Service interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client talks to an OpenAI-compatible endpoint or a local Ollama server,
// selected by config.
type Client struct {
	embedder *embeddings.EmbedderImpl
	llm      llms.Model
}

// NewClient builds the embedding and generation clients for the configured
// provider.
func NewClient(cfg *config.Config) (*Client, error) {
	switch cfg.LLM.Provider {
	case "ollama":
		return newOllamaClient(cfg)
	case "openai":
		return newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.LLM.Provider)
	}
}

func newOllamaClient(cfg *config.Config) (*Client, error) {
	embedLLM, err := ollama.New(
		ollama.WithServerURL(cfg.LLM.BaseURL),
		ollama.WithModel(cfg.LLM.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("init ollama embedding model: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(embedLLM)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	genLLM, err := ollama.New(
		ollama.WithServerURL(cfg.LLM.BaseURL),
		ollama.WithModel(cfg.LLM.InferenceModel),
	)
	if err != nil {
		return nil, fmt.Errorf("init ollama inference model: %w", err)
	}
	return &Client{embedder: embedder, llm: genLLM}, nil
}

func newOpenAIClient(cfg *config.Config) (*Client, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.APIKey(), "Bearer ")),
		openai.WithModel(cfg.LLM.InferenceModel),
		openai.WithEmbeddingModel(cfg.LLM.EmbeddingModel),
	}
	if cfg.LLM.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.LLM.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init openai client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return &Client{embedder: embedder, llm: llm}, nil
}

func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return c.embedder.EmbedDocuments(ctx, texts)
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return c.embedder.EmbedQuery(ctx, text)
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}
	res, err := c.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("generation returned no choices")
	}
	return res.Choices[0].Content, nil
}
