package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sairam-f/agentic-rag/internal/config"
	"github.com/sairam-f/agentic-rag/internal/llmservice"
	"github.com/sairam-f/agentic-rag/internal/models"
	"github.com/sairam-f/agentic-rag/internal/vectorstore"
)

// Answerer embeds a question, retrieves the most similar stored chunks, and
// asks the generation model for an answer grounded in those chunks. All the
// "can't answer" conditions come back as guidance strings, never as errors.
type Answerer struct {
	store *vectorstore.Store
	svc   llmservice.Service
	cfg   *config.Config
	retry llmservice.RetryPolicy
}

func NewAnswerer(store *vectorstore.Store, svc llmservice.Service, cfg *config.Config) *Answerer {
	return &Answerer{
		store: store,
		svc:   svc,
		cfg:   cfg,
		retry: llmservice.RetryPolicy{
			MaxAttempts: 2,
			Cooldown:    time.Duration(cfg.RAG.RetryCooldownSecs) * time.Second,
		},
	}
}

// Answer runs one retrieval-augmented query. Infrastructure failures other
// than rate limits propagate; exhausted rate limits degrade to an advisory
// message.
func (a *Answerer) Answer(ctx context.Context, query string) (string, error) {
	if a.store.Count() == 0 {
		return models.MsgNoIndexedDocs, nil
	}

	var queryEmb []float32
	err := a.retry.Do(ctx, func() error {
		emb, err := a.svc.EmbedQuery(ctx, query)
		if err != nil {
			return err
		}
		queryEmb = emb
		return nil
	})
	if err != nil {
		if llmservice.IsRateLimit(err) {
			return models.MsgEmbedRateLimited, nil
		}
		return "", fmt.Errorf("embed query: %w", err)
	}

	res := a.store.Query(queryEmb, a.cfg.RAG.TopK)
	if len(res.Documents) == 0 {
		return models.MsgNoRetrievalHits, nil
	}

	contextStr := FormatContext(res.Documents, res.Metadatas, a.cfg.RAG.MaxContextChars)
	if strings.TrimSpace(contextStr) == "" {
		return models.MsgEmptyContext, nil
	}

	prompt := fmt.Sprintf(models.AnswerPromptTemplate, models.SystemPrompt, query, contextStr)
	log.Debug().Int("retrieved", len(res.Documents)).Int("context_chars", len(contextStr)).Msg("generating answer")

	var answer string
	err = a.retry.Do(ctx, func() error {
		out, err := a.svc.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		answer = out
		return nil
	})
	if err != nil {
		if llmservice.IsRateLimit(err) {
			return models.MsgGenerateRateLimited, nil
		}
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return answer, nil
}

// FormatContext renders retrieved chunks as citation-tagged blocks, greedily
// taking them in ranked order until the next chunk would push the total past
// maxChars. Chunks are never split.
func FormatContext(docs []string, metas []models.Metadata, maxChars int) string {
	var items []string
	total := 0
	for i, d := range docs {
		cite := citation(metas[i])
		block := cite + "\n" + d + "\n"
		if total+len(block) > maxChars {
			break
		}
		items = append(items, block)
		total += len(block)
	}
	return strings.Join(items, models.ContextSeparator)
}

func citation(m models.Metadata) string {
	if m.Page != nil {
		return fmt.Sprintf("[%s, page %d]", m.Source, *m.Page)
	}
	return fmt.Sprintf("[%s]", m.Source)
}
