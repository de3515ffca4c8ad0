package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/sairam-f/agentic-rag/internal/chunker"
	"github.com/sairam-f/agentic-rag/internal/config"
	"github.com/sairam-f/agentic-rag/internal/llmservice"
	"github.com/sairam-f/agentic-rag/internal/loader"
	"github.com/sairam-f/agentic-rag/internal/models"
	"github.com/sairam-f/agentic-rag/internal/vectorstore"
)

// Pipeline ingests every document in the raw directory: load, chunk,
// fingerprint, dedup against the store, embed in rate-limited batches, and
// persist each batch as soon as it is embedded so an aborted run loses at
// most the in-flight batch.
type Pipeline struct {
	store   *vectorstore.Store
	svc     llmservice.Service
	cfg     *config.Config
	limiter *rate.Limiter
	retry   llmservice.RetryPolicy
}

func NewPipeline(store *vectorstore.Store, svc llmservice.Service, cfg *config.Config) *Pipeline {
	limit, burst := rate.Inf, 0
	if perMinute := cfg.RAG.EmbedsPerMinute; perMinute > 0 {
		limit, burst = rate.Limit(float64(perMinute)/60.0), perMinute
	}
	return &Pipeline{
		store:   store,
		svc:     svc,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, burst),
		retry: llmservice.RetryPolicy{
			MaxAttempts: 2,
			Cooldown:    time.Duration(cfg.RAG.RetryCooldownSecs) * time.Second,
		},
	}
}

// Run processes the configured raw directory. Unsupported file types are
// skipped; embedding failures that survive the retry policy abort the run.
func (p *Pipeline) Run(ctx context.Context) error {
	runLog := log.With().Str("run_id", uuid.NewString()).Logger()

	rawDir := p.cfg.RAG.RawDir
	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		return fmt.Errorf("create raw dir: %w", err)
	}

	entries, err := os.ReadDir(rawDir)
	if err != nil {
		return fmt.Errorf("list raw dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, filepath.Join(rawDir, e.Name()))
		}
	}
	if len(files) == 0 {
		runLog.Info().Str("dir", rawDir).Msg("no files found, add pdf/txt/docx/md files and re-run ingest")
		return nil
	}

	var allChunks []models.Chunk
	for _, fp := range files {
		pages, err := loader.LoadDocument(fp)
		if err != nil {
			if errors.Is(err, loader.ErrUnsupportedType) {
				runLog.Warn().Err(err).Str("file", fp).Msg("skipping file")
				continue
			}
			return fmt.Errorf("load %s: %w", fp, err)
		}
		chunks := chunker.ChunkDocs(pages, p.cfg.RAG.ChunkSize, p.cfg.RAG.ChunkOverlap)
		runLog.Info().Str("file", filepath.Base(fp)).Int("pages", len(pages)).Int("chunks", len(chunks)).Msg("chunked document")
		allChunks = append(allChunks, chunks...)
	}

	if len(allChunks) == 0 {
		runLog.Info().Msg("no text extracted, nothing to ingest")
		return nil
	}
	runLog.Info().Int("total_chunks", len(allChunks)).Msg("starting embedding")

	existing := make(map[string]struct{}, p.store.Count())
	for _, id := range p.store.IDs() {
		existing[id] = struct{}{}
	}

	batchSize := p.cfg.RAG.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	added := 0
	for i := 0; i < len(allChunks); i += batchSize {
		end := i + batchSize
		if end > len(allChunks) {
			end = len(allChunks)
		}

		var (
			ids   []string
			docs  []string
			metas []models.Metadata
		)
		for _, c := range allChunks[i:end] {
			id := models.StableID(c.Metadata.Source, c.Metadata.Page, c.Text)
			if _, ok := existing[id]; ok {
				continue
			}
			ids = append(ids, id)
			docs = append(docs, c.Text)
			metas = append(metas, c.Metadata)
		}
		if len(docs) == 0 {
			continue
		}

		if err := p.limiter.WaitN(ctx, len(docs)); err != nil {
			return err
		}

		embs, err := p.embedBatch(ctx, runLog, docs)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}

		// Persist immediately so a later failure cannot lose this batch.
		if err := p.store.Add(ids, embs, docs, metas); err != nil {
			return fmt.Errorf("store batch: %w", err)
		}
		for _, id := range ids {
			existing[id] = struct{}{}
		}
		added += len(ids)
	}

	runLog.Info().Int("added", added).Int("total", p.store.Count()).Msg("ingestion complete")
	return nil
}

func (p *Pipeline) embedBatch(ctx context.Context, runLog zerolog.Logger, docs []string) ([][]float32, error) {
	var embs [][]float32
	err := p.retry.Do(ctx, func() error {
		t0 := time.Now()
		out, err := p.svc.EmbedDocuments(ctx, docs)
		if err != nil {
			return err
		}
		if len(out) != len(docs) {
			return fmt.Errorf("embedder returned %d vectors for %d texts", len(out), len(docs))
		}
		runLog.Debug().Int("count", len(docs)).Dur("took", time.Since(t0)).Msg("embedded batch")
		embs = out
		return nil
	})
	return embs, err
}
