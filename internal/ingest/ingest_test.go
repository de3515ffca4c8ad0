package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sairam-f/agentic-rag/internal/config"
	"github.com/sairam-f/agentic-rag/internal/vectorstore"
)

// countingService hands out deterministic embeddings and can be told to fail
// from a given batch onward.
type countingService struct {
	embedBatches int
	failFrom     int   // 1-based batch number to start failing at, 0 = never
	failErr      error // error to return from failFrom onward
}

func (s *countingService) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	s.embedBatches++
	if s.failFrom > 0 && s.embedBatches >= s.failFrom {
		return nil, s.failErr
	}
	out := make([][]float32, len(texts))
	for i, txt := range texts {
		out[i] = []float32{float32(len(txt)), 1}
	}
	return out, nil
}

func (s *countingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, nil
}

func (s *countingService) Generate(ctx context.Context, prompt string) (string, error) {
	return "", nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		RAG: config.RAGConfig{
			RawDir:          filepath.Join(t.TempDir(), "raw"),
			PersistDir:      filepath.Join(t.TempDir(), "vdb"),
			Collection:      "docs",
			ChunkSize:       50,
			ChunkOverlap:    10,
			BatchSize:       2,
			EmbedsPerMinute: 100_000, // no throttling in tests
		},
	}
}

func writeRawFile(t *testing.T, cfg *config.Config, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(cfg.RAG.RawDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.RAG.RawDir, name), []byte(content), 0o644))
}

func openStore(t *testing.T, cfg *config.Config) *vectorstore.Store {
	t.Helper()
	store, err := vectorstore.Open(cfg.RAG.PersistDir, cfg.RAG.Collection)
	require.NoError(t, err)
	return store
}

func TestRun_IngestsDocuments(t *testing.T) {
	cfg := testConfig(t)
	writeRawFile(t, cfg, "notes.txt", "Gophers are small burrowing rodents. They dig extensive tunnel systems in fields.")

	store := openStore(t, cfg)
	p := NewPipeline(store, &countingService{}, cfg)
	require.NoError(t, p.Run(context.Background()))

	assert.Greater(t, store.Count(), 0)
}

func TestRun_EmptyRawDirIsNotAnError(t *testing.T) {
	cfg := testConfig(t)
	store := openStore(t, cfg)

	p := NewPipeline(store, &countingService{}, cfg)
	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, 0, store.Count())
}

func TestRun_Idempotent(t *testing.T) {
	cfg := testConfig(t)
	writeRawFile(t, cfg, "doc.txt", "Chunk fingerprints make re-ingestion a no-op. The same bytes hash to the same id every time.")

	store := openStore(t, cfg)
	svc := &countingService{}
	require.NoError(t, NewPipeline(store, svc, cfg).Run(context.Background()))
	firstCount := store.Count()
	require.Greater(t, firstCount, 0)
	firstBatches := svc.embedBatches

	// Second run over the same input: nothing new embedded, nothing added.
	reloaded := openStore(t, cfg)
	require.NoError(t, NewPipeline(reloaded, svc, cfg).Run(context.Background()))
	assert.Equal(t, firstCount, reloaded.Count())
	assert.Equal(t, firstBatches, svc.embedBatches)
}

func TestRun_SkipsUnsupportedFiles(t *testing.T) {
	cfg := testConfig(t)
	writeRawFile(t, cfg, "good.txt", "Supported content gets indexed as usual despite the neighbor.")
	writeRawFile(t, cfg, "weird.xyz", "binary-ish payload")

	store := openStore(t, cfg)
	require.NoError(t, NewPipeline(store, &countingService{}, cfg).Run(context.Background()))
	assert.Greater(t, store.Count(), 0)
}

func TestRun_WritesBatchesAsItGoes(t *testing.T) {
	cfg := testConfig(t)
	// Long enough for several chunks, so several batches of 2.
	var content string
	for i := 0; i < 20; i++ {
		content += fmt.Sprintf("Sentence number %d about persistent ingestion. ", i)
	}
	writeRawFile(t, cfg, "long.txt", content)

	store := openStore(t, cfg)
	svc := &countingService{failFrom: 2, failErr: errors.New("connection reset")}
	err := NewPipeline(store, svc, cfg).Run(context.Background())
	require.Error(t, err)

	// The first batch must already be durable even though the run failed.
	reloaded := openStore(t, cfg)
	assert.Equal(t, cfg.RAG.BatchSize, reloaded.Count())
}

func TestRun_ResumesAfterFailure(t *testing.T) {
	cfg := testConfig(t)
	var content string
	for i := 0; i < 20; i++ {
		content += fmt.Sprintf("Sentence number %d about resumable ingestion. ", i)
	}
	writeRawFile(t, cfg, "long.txt", content)

	store := openStore(t, cfg)
	svc := &countingService{failFrom: 2, failErr: errors.New("connection reset")}
	require.Error(t, NewPipeline(store, svc, cfg).Run(context.Background()))

	// Retry with a healthy service: already-persisted chunks are skipped and
	// the rest land.
	reloaded := openStore(t, cfg)
	persisted := reloaded.Count()
	require.NoError(t, NewPipeline(reloaded, &countingService{}, cfg).Run(context.Background()))
	assert.Greater(t, reloaded.Count(), persisted)

	// A final clean run adds nothing.
	final := openStore(t, cfg)
	total := final.Count()
	require.NoError(t, NewPipeline(final, &countingService{}, cfg).Run(context.Background()))
	assert.Equal(t, total, final.Count())
}
