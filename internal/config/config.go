package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// LLMConfig configures one OpenAI-compatible or Ollama endpoint.
type LLMConfig struct {
	Provider       string `yaml:"provider"`
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	EmbeddingModel string `yaml:"embedding_model"`
	InferenceModel string `yaml:"inference_model"`
}

// RAGConfig holds the pipeline and store settings.
type RAGConfig struct {
	RawDir            string `yaml:"raw_dir"`
	PersistDir        string `yaml:"persist_dir"`
	Collection        string `yaml:"collection"`
	ChunkSize         int    `yaml:"chunk_size"`
	ChunkOverlap      int    `yaml:"chunk_overlap"`
	TopK              int    `yaml:"top_k"`
	MaxContextChars   int    `yaml:"max_context_chars"`
	BatchSize         int    `yaml:"batch_size"`
	EmbedsPerMinute   int    `yaml:"embeds_per_minute"`
	RetryCooldownSecs int    `yaml:"retry_cooldown_secs"`
}

type Config struct {
	LLM LLMConfig `yaml:"llm"`
	RAG RAGConfig `yaml:"rag"`
}

// LoadConfig reads the YAML config at path. A missing file is not an error:
// the defaults are enough to run against a local Ollama.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:       "ollama",
			BaseURL:        "http://localhost:11434",
			APIKeyEnv:      "OPENAI_API_KEY",
			EmbeddingModel: "nomic-embed-text",
			InferenceModel: "llama3.1",
		},
		RAG: RAGConfig{
			RawDir:            "data/raw",
			PersistDir:        "data/vdb",
			Collection:        "docs",
			ChunkSize:         2000,
			ChunkOverlap:      200,
			TopK:              6,
			MaxContextChars:   9000,
			BatchSize:         5,
			EmbedsPerMinute:   95,
			RetryCooldownSecs: 55,
		},
	}
}

func applyDefaults(cfg *Config) {
	def := defaultConfig()
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = def.LLM.Provider
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = def.LLM.APIKeyEnv
	}
	if cfg.RAG.RawDir == "" {
		cfg.RAG.RawDir = def.RAG.RawDir
	}
	if cfg.RAG.PersistDir == "" {
		cfg.RAG.PersistDir = def.RAG.PersistDir
	}
	if cfg.RAG.Collection == "" {
		cfg.RAG.Collection = def.RAG.Collection
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = def.RAG.ChunkSize
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = def.RAG.ChunkOverlap
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = def.RAG.TopK
	}
	if cfg.RAG.MaxContextChars == 0 {
		cfg.RAG.MaxContextChars = def.RAG.MaxContextChars
	}
	if cfg.RAG.BatchSize == 0 {
		cfg.RAG.BatchSize = def.RAG.BatchSize
	}
	if cfg.RAG.EmbedsPerMinute == 0 {
		cfg.RAG.EmbedsPerMinute = def.RAG.EmbedsPerMinute
	}
	if cfg.RAG.RetryCooldownSecs == 0 {
		cfg.RAG.RetryCooldownSecs = def.RAG.RetryCooldownSecs
	}
}

// APIKey resolves the configured key from the environment.
func (c *Config) APIKey() string {
	return os.Getenv(c.LLM.APIKeyEnv)
}
