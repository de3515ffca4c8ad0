package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sairam-f/agentic-rag/internal/config"
	"github.com/sairam-f/agentic-rag/internal/ingest"
	"github.com/sairam-f/agentic-rag/internal/llmservice"
	"github.com/sairam-f/agentic-rag/internal/rag"
	"github.com/sairam-f/agentic-rag/internal/vectorstore"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	// .env is optional; API keys may come from the real environment.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "agentic-rag",
		Short:         "Minimal retrieval-augmented generation over local documents",
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(&cobra.Command{
		Use:   "ingest",
		Short: "Chunk, embed, and index every document in the raw data directory",
		Run:   func(cmd *cobra.Command, args []string) { runIngest(cmd.Context()) },
	})
	root.AddCommand(&cobra.Command{
		Use:   "chat",
		Short: "Interactive question loop over the indexed documents",
		Run:   func(cmd *cobra.Command, args []string) { runChat(cmd.Context()) },
	})

	// Unknown subcommands print usage; they are not treated as failures.
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Println(err)
		_ = root.Usage()
	}
}

func openStore(cfg *config.Config) *vectorstore.Store {
	store, err := vectorstore.Open(cfg.RAG.PersistDir, cfg.RAG.Collection)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector store")
	}
	return store
}

func runIngest(ctx context.Context) {
	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	svc, err := llmservice.NewClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing llm client")
	}

	store := openStore(cfg)
	pipeline := ingest.NewPipeline(store, svc, cfg)
	if err := pipeline.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error running ingestion")
	}
}

func runChat(ctx context.Context) {
	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	svc, err := llmservice.NewClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing llm client")
	}

	store := openStore(cfg)
	answerer := rag.NewAnswerer(store, svc, cfg)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nAsk> ")
		if !scanner.Scan() {
			break
		}
		q := strings.TrimSpace(scanner.Text())
		if q == "" || strings.EqualFold(q, "exit") || strings.EqualFold(q, "quit") {
			break
		}

		answer, err := answerer.Answer(ctx, q)
		if err != nil {
			log.Fatal().Err(err).Msg("Error answering query")
		}
		fmt.Printf("\n%s\n", answer)
	}
}
