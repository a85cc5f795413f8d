package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/database"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/dataset"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/embedding"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/ingestion"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/llm/bedrock"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/setup"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	source := flag.String("source", "postgres", "Dataset source: postgres or a JSON file path")
	backend := flag.String("backend", "", "Index backend: pgvector or memory (default INDEX_BACKEND)")
	out := flag.String("out", "", "Snapshot path for the memory backend (default INDEX_SNAPSHOT_PATH)")
	parallelism := flag.Int("parallelism", ingestion.DefaultParallelism, "Concurrent embedding batches")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	logger := log.Logger

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := setup.LoadConfig()
	if *backend != "" {
		cfg.IndexBackend = *backend
	}
	if *out != "" {
		cfg.IndexSnapshotPath = *out
	}

	var db *database.DB
	if *source == "postgres" || cfg.IndexBackend == setup.IndexPgvector {
		var err error
		db, err = database.NewWithBackoff(ctx, cfg.Database, cfg.DBMaxRetries)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
	}

	reader, err := openReader(db, *source)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open dataset")
	}

	runtime, err := bedrock.NewRuntime(ctx, cfg.AWSRegion)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Bedrock client")
	}
	embedder := embedding.NewBedrockEmbedder(runtime, cfg.EmbeddingModelID, cfg.EmbeddingDimensions)

	writer, err := openWriter(ctx, db, cfg, embedder.ModelID())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open index")
	}

	start := time.Now()
	builder := ingestion.NewBuilder(reader, embedder, *parallelism, &logger)
	count, err := builder.Run(ctx, writer)
	if err != nil {
		log.Fatal().Err(err).Msg("Index build failed")
	}

	log.Info().
		Int("passages", count).
		Str("backend", cfg.IndexBackend).
		Dur("duration", time.Since(start)).
		Msg("Index built")
}

func openReader(db *database.DB, source string) (dataset.Reader, error) {
	if source == "postgres" {
		return dataset.NewPostgresReader(db.Pool), nil
	}
	return dataset.LoadFile(source)
}

func openWriter(ctx context.Context, db *database.DB, cfg *setup.Config, model string) (ingestion.Writer, error) {
	switch cfg.IndexBackend {
	case setup.IndexPgvector:
		store := database.NewPassageStore(db)
		if err := store.EnsureSchema(ctx, cfg.EmbeddingDimensions); err != nil {
			return nil, err
		}
		return store, nil

	case setup.IndexMemory, "":
		return &ingestion.SnapshotWriter{
			Path:    cfg.IndexSnapshotPath,
			Version: time.Now().UTC().Format(time.RFC3339),
			Model:   model,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported index backend: %s", cfg.IndexBackend)
	}
}
