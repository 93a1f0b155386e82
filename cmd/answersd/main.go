// Answersd is the retrieval-augmented answering daemon. It wires the
// SQLite store, the embedding backend pool and the answering services
// together and hands them to the CLI commands.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/custodia-labs/sercha-answers/internal/adapters/driven/config/file"
	ollamaembed "github.com/custodia-labs/sercha-answers/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-answers/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/custodia-labs/sercha-answers/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/sercha-answers/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/sercha-answers/internal/adapters/driven/rerank/cohere"
	"github.com/custodia-labs/sercha-answers/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-answers/internal/adapters/driven/websearch/searxng"
	"github.com/custodia-labs/sercha-answers/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-answers/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-answers/internal/core/services"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	if os.Getenv("ANSWERS_VERBOSE") == "1" {
		logger.SetVerbose(true)
	}

	configStore, err := file.NewConfigStore(os.Getenv("ANSWERS_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	defer configStore.Close()
	configStore.Subscribe(func(domain.EngineConfig) {
		logger.Info("Configuration reloaded")
	})

	store, err := sqlite.NewStore(os.Getenv("ANSWERS_DATA_DIR"))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	embedModel := envOr("ANSWERS_EMBED_MODEL", "nomic-embed-text")
	dimensions := envInt("ANSWERS_EMBED_DIMENSIONS", 768)

	backends := []driven.EmbeddingBackend{
		ollamaembed.NewBackend(ollamaembed.Config{
			BaseURL:    os.Getenv("ANSWERS_OLLAMA_URL"),
			Model:      embedModel,
			Dimensions: dimensions,
		}),
	}
	if key := os.Getenv("ANSWERS_OPENAI_API_KEY"); key != "" {
		backends = append(backends, openaiembed.NewBackend(openaiembed.Config{
			BaseURL:    os.Getenv("ANSWERS_OPENAI_BASE_URL"),
			APIKey:     key,
			Model:      os.Getenv("ANSWERS_OPENAI_EMBED_MODEL"),
			Dimensions: dimensions,
		}))
	}

	ctx := context.Background()
	err = store.ChunkStore().RegisterModel(ctx, domain.EmbeddingModel{
		ID:        uuid.NewString(),
		Name:      embedModel,
		Dimension: dimensions,
		Provider:  "ollama",
	})
	if err != nil {
		return fmt.Errorf("failed to register embedding model: %w", err)
	}

	pool := services.NewPool(backends, configStore.Engine())
	pool.Start()
	defer pool.Stop()

	var generator driven.Generator
	if envOr("ANSWERS_CHAT_PROVIDER", "ollama") == "openai" {
		generator = openaillm.NewGenerator(openaillm.Config{
			BaseURL: os.Getenv("ANSWERS_OPENAI_BASE_URL"),
			APIKey:  os.Getenv("ANSWERS_OPENAI_API_KEY"),
			Model:   os.Getenv("ANSWERS_CHAT_MODEL"),
		})
	} else {
		generator = ollamallm.NewGenerator(ollamallm.Config{
			BaseURL: os.Getenv("ANSWERS_OLLAMA_URL"),
			Model:   os.Getenv("ANSWERS_CHAT_MODEL"),
			Timeout: 2 * time.Minute,
		})
	}
	rerankBackend := cohere.NewBackend(cohere.Config{
		BaseURL: os.Getenv("ANSWERS_RERANK_URL"),
		APIKey:  os.Getenv("ANSWERS_RERANK_API_KEY"),
	})
	webProvider := searxng.NewProvider(searxng.Config{
		BaseURL: envOr("ANSWERS_SEARXNG_URL", "http://localhost:8888"),
	})

	retriever := services.NewRetriever(store.ChunkStore(), pool, configStore)
	reranker := services.NewReranker(rerankBackend, configStore)
	augmenter := services.NewWebAugmenter(webProvider, store.WebCacheStore(), configStore)
	synthesizer := services.NewSynthesizer(generator, configStore)

	queryService := services.NewQueryService(
		retriever, reranker, augmenter, synthesizer,
		store.TelemetrySink(), configStore,
	)
	ingestService := services.NewIngestService(store.ChunkStore(), pool, embedModel)

	handler := httpapi.NewHandler(queryService, ingestService)

	cli.SetVersion(version)
	cli.SetServices(queryService, ingestService)
	cli.SetServeConfig(&cli.ServeConfig{Handler: httpapi.NewRouter(handler)})

	return cli.Execute()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn("Ignoring %s=%q: %v", key, v, err)
		return fallback
	}
	return n
}
