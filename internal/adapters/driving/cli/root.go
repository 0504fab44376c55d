// Package cli implements the command line interface.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/halcyon-labs/ragchat/internal/adapters/driven/config/file"
	ollamaembed "github.com/halcyon-labs/ragchat/internal/adapters/driven/embedding/ollama"
	ollamagen "github.com/halcyon-labs/ragchat/internal/adapters/driven/generation/ollama"
	"github.com/halcyon-labs/ragchat/internal/adapters/driven/vector/memory"
	"github.com/halcyon-labs/ragchat/internal/adapters/driven/vector/pinecone"
	"github.com/halcyon-labs/ragchat/internal/adapters/driven/vector/sqlite"
	"github.com/halcyon-labs/ragchat/internal/core/ports/driven"
	"github.com/halcyon-labs/ragchat/internal/core/ports/driving"
	"github.com/halcyon-labs/ragchat/internal/core/services"
	"github.com/halcyon-labs/ragchat/internal/logger"
	"github.com/halcyon-labs/ragchat/internal/splitter"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	verbose    bool
)

// Wired services, populated by initServices.
var (
	cfg             file.Config
	pipelineService driving.Pipeline
	vectorStore     driven.VectorStore
	embedService    driven.Embedder
	generateService driven.Generator
)

var rootCmd = &cobra.Command{
	Use:   "ragchat",
	Short: "Chat with your documents",
	Long: `ragchat ingests local documents into a vector store and answers
questions about them using a local Ollama model, grounded in the most
similar passages.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.ragchat/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the CLI.
func Execute() error {
	defer closeServices()
	return rootCmd.Execute()
}

// initServices loads configuration and wires the pipeline. Idempotent;
// commands that need the pipeline call it first.
func initServices() error {
	if pipelineService != nil {
		return nil
	}

	logger.SetVerbose(verbose)

	var err error
	cfg, err = file.Load(configPath)
	if err != nil {
		return err
	}

	embedService = ollamaembed.NewEmbedder(ollamaembed.Config{
		BaseURL:        cfg.Ollama.BaseURL,
		Model:          cfg.Ollama.EmbedModel,
		Dimensions:     cfg.Ollama.Dimensions,
		Timeout:        time.Duration(cfg.Ollama.TimeoutSecs) * time.Second,
		FanOut:         cfg.Ollama.FanOut,
		RequestsPerSec: cfg.Ollama.RequestsPerSec,
	})

	generateService = ollamagen.NewGenerator(ollamagen.Config{
		BaseURL: cfg.Ollama.BaseURL,
		Model:   cfg.Ollama.Model,
		Timeout: time.Duration(cfg.Ollama.TimeoutSecs) * time.Second,
	})

	vectorStore, err = buildStore()
	if err != nil {
		return err
	}

	split := splitter.New(
		splitter.WithMaxChars(cfg.Chunking.MaxChars),
		splitter.WithOverlap(cfg.Chunking.OverlapChars),
	)

	pipelineService = services.NewPipelineService(embedService, generateService, vectorStore, split, services.Config{
		TopK:          cfg.Retrieval.TopK,
		MinSimilarity: cfg.Retrieval.MinSimilarity,
	})

	logger.Debug("wired pipeline: store=%s embed=%s gen=%s",
		cfg.Store.Driver, embedService.ModelName(), generateService.ModelName())
	return nil
}

func buildStore() (driven.VectorStore, error) {
	switch cfg.Store.Driver {
	case "memory":
		return memory.NewStore(), nil

	case "sqlite", "":
		path, err := cfg.SQLitePath()
		if err != nil {
			return nil, err
		}
		return sqlite.NewStore(path)

	case "pinecone":
		apiKey, err := cfg.PineconeAPIKey()
		if err != nil {
			return nil, err
		}
		return pinecone.NewStore(pinecone.Config{
			APIKey:       apiKey,
			ControlURL:   cfg.Store.Pinecone.ControlURL,
			Cloud:        cfg.Store.Pinecone.Cloud,
			Region:       cfg.Store.Pinecone.Region,
			ReadyTimeout: time.Duration(cfg.Store.Pinecone.ReadyTimeoutSecs) * time.Second,
			BatchSize:    cfg.Store.Pinecone.BatchSize,
		}), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func closeServices() {
	if vectorStore != nil {
		vectorStore.Close()
	}
	if embedService != nil {
		embedService.Close()
	}
	if generateService != nil {
		generateService.Close()
	}
}
