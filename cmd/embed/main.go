package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"bczsl/internal/config"
	"bczsl/internal/logging"
	"bczsl/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", config.DefaultPath, "Path to config YAML")
	parser := flag.String("parser", "yaml", "Config parser: yaml or minimal")
	source := flag.String("source", "", "Embedding source: corpus, openai or voyage (overrides embeddings.source)")
	store := flag.String("store", "", "Embedding store: file, memory, qdrant or pinecone (overrides embeddings.store)")
	flag.Parse()

	cfg, err := config.LoadNamed(*cfgPath, *parser)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *source != "" {
		cfg.Embeddings.Source = *source
	}
	if *store != "" {
		cfg.Embeddings.Store = *store
	}
	logging.Init(os.Stderr, cfg.Logging.Format, logging.ParseLevel(cfg.Logging.Level))

	res, err := pipeline.RunEmbed(context.Background(), cfg, pipeline.Options{})
	if err != nil {
		log.Fatalf("embedding failed: %v", err)
	}
	fmt.Printf("Stored %d class embeddings (dim=%d) from %s in %s store\n",
		len(res.Labels), res.Dim, res.Source, cfg.Embeddings.Store)
}
