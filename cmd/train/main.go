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
	synthetic := flag.Bool("synthetic", false, "Generate synthetic data when the feature/label files are absent")
	parser := flag.String("parser", "yaml", "Config parser: yaml or minimal")
	flag.Parse()

	cfg, err := config.LoadNamed(*cfgPath, *parser)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logging.Init(os.Stderr, cfg.Logging.Format, logging.ParseLevel(cfg.Logging.Level))

	m, err := pipeline.RunTraining(context.Background(), cfg, pipeline.Options{Synthetic: *synthetic})
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}
	fmt.Printf("Training complete. Accuracy=%.4f\n", m.TrainAccuracy)
}
