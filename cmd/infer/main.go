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
	zeroShot := flag.Bool("zero-shot", false, "Also score the zero-shot matcher (overrides inference.zero_shot when set)")
	flag.Parse()

	cfg, err := config.LoadNamed(*cfgPath, *parser)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *zeroShot {
		cfg.Inference.ZeroShot = true
	}
	logging.Init(os.Stderr, cfg.Logging.Format, logging.ParseLevel(cfg.Logging.Level))

	m, err := pipeline.RunInference(context.Background(), cfg, pipeline.Options{Synthetic: *synthetic})
	if err != nil {
		log.Fatalf("inference failed: %v", err)
	}
	fmt.Printf("Inference complete. Accuracy=%.4f\n", m.InferenceAccuracy)
	if m.ZeroShot != nil {
		fmt.Printf("Zero-shot accuracy=%.4f over %d classes\n", m.ZeroShot.Accuracy, m.ZeroShot.NClasses)
	}
}
