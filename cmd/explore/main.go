package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"bczsl/internal/config"
	"bczsl/internal/logging"
	"bczsl/internal/pipeline"
	"bczsl/internal/tui"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", config.DefaultPath, "Path to config YAML")
	synthetic := flag.Bool("synthetic", false, "Generate synthetic samples when the inference files are absent")
	parser := flag.String("parser", "yaml", "Config parser: yaml or minimal")
	flag.Parse()

	cfg, err := config.LoadNamed(*cfgPath, *parser)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	// The terminal belongs to the TUI; only errors reach the log.
	logging.Init(io.Discard, cfg.Logging.Format, slog.LevelError)

	ctx := context.Background()
	opts := pipeline.Options{Synthetic: *synthetic}
	sess, err := pipeline.OpenSession(ctx, cfg, opts, false)
	if err != nil {
		log.Fatalf("failed to open session: %v", err)
	}
	summary := fmt.Sprintf("%d samples, %d seen classes", sess.Len(), sess.Encoder.Len())
	if store, err := pipeline.OpenStore(cfg); err == nil {
		if table, err := store.Load(ctx); err == nil {
			sess.Table = table
			summary += fmt.Sprintf(", %d class embeddings", table.Len())
		} else {
			summary += " (no class embeddings: " + err.Error() + ")"
		}
	}

	m := tui.New(sess, summary, cfg.Inference.TopK)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}
