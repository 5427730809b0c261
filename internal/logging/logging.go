package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Attribute keys shared by every component.
const (
	KeySamples  = "data.samples"
	KeyFeatures = "data.features"
	KeyAccuracy = "metrics.accuracy"
	KeyPhase    = "ml.phase"
	KeyPath     = "artifact.path"
)

// New builds a logger writing to w. format "json" selects the JSON handler;
// anything else gives human-readable text.
func New(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Init installs New(w, format, level) as the slog default.
func Init(w io.Writer, format string, level slog.Level) {
	slog.SetDefault(New(w, format, level))
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to slog.Level.
// Unknown strings default to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Phase returns a logger tagged with the pipeline phase.
func Phase(phase string) *slog.Logger {
	return slog.Default().With(KeyPhase, phase)
}
