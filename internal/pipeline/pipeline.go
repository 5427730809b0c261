// Package pipeline runs the training, inference and class-embedding jobs
// end to end: configuration in, persisted artifacts and metrics out.
package pipeline

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"bczsl/internal/config"
	"bczsl/internal/domain"
	"bczsl/internal/evaluation"
	"bczsl/internal/features"
	"bczsl/internal/vectorstore"
)

// Synthetic data shapes.
const (
	SyntheticTrainSamples     = 160
	SyntheticInferenceSamples = 40
	SyntheticFeatures         = 32
)

// SyntheticLabels are the two classes fabricated in synthetic mode.
var SyntheticLabels = []string{"benign", "malignant"}

// runNamespace scopes metrics run ids.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("bczsl/metrics"))

// Options carries run flags and optional collaborator overrides. Nil
// collaborators are built from the config.
type Options struct {
	// Synthetic allows fabricated data when the configured files are absent.
	Synthetic bool

	// Extractor vectorizes metadata inputs when train.metadata_path is set.
	Extractor domain.Vectorizer
	// Figures renders the confusion matrix.
	Figures evaluation.FigureWriter
	// Store holds the class-embedding table for the zero-shot pass.
	Store vectorstore.Storage
}

// TrainMetrics is the payload written after training. NSamples counts the
// rows the classifier was fitted and scored on; held-out validation rows are
// counted separately.
type TrainMetrics struct {
	RunID               string   `json:"run_id"`
	Seed                int64    `json:"seed"`
	SyntheticMode       bool     `json:"synthetic_mode"`
	NSamples            int      `json:"n_samples"`
	NValidation         int      `json:"n_validation,omitempty"`
	NFeatures           int      `json:"n_features"`
	TrainAccuracy       float64  `json:"train_accuracy"`
	ValidationAccuracy  *float64 `json:"validation_accuracy,omitempty"`
	ModelPath           string   `json:"model_path"`
	EncoderPath         string   `json:"encoder_path"`
	ReportPath          string   `json:"report_path"`
	ConfusionMatrixPath string   `json:"confusion_matrix_path"`
}

// ZeroShotMetrics summarises the embedding-similarity pass of inference.
type ZeroShotMetrics struct {
	Accuracy    float64  `json:"accuracy"`
	NClasses    int      `json:"n_classes"`
	Predictions []string `json:"predictions"`
}

// InferenceMetrics is the payload written after inference.
type InferenceMetrics struct {
	RunID             string           `json:"run_id"`
	Seed              int64            `json:"seed"`
	SyntheticMode     bool             `json:"synthetic_mode"`
	NSamples          int              `json:"n_samples"`
	NFeatures         int              `json:"n_features"`
	InferenceAccuracy float64          `json:"inference_accuracy"`
	ConfusionMatrix   [][]int          `json:"confusion_matrix"`
	ModelPath         string           `json:"model_path"`
	EncoderPath       string           `json:"encoder_path"`
	ZeroShot          *ZeroShotMetrics `json:"zero_shot,omitempty"`
}

// runID derives a stable id from the payload with its id field empty, so
// identical runs carry identical ids.
func runID(phase string, payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return uuid.NewSHA1(runNamespace, []byte(phase)).String()
	}
	return uuid.NewSHA1(runNamespace, append([]byte(phase+":"), data...)).String()
}

func figureWriter(cfg *config.Config, opts Options) evaluation.FigureWriter {
	if opts.Figures != nil {
		return opts.Figures
	}
	if strings.EqualFold(cfg.Outputs.FigureFormat, "text") {
		return nil
	}
	return evaluation.PlotWriter{}
}

func figurePath(cfg *config.Config) string {
	p := cfg.Outputs.FigurePath(cfg.Outputs.ConfusionMatrixFile)
	if strings.EqualFold(cfg.Outputs.FigureFormat, "text") {
		return strings.TrimSuffix(p, filepath.Ext(p)) + ".txt"
	}
	return p
}

func extractor(cfg *config.Config, opts Options) domain.Vectorizer {
	if opts.Extractor != nil {
		return opts.Extractor
	}
	f := cfg.Features
	base := f.BaseDir
	if base == "" {
		base = filepath.Dir(cfg.Train.MetadataPath)
	}
	return features.NewImageExtractor(f.Grid, f.Bins, base)
}

// ClassLabels splits the comma-separated embeddings.labels setting.
func ClassLabels(cfg *config.Config) []string {
	var out []string
	for _, l := range strings.Split(cfg.Embeddings.Labels, ",") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
