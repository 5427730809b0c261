package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file used when --config is not given.
const DefaultPath = "configs/baseline.yaml"

// DefaultSeed is used when the config does not set one.
const DefaultSeed = 42

// TrainConfig configures the training run.
type TrainConfig struct {
	FeaturesPath    string  `yaml:"features_path"`
	LabelsPath      string  `yaml:"labels_path"`
	ModelPath       string  `yaml:"model_path"`
	EncoderPath     string  `yaml:"encoder_path"`
	MaxIter         int     `yaml:"max_iter"`
	C               float64 `yaml:"c"`
	ValidationSplit float64 `yaml:"validation_split"`
	MetadataPath    string  `yaml:"metadata_path"`
	InputColumn     string  `yaml:"input_column"`
	LabelColumn     string  `yaml:"label_column"`
}

// InferenceConfig configures the inference run.
type InferenceConfig struct {
	FeaturesPath   string `yaml:"features_path"`
	LabelsPath     string `yaml:"labels_path"`
	ZeroShot       bool   `yaml:"zero_shot"`
	EmbeddingsPath string `yaml:"embeddings_path"`
	TopK           int    `yaml:"top_k"`
}

// OutputsConfig names the report directories and files.
type OutputsConfig struct {
	MetricsDir               string `yaml:"metrics_dir"`
	FiguresDir               string `yaml:"figures_dir"`
	TrainMetricsFile         string `yaml:"train_metrics_file"`
	InferenceMetricsFile     string `yaml:"inference_metrics_file"`
	ClassificationReportFile string `yaml:"classification_report_file"`
	ConfusionMatrixFile      string `yaml:"confusion_matrix_file"`
	FigureFormat             string `yaml:"figure_format"`
}

// EmbeddingsConfig selects the class-embedding source and the store that
// holds the resulting table.
type EmbeddingsConfig struct {
	Source     string `yaml:"source"`
	Labels     string `yaml:"labels"`
	CorpusPath string `yaml:"corpus_path"`
	VectorSize int    `yaml:"vector_size"`
	Window     int    `yaml:"window"`
	Store      string `yaml:"store"`

	OpenAIBaseURL   string `yaml:"openai_base_url"`
	OpenAIAPIKeyEnv string `yaml:"openai_api_key_env"`
	OpenAIModel     string `yaml:"openai_model"`
	TimeoutSecs     int    `yaml:"timeout_secs"`

	VoyageAPIKeyEnv string `yaml:"voyage_api_key_env"`
	VoyageModel     string `yaml:"voyage_model"`

	QdrantURL        string `yaml:"qdrant_url"`
	QdrantAPIKeyEnv  string `yaml:"qdrant_api_key_env"`
	QdrantCollection string `yaml:"qdrant_collection"`

	PineconeAPIKeyEnv string `yaml:"pinecone_api_key_env"`
	PineconeHost      string `yaml:"pinecone_host"`
	PineconeNamespace string `yaml:"pinecone_namespace"`
}

// FeaturesConfig configures the image feature extractor used with
// train.metadata_path.
type FeaturesConfig struct {
	Grid    int    `yaml:"grid"`
	Bins    int    `yaml:"bins"`
	BaseDir string `yaml:"base_dir"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the root configuration structure.
type Config struct {
	Seed       int64            `yaml:"seed"`
	Train      TrainConfig      `yaml:"train"`
	Inference  InferenceConfig  `yaml:"inference"`
	Outputs    OutputsConfig    `yaml:"outputs"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Features   FeaturesConfig   `yaml:"features"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// Load reads path with the YAML parser.
func Load(path string) (*Config, error) {
	return LoadWith(path, YAMLParser{})
}

// LoadNamed reads path with the parser registered under parserName.
func LoadNamed(path, parserName string) (*Config, error) {
	p, err := ParserByName(parserName)
	if err != nil {
		return nil, err
	}
	return LoadWith(path, p)
}

// LoadWith reads path with parser p. If the file does not exist, defaults
// are returned. Environment overrides are applied last.
func LoadWith(path string, p Parser) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Info("config file not found, using defaults", "path", path)
			cfg := Default()
			if err := applyEnv(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}
	raw, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode turns a parsed key-value tree into a Config with defaults applied.
func Decode(raw map[string]any) (*Config, error) {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if _, ok := raw["seed"]; !ok {
		cfg.Seed = DefaultSeed
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{Seed: DefaultSeed}
	applyDefaults(cfg)
	return cfg
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("BCZSL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BCZSL_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: BCZSL_SEED=%q: %w", v, err)
		}
		cfg.Seed = seed
	}
	return nil
}

func setDefault[T comparable](field *T, v T) {
	var zero T
	if *field == zero {
		*field = v
	}
}

func applyDefaults(cfg *Config) {
	t := &cfg.Train
	setDefault(&t.FeaturesPath, "data/processed/train_features.csv")
	setDefault(&t.LabelsPath, "data/processed/train_labels.csv")
	setDefault(&t.ModelPath, "models/logreg_model.joblib")
	setDefault(&t.EncoderPath, "models/label_encoder.joblib")
	setDefault(&t.MaxIter, 1000)
	setDefault(&t.C, 1.0)
	setDefault(&t.InputColumn, "path")
	setDefault(&t.LabelColumn, "label")

	in := &cfg.Inference
	setDefault(&in.FeaturesPath, "data/processed/test_features.csv")
	setDefault(&in.LabelsPath, "data/processed/test_labels.csv")
	setDefault(&in.EmbeddingsPath, "models/class_embeddings.json")
	setDefault(&in.TopK, 3)

	o := &cfg.Outputs
	setDefault(&o.MetricsDir, "reports/metrics")
	setDefault(&o.FiguresDir, "reports/figures")
	setDefault(&o.TrainMetricsFile, "train_metrics.json")
	setDefault(&o.InferenceMetricsFile, "inference_metrics.json")
	setDefault(&o.ClassificationReportFile, "classification_report.txt")
	setDefault(&o.ConfusionMatrixFile, "confusion_matrix.png")
	setDefault(&o.FigureFormat, "png")

	e := &cfg.Embeddings
	setDefault(&e.Source, "corpus")
	setDefault(&e.Labels, "benign,malignant")
	setDefault(&e.CorpusPath, "data/class_corpus.txt")
	setDefault(&e.VectorSize, 32)
	setDefault(&e.Window, 2)
	setDefault(&e.Store, "file")
	setDefault(&e.OpenAIBaseURL, "https://api.openai.com/v1")
	setDefault(&e.OpenAIAPIKeyEnv, "OPENAI_API_KEY")
	setDefault(&e.OpenAIModel, "text-embedding-3-small")
	setDefault(&e.TimeoutSecs, 30)
	setDefault(&e.VoyageAPIKeyEnv, "VOYAGEAI_API_KEY")
	setDefault(&e.VoyageModel, "voyage-3.5-lite")
	setDefault(&e.QdrantURL, "http://localhost:6333")
	setDefault(&e.QdrantAPIKeyEnv, "QDRANT_API_KEY")
	setDefault(&e.QdrantCollection, "class_embeddings")
	setDefault(&e.PineconeAPIKeyEnv, "PINECONE_API_KEY")
	setDefault(&e.PineconeNamespace, "class-embeddings")

	f := &cfg.Features
	setDefault(&f.Grid, 8)
	setDefault(&f.Bins, 8)

	l := &cfg.Logging
	setDefault(&l.Level, "info")
	setDefault(&l.Format, "text")
}

// MetricsPath joins the metrics directory and name.
func (o OutputsConfig) MetricsPath(name string) string { return filepath.Join(o.MetricsDir, name) }

// FigurePath joins the figures directory and name.
func (o OutputsConfig) FigurePath(name string) string { return filepath.Join(o.FiguresDir, name) }
