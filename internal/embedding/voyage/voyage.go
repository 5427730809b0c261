package voyage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/austinfhunter/voyageai"
)

const (
	DefaultModel  = "voyage-3.5-lite"
	inputTypeDocs = "document"
)

// embedAPI is the subset of the Voyage SDK client used here.
type embedAPI interface {
	Embed(texts []string, model string, opts *voyageai.EmbeddingRequestOpts) (*voyageai.EmbeddingResponse, error)
}

// Config configures the Voyage AI embedder.
type Config struct {
	APIKeyEnv  string
	Model      string
	Dimensions int
}

// Embedder produces class-token embeddings with the Voyage AI API.
type Embedder struct {
	api        embedAPI
	model      string
	dimensions int
}

// New creates a Voyage embedder. The output dimension must match the feature
// dimensionality for zero-shot matching to be meaningful.
func New(cfg Config) (*Embedder, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%s environment variable not set", cfg.APIKeyEnv)
	}
	return newWithAPI(voyageai.NewClient(&voyageai.VoyageClientOpts{Key: key}), cfg), nil
}

func newWithAPI(api embedAPI, cfg Config) *Embedder {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Embedder{api: api, model: model, dimensions: cfg.Dimensions}
}

func (e *Embedder) Name() string { return "voyage" }

func (e *Embedder) Prepare(corpus [][]string) error { return nil }

func (e *Embedder) Dimension() int { return e.dimensions }

// Embed returns the embedding of token as float64.
func (e *Embedder) Embed(ctx context.Context, token string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	inputType := inputTypeDocs
	opts := &voyageai.EmbeddingRequestOpts{InputType: &inputType}
	if e.dimensions > 0 {
		dims := e.dimensions
		opts.OutputDimension = &dims
	}
	resp, err := e.api.Embed([]string{token}, e.model, opts)
	if err != nil {
		return nil, fmt.Errorf("could not get embedding: %w", err)
	}
	if resp == nil || len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("voyage: empty embedding response")
	}
	out := make([]float64, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		out[i] = float64(v)
	}
	return out, nil
}

// Vectorize implements domain.Vectorizer.
func (e *Embedder) Vectorize(ctx context.Context, input string) ([]float64, error) {
	return e.Embed(ctx, input)
}
