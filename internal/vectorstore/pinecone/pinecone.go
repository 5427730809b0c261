// Package pinecone stores class embeddings in a Pinecone index namespace.
package pinecone

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"bczsl/internal/domain"
	"bczsl/internal/embedding"
)

// indexAPI is the subset of *pinecone.IndexConnection the store uses.
type indexAPI interface {
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	FetchVectors(ctx context.Context, ids []string) (*pinecone.FetchVectorsResponse, error)
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
}

type Config struct {
	APIKeyEnv string
	Host      string
	Namespace string
	// Labels are the ids fetched by Load, in table order.
	Labels []string
}

type Storage struct {
	index  indexAPI
	labels []string
}

// NewStorage connects to the index at cfg.Host.
func NewStorage(cfg Config) (*Storage, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("pinecone: environment variable %s is not set", cfg.APIKeyEnv)
	}
	if cfg.Host == "" {
		return nil, errors.New("pinecone: index host is required")
	}
	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: key})
	if err != nil {
		return nil, fmt.Errorf("pinecone: client: %w", err)
	}
	conn, err := client.Index(pinecone.NewIndexConnParams{Host: cfg.Host, Namespace: cfg.Namespace})
	if err != nil {
		return nil, fmt.Errorf("pinecone: index %s: %w", cfg.Host, err)
	}
	return newWithIndex(conn, cfg.Labels), nil
}

func newWithIndex(idx indexAPI, labels []string) *Storage {
	return &Storage{index: idx, labels: append([]string(nil), labels...)}
}

func (s *Storage) Save(ctx context.Context, table *embedding.Table) error {
	if table.Len() == 0 {
		return domain.ErrEmptyTable
	}
	vectors := make([]*pinecone.Vector, 0, table.Len())
	var metaErr error
	i := 0
	table.Each(func(label string, vec []float64) {
		meta, err := structpb.NewStruct(map[string]any{"label": label, "index": i})
		if err != nil && metaErr == nil {
			metaErr = err
		}
		vectors = append(vectors, &pinecone.Vector{
			Id:       label,
			Values:   toFloat32(vec),
			Metadata: &pinecone.Metadata{Fields: meta.GetFields()},
		})
		i++
	})
	if metaErr != nil {
		return fmt.Errorf("pinecone: metadata: %w", metaErr)
	}
	if _, err := s.index.UpsertVectors(ctx, vectors); err != nil {
		return fmt.Errorf("pinecone: upsert: %w", err)
	}
	s.labels = table.Labels()
	return nil
}

func (s *Storage) Load(ctx context.Context) (*embedding.Table, error) {
	if len(s.labels) == 0 {
		return nil, fmt.Errorf("pinecone: no labels configured: %w", domain.ErrMissingArtifact)
	}
	resp, err := s.index.FetchVectors(ctx, s.labels)
	if err != nil {
		return nil, fmt.Errorf("pinecone: fetch: %w", err)
	}
	vectors := make([][]float64, len(s.labels))
	for i, l := range s.labels {
		v, ok := resp.Vectors[l]
		if !ok || v == nil {
			return nil, fmt.Errorf("pinecone: label %q: %w", l, domain.ErrMissingArtifact)
		}
		vectors[i] = toFloat64(v.Values)
	}
	return embedding.NewTable(s.labels, vectors)
}

// Search queries the index for the topK nearest labels.
func (s *Storage) Search(ctx context.Context, query []float64, topK int) ([]domain.ScoredLabel, error) {
	if topK <= 0 {
		topK = 5
	}
	resp, err := s.index.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          toFloat32(query),
		TopK:            uint32(topK),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone: query: %w", err)
	}
	out := make([]domain.ScoredLabel, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		label := m.Vector.Id
		if m.Vector.Metadata != nil {
			if f, ok := m.Vector.Metadata.Fields["label"]; ok {
				label = f.GetStringValue()
			}
		}
		out = append(out, domain.ScoredLabel{Label: label, Score: float64(m.Score)})
	}
	return out, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
