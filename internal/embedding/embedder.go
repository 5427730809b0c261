package embedding

import (
	"context"
	"fmt"
)

// LabelEmbedder converts a class token into a fixed-size vector.
// Implementations may require a preparation phase over a token corpus.
type LabelEmbedder interface {
	Name() string
	Prepare(corpus [][]string) error
	Dimension() int
	Embed(ctx context.Context, token string) ([]float64, error)
}

// BuildTable embeds every label in order and returns the resulting table.
func BuildTable(ctx context.Context, emb LabelEmbedder, labels []string) (*Table, error) {
	vectors := make([][]float64, len(labels))
	for i, lbl := range labels {
		vec, err := emb.Embed(ctx, lbl)
		if err != nil {
			return nil, fmt.Errorf("embed %q with %s: %w", lbl, emb.Name(), err)
		}
		vectors[i] = vec
	}
	return NewTable(labels, vectors)
}
