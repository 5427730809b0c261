package vectorstore

import (
	"context"

	"bczsl/internal/domain"
	"bczsl/internal/embedding"
)

// Storage persists a class-embedding table. Save replaces whatever the store
// held before; Load returns the entries in the order they were saved.
type Storage interface {
	Save(ctx context.Context, table *embedding.Table) error
	Load(ctx context.Context) (*embedding.Table, error)
}

// Searcher is implemented by stores that can rank their entries against a
// query vector themselves.
type Searcher interface {
	Search(ctx context.Context, query []float64, topK int) ([]domain.ScoredLabel, error)
}

// Search ranks the stored entries against query, delegating to the store when
// it implements Searcher.
func Search(ctx context.Context, s Storage, query []float64, topK int) ([]domain.ScoredLabel, error) {
	if sr, ok := s.(Searcher); ok {
		return sr.Search(ctx, query, topK)
	}
	table, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return embedding.Rank(query, table, topK)
}
